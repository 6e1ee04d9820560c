package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gpm.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, 1000, cfg.Daemon.MaxProcesses)
	require.Equal(t, 9999, cfg.Daemon.Port)
	require.Equal(t, 5*time.Second, cfg.Daemon.AutoRestartDelay)
	require.Equal(t, 5*time.Second, cfg.Daemon.HealthCheckInterval)
	require.Equal(t, 100, cfg.Log.MaxSizeMB)
	require.Equal(t, 30, cfg.Log.MaxAgeDays)
	require.Equal(t, "sqlite", cfg.Store.Type)
	require.NotEmpty(t, cfg.Daemon.Socket)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[daemon]
max_processes = 50
grace_period = "10s"
auto_restart_delay = "1s"

[log]
dir = "/tmp/gpm-logs"
max_size_mb = 5

[store]
type = "postgres"
dsn = "postgres://gpm@localhost/gpm"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Daemon.MaxProcesses)
	require.Equal(t, 10*time.Second, cfg.Daemon.GracePeriod)
	require.Equal(t, time.Second, cfg.Daemon.AutoRestartDelay)
	require.Equal(t, "/tmp/gpm-logs", cfg.Log.Dir)
	require.Equal(t, 5, cfg.Log.MaxSizeMB)
	require.Equal(t, "postgres", cfg.Store.Type)

	// Untouched fields keep their defaults.
	require.Equal(t, 9999, cfg.Daemon.Port)
	require.Equal(t, 30, cfg.Log.MaxAgeDays)
}

func TestLoadProcesses(t *testing.T) {
	path := writeConfig(t, `
[[processes]]
name = "web"
command = "node server.js"
instances = 2
autorestart = true
max_memory_mb = 256
env = ["PORT=3000"]

[[processes]]
command = "python worker.py"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	specs := cfg.Specs()
	require.Len(t, specs, 2)

	require.Equal(t, "web", specs[0].Name)
	require.Equal(t, 2, specs[0].Instances)
	require.True(t, specs[0].AutoRestart)
	require.Equal(t, uint64(256), specs[0].MaxMemoryMB)
	require.Equal(t, []string{"PORT=3000"}, specs[0].Env)

	// Missing name falls back to the command's first word.
	require.Equal(t, "python", specs[1].Name)
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
[[processes]]
name = "dup"
command = "sleep 1"

[[processes]]
name = "dup"
command = "sleep 2"
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestLoadRejectsMissingCommand(t *testing.T) {
	path := writeConfig(t, `
[[processes]]
name = "nocmd"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadBadTOML(t *testing.T) {
	path := writeConfig(t, `this is not toml = [`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLimitsConversion(t *testing.T) {
	cfg := Default()
	limits := cfg.Limits()
	require.Equal(t, cfg.Daemon.MaxProcesses, limits.MaxProcesses)
	require.Equal(t, cfg.Daemon.GracePeriod, limits.GracePeriod)
	require.Equal(t, cfg.Daemon.RestartMax, limits.RestartMax)
}
