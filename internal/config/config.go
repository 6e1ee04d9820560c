// Package config loads the daemon's TOML configuration file and converts it
// into the runtime types the rest of gpm consumes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/gpm-project/gpm/internal/logger"
	"github.com/gpm-project/gpm/internal/process"
	"github.com/gpm-project/gpm/internal/store"
	"github.com/gpm-project/gpm/internal/supervisor"
)

// Config is the full daemon configuration as read from TOML.
type Config struct {
	Daemon    DaemonConfig    `toml:"daemon" mapstructure:"daemon"`
	Log       LogConfig       `toml:"log" mapstructure:"log"`
	Store     store.Config    `toml:"store" mapstructure:"store"`
	Processes []ProcessConfig `toml:"processes" mapstructure:"processes"`
}

// DaemonConfig controls the daemon itself: IPC endpoint, data directory and
// supervision policy.
type DaemonConfig struct {
	DataDir             string        `toml:"data_dir" mapstructure:"data_dir"`
	Socket              string        `toml:"socket" mapstructure:"socket"`
	Port                int           `toml:"port" mapstructure:"port"`
	MaxProcesses        int           `toml:"max_processes" mapstructure:"max_processes"`
	GracePeriod         time.Duration `toml:"grace_period" mapstructure:"grace_period"`
	AutoRestartDelay    time.Duration `toml:"auto_restart_delay" mapstructure:"auto_restart_delay"`
	RestartBackoffMax   time.Duration `toml:"restart_backoff_max" mapstructure:"restart_backoff_max"`
	RestartMax          int           `toml:"restart_max" mapstructure:"restart_max"`
	RestartWindow       time.Duration `toml:"restart_window" mapstructure:"restart_window"`
	HealthCheckInterval time.Duration `toml:"health_check_interval" mapstructure:"health_check_interval"`
}

// LogConfig holds daemon-wide log capture defaults; per-process settings
// override these field by field.
type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// ProcessConfig is one [[processes]] entry: a process declared in the config
// file, started when the daemon boots.
type ProcessConfig struct {
	Name                string        `toml:"name" mapstructure:"name"`
	Command             string        `toml:"command" mapstructure:"command"`
	WorkDir             string        `toml:"workdir" mapstructure:"workdir"`
	Env                 []string      `toml:"env" mapstructure:"env"`
	Instances           int           `toml:"instances" mapstructure:"instances"`
	AutoRestart         bool          `toml:"autorestart" mapstructure:"autorestart"`
	MaxMemoryMB         uint64        `toml:"max_memory_mb" mapstructure:"max_memory_mb"`
	HealthCheckInterval time.Duration `toml:"health_check_interval" mapstructure:"health_check_interval"`
	Log                 *LogConfig    `toml:"log" mapstructure:"log"`
}

// Default returns the built-in configuration: data under ~/.gpm, SQLite
// persistence, and the stock supervision policy.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Daemon: DaemonConfig{
			DataDir:             dataDir,
			Socket:              filepath.Join(dataDir, "gpm.sock"),
			Port:                9999,
			MaxProcesses:        1000,
			GracePeriod:         3 * time.Second,
			AutoRestartDelay:    5 * time.Second,
			RestartBackoffMax:   60 * time.Second,
			RestartMax:          10,
			RestartWindow:       60 * time.Second,
			HealthCheckInterval: 5 * time.Second,
		},
		Log: LogConfig{
			Dir:        filepath.Join(dataDir, "logs"),
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Store: store.Config{
			Type: "sqlite",
			Path: filepath.Join(dataDir, "gpm.db"),
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gpm"
	}
	return filepath.Join(home, ".gpm")
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the decoder cannot.
func (c Config) Validate() error {
	if c.Daemon.MaxProcesses < 0 {
		return fmt.Errorf("daemon.max_processes must not be negative")
	}
	if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port out of range: %d", c.Daemon.Port)
	}
	seen := make(map[string]struct{}, len(c.Processes))
	for _, pc := range c.Processes {
		if pc.Command == "" {
			return fmt.Errorf("process %q: command is required", pc.Name)
		}
		name := pc.Name
		if name == "" {
			name = process.DefaultName(pc.Command)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate process name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Limits converts the daemon section into the supervision policy.
func (c Config) Limits() supervisor.Limits {
	return supervisor.Limits{
		MaxProcesses:        c.Daemon.MaxProcesses,
		GracePeriod:         c.Daemon.GracePeriod,
		AutoRestartDelay:    c.Daemon.AutoRestartDelay,
		RestartBackoffMax:   c.Daemon.RestartBackoffMax,
		RestartMax:          c.Daemon.RestartMax,
		RestartWindow:       c.Daemon.RestartWindow,
		HealthCheckInterval: c.Daemon.HealthCheckInterval,
	}
}

// LogDefaults converts the log section into the capture defaults.
func (c Config) LogDefaults() logger.Config {
	return logger.Config(c.Log)
}

// Specs converts the [[processes]] entries into runtime specs.
func (c Config) Specs() []process.Spec {
	out := make([]process.Spec, 0, len(c.Processes))
	for _, pc := range c.Processes {
		spec := process.Spec{
			Name:                pc.Name,
			Command:             pc.Command,
			WorkDir:             pc.WorkDir,
			Env:                 pc.Env,
			Instances:           pc.Instances,
			AutoRestart:         pc.AutoRestart,
			MaxMemoryMB:         pc.MaxMemoryMB,
			HealthCheckInterval: pc.HealthCheckInterval,
		}
		if spec.Name == "" {
			spec.Name = process.DefaultName(spec.Command)
		}
		if pc.Log != nil {
			spec.Log = logger.Config(*pc.Log)
		}
		out = append(out, spec)
	}
	return out
}
