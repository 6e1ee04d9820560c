package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureSplitsLines(t *testing.T) {
	c, err := NewCapture(Config{}, "proc", 0, 10)
	require.NoError(t, err)
	_, _ = c.Stdout().Write([]byte("one\ntwo\npar"))
	_, _ = c.Stdout().Write([]byte("tial\n"))
	require.Equal(t, []string{"one", "two", "partial"}, c.Ring().Last(10))
}

func TestCaptureFlushesPartialOnClose(t *testing.T) {
	c, err := NewCapture(Config{}, "proc", 0, 10)
	require.NoError(t, err)
	_, _ = c.Stderr().Write([]byte("no newline"))
	require.Equal(t, 0, c.Ring().Len())
	c.Close()
	require.Equal(t, []string{"no newline"}, c.Ring().Last(10))
}

func TestCaptureMergesStreams(t *testing.T) {
	c, err := NewCapture(Config{}, "proc", 0, 10)
	require.NoError(t, err)
	_, _ = c.Stdout().Write([]byte("out\n"))
	_, _ = c.Stderr().Write([]byte("err\n"))
	require.Equal(t, 2, c.Ring().Len())
}

func TestCaptureWritesDurableFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCapture(Config{Dir: dir}, "web", 1, 10)
	require.NoError(t, err)
	_, _ = c.Stdout().Write([]byte("hello\n"))
	c.Close()

	data, err := os.ReadFile(filepath.Join(dir, "web-1.stdout.log"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
}

func TestConfigMerged(t *testing.T) {
	defaults := Config{Dir: "/var/log/gpm", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30}
	over := Config{Dir: "/tmp/custom", MaxSizeMB: 5}
	got := over.Merged(defaults)
	require.Equal(t, "/tmp/custom", got.Dir)
	require.Equal(t, 5, got.MaxSizeMB)
	require.Equal(t, 3, got.MaxBackups)
	require.Equal(t, 30, got.MaxAgeDays)
}
