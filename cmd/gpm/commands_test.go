package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRootCommandSet(t *testing.T) {
	root := buildRoot()
	for _, name := range []string{
		"start", "stop", "restart", "reload", "delete", "list", "show",
		"monitor", "logs", "save", "resurrect", "kill", "status", "daemon",
	} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, cmd.Name())
	}
}

func TestMonitorFlags(t *testing.T) {
	cmd, _, err := buildRoot().Find([]string{"monitor"})
	require.NoError(t, err)
	f := cmd.Flags().Lookup("interval")
	require.NotNil(t, f)
	require.Equal(t, "1s", f.DefValue)
}

func TestShutdownTimeout(t *testing.T) {
	require.Equal(t, 6*time.Second, shutdownTimeout(3*time.Second))
	require.Equal(t, time.Second, shutdownTimeout(500*time.Millisecond))
	require.Equal(t, 30*time.Second, shutdownTimeout(0))
}
