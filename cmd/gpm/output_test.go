package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gpm-project/gpm/internal/supervisor"
)

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512 B", formatBytes(512))
	require.Equal(t, "1.0 KB", formatBytes(1024))
	require.Equal(t, "2.5 MB", formatBytes(5*1024*1024/2))
	require.Equal(t, "1.0 GB", formatBytes(1<<30))
}

func TestPidColumn(t *testing.T) {
	st := supervisor.Status{Instances: []supervisor.InstanceStatus{
		{Instance: 0, PID: 100, Running: true},
		{Instance: 1, PID: 200, Running: false},
		{Instance: 2, PID: 300, Running: true},
	}}
	require.Equal(t, "100,300", pidColumn(st))
	require.Equal(t, "-", pidColumn(supervisor.Status{}))
}

func TestUptimeColumn(t *testing.T) {
	old := time.Now().Add(-90 * time.Second)
	recent := time.Now().Add(-10 * time.Second)
	st := supervisor.Status{Instances: []supervisor.InstanceStatus{
		{Running: true, StartedAt: recent},
		{Running: true, StartedAt: old},
	}}
	// The oldest live instance defines the uptime.
	require.Equal(t, "1m30s", uptimeColumn(st))
	require.Equal(t, "-", uptimeColumn(supervisor.Status{}))
}

func TestTotalRestarts(t *testing.T) {
	st := supervisor.Status{Instances: []supervisor.InstanceStatus{
		{Restarts: 2}, {Restarts: 3},
	}}
	require.Equal(t, 5, totalRestarts(st))
}

func TestCPUAndMemColumns(t *testing.T) {
	st := supervisor.Status{Instances: []supervisor.InstanceStatus{
		{Running: true, CPUPercent: 1.5, MemoryBytes: 1 << 20},
		{Running: true, CPUPercent: 2.0, MemoryBytes: 1 << 20},
		{Running: false, CPUPercent: 99, MemoryBytes: 1 << 30},
	}}
	require.Equal(t, "3.5%", cpuColumn(st))
	require.Equal(t, "2.0 MB", memColumn(st))
	require.Equal(t, "-", cpuColumn(supervisor.Status{}))
	require.Equal(t, "-", memColumn(supervisor.Status{}))
}
