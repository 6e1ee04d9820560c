//go:build !windows

package process

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnCapturesOutput(t *testing.T) {
	var out bytes.Buffer
	h, err := Spawn(Spec{Name: "echo", Command: "echo hello"}, &out, nil)
	require.NoError(t, err)
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	require.NoError(t, h.ExitErr())
	require.Equal(t, "hello\n", out.String())
}

func TestSpawnBadWorkDir(t *testing.T) {
	_, err := Spawn(Spec{Name: "x", Command: "true", WorkDir: "/no/such/dir"}, nil, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadWorkDir)
}

func TestStopGraceful(t *testing.T) {
	h, err := Spawn(Spec{Name: "sleeper", Command: "sleep 30"}, nil, nil)
	require.NoError(t, err)
	require.True(t, h.Alive())
	require.Greater(t, h.PID(), 0)

	start := time.Now()
	_ = h.Stop(context.Background(), 5*time.Second)
	require.False(t, h.Alive())
	// SIGTERM should land well before the grace period elapses.
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestStopEscalatesToKill(t *testing.T) {
	// The child traps SIGTERM, so only the escalation can end it.
	h, err := Spawn(Spec{Name: "stubborn", Command: `trap "" TERM; sleep 30`}, nil, nil)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	_ = h.Stop(context.Background(), 200*time.Millisecond)
	require.False(t, h.Alive())
}

func TestStopCancelSkipsGrace(t *testing.T) {
	h, err := Spawn(Spec{Name: "stubborn", Command: `trap "" TERM; sleep 30`}, nil, nil)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_ = h.Stop(ctx, 30*time.Second)
	require.False(t, h.Alive())
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestKill(t *testing.T) {
	h, err := Spawn(Spec{Name: "sleeper", Command: "sleep 30"}, nil, nil)
	require.NoError(t, err)
	_ = h.Kill()
	require.False(t, h.Alive())
}

func TestExitErrNonZero(t *testing.T) {
	h, err := Spawn(Spec{Name: "fail", Command: "exit 3"}, nil, nil)
	require.NoError(t, err)
	<-h.Done()
	err = h.ExitErr()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "3"), "exit code should surface: %v", err)
}

func TestEnvOverride(t *testing.T) {
	var out bytes.Buffer
	h, err := Spawn(Spec{
		Name:    "env",
		Command: "echo $GPM_HANDLE_TEST",
		Env:     []string{"GPM_HANDLE_TEST=42"},
	}, &out, nil)
	require.NoError(t, err)
	<-h.Done()
	require.Equal(t, "42\n", out.String())
}

func TestSampleUsageGone(t *testing.T) {
	h, err := Spawn(Spec{Name: "short", Command: "true"}, nil, nil)
	require.NoError(t, err)
	<-h.Done()
	_, err = h.SampleUsage()
	require.Error(t, err)
}
