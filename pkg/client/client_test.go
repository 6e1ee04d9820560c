//go:build !windows

package client

import (
	"bufio"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gpm-project/gpm/internal/process"
	"github.com/gpm-project/gpm/internal/server"
	"github.com/gpm-project/gpm/internal/supervisor"
)

// startTestDaemon runs a real server on a unix socket in a temp dir and
// returns a client pointed at it.
func startTestDaemon(t *testing.T) *Client {
	t.Helper()
	sup := supervisor.New(supervisor.WithLimits(supervisor.Limits{
		GracePeriod:         2 * time.Second,
		StartGrace:          30 * time.Millisecond,
		HealthCheckInterval: 25 * time.Millisecond,
	}))
	socket := filepath.Join(t.TempDir(), "gpm.sock")
	srv, err := server.New(server.NewRouter(sup, nil), socket, 0)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		sup.Shutdown(ctx)
	})
	return New(Config{Socket: socket})
}

func TestClientRoundTrip(t *testing.T) {
	c := startTestDaemon(t)
	ctx := context.Background()
	require.True(t, c.IsReachable(ctx))

	require.NoError(t, c.Start(ctx, process.Spec{Name: "svc", Command: "sleep 30"}))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "running", list[0].State)

	st, err := c.Show(ctx, "svc")
	require.NoError(t, err)
	require.Greater(t, st.Instances[0].PID, 0)

	require.NoError(t, c.Stop(ctx, "svc", 0))
	st, err = c.Show(ctx, "svc")
	require.NoError(t, err)
	require.Equal(t, "stopped", st.State)

	require.NoError(t, c.Delete(ctx, "svc"))
	_, err = c.Show(ctx, "svc")
	require.Error(t, err)
}

func TestClientErrorsSurfaceMessage(t *testing.T) {
	c := startTestDaemon(t)
	err := c.Stop(context.Background(), "ghost", 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestClientUnreachable(t *testing.T) {
	c := New(Config{Socket: filepath.Join(t.TempDir(), "nobody.sock")})
	require.False(t, c.IsReachable(context.Background()))
	require.Error(t, c.Start(context.Background(), process.Spec{Name: "x", Command: "true"}))
}

func TestClientLogsAndFollow(t *testing.T) {
	c := startTestDaemon(t)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, process.Spec{
		Name:    "ticker",
		Command: "while true; do echo tick; sleep 0.1; done",
	}))

	require.Eventually(t, func() bool {
		lines, err := c.Logs(ctx, "ticker", 5)
		return err == nil && len(lines) > 0
	}, 10*time.Second, 50*time.Millisecond)

	fctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	body, err := c.FollowLogs(fctx, "ticker")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	sc := bufio.NewScanner(body)
	require.True(t, sc.Scan(), "no streamed line before timeout")
	require.Equal(t, "tick", sc.Text())
}

func TestClientStatus(t *testing.T) {
	c := startTestDaemon(t)
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Greater(t, st.PID, 0)
	require.Equal(t, 0, st.Processes)
}
