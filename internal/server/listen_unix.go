//go:build !windows

package server

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// listen binds the unix socket. A connectable socket means a live daemon; a
// socket file nobody answers on is stale and safe to remove.
func listen(socket string, _ int) (net.Listener, string, error) {
	if socket == "" {
		return nil, "", fmt.Errorf("socket path required")
	}
	if _, err := os.Stat(socket); err == nil {
		conn, derr := net.DialTimeout("unix", socket, 500*time.Millisecond)
		if derr == nil {
			_ = conn.Close()
			return nil, "", fmt.Errorf("%w: socket %s", ErrDaemonRunning, socket)
		}
		if rerr := os.Remove(socket); rerr != nil {
			return nil, "", fmt.Errorf("remove stale socket %s: %w", socket, rerr)
		}
	}
	if err := os.MkdirAll(filepath.Dir(socket), 0o750); err != nil {
		return nil, "", fmt.Errorf("create socket directory: %w", err)
	}
	ln, err := net.Listen("unix", socket)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", socket, err)
	}
	// Only the owning user may drive the daemon.
	if err := os.Chmod(socket, 0o600); err != nil {
		_ = ln.Close()
		return nil, "", fmt.Errorf("chmod socket: %w", err)
	}
	return ln, socket, nil
}

func removeSocket(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
