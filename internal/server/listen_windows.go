//go:build windows

package server

import (
	"errors"
	"fmt"
	"net"
)

// listen binds loopback TCP; unix sockets are not reliable across Windows
// versions. A bind failure on the fixed port is how a second daemon learns
// the first is alive.
func listen(_ string, port int) (net.Listener, string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return nil, "", fmt.Errorf("%w: port %d in use", ErrDaemonRunning, port)
		}
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, "", nil
}

func removeSocket(string) {}
