//go:build !windows

package client

import (
	"context"
	"net"
	"net/http"
)

// endpoint dials the daemon's unix socket. The URL host is a placeholder;
// every connection goes to the socket.
func endpoint(cfg Config) (string, http.RoundTripper) {
	socket := cfg.Socket
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
	}
	return "http://gpm", transport
}
