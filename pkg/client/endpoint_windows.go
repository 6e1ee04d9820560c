//go:build windows

package client

import (
	"fmt"
	"net/http"
)

// endpoint targets the daemon's loopback TCP port.
func endpoint(cfg Config) (string, http.RoundTripper) {
	port := cfg.Port
	if port == 0 {
		port = 9999
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), &http.Transport{}
}
