package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// ErrDaemonRunning is returned when the IPC endpoint is already served by a
// live daemon.
var ErrDaemonRunning = errors.New("daemon already running")

// Server owns the IPC listener and the HTTP server on top of it.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	socket string // unix socket path to clean up, empty on Windows
}

// New binds the platform IPC endpoint and prepares the HTTP server. Binding
// fails with ErrDaemonRunning when another daemon holds the endpoint, which
// doubles as the single-daemon guard.
func New(router *Router, socket string, port int) (*Server, error) {
	ln, cleanup, err := listen(socket, port)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{srv: srv, ln: ln, socket: cleanup}, nil
}

// Addr reports the bound endpoint, for logging.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks serving requests until Shutdown or a listener error.
func (s *Server) Serve() error {
	err := s.srv.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and releases the endpoint.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	removeSocket(s.socket)
	return err
}
