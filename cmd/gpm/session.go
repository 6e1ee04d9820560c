package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gpm-project/gpm/internal/config"
	"github.com/gpm-project/gpm/pkg/client"
)

// session resolves the daemon endpoint from flags and config and hands out a
// connected client, auto-starting the daemon when nothing answers.
type session struct {
	gf  *GlobalFlags
	cfg config.Config
}

func newSession(gf *GlobalFlags) (*session, error) {
	cfg, err := config.Load(gf.ConfigPath)
	if err != nil {
		return nil, err
	}
	if gf.Socket != "" {
		cfg.Daemon.Socket = gf.Socket
	}
	if gf.Port != 0 {
		cfg.Daemon.Port = gf.Port
	}
	return &session{gf: gf, cfg: cfg}, nil
}

func (s *session) newClient() *client.Client {
	return client.New(client.Config{
		Socket: s.cfg.Daemon.Socket,
		Port:   s.cfg.Daemon.Port,
	})
}

// connect returns a client for a running daemon, spawning one in the
// background first when the endpoint is silent.
func (s *session) connect(ctx context.Context) (*client.Client, error) {
	c := s.newClient()
	if c.IsReachable(ctx) {
		return c, nil
	}
	if err := spawnDaemon(s.gf.ConfigPath); err != nil {
		return nil, fmt.Errorf("start daemon: %w", err)
	}
	// Give the daemon a moment to bind its endpoint.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.IsReachable(ctx) {
			return c, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, fmt.Errorf("daemon did not become reachable")
}

// connected requires an already-running daemon and never spawns one. Used by
// commands where auto-start would be surprising (kill, status).
func (s *session) connected(ctx context.Context) (*client.Client, error) {
	c := s.newClient()
	if !c.IsReachable(ctx) {
		return nil, fmt.Errorf("daemon not running")
	}
	return c, nil
}
