// Package client is the Go API the gpm CLI (and embedders) use to talk to a
// running daemon over its IPC endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gpm-project/gpm/internal/process"
	"github.com/gpm-project/gpm/internal/supervisor"
)

// Client talks JSON to the daemon API.
type Client struct {
	base   string
	http   *http.Client
	stream *http.Client // no overall timeout, for log following
}

// Config selects the IPC endpoint. Socket is used on POSIX, Port on
// Windows; the platform glue picks the right one.
type Config struct {
	Socket  string
	Port    int
	Timeout time.Duration
}

// New builds a client for the given endpoint.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	base, transport := endpoint(cfg)
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		stream: &http.Client{Transport: transport},
	}
}

// apiError is the daemon's error envelope.
type apiError struct {
	Error string `json:"error"`
}

func decodeError(resp *http.Response) error {
	var e apiError
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("daemon: %s", e.Error)
	}
	return fmt.Errorf("daemon: unexpected status %s", resp.Status)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// IsReachable reports whether a daemon answers on the endpoint.
func (c *Client) IsReachable(ctx context.Context) bool {
	var st DaemonStatus
	return c.do(ctx, http.MethodGet, "/api/status", nil, nil, &st) == nil
}

// Start registers and launches a process.
func (c *Client) Start(ctx context.Context, spec process.Spec) error {
	return c.do(ctx, http.MethodPost, "/api/start", nil, spec, nil)
}

// Stop gracefully stops a process. wait overrides the daemon's grace period
// when positive.
func (c *Client) Stop(ctx context.Context, name string, wait time.Duration) error {
	q := url.Values{"name": {name}}
	if wait > 0 {
		q.Set("wait", wait.String())
	}
	return c.do(ctx, http.MethodPost, "/api/stop", q, nil, nil)
}

// Restart stops and starts a process with its current configuration.
func (c *Client) Restart(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/restart", url.Values{"name": {name}}, nil, nil)
}

// Reload replaces an existing process's configuration and restarts it.
func (c *Client) Reload(ctx context.Context, spec process.Spec) error {
	return c.do(ctx, http.MethodPost, "/api/reload", nil, spec, nil)
}

// Delete force-terminates and removes a process.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/delete", url.Values{"name": {name}}, nil, nil)
}

// Save persists the current process list.
func (c *Client) Save(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/save", nil, nil, nil)
}

// Resurrect starts every process in the saved list, returning how many
// actually started.
func (c *Client) Resurrect(ctx context.Context) (int, error) {
	var out struct {
		Started int `json:"started"`
	}
	err := c.do(ctx, http.MethodPost, "/api/resurrect", nil, nil, &out)
	return out.Started, err
}

// Kill asks the daemon to shut down.
func (c *Client) Kill(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/kill", nil, nil, nil)
}

// List fetches the status of every managed process.
func (c *Client) List(ctx context.Context) ([]supervisor.Status, error) {
	var out []supervisor.Status
	err := c.do(ctx, http.MethodGet, "/api/list", nil, nil, &out)
	return out, err
}

// Show fetches the detailed status of one process.
func (c *Client) Show(ctx context.Context, name string) (supervisor.Status, error) {
	var out supervisor.Status
	err := c.do(ctx, http.MethodGet, "/api/show", url.Values{"name": {name}}, nil, &out)
	return out, err
}

// Logs fetches up to n recent log lines, oldest first.
func (c *Client) Logs(ctx context.Context, name string, n int) ([]string, error) {
	q := url.Values{"name": {name}}
	if n > 0 {
		q.Set("lines", strconv.Itoa(n))
	}
	var out struct {
		Lines []string `json:"lines"`
	}
	err := c.do(ctx, http.MethodGet, "/api/logs", q, nil, &out)
	return out.Lines, err
}

// FollowLogs opens a live log stream. The reader yields newline-delimited
// lines until ctx is cancelled or the process is deleted; the caller must
// close it.
func (c *Client) FollowLogs(ctx context.Context, name string) (io.ReadCloser, error) {
	q := url.Values{"name": {name}, "follow": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"/api/logs?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

// DaemonStatus is the daemon health summary.
type DaemonStatus struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	Processes int       `json:"processes"`
	Version   string    `json:"version"`
}

// Status fetches the daemon health summary.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}
