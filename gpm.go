// Package gpm embeds the process supervision engine behind a small stable
// API. The gpm binary is the usual entry point; this facade exists for
// programs that want to supervise child processes in-process.
package gpm

import (
	"context"
	"time"

	"github.com/gpm-project/gpm/internal/config"
	"github.com/gpm-project/gpm/internal/logger"
	"github.com/gpm-project/gpm/internal/metrics"
	"github.com/gpm-project/gpm/internal/process"
	"github.com/gpm-project/gpm/internal/store"
	"github.com/gpm-project/gpm/internal/supervisor"

	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Spec = process.Spec

type Status = supervisor.Status

type InstanceStatus = supervisor.InstanceStatus

type Limits = supervisor.Limits

type LogConfig = logger.Config

type StoreConfig = store.Config

// Manager is a thin facade over the supervision engine.
type Manager struct{ inner *supervisor.Supervisor }

// Config controls an embedded Manager.
type Config struct {
	Limits      Limits
	LogDefaults LogConfig
	Store       *StoreConfig // nil disables save/resurrect
}

// New builds a Manager with default limits and no persistence.
func New() *Manager {
	return &Manager{inner: supervisor.New()}
}

// NewWithConfig builds a Manager from cfg.
func NewWithConfig(cfg Config) (*Manager, error) {
	opts := []supervisor.Option{
		supervisor.WithLimits(cfg.Limits),
		supervisor.WithLogDefaults(cfg.LogDefaults),
	}
	if cfg.Store != nil {
		st, err := store.Open(*cfg.Store)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(context.Background()); err != nil {
			_ = st.Close()
			return nil, err
		}
		opts = append(opts, supervisor.WithStore(st))
	}
	return &Manager{inner: supervisor.New(opts...)}, nil
}

func (m *Manager) Start(s Spec) error                       { return m.inner.Start(s) }
func (m *Manager) Stop(name string, wait time.Duration) error { return m.inner.Stop(name, wait) }
func (m *Manager) Restart(name string) error                { return m.inner.Restart(name) }
func (m *Manager) Reload(s Spec) error                      { return m.inner.Reload(s) }
func (m *Manager) Delete(name string) error                 { return m.inner.Delete(name) }
func (m *Manager) List() []Status                           { return m.inner.List() }
func (m *Manager) Info(name string) (Status, error)         { return m.inner.Info(name) }
func (m *Manager) Logs(name string, n int) ([]string, error) {
	return m.inner.Logs(name, n)
}
func (m *Manager) Follow(ctx context.Context, name string) (<-chan string, error) {
	return m.inner.Follow(ctx, name)
}
func (m *Manager) Save(ctx context.Context) error { return m.inner.Save(ctx) }
func (m *Manager) Resurrect(ctx context.Context) (int, error) {
	return m.inner.Resurrect(ctx)
}
func (m *Manager) Shutdown(ctx context.Context) { m.inner.Shutdown(ctx) }

// RegisterMetrics registers the Prometheus collectors with r (nil means the
// default registerer).
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

// LoadConfig reads a daemon TOML configuration file.
func LoadConfig(path string) (config.Config, error) { return config.Load(path) }
