package store

import (
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a persistence backend.
type Config struct {
	Type string `mapstructure:"type" json:"type"` // "sqlite" (default) or "postgres"
	Path string `mapstructure:"path" json:"path"` // sqlite database file
	DSN  string `mapstructure:"dsn" json:"dsn"`   // postgres connection string
}

// Builder creates a store from its config.
type Builder func(cfg Config) (Store, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{}
)

func init() {
	RegisterType("sqlite", func(cfg Config) (Store, error) {
		return NewSQLiteStore(cfg.Path)
	})
	RegisterType("postgres", func(cfg Config) (Store, error) {
		return NewPostgresStore(cfg.DSN)
	})
	RegisterType("postgresql", func(cfg Config) (Store, error) {
		return NewPostgresStore(cfg.DSN)
	})
}

// RegisterType adds a backend to the factory.
func RegisterType(typ string, b Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[typ] = b
}

// Open builds the store named by cfg.Type; an empty type means sqlite.
func Open(cfg Config) (Store, error) {
	typ := cfg.Type
	if typ == "" {
		typ = "sqlite"
	}
	buildersMu.RLock()
	b, ok := builders[typ]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store type %q (supported: %v)", typ, SupportedTypes())
	}
	return b(cfg)
}

// SupportedTypes lists registered backend names.
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	out := make([]string, 0, len(builders))
	for typ := range builders {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
