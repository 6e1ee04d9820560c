package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters, applied when a spec leaves them zero.
const (
	DefaultMaxSizeMB  = 100 // MB of durable log before rotation
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 30
)

// Config describes durable log capture for a process. Rotation parameters
// follow lumberjack semantics; rotation happens on Write boundaries and the
// capture layer only ever writes whole lines, so files never split mid-line.
type Config struct {
	Dir        string `json:"dir,omitempty"`          // base directory for per-instance files
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`  // megabytes before rotation
	MaxBackups int    `json:"max_backups,omitempty"`  // rotated files to keep
	MaxAgeDays int    `json:"max_age_days,omitempty"` // retention in days
	Compress   bool   `json:"compress,omitempty"`     // gzip rotated files
}

// Merged overlays c on top of defaults (typically the daemon-wide log config).
func (c Config) Merged(defaults Config) Config {
	out := defaults
	if c.Dir != "" {
		out.Dir = c.Dir
	}
	if c.MaxSizeMB != 0 {
		out.MaxSizeMB = c.MaxSizeMB
	}
	if c.MaxBackups != 0 {
		out.MaxBackups = c.MaxBackups
	}
	if c.MaxAgeDays != 0 {
		out.MaxAgeDays = c.MaxAgeDays
	}
	if c.Compress {
		out.Compress = true
	}
	return out
}

// Writers returns rotating writers for one instance's stdout and stderr,
// or nils when no directory is configured (ring-only capture).
func (c Config) Writers(name string, instance int) (io.WriteCloser, io.WriteCloser, error) {
	if c.Dir == "" {
		return nil, nil, nil
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, nil, err
	}
	mk := func(stream string) io.WriteCloser {
		return &lj.Logger{
			Filename:   filepath.Join(c.Dir, fmt.Sprintf("%s-%d.%s.log", name, instance, stream)),
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
	}
	return mk("stdout"), mk("stderr"), nil
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// RotatingWriter returns a rotating writer for a single file, using the
// daemon-wide rotation defaults.
func RotatingWriter(path string, cfg Config) io.WriteCloser {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(cfg.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   cfg.Compress,
	}
}

// Setup installs the daemon's own slog logger. Colorized when writing to a
// terminal-ish writer, plain text otherwise (daemonized with a logfile).
func Setup(w io.Writer, level slog.Level, color bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if color {
		h = NewColorTextHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}
