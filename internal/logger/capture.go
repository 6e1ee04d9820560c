package logger

import (
	"bytes"
	"io"
	"sync"
)

// Capture attaches to one instance's stdout/stderr. Every complete line goes
// to the shared in-memory ring (serving "last N" and follow without touching
// disk) and, when a log dir is configured, to a rotating file per stream.
type Capture struct {
	ring   *Ring
	stdout *lineWriter
	stderr *lineWriter
}

// NewCapture builds a capture for instance idx of the named process.
func NewCapture(cfg Config, name string, idx int, ringCapacity int) (*Capture, error) {
	outFile, errFile, err := cfg.Writers(name, idx)
	if err != nil {
		return nil, err
	}
	ring := NewRing(ringCapacity)
	return &Capture{
		ring:   ring,
		stdout: &lineWriter{ring: ring, durable: outFile},
		stderr: &lineWriter{ring: ring, durable: errFile},
	}, nil
}

// Ring exposes the in-memory tail for queries and follow subscriptions.
func (c *Capture) Ring() *Ring { return c.ring }

// Stdout and Stderr are handed to process.Spawn as the child's sinks.
func (c *Capture) Stdout() io.Writer { return c.stdout }
func (c *Capture) Stderr() io.Writer { return c.stderr }

// Close flushes partial lines and closes the durable writers. Safe to call
// after the process exited and exec finished draining the pipes.
func (c *Capture) Close() {
	c.stdout.close()
	c.stderr.close()
}

// lineWriter splits a byte stream into lines. Durable writes always carry
// whole lines, so lumberjack rotation boundaries never fall mid-line.
type lineWriter struct {
	mu      sync.Mutex
	pending []byte
	ring    *Ring
	durable io.WriteCloser
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.emit(w.pending[:i])
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) emit(line []byte) {
	w.ring.Append(string(line))
	if w.durable != nil {
		_, _ = w.durable.Write(append(line, '\n'))
	}
}

func (w *lineWriter) close() {
	w.mu.Lock()
	if len(w.pending) > 0 {
		w.emit(w.pending)
		w.pending = nil
	}
	if w.durable != nil {
		_ = w.durable.Close()
		w.durable = nil
	}
	w.mu.Unlock()
}
