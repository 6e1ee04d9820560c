package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// forceKillReap bounds the wait for the reaper after an unconditional kill.
const forceKillReap = 500 * time.Millisecond

// Handle wraps one spawned OS process behind a platform-uniform surface:
// spawn, liveness, graceful stop, forced kill, resource sampling. Platform
// divergence (POSIX signals vs. Windows TerminateProcess) lives in the
// build-tagged files, selected at link time.
type Handle struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	waitDone  chan struct{}
	exitErr   error
}

// Spawn starts the spec's command with the given stdout/stderr sinks and
// returns a live Handle. The returned error, if any, is classified into the
// spawn taxonomy (ErrExecutableNotFound, ErrPermissionDenied, ErrBadWorkDir).
// A reaper goroutine owns cmd.Wait for the lifetime of the process; nothing
// else may call Wait on the underlying command.
func Spawn(spec Spec, stdout, stderr io.Writer) (*Handle, error) {
	cmd := buildShellCommand(spec.Command)
	if spec.WorkDir != "" {
		// Checked here as well as in Validate: the directory can vanish
		// between registration and a later respawn.
		if fi, err := os.Stat(spec.WorkDir); err != nil || !fi.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrBadWorkDir, spec.WorkDir)
		}
		cmd.Dir = spec.WorkDir
	}
	if env := spec.MergedEnv(); env != nil {
		cmd.Env = env
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, classifySpawnError(err)
	}

	h := &Handle{
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		waitDone:  make(chan struct{}),
	}
	go h.reap()
	return h, nil
}

// reap waits for process exit exactly once and publishes the result.
func (h *Handle) reap() {
	err := h.cmd.Wait()
	h.mu.Lock()
	h.exitErr = err
	h.mu.Unlock()
	close(h.waitDone)
}

// PID returns the native process id recorded at spawn time.
func (h *Handle) PID() int { return h.pid }

// StartedAt returns the spawn timestamp.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Alive reports whether the process has not yet been reaped.
func (h *Handle) Alive() bool {
	select {
	case <-h.waitDone:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.waitDone }

// ExitErr returns the wait error after exit (nil for a clean zero exit).
// Valid only once Done is closed.
func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// Stop requests graceful termination and escalates to a forced kill when the
// grace period elapses without exit. Cancelling ctx skips the remaining grace
// and forces the kill immediately; this is how a later delete pre-empts an
// in-flight stop. On platforms without POSIX signals the initial "graceful"
// request is already the forced primitive, but the grace window is still
// honored by waiting on liveness before escalating, so external timing is
// identical.
func (h *Handle) Stop(ctx context.Context, grace time.Duration) error {
	if !h.Alive() {
		return h.ExitErr()
	}
	signalStop(h.pid)

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-h.waitDone:
		return h.ExitErr()
	case <-timer.C:
	case <-ctx.Done():
	}
	return h.Kill()
}

// Kill terminates the process unconditionally and waits briefly for the reap.
func (h *Handle) Kill() error {
	if !h.Alive() {
		return h.ExitErr()
	}
	forceKill(h.pid)
	select {
	case <-h.waitDone:
	case <-time.After(forceKillReap):
		// Abandoned; the reaper will finish whenever the OS lets go.
	}
	return h.ExitErr()
}
