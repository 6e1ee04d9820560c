package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gpm-project/gpm/internal/logger"
	"github.com/gpm-project/gpm/internal/metrics"
	"github.com/gpm-project/gpm/internal/process"
)

type ctrlAction int

const (
	actionStart ctrlAction = iota
	actionStop
	actionRestart
	actionReload
	actionDelete
	actionShutdown
)

type ctrlMsg struct {
	action ctrlAction
	spec   *process.Spec // replacement spec for start
	wait   time.Duration // stop grace override (0 = limits default)
	reply  chan error
}

// record is one Managed Process Record. A single goroutine (run) owns all
// mutation: commands arrive over ctrl, monitoring runs off the ticker, and
// both are therefore serialized per record while distinct records proceed in
// parallel. Readers take snapshots under mu.
//
// Lock discipline: mu protects the fields below for concurrent Status
// readers; the run goroutine takes it only around field writes, never across
// blocking waits (spawn, grace periods).
type record struct {
	mu        sync.RWMutex
	spec      process.Spec
	state     State
	stateErr  error // terminal condition, e.g. ErrRestartBudgetExhausted
	instances []*instance
	createdAt time.Time

	limits      Limits
	logDefaults logger.Config
	log         *slog.Logger

	ctrl    chan ctrlMsg
	done    chan struct{} // closed when the run goroutine exits
	ictx    context.Context
	icancel context.CancelFunc // pre-empts in-flight grace waits (delete/kill)
}

// instance is one runtime entry: a single spawned OS process plus its
// restart bookkeeping and log capture. The capture (and its ring) lives for
// the slot's lifetime so log history survives respawns.
type instance struct {
	idx           int
	handle        *process.Handle
	capture       *logger.Capture
	usage         process.Usage
	restarts      int
	lastRestartAt time.Time
	crashes       []time.Time // crash timestamps inside the sliding window
	restartAt     time.Time   // backoff deadline; zero when nothing scheduled
	stopRequested bool        // explicit stop in progress; suppress restart policy
	exhausted     bool        // crash budget spent; parked until restart/reload
	lastExitErr   error
}

func newRecord(spec process.Spec, limits Limits, logDefaults logger.Config, log *slog.Logger) *record {
	ictx, icancel := context.WithCancel(context.Background())
	r := &record{
		spec:        spec,
		state:       StateStopped,
		createdAt:   time.Now(),
		limits:      limits,
		logDefaults: logDefaults,
		log:         log.With("process", spec.Name),
		ctrl:        make(chan ctrlMsg, 16),
		done:        make(chan struct{}),
		ictx:        ictx,
		icancel:     icancel,
	}
	go r.run()
	return r
}

// send delivers one command and waits for its reply.
func (r *record) send(msg ctrlMsg) error {
	msg.reply = make(chan error, 1)
	select {
	case r.ctrl <- msg:
	case <-r.done:
		return ErrDeleted
	}
	select {
	case err := <-msg.reply:
		return err
	case <-r.done:
		return ErrDeleted
	}
}

func (r *record) run() {
	ticker := time.NewTicker(r.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case msg := <-r.ctrl:
			var err error
			exit := false
			switch msg.action {
			case actionStart:
				err = r.doStart(msg.spec)
				ticker.Reset(r.tickInterval())
			case actionStop:
				err = r.doStop(r.graceOr(msg.wait))
			case actionRestart, actionReload:
				err = r.doRestart(msg.spec)
				ticker.Reset(r.tickInterval())
			case actionDelete:
				r.doDelete()
				exit = true
			case actionShutdown:
				err = r.doStop(r.graceOr(msg.wait))
				exit = true
			}
			msg.reply <- err
			if exit {
				close(r.done)
				return
			}
		case <-ticker.C:
			r.tick(time.Now())
		}
	}
}

func (r *record) tickInterval() time.Duration {
	r.mu.RLock()
	d := r.spec.HealthCheckInterval
	r.mu.RUnlock()
	if d <= 0 {
		d = r.limits.HealthCheckInterval
	}
	return d
}

func (r *record) graceOr(wait time.Duration) time.Duration {
	if wait > 0 {
		return wait
	}
	return r.limits.GracePeriod
}

// Spec returns a copy of the current desired configuration.
func (r *record) Spec() process.Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.spec
}

func (r *record) getState() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// setState transitions the record and records the transition metric.
func (r *record) setState(next State, cause error) {
	r.mu.Lock()
	prev := r.state
	r.state = next
	r.stateErr = cause
	name := r.spec.Name
	r.mu.Unlock()
	if prev != next {
		metrics.RecordStateTransition(name, prev.String(), next.String())
	}
}

// Status builds a point-in-time snapshot for list/show.
func (r *record) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Status{
		Name:      r.spec.Name,
		State:     r.state.String(),
		CreatedAt: r.createdAt,
		Spec:      r.spec,
	}
	if r.stateErr != nil {
		st.StateError = r.stateErr.Error()
	}
	for _, inst := range r.instances {
		is := InstanceStatus{
			Instance:      inst.idx,
			CPUPercent:    inst.usage.CPUPercent,
			MemoryBytes:   inst.usage.MemoryBytes,
			Restarts:      inst.restarts,
			LastRestartAt: inst.lastRestartAt,
			RestartAt:     inst.restartAt,
			BudgetSpent:   inst.exhausted,
		}
		if inst.handle != nil {
			is.PID = inst.handle.PID()
			is.Running = inst.handle.Alive()
			is.StartedAt = inst.handle.StartedAt()
		}
		if inst.lastExitErr != nil {
			is.ExitError = inst.lastExitErr.Error()
		}
		st.Instances = append(st.Instances, is)
	}
	return st
}

// rings returns the live log rings, one per instance slot.
func (r *record) rings() []*logger.Ring {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*logger.Ring, 0, len(r.instances))
	for _, inst := range r.instances {
		if inst.capture != nil {
			out = append(out, inst.capture.Ring())
		}
	}
	return out
}

// --- command handlers (run goroutine only) ---

func (r *record) doStart(newSpec *process.Spec) error {
	if r.aliveCount() > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, r.Spec().Name)
	}
	if newSpec != nil {
		r.mu.Lock()
		r.spec = *newSpec
		r.mu.Unlock()
	}
	r.setState(StateStarting, nil)

	spec := r.Spec()
	r.resizeInstances(spec.NumInstances())

	r.mu.RLock()
	insts := append([]*instance(nil), r.instances...)
	r.mu.RUnlock()

	for _, inst := range insts {
		if err := r.spawnInstance(inst); err != nil {
			r.log.Error("spawn failed", "instance", inst.idx, "error", err)
			// Spawn failure during explicit start: tear down what did
			// start, report to the caller, no silent retry.
			r.killAll()
			r.setState(StateStopped, err)
			return err
		}
	}

	// A process that exits within the start grace window is an immediate
	// failure, not a clean stop.
	if err := r.enforceStartGrace(insts); err != nil {
		return err
	}

	r.setState(StateRunning, nil)
	metrics.SetRunningInstances(spec.Name, r.aliveCount())
	return nil
}

func (r *record) enforceStartGrace(insts []*instance) error {
	grace := r.limits.StartGrace
	if grace <= 0 {
		return nil
	}
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		for _, inst := range insts {
			h := inst.handle
			if h != nil && !h.Alive() {
				err := fmt.Errorf("exited during startup: %w", exitErrOr(h))
				// The explicit start failed; tear down siblings and
				// skip the restart policy, exactly like a spawn error.
				r.mu.Lock()
				inst.stopRequested = true
				r.mu.Unlock()
				r.noteExit(inst, time.Now())
				r.killAll()
				r.setState(StateStopped, err)
				return err
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func exitErrOr(h *process.Handle) error {
	if err := h.ExitErr(); err != nil {
		return err
	}
	return fmt.Errorf("exit status 0")
}

// spawnInstance starts one OS process into the given slot.
func (r *record) spawnInstance(inst *instance) error {
	spec := r.Spec()
	if inst.capture == nil {
		cfg := spec.Log.Merged(r.logDefaults)
		capt, err := logger.NewCapture(cfg, spec.Name, inst.idx, r.limits.RingCapacity)
		if err != nil {
			return err
		}
		r.mu.Lock()
		inst.capture = capt
		r.mu.Unlock()
	}
	h, err := process.Spawn(spec, inst.capture.Stdout(), inst.capture.Stderr())
	if err != nil {
		r.mu.Lock()
		inst.lastExitErr = err
		r.mu.Unlock()
		return err
	}
	r.mu.Lock()
	inst.handle = h
	inst.lastExitErr = nil
	inst.exhausted = false
	r.mu.Unlock()
	metrics.IncStart(spec.Name)
	r.log.Info("started", "instance", inst.idx, "pid", h.PID())
	return nil
}

// resizeInstances reconciles the slot count with the desired instance count.
func (r *record) resizeInstances(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.instances) < n {
		r.instances = append(r.instances, &instance{idx: len(r.instances)})
	}
	if len(r.instances) > n {
		for _, inst := range r.instances[n:] {
			if inst.handle != nil {
				_ = inst.handle.Kill()
			}
			if inst.capture != nil {
				inst.capture.Close()
			}
		}
		r.instances = r.instances[:n]
	}
}

func (r *record) doStop(grace time.Duration) error {
	r.cancelPendingRestarts()
	if r.aliveCount() == 0 {
		r.setState(StateStopped, nil)
		return nil
	}
	r.setState(StateStopping, nil)

	r.mu.Lock()
	var live []*instance
	for _, inst := range r.instances {
		if inst.handle != nil && inst.handle.Alive() {
			inst.stopRequested = true
			live = append(live, inst)
		}
	}
	r.mu.Unlock()

	// Stop instances in parallel; the record stays serialized because this
	// runs in its own goroutine, but instances of one record need not wait
	// on each other's grace periods.
	var wg sync.WaitGroup
	for _, inst := range live {
		wg.Add(1)
		go func(h *process.Handle) {
			defer wg.Done()
			_ = h.Stop(r.ictx, grace)
		}(inst.handle)
	}
	wg.Wait()

	now := time.Now()
	for _, inst := range live {
		r.noteExit(inst, now)
	}
	r.setState(StateStopped, nil)
	metrics.SetRunningInstances(r.Spec().Name, 0)
	return nil
}

// doRestart stops, resets the restart bookkeeping (fresh budget), and starts
// again. reload travels the same path with a possibly updated spec.
func (r *record) doRestart(newSpec *process.Spec) error {
	if err := r.doStop(r.limits.GracePeriod); err != nil {
		return err
	}
	r.mu.Lock()
	for _, inst := range r.instances {
		inst.restarts = 0
		inst.crashes = nil
		inst.lastRestartAt = time.Time{}
		inst.lastExitErr = nil
		inst.exhausted = false
	}
	r.mu.Unlock()
	return r.doStart(newSpec)
}

// doDelete force-terminates everything and releases resources. The caller
// already cancelled ictx, so any in-flight grace waits have escalated.
func (r *record) doDelete() {
	r.cancelPendingRestarts()
	r.killAll()
	r.mu.Lock()
	for _, inst := range r.instances {
		if inst.capture != nil {
			inst.capture.Close()
			inst.capture = nil
		}
	}
	r.mu.Unlock()
	r.setState(StateDeleted, nil)
	metrics.SetRunningInstances(r.Spec().Name, 0)
	r.log.Info("deleted")
}

func (r *record) killAll() {
	r.mu.Lock()
	var live []*instance
	for _, inst := range r.instances {
		if inst.handle != nil && inst.handle.Alive() {
			inst.stopRequested = true
			live = append(live, inst)
		}
	}
	r.mu.Unlock()
	now := time.Now()
	for _, inst := range live {
		_ = inst.handle.Kill()
		r.noteExit(inst, now)
	}
}

func (r *record) cancelPendingRestarts() {
	r.mu.Lock()
	for _, inst := range r.instances {
		inst.restartAt = time.Time{}
	}
	r.mu.Unlock()
}

func (r *record) aliveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, inst := range r.instances {
		if inst.handle != nil && inst.handle.Alive() {
			n++
		}
	}
	return n
}

// --- monitoring (run goroutine only) ---

func (r *record) tick(now time.Time) {
	switch r.getState() {
	case StateStopped, StateStopping, StateDeleted:
		return
	}
	spec := r.Spec()

	r.mu.RLock()
	insts := append([]*instance(nil), r.instances...)
	r.mu.RUnlock()

	for _, inst := range insts {
		h := inst.handle
		switch {
		case h == nil:
			r.maybeRespawn(inst, now)
		case h.Alive():
			r.sampleInstance(spec, inst, now)
		default:
			r.noteExit(inst, now)
		}
	}
	r.aggregate()
}

// maybeRespawn fires a scheduled restart once its backoff deadline passes.
func (r *record) maybeRespawn(inst *instance, now time.Time) {
	r.mu.RLock()
	due := !inst.restartAt.IsZero() && !now.Before(inst.restartAt)
	r.mu.RUnlock()
	if !due {
		return
	}
	r.mu.Lock()
	inst.restartAt = time.Time{}
	inst.restarts++
	inst.lastRestartAt = now
	r.mu.Unlock()
	metrics.IncRestart(r.Spec().Name)
	r.log.Info("restarting", "instance", inst.idx, "restarts", inst.restarts)
	// Re-enter Starting for the respawn; aggregate moves the record to
	// Running once the handle reports alive.
	r.setState(StateStarting, nil)
	if err := r.spawnInstance(inst); err != nil {
		// Respawn failure counts as another crash against the budget.
		r.applyRestartPolicy(inst, now, err)
	}
}

// sampleInstance records resource usage and enforces the memory threshold.
// A breach is handled exactly like a crash: graceful stop, then the restart
// policy, so downstream it is indistinguishable from any unexpected exit.
func (r *record) sampleInstance(spec process.Spec, inst *instance, now time.Time) {
	usage, err := inst.handle.SampleUsage()
	if err != nil {
		// Process vanished between checks; the next branch of the next
		// tick (or the aggregate below) observes the exit.
		return
	}
	r.mu.Lock()
	inst.usage = usage
	r.mu.Unlock()
	metrics.SetUsage(spec.Name, strconv.Itoa(inst.idx), usage.CPUPercent, usage.MemoryBytes)

	if spec.MaxMemoryMB > 0 && usage.MemoryBytes > spec.MaxMemoryMB*1024*1024 {
		r.log.Warn("memory limit exceeded",
			"instance", inst.idx,
			"memory_bytes", usage.MemoryBytes,
			"max_memory_mb", spec.MaxMemoryMB)
		_ = inst.handle.Stop(r.ictx, r.limits.GracePeriod)
		r.noteExit(inst, now)
	}
}

// noteExit finalizes a reaped instance and, for unexpected exits, feeds the
// restart policy.
func (r *record) noteExit(inst *instance, now time.Time) {
	h := inst.handle
	if h == nil {
		return
	}
	exitErr := h.ExitErr()
	r.mu.Lock()
	inst.handle = nil
	inst.lastExitErr = exitErr
	requested := inst.stopRequested
	inst.stopRequested = false
	r.mu.Unlock()
	metrics.IncStop(r.Spec().Name)
	if requested {
		return
	}
	r.log.Warn("exited unexpectedly", "instance", inst.idx, "pid", h.PID(), "error", exitErr)
	r.setState(StateCrashed, exitErr)
	r.applyRestartPolicy(inst, now, exitErr)
}

// applyRestartPolicy schedules an automatic respawn with backoff, or parks
// the whole record when the crash budget for the sliding window is spent.
func (r *record) applyRestartPolicy(inst *instance, now time.Time, cause error) {
	spec := r.Spec()
	if !spec.AutoRestart {
		return
	}
	r.mu.Lock()
	inst.crashes = pruneWindow(append(inst.crashes, now), now, r.limits.RestartWindow)
	n := len(inst.crashes)
	r.mu.Unlock()

	if n > r.limits.RestartMax {
		// Park only this instance; siblings keep their own budgets. The
		// record-level state and error are derived in aggregate so the
		// condition stays visible even while a sibling is alive.
		r.mu.Lock()
		inst.exhausted = true
		r.mu.Unlock()
		metrics.IncBudgetExhausted(spec.Name)
		r.log.Error("restart budget exhausted",
			"instance", inst.idx,
			"crashes", n,
			"window", r.limits.RestartWindow,
			"cause", cause)
		return
	}
	delay := Backoff(n, r.limits.AutoRestartDelay, r.limits.RestartBackoffMax)
	r.mu.Lock()
	inst.restartAt = now.Add(delay)
	r.mu.Unlock()
	r.log.Info("restart scheduled", "instance", inst.idx, "delay", delay, "crashes", n)
}

// aggregate derives the record state from instance liveness: any live
// instance keeps the record running (partial failure stays Running); with
// none alive, a pending backoff means Restarting, otherwise Stopped. An
// exhausted crash budget on any instance stays visible as the record's
// state error until an explicit restart or reload.
func (r *record) aggregate() {
	switch r.getState() {
	case StateStopping, StateDeleted:
		return
	}
	r.mu.RLock()
	alive, pending, exhausted := 0, false, false
	parked := r.stateErr != nil
	var lastErr error
	for _, inst := range r.instances {
		if inst.handle != nil && inst.handle.Alive() {
			alive++
		}
		if !inst.restartAt.IsZero() {
			pending = true
		}
		if inst.exhausted {
			exhausted = true
		}
		if inst.lastExitErr != nil {
			lastErr = inst.lastExitErr
		}
	}
	name := r.spec.Name
	r.mu.RUnlock()

	metrics.SetRunningInstances(name, alive)
	var cause error
	if exhausted {
		cause = ErrRestartBudgetExhausted
	}
	switch {
	case alive > 0:
		r.setState(StateRunning, cause)
	case pending:
		r.setState(StateRestarting, nil)
	case exhausted:
		r.setState(StateStopped, cause)
	case parked:
		// Keep the terminal condition (crash without autorestart) visible.
	default:
		r.setState(StateStopped, lastErr)
	}
}
