package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gpm-project/gpm/internal/logger"
	"github.com/gpm-project/gpm/internal/process"
	"github.com/gpm-project/gpm/internal/store"
)

// Limits carries the daemon-wide supervision policy. Zero values are
// replaced with the defaults below.
type Limits struct {
	MaxProcesses        int
	GracePeriod         time.Duration
	StartGrace          time.Duration
	AutoRestartDelay    time.Duration
	RestartBackoffMax   time.Duration
	RestartMax          int
	RestartWindow       time.Duration
	HealthCheckInterval time.Duration
	RingCapacity        int
}

// DefaultLimits mirrors the daemon's built-in configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxProcesses:        1000,
		GracePeriod:         3 * time.Second,
		StartGrace:          200 * time.Millisecond,
		AutoRestartDelay:    5 * time.Second,
		RestartBackoffMax:   60 * time.Second,
		RestartMax:          10,
		RestartWindow:       60 * time.Second,
		HealthCheckInterval: 5 * time.Second,
		RingCapacity:        logger.DefaultRingCapacity,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxProcesses <= 0 {
		l.MaxProcesses = d.MaxProcesses
	}
	if l.GracePeriod <= 0 {
		l.GracePeriod = d.GracePeriod
	}
	if l.StartGrace <= 0 {
		l.StartGrace = d.StartGrace
	}
	if l.AutoRestartDelay <= 0 {
		l.AutoRestartDelay = d.AutoRestartDelay
	}
	if l.RestartBackoffMax <= 0 {
		l.RestartBackoffMax = d.RestartBackoffMax
	}
	if l.RestartMax <= 0 {
		l.RestartMax = d.RestartMax
	}
	if l.RestartWindow <= 0 {
		l.RestartWindow = d.RestartWindow
	}
	if l.HealthCheckInterval <= 0 {
		l.HealthCheckInterval = d.HealthCheckInterval
	}
	if l.RingCapacity <= 0 {
		l.RingCapacity = d.RingCapacity
	}
	return l
}

// Supervisor is the process supervision engine: a registry of managed
// process records plus the operations the daemon exposes over IPC. Each
// record runs its own goroutine; the supervisor only guards the registry
// map, so operations on distinct processes proceed concurrently.
type Supervisor struct {
	mu      sync.RWMutex
	records map[string]*record

	limits      Limits
	logDefaults logger.Config
	store       store.Store
	log         *slog.Logger
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLimits overrides the supervision policy.
func WithLimits(l Limits) Option {
	return func(s *Supervisor) { s.limits = l.withDefaults() }
}

// WithLogDefaults sets daemon-level log rotation defaults merged under each
// process spec's own log settings.
func WithLogDefaults(cfg logger.Config) Option {
	return func(s *Supervisor) { s.logDefaults = cfg }
}

// WithStore attaches the persistence backend used by Save and Resurrect.
func WithStore(st store.Store) Option {
	return func(s *Supervisor) { s.store = st }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// New builds a Supervisor with no managed processes.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		records: make(map[string]*record),
		limits:  DefaultLimits(),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) get(name string) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec, nil
}

// Start registers the spec (or updates an existing stopped record) and
// launches its instances. Starting a name that is already running fails
// with ErrAlreadyRunning and leaves the running process untouched.
func (s *Supervisor) Start(spec process.Spec) error {
	if spec.Name == "" {
		spec.Name = process.DefaultName(spec.Command)
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	rec, ok := s.records[spec.Name]
	if !ok {
		if len(s.records) >= s.limits.MaxProcesses {
			s.mu.Unlock()
			return fmt.Errorf("%w: limit %d", ErrTooManyProcesses, s.limits.MaxProcesses)
		}
		rec = newRecord(spec, s.limits, s.logDefaults, s.log)
		s.records[spec.Name] = rec
	}
	s.mu.Unlock()

	return rec.send(ctrlMsg{action: actionStart, spec: &spec})
}

// Stop gracefully stops all instances of the named process. The record
// stays registered so it can be started again. wait overrides the default
// grace period when positive.
func (s *Supervisor) Stop(name string, wait time.Duration) error {
	rec, err := s.get(name)
	if err != nil {
		return err
	}
	return rec.send(ctrlMsg{action: actionStop, wait: wait})
}

// Restart stops and starts the named process with its current spec. The
// restart counters reset: an operator-requested restart grants a fresh
// crash budget.
func (s *Supervisor) Restart(name string) error {
	rec, err := s.get(name)
	if err != nil {
		return err
	}
	return rec.send(ctrlMsg{action: actionRestart})
}

// Reload replaces the spec of an existing process and restarts it with the
// new configuration. The name must match an existing record.
func (s *Supervisor) Reload(spec process.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	rec, err := s.get(spec.Name)
	if err != nil {
		return err
	}
	return rec.send(ctrlMsg{action: actionReload, spec: &spec})
}

// Delete force-terminates the named process and removes it from the
// registry. Delete pre-empts stops in progress: grace waits escalate to
// kill immediately.
func (s *Supervisor) Delete(name string) error {
	s.mu.Lock()
	rec, ok := s.records[name]
	if ok {
		delete(s.records, name)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rec.icancel()
	return rec.send(ctrlMsg{action: actionDelete})
}

// List returns a status snapshot per managed process, sorted by name.
func (s *Supervisor) List() []Status {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]Status, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Info returns the status snapshot for one process.
func (s *Supervisor) Info(name string) (Status, error) {
	rec, err := s.get(name)
	if err != nil {
		return Status{}, err
	}
	return rec.Status(), nil
}

// Count reports the number of registered processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Logs returns up to n recent captured log lines for the named process,
// oldest first. With multiple instances the lines carry an instance prefix.
func (s *Supervisor) Logs(name string, n int) ([]string, error) {
	rec, err := s.get(name)
	if err != nil {
		return nil, err
	}
	rings := rec.rings()
	var out []string
	for idx, ring := range rings {
		for _, line := range ring.Last(n) {
			out = append(out, prefixLine(line, idx, len(rings)))
		}
	}
	if len(rings) > 1 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// Follow streams log lines from the named process as they arrive, merged
// across instances, until ctx is done. The returned channel closes when the
// follow ends.
func (s *Supervisor) Follow(ctx context.Context, name string) (<-chan string, error) {
	rec, err := s.get(name)
	if err != nil {
		return nil, err
	}
	rings := rec.rings()
	merged := make(chan string, 64)
	var wg sync.WaitGroup
	for idx, ring := range rings {
		ch, cancel := ring.Follow()
		wg.Add(1)
		go func(idx int, ch <-chan string, cancel func()) {
			defer wg.Done()
			defer cancel()
			for {
				select {
				case line, ok := <-ch:
					if !ok {
						return
					}
					select {
					case merged <- prefixLine(line, idx, len(rings)):
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(idx, ch, cancel)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged, nil
}

func prefixLine(line string, idx, total int) string {
	if total <= 1 {
		return line
	}
	return fmt.Sprintf("[%d] %s", idx, line)
}

// Save writes the current spec set to the store, replacing whatever set was
// saved before. Runtime state is never persisted.
func (s *Supervisor) Save(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}
	s.mu.RLock()
	specs := make([]process.Spec, 0, len(s.records))
	for _, rec := range s.records {
		specs = append(specs, rec.Spec())
	}
	s.mu.RUnlock()
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	if err := s.store.SaveSpecs(ctx, specs); err != nil {
		return fmt.Errorf("save specs: %w", err)
	}
	s.log.Info("saved process list", "count", len(specs))
	return nil
}

// Resurrect loads the saved spec set and starts every process in it.
// Specs whose name is already registered are skipped; individual start
// failures are logged and do not abort the rest.
func (s *Supervisor) Resurrect(ctx context.Context) (started int, err error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	specs, err := s.store.LoadSpecs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load specs: %w", err)
	}
	for _, spec := range specs {
		if _, exists := s.get(spec.Name); exists == nil {
			continue
		}
		if serr := s.Start(spec); serr != nil {
			s.log.Error("resurrect start failed", "process", spec.Name, "error", serr)
			continue
		}
		started++
	}
	s.log.Info("resurrected process list", "count", started, "total", len(specs))
	return started, nil
}

// Shutdown stops every record in parallel, bounded by the grace window, and
// abandons stragglers so daemon exit is never blocked indefinitely.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	recs := make([]*record, 0, len(s.records))
	for name, rec := range s.records {
		recs = append(recs, rec)
		delete(s.records, name)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, rec := range recs {
		wg.Add(1)
		go func(rec *record) {
			defer wg.Done()
			_ = rec.send(ctrlMsg{action: actionShutdown})
		}(rec)
	}
	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-ctx.Done():
		for _, rec := range recs {
			rec.icancel()
		}
		<-doneCh
	}
	s.log.Info("supervisor shut down", "processes", len(recs))
}
