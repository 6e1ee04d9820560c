package supervisor

import "errors"

var (
	// ErrNotFound is returned for operations on an unknown record name.
	ErrNotFound = errors.New("process not found")

	// ErrAlreadyRunning is returned when start targets a running record.
	ErrAlreadyRunning = errors.New("process already running")

	// ErrRestartBudgetExhausted marks a record parked after crashing more
	// than the configured ceiling inside the sliding window. An explicit
	// restart or reload is required to resume.
	ErrRestartBudgetExhausted = errors.New("restart budget exhausted")

	// ErrTooManyProcesses is returned when registering a record would
	// exceed the daemon's max_processes limit.
	ErrTooManyProcesses = errors.New("process limit reached")

	// ErrDeleted is returned when a command races with record deletion.
	ErrDeleted = errors.New("process deleted")

	// ErrNoStore is returned by save/resurrect when no persistence store
	// is configured.
	ErrNoStore = errors.New("no persistence store configured")
)
