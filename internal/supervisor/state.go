package supervisor

// State is the lifecycle state of a managed record.
//
// Starting -> Running -> Stopping -> Stopped
// Running -> Crashed -> Restarting -> Starting (autorestart)
// Running -> Crashed -> Stopped (no restart, or budget exhausted)
// any -> Deleted (terminal; the record is removed)
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
	StateRestarting
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateCrashed:
		return "crashed"
	case StateRestarting:
		return "restarting"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
