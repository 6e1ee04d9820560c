package supervisor

import (
	"time"

	"github.com/gpm-project/gpm/internal/process"
)

// InstanceStatus is the externally visible view of one runtime entry.
type InstanceStatus struct {
	Instance      int       `json:"instance"`
	PID           int       `json:"pid,omitempty"`
	Running       bool      `json:"running"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryBytes   uint64    `json:"memory_bytes"`
	Restarts      int       `json:"restarts"`
	LastRestartAt time.Time `json:"last_restart_at,omitzero"`
	RestartAt     time.Time `json:"restart_at,omitzero"` // pending backoff deadline
	BudgetSpent   bool      `json:"budget_spent,omitempty"` // parked; needs restart/reload
	ExitError     string    `json:"exit_error,omitempty"`
}

// Status is a point-in-time snapshot of one managed record.
type Status struct {
	Name       string           `json:"name"`
	State      string           `json:"state"`
	StateError string           `json:"state_error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	Spec       process.Spec     `json:"spec"`
	Instances  []InstanceStatus `json:"instances"`
}

// RunningInstances counts live runtime entries in the snapshot.
func (s Status) RunningInstances() int {
	n := 0
	for _, inst := range s.Instances {
		if inst.Running {
			n++
		}
	}
	return n
}
