package process

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gpm-project/gpm/internal/logger"
)

// Spec describes a process to be managed. It is the only part of a managed
// record that is ever persisted; runtime state (PIDs, counters) is not.
type Spec struct {
	Name                string          `json:"name"`
	Command             string          `json:"command"`                         // command line, run through the platform shell
	WorkDir             string          `json:"work_dir,omitempty"`              // optional working dir
	Env                 []string        `json:"env,omitempty"`                   // extra "KEY=VALUE" entries layered over the daemon env
	Instances           int             `json:"instances,omitempty"`             // number of OS processes backing the record (default 1)
	AutoRestart         bool            `json:"autorestart"`                     // respawn on unexpected exit
	MaxMemoryMB         uint64          `json:"max_memory_mb,omitempty"`         // 0 = unlimited; breach is treated like a crash
	HealthCheckInterval time.Duration   `json:"health_check_interval,omitempty"` // 0 = daemon default
	Log                 logger.Config   `json:"log,omitempty"`                   // per-process log overrides
}

// NumInstances normalizes the configured instance count.
func (s Spec) NumInstances() int {
	if s.Instances < 1 {
		return 1
	}
	return s.Instances
}

// Validate checks the fields a client is allowed to submit.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("spec: name required")
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("spec: command required")
	}
	if s.Instances < 0 {
		return fmt.Errorf("spec: instances must be >= 0")
	}
	if s.WorkDir != "" {
		fi, err := os.Stat(s.WorkDir)
		if err != nil {
			return fmt.Errorf("spec: %w", ErrBadWorkDir)
		}
		if !fi.IsDir() {
			return fmt.Errorf("spec: %w", ErrBadWorkDir)
		}
	}
	for _, kv := range s.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("spec: env entry %q is not KEY=VALUE", kv)
		}
	}
	return nil
}

// DefaultName derives a record name from the first word of a command line,
// used when the caller did not supply one.
func DefaultName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "unknown"
	}
	name := fields[0]
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// MergedEnv layers the spec's overrides on top of the daemon environment.
// Later entries win for duplicate keys, matching os/exec semantics.
func (s Spec) MergedEnv() []string {
	if len(s.Env) == 0 {
		return nil // inherit as-is
	}
	return append(os.Environ(), s.Env...)
}
