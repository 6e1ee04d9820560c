package process

import (
	"errors"
	"io/fs"
	"os/exec"
)

// Spawn failure taxonomy. These are reported to the caller and never silently
// retried outside the restart policy.
var (
	ErrExecutableNotFound = errors.New("executable not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrBadWorkDir         = errors.New("working directory invalid")
)

// ErrGone is returned by SampleUsage when the process disappeared between the
// existence check and the sample. Callers treat it as a liveness transition,
// not a failure.
var ErrGone = errors.New("process gone")

// classifySpawnError maps an exec.Cmd.Start error onto the spawn taxonomy.
func classifySpawnError(err error) error {
	if err == nil {
		return nil
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return ErrExecutableNotFound
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		switch {
		case errors.Is(pathErr.Err, fs.ErrPermission):
			return ErrPermissionDenied
		case errors.Is(pathErr.Err, fs.ErrNotExist) && pathErr.Op == "chdir":
			return ErrBadWorkDir
		}
	}
	if errors.Is(err, fs.ErrPermission) {
		return ErrPermissionDenied
	}
	return err
}
