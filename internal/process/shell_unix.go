//go:build !windows

package process

import "os/exec"

// buildShellCommand runs the command line through the POSIX shell. Absolute
// shell path avoids PATH dependence when Env is overridden.
func buildShellCommand(command string) *exec.Cmd {
	// #nosec G204
	return exec.Command("/bin/sh", "-c", command)
}
