//go:build windows

package process

import "os/exec"

// buildShellCommand runs the command line through cmd.exe.
func buildShellCommand(command string) *exec.Cmd {
	// #nosec G204
	return exec.Command("cmd", "/c", command)
}
