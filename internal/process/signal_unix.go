//go:build !windows

package process

import "syscall"

// signalStop sends SIGTERM to the child's process group.
func signalStop(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
}

// forceKill sends SIGKILL to the child's process group.
func forceKill(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
