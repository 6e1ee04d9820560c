//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// daemonAttrs detaches the daemon into its own session so terminal signals
// never reach it.
func daemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
