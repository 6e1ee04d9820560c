//go:build windows

package process

import "syscall"

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const processTerminate = 0x0001

// signalStop and forceKill converge to TerminateProcess on Windows; the
// caller still honors the grace period by polling liveness before escalating,
// so external timing matches the POSIX path.
func signalStop(pid int) { terminate(pid) }

func forceKill(pid int) { terminate(pid) }

func terminate(pid int) {
	if pid <= 0 {
		return
	}
	handle, _, _ := procOpenProcess.Call(uintptr(processTerminate), 0, uintptr(uint32(pid)))
	if handle == 0 {
		// Already gone; nothing to do.
		return
	}
	defer func() { _, _, _ = procCloseHandle.Call(handle) }()
	_, _, _ = procTerminateProcess.Call(handle, uintptr(1))
}
