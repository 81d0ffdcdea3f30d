package state

import (
	"os"
	"runtime"
	"syscall"
)

// processExists checks if a process is running.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Windows reports no access when signaling the current process; treat that as existing.
	if runtime.GOOS == "windows" && pid == os.Getpid() {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds, so we send signal 0.
	return process.Signal(syscall.Signal(0)) == nil
}
