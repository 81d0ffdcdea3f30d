//go:build !windows

package process

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// configureProcAttr puts the worker in its own process group so a terminal
// Ctrl+C does not reach it and termination can target its children too.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the worker's process group. There is no
// escalation to SIGKILL.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("getpgid(%d): %w", pid, err)
	}
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		// ESRCH means process already gone
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("sigterm pgid %d: %w", pgid, err)
	}
	return nil
}

// processStateCode mirrors the shell convention of a negative code for a
// worker killed by a signal.
func processStateCode(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}
