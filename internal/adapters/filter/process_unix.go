//go:build !windows

package filter

import (
	"os/exec"
	"syscall"
)

// configureProcAttr isolates the filter in its own process group and makes
// context cancellation kill the whole group, including grandchildren.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
			return err
		}
		return nil
	}
}
