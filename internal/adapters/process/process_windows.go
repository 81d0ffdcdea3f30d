//go:build windows

package process

import (
	"os"
	"os/exec"
)

// configureProcAttr is a no-op on Windows (Setpgid not supported).
func configureProcAttr(_ *exec.Cmd) {}

// terminate on Windows falls back to Process.Kill().
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func processStateCode(ps *os.ProcessState) int {
	return ps.ExitCode()
}
