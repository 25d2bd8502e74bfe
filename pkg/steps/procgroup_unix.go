//go:build unix

package steps

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// killProcessGroup runs the playbook in its own process group and kills the
// whole group on cancellation, taking ansible's forked workers with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
