//go:build !windows

package instance

import (
	"fmt"
	"os/exec"
	"syscall"

	"todoperf/pkg/logging"
)

// configureProcAttr starts the command as the leader of a new process group
// so the whole tree can be signalled at once.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// signalProcessGroup sends sig to the process group led by pid, falling back
// to the process itself.
func signalProcessGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		if err2 := syscall.Kill(pid, sig); err2 != nil {
			return fmt.Errorf("failed to signal process group -%d: %v, also failed to signal process %d: %v", pid, err, pid, err2)
		}
		logging.Debug("Instance", "Process group signal failed, signalled PID %d directly", pid)
	}
	return nil
}
