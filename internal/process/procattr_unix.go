//go:build !windows

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// groupAttr places the subprocess in a fresh process group so it can be signalled
// together with everything it spawns.
func groupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killGroup sends SIGKILL to the subprocess's process group.
func killGroup(c *exec.Cmd) error {
	if c.Process == nil {
		return nil
	}
	if err := unix.Kill(-c.Process.Pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return c.Process.Kill()
	}
	return nil
}
