//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// groupAttr returns an empty SysProcAttr on Windows where process groups are not
// managed this way.
func groupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

func killGroup(c *exec.Cmd) error {
	if c.Process == nil {
		return nil
	}
	return c.Process.Kill()
}
