//go:build windows

package infrastructure

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// setProcAttr keeps console windows from flashing up for every child.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
