//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

const exeSuffix = ""

// setSysProcAttr puts the server in its own process group so terminal signals miss it
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}
