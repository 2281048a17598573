//go:build !windows

package infrastructure

import (
	"os/exec"
	"syscall"
)

// setProcAttr puts the child in its own process group so cancellation also
// reaches helpers it spawned (yt-dlp runs ffmpeg for merging).
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
