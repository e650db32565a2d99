//go:build unix

package download

import (
	"os"
	"os/exec"
	"syscall"
	"time"
)

const killGracePeriod = 3 * time.Second

// configureProcessGroup starts cmd in a new process group so that children
// spawned by the tool (yt-dlp runs ffmpeg itself) are signaled with it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true} //nolint:exhaustruct

	cmd.Cancel = func() error {
		p := cmd.Process
		if p == nil {
			return nil
		}

		_ = syscall.Kill(-p.Pid, syscall.SIGTERM)

		deadline := time.Now().Add(killGracePeriod)
		for time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
			if err := syscall.Kill(p.Pid, 0); nil != err {
				return os.ErrProcessDone
			}
		}

		return syscall.Kill(-p.Pid, syscall.SIGKILL)
	}
}
