package mediaplayer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"kioskd/internal/infrastructure/logging"
)

// outputBufferSize is the read buffer for player output capture.
const outputBufferSize = 4096

// Process is one running player instance. It owns its process group so a
// forced kill takes any yt-dlp children down with it.
//
// There is no restart policy: the player exiting is an event the worker
// reacts to, not a failure to recover from.
type Process struct {
	cmd    *exec.Cmd
	logger *logging.Logger

	// exited is closed by the wait goroutine when the process is gone.
	exited chan struct{}
}

// StartProcess launches the binary with the given arguments and extra
// environment, in its own process group, with output captured at Debug.
func StartProcess(logger *logging.Logger, binary string, args, env []string) (*Process, error) {
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if env != nil {
		cmd.Env = append(os.Environ(), env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{
		cmd:    cmd,
		logger: logger,
		exited: make(chan struct{}),
	}

	go p.captureOutput("stdout", stdout)
	go p.captureOutput("stderr", stderr)
	go func() {
		// Wait reaps the process; the error is exit-status noise here.
		_ = cmd.Wait()
		close(p.exited)
	}()

	p.logger.Debug("player started", "pid", cmd.Process.Pid)
	return p, nil
}

// Running reports whether the process is still alive.
func (p *Process) Running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// WaitExit blocks until the process exits or the duration elapses, and
// reports whether it exited.
func (p *Process) WaitExit(d time.Duration) bool {
	select {
	case <-p.exited:
		return true
	case <-time.After(d):
		return false
	}
}

// Kill sends SIGKILL to the whole process group and waits for the reap.
func (p *Process) Kill() {
	pid := p.cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Warn("failed to kill player process group", "pid", pid, "error", err)
	}
	<-p.exited
}

// captureOutput drains a player stream into the debug log.
func (p *Process) captureOutput(stream string, r io.Reader) {
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.logger.Debug("player output", "stream", stream, "output", string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}
