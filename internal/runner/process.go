package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"rltest/pkg/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	logTailSize     = 4096
)

// tailBuffer keeps the last logTailSize bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - logTailSize; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// managedProcess is one child process with its output captured to a log
// file and an in-memory tail used in error messages.
type managedProcess struct {
	name    string
	cmd     *exec.Cmd
	logFile *os.File
	tail    *tailBuffer

	exited  chan struct{}
	waitErr error
}

// startProcess launches argv with extra environment variables appended to
// the current environment. Output goes to logPath.
func startProcess(name string, argv []string, env []string, logPath string) (*managedProcess, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no command given for %s", name)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	tail := &tailBuffer{}
	out := io.MultiWriter(logFile, tail)

	// Not CommandContext: the process must outlive the context that started it.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = out
	cmd.Stderr = out

	logging.Debug("Runner", "Starting %s: %v", name, argv)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &managedProcess{
		name:    name,
		cmd:     cmd,
		logFile: logFile,
		tail:    tail,
		exited:  make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()

	logging.Info("Runner", "Started %s (PID: %d)", name, cmd.Process.Pid)
	return p, nil
}

// running reports whether the process has not exited yet.
func (p *managedProcess) running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// pid returns the process id.
func (p *managedProcess) pid() int {
	return p.cmd.Process.Pid
}

// exitCode returns the exit code once the process exited, and -1 when it
// is still running or was killed by a signal.
func (p *managedProcess) exitCode() int {
	if p.running() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// stop sends SIGTERM and waits for the process to exit, escalating to
// SIGKILL after shutdownTimeout or when ctx is done.
func (p *managedProcess) stop(ctx context.Context) error {
	defer p.logFile.Close()

	if !p.running() {
		return nil
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		logging.Debug("Runner", "SIGTERM failed for %s, using SIGKILL: %v", p.name, err)
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill %s: %w", p.name, err)
		}
		<-p.exited
		return nil
	}

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()

	select {
	case <-p.exited:
		logging.Debug("Runner", "Process %s exited with code %d (%v)", p.name, p.exitCode(), p.waitErr)
		return nil
	case <-timer.C:
		logging.Warn("Runner", "Graceful shutdown timeout for %s, forcing kill", p.name)
	case <-ctx.Done():
		logging.Warn("Runner", "Shutdown of %s cancelled, forcing kill", p.name)
	}

	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill %s: %w", p.name, err)
	}
	<-p.exited
	return nil
}
