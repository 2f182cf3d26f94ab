package daemon

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/modoterra/tender/pkg/core"
)

// child is a started process. done is closed once it has been reaped;
// drained is closed once its output pipe reached EOF.
type child struct {
	cmd     *exec.Cmd
	handle  *core.ProcessHandle
	done    chan struct{}
	drained chan struct{}
	waitErr error
}

func (c *child) exitStatus() string {
	select {
	case <-c.done:
	default:
		return "running"
	}
	if c.waitErr != nil {
		return c.waitErr.Error()
	}
	return "exit status 0"
}

func (c *child) exitErr() error {
	return fmt.Errorf("%w: %s", ErrChildExited, c.exitStatus())
}

// waitDrain waits up to d for the output pipe to be consumed.
func (c *child) waitDrain(d time.Duration) {
	select {
	case <-c.drained:
	case <-time.After(d):
	}
}

// launch starts argv with stdout and stderr on one pipe. The pipe is drained
// line by line into the log source under source and copied verbatim to the
// sink file.
func (s *Supervisor) launch(argv []string, source string) (*child, error) {
	s.logger.Info("launching command")
	for _, line := range core.DisplayCommand(argv) {
		s.logger.Info("command", "arg", line)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.cfg.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: s.cfg.ProcessGroup}
	cmd.Env = os.Environ()
	for k, v := range s.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, s.deps.Vars.Environ()...)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: pipe: %v", ErrSpawn, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	var sink *os.File
	if s.cfg.SinkPath != "" {
		sink, err = os.OpenFile(s.cfg.SinkPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			s.logger.Warn("console sink unavailable", "path", s.cfg.SinkPath, "error", err)
		}
	}

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		if sink != nil {
			sink.Close()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, argv[0], err)
	}
	pw.Close()

	c := &child{
		cmd: cmd,
		handle: &core.ProcessHandle{
			PID:       cmd.Process.Pid,
			Command:   argv,
			StartedAt: time.Now(),
		},
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	s.setHandle(c.handle)
	s.logger.Info("child started", "pid", c.handle.PID)

	go func() {
		defer close(c.drained)
		defer pr.Close()
		var r io.Reader = pr
		if sink != nil {
			defer sink.Close()
			r = io.TeeReader(pr, sink)
		}
		s.drain(r, source)
	}()

	go func() {
		c.waitErr = cmd.Wait()
		close(c.done)
	}()

	return c, nil
}

func (s *Supervisor) drain(r io.Reader, source string) {
	if s.deps.Logs == nil {
		io.Copy(io.Discard, r)
		return
	}
	if err := s.deps.Logs.Drain(r, source); err != nil {
		s.logger.Warn("child output", "error", err)
	}
}

// alive reports whether the child is running: not yet reaped and neither a
// zombie nor gone in /proc.
func (s *Supervisor) alive(c *child) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	return s.deps.Proc.Alive(c.handle.PID)
}

// signal delivers sig to the child, or to its process group.
func (s *Supervisor) signal(c *child, sig syscall.Signal) error {
	if s.cfg.ProcessGroup {
		if err := syscall.Kill(-c.handle.PID, sig); err == nil {
			return nil
		}
	}
	return c.cmd.Process.Signal(sig)
}
