package daemon

import (
	"context"
	"syscall"
	"time"

	"github.com/modoterra/tender/pkg/core"
)

// fail handles a child that died on its own.
func (s *Supervisor) fail(c *child) int {
	s.setState(core.StateFailed)
	s.logger.Error("child exited unexpectedly",
		"pid", c.handle.PID,
		"uptime", core.FormatUptime(c.handle.Uptime(time.Now())),
		"error", c.exitErr(),
	)
	s.stopLogs()
	c.waitDrain(s.cfg.PollInterval)
	s.setHandle(nil)
	return ExitFailure
}

// shutdown runs the shutdown hooks and terminates the child: SIGTERM first,
// SIGKILL once two thirds of the budget are spent. c may be nil when no
// child was started.
func (s *Supervisor) shutdown(c *child) int {
	s.setState(core.StateShuttingDown)
	if s.deps.Notifier != nil {
		s.deps.Notifier.Stopping()
	}
	s.logger.Info("shutting down")

	s.runHooks(context.Background(), core.CategoryShutdown)
	s.stopLogs()

	if c != nil && s.alive(c) {
		s.terminate(c)
	}

	s.setState(core.StateTerminated)
	if c != nil {
		c.waitDrain(s.cfg.PollInterval)
	}
	s.setHandle(nil)
	s.logger.Info("shutdown complete")
	return ExitOK
}

func (s *Supervisor) terminate(c *child) {
	budget := s.cfg.ShutdownTimeout
	killAt := budget * 2 / 3
	start := time.Now()

	s.logger.Info("stopping child", "pid", c.handle.PID, "timeout", budget)
	if err := s.signal(c, syscall.SIGTERM); err != nil {
		s.logger.Warn("SIGTERM failed", "pid", c.handle.PID, "error", err)
	}

	killed := false
	for s.alive(c) {
		elapsed := time.Since(start)
		if elapsed >= budget {
			s.logger.Warn("child still alive after shutdown timeout", "pid", c.handle.PID)
			return
		}
		if !killed && elapsed >= killAt {
			s.logger.Warn("forcing kill", "pid", c.handle.PID, "elapsed", elapsed.Round(time.Millisecond))
			if err := s.signal(c, syscall.SIGKILL); err != nil {
				s.logger.Warn("SIGKILL failed", "pid", c.handle.PID, "error", err)
			}
			killed = true
		}
		select {
		case <-c.done:
		case <-time.After(s.cfg.PollInterval):
		}
	}
	s.logger.Info("child stopped", "pid", c.handle.PID, "status", c.exitStatus())
}

func (s *Supervisor) stopLogs() {
	if s.deps.Logs == nil {
		return
	}
	if err := s.deps.Logs.Stop(); err != nil {
		s.logger.Warn("stopping log readers", "error", err)
	}
}
