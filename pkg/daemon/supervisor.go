// Package daemon runs the supervised child through its lifecycle: hooks,
// launch, liveness monitoring, scheduled hooks and escalating shutdown.
package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/modoterra/tender/pkg/core"
	"github.com/modoterra/tender/pkg/hooks"
	"github.com/modoterra/tender/pkg/procfs"
	"github.com/modoterra/tender/pkg/transport/uds"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Defaults for Config fields left zero.
const (
	DefaultTickInterval    = time.Minute
	DefaultShutdownTimeout = 30 * time.Second
	DefaultPollInterval    = time.Second
	DefaultSettleDelay     = 200 * time.Millisecond
	DefaultShell           = "/bin/sh"
)

var (
	// ErrSpawn wraps failures to start the child.
	ErrSpawn = errors.New("spawn failed")
	// ErrChildExited reports a child that is no longer alive.
	ErrChildExited = errors.New("child exited")
)

// Config describes the child and the loop timings.
type Config struct {
	Command []string
	Dir     string
	Env     map[string]string
	// SinkPath receives the child's raw output; empty disables it.
	SinkPath string
	// Source names the child's output lines; defaults to the base name of
	// the program.
	Source          string
	ProcessGroup    bool
	TickInterval    time.Duration
	ShutdownTimeout time.Duration
	PollInterval    time.Duration
	SettleDelay     time.Duration
}

// HookRunner runs a hook category. *hooks.Runner implements it.
type HookRunner interface {
	RunCategory(ctx context.Context, category string) error
}

// Scheduler is ticked once per loop iteration. *schedule.Scheduler
// implements it.
type Scheduler interface {
	Prime(now time.Time)
	Tick(ctx context.Context)
}

// LogSource follows log files and drains streams. *logs.Aggregator
// implements it.
type LogSource interface {
	Watch(ctx context.Context, since time.Time) error
	Stop() error
	Drain(r io.Reader, source string) error
}

// Notifier reports readiness. *notify.Notifier implements it.
type Notifier interface {
	Ready()
	Stopping()
}

// Broadcaster pushes events to control clients. *uds.Server implements it.
type Broadcaster interface {
	Broadcast(msg uds.Message)
}

// Deps are the collaborators of a Supervisor. Every field is optional.
type Deps struct {
	Hooks     HookRunner
	Vars      *hooks.Context
	Scheduler Scheduler
	Logs      LogSource
	Notifier  Notifier
	Events    Broadcaster
	Proc      procfs.FS
	Logger    *slog.Logger
}

// Supervisor owns the child process for the whole container lifetime.
type Supervisor struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	mu     sync.RWMutex
	state  core.State
	handle *core.ProcessHandle
}

// New creates a Supervisor.
func New(cfg Config, deps Deps) *Supervisor {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if deps.Proc.Root == "" {
		deps.Proc = procfs.Default
	}
	if deps.Vars == nil {
		deps.Vars = hooks.NewContext(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "supervisor"),
		state:  core.StateInitializing,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Handle returns a copy of the child's handle, or nil before launch and
// after termination.
func (s *Supervisor) Handle() *core.ProcessHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return nil
	}
	h := *s.handle
	return &h
}

func (s *Supervisor) setState(st core.State) {
	s.mu.Lock()
	from := s.state
	if from.Final() || from == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("state changed", "from", from.String(), "to", st.String())
	if s.deps.Events != nil {
		if evt, err := uds.NewEvent(uds.EventState, uds.StateEvent{From: from.String(), To: st.String()}); err == nil {
			s.deps.Events.Broadcast(evt)
		}
	}
}

func (s *Supervisor) setHandle(h *core.ProcessHandle) {
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
}

// Run drives the lifecycle until the child fails (ExitFailure) or ctx is
// cancelled and shutdown completes (ExitOK).
func (s *Supervisor) Run(ctx context.Context) int {
	argv := s.initialize()

	s.setState(core.StateStarting)
	s.runHooks(ctx, core.CategoryPreStartup)
	s.runHooks(ctx, core.CategoryStartup)
	if ctx.Err() != nil {
		return s.shutdown(nil)
	}

	source := s.source(argv)
	if override, ok := s.deps.Vars.Get(hooks.VarLaunchCommand); ok && override != "" {
		s.logger.Info("launch command overridden by hook", "command", override)
		argv = []string{DefaultShell, "-c", override}
		source = s.overrideSource(override)
	}

	c, err := s.launch(argv, source)
	if err != nil {
		s.setState(core.StateFailed)
		s.logger.Error("failed to start child", "error", err)
		return ExitFailure
	}

	select {
	case <-time.After(s.cfg.SettleDelay):
	case <-c.done:
	}
	if !s.alive(c) {
		s.setState(core.StateFailed)
		s.logger.Error("child exited immediately", "pid", c.handle.PID, "error", c.exitErr())
		c.waitDrain(s.cfg.PollInterval)
		return ExitFailure
	}

	if argv, err := s.deps.Proc.Cmdline(c.handle.PID); err == nil {
		s.logger.Debug("child running", "pid", c.handle.PID, "cmdline", strings.Join(argv, " "))
	}

	if s.deps.Logs != nil {
		if err := s.deps.Logs.Watch(context.WithoutCancel(ctx), c.handle.StartedAt); err != nil {
			s.logger.Warn("log discovery failed", "error", err)
		}
	}

	s.setState(core.StateRunning)
	if s.deps.Notifier != nil {
		s.deps.Notifier.Ready()
	}
	if s.deps.Scheduler != nil {
		s.deps.Scheduler.Prime(time.Now())
	}

	return s.loop(ctx, c)
}

// initialize resolves the launch command, falling back to a shell.
func (s *Supervisor) initialize() []string {
	s.setState(core.StateInitializing)
	argv := s.cfg.Command
	if len(argv) == 0 {
		s.logger.Warn("no launch command configured, starting a shell", "shell", DefaultShell)
		argv = []string{DefaultShell}
	}
	return argv
}

func (s *Supervisor) runHooks(ctx context.Context, category string) {
	if s.deps.Hooks == nil {
		return
	}
	if err := s.deps.Hooks.RunCategory(ctx, category); err != nil {
		s.logger.Warn("hook category finished with errors", "category", category)
	}
}

// source names the child's output after the base name of its program.
func (s *Supervisor) source(argv []string) string {
	if s.cfg.Source != "" {
		return s.cfg.Source
	}
	return filepath.Base(argv[0])
}

// overrideSource names the output of a shell command line after its first
// word.
func (s *Supervisor) overrideSource(cmdline string) string {
	if s.cfg.Source != "" {
		return s.cfg.Source
	}
	if f := strings.Fields(cmdline); len(f) > 0 {
		return filepath.Base(f[0])
	}
	return filepath.Base(DefaultShell)
}
