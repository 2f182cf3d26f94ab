package schedule

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/modoterra/tender/pkg/core"
	"github.com/modoterra/tender/pkg/hooks"
)

// UptimeInterval is the spacing of uptime announcements.
const UptimeInterval = 10 * time.Minute

// HookRunner runs the units of a hook category.
type HookRunner interface {
	RunCategory(ctx context.Context, category string) error
}

// Targets are the hour and day at which the daily, weekly and monthly
// categories fire. WeeklyDay uses time.Weekday numbering (0 = Sunday).
type Targets struct {
	DailyHour   int
	WeeklyDay   int
	WeeklyHour  int
	MonthlyDay  int
	MonthlyHour int
}

// DefaultTargets fire daily at 04:00, weekly on Sunday 05:00 and monthly on
// the first at 06:00.
var DefaultTargets = Targets{DailyHour: 4, WeeklyDay: 0, WeeklyHour: 5, MonthlyDay: 1, MonthlyHour: 6}

// Config configures a Scheduler.
type Config struct {
	Targets        Targets
	UptimeAnnounce bool
	// Vars, when set, may override Targets and UptimeAnnounce on every tick.
	Vars *hooks.Context
	// Uptime reports the supervised process uptime for announcements.
	Uptime func(now time.Time) time.Duration
	// Status, when set, also receives each announcement.
	Status func(msg string)
	Now    func() time.Time
}

// Scheduler compares the current time with State on every Tick and runs
// each eligible category at most once per period.
type Scheduler struct {
	cfg    Config
	runner HookRunner
	logger *slog.Logger
	state  *State

	lastAnnounce time.Time
}

// New creates a Scheduler with empty State.
func New(cfg Config, runner HookRunner, logger *slog.Logger) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		logger: logger.With("component", "scheduler"),
		state:  &State{},
	}
}

// State returns the scheduler's state.
func (s *Scheduler) State() *State { return s.state }

// Prime records the current hour so the hourly category first fires at the
// next hour boundary, and starts the uptime announcement interval.
func (s *Scheduler) Prime(now time.Time) {
	s.state.mu.Lock()
	s.state.LastHour = hourID(now)
	s.state.mu.Unlock()
	s.lastAnnounce = now
}

// Tick runs the hourly, daily, weekly and monthly checks in that order.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.cfg.Now()
	t := s.targets()

	if s.claim(&s.state.LastHour, hourID(now)) {
		s.fire(ctx, core.CategoryHourly)
	}
	if now.Hour() == t.DailyHour && s.claim(&s.state.LastDay, dayID(now)) {
		s.fire(ctx, core.CategoryDaily)
	}
	if int(now.Weekday()) == t.WeeklyDay && now.Hour() == t.WeeklyHour && s.claim(&s.state.LastWeek, weekID(now)) {
		s.fire(ctx, core.CategoryWeekly)
	}
	if now.Day() == t.MonthlyDay && now.Hour() == t.MonthlyHour && s.claim(&s.state.LastMonth, monthID(now)) {
		s.fire(ctx, core.CategoryMonthly)
	}

	s.announce(now)
}

// claim sets *field to id and reports whether it changed.
func (s *Scheduler) claim(field *string, id string) bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if *field == id {
		return false
	}
	*field = id
	return true
}

func (s *Scheduler) fire(ctx context.Context, category string) {
	s.logger.Info("firing hooks", "category", category)
	if s.runner == nil {
		return
	}
	if err := s.runner.RunCategory(ctx, category); err != nil {
		s.logger.Error("hooks failed", "category", category, "error", err)
	}
}

func (s *Scheduler) announce(now time.Time) {
	if !s.announceEnabled() || s.cfg.Uptime == nil {
		return
	}
	if s.lastAnnounce.IsZero() {
		s.lastAnnounce = now
		return
	}
	if now.Sub(s.lastAnnounce) < UptimeInterval {
		return
	}
	s.lastAnnounce = now
	msg := "uptime " + core.FormatUptime(s.cfg.Uptime(now))
	s.logger.Info(msg)
	if s.cfg.Status != nil {
		s.cfg.Status(msg)
	}
}

func (s *Scheduler) announceEnabled() bool {
	if s.cfg.Vars != nil {
		if v, ok := s.cfg.Vars.Get(hooks.VarUptimeAnnounce); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return s.cfg.UptimeAnnounce
}

func (s *Scheduler) targets() Targets {
	t := s.cfg.Targets
	if s.cfg.Vars == nil {
		return t
	}
	override := func(key string, dst *int) {
		v, ok := s.cfg.Vars.Get(key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			s.logger.Warn("ignoring schedule override", "var", key, "value", v)
			return
		}
		*dst = n
	}
	override(hooks.VarDailyHour, &t.DailyHour)
	override(hooks.VarWeeklyDay, &t.WeeklyDay)
	override(hooks.VarWeeklyHour, &t.WeeklyHour)
	override(hooks.VarMonthlyDay, &t.MonthlyDay)
	override(hooks.VarMonthlyHour, &t.MonthlyHour)
	return t
}
