package schedule

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/modoterra/tender/pkg/hooks"
)

type mockRunner struct {
	calls map[string]int
	order []string
	err   error
}

func (m *mockRunner) RunCategory(_ context.Context, category string) error {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[category]++
	m.order = append(m.order, category)
	return m.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestScheduler(c *clock, r HookRunner, targets Targets) *Scheduler {
	return New(Config{Targets: targets, Now: c.now}, r, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

// 2024-09-01 is a Sunday.
var sunday = time.Date(2024, 9, 1, 4, 0, 10, 0, time.UTC)

var allAtFour = Targets{DailyHour: 4, WeeklyDay: 0, WeeklyHour: 4, MonthlyDay: 1, MonthlyHour: 4}

func TestTickFiresEachCategoryOncePerMinute(t *testing.T) {
	c := &clock{t: sunday}
	r := &mockRunner{}
	s := newTestScheduler(c, r, allAtFour)

	for i := 0; i < 5; i++ {
		s.Tick(context.Background())
		c.t = c.t.Add(10 * time.Second)
	}

	for _, cat := range []string{"hourly", "daily", "weekly", "monthly"} {
		if got := r.calls[cat]; got != 1 {
			t.Errorf("%s fired %d times, want 1", cat, got)
		}
	}
	want := []string{"hourly", "daily", "weekly", "monthly"}
	if strings.Join(r.order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", r.order, want)
	}
}

func TestTickPeriods(t *testing.T) {
	c := &clock{t: sunday}
	r := &mockRunner{}
	s := newTestScheduler(c, r, allAtFour)
	s.Tick(context.Background())

	c.t = sunday.Add(time.Hour)
	s.Tick(context.Background())
	if r.calls["hourly"] != 2 || r.calls["daily"] != 1 {
		t.Fatalf("after one hour: %v", r.calls)
	}

	c.t = sunday.Add(24 * time.Hour)
	s.Tick(context.Background())
	if r.calls["daily"] != 2 {
		t.Errorf("daily fired %d times on the next day, want 2", r.calls["daily"])
	}
	if r.calls["weekly"] != 1 || r.calls["monthly"] != 1 {
		t.Errorf("weekly/monthly fired again on a Monday the 2nd: %v", r.calls)
	}

	c.t = sunday.Add(7 * 24 * time.Hour)
	s.Tick(context.Background())
	if r.calls["weekly"] != 2 {
		t.Errorf("weekly fired %d times a week later, want 2", r.calls["weekly"])
	}

	snap := s.State().Snapshot()
	if snap.LastHour != "04" || snap.LastDay != "08" || snap.LastMonth != "09" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPrimeDelaysHourly(t *testing.T) {
	c := &clock{t: sunday}
	r := &mockRunner{}
	s := newTestScheduler(c, r, DefaultTargets)
	s.Prime(c.t)
	s.Tick(context.Background())
	if r.calls["hourly"] != 0 {
		t.Fatalf("hourly fired in the primed hour")
	}
	c.t = c.t.Add(time.Hour)
	s.Tick(context.Background())
	if r.calls["hourly"] != 1 {
		t.Errorf("hourly fired %d times at the next hour, want 1", r.calls["hourly"])
	}
}

func TestRunnerErrorDoesNotAbortTick(t *testing.T) {
	c := &clock{t: sunday}
	r := &mockRunner{err: errors.New("boom")}
	s := newTestScheduler(c, r, allAtFour)
	s.Tick(context.Background())
	if len(r.order) != 4 {
		t.Errorf("got %v, want all four categories", r.order)
	}
}

func TestTargetsOverriddenByVars(t *testing.T) {
	c := &clock{t: time.Date(2024, 9, 3, 7, 30, 0, 0, time.UTC)}
	r := &mockRunner{}
	vars := hooks.NewContext(map[string]string{
		hooks.VarDailyHour: "7",
		hooks.VarWeeklyDay: "garbage",
	})
	s := New(Config{Targets: DefaultTargets, Vars: vars, Now: c.now}, r, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	s.Tick(context.Background())
	if r.calls["daily"] != 1 {
		t.Errorf("daily not fired at overridden hour: %v", r.calls)
	}
}

func TestUptimeAnnouncement(t *testing.T) {
	var buf bytes.Buffer
	start := sunday
	c := &clock{t: start}
	vars := hooks.NewContext(nil)
	var statuses []string
	s := New(Config{
		Targets:        DefaultTargets,
		UptimeAnnounce: true,
		Vars:           vars,
		Uptime:         func(now time.Time) time.Duration { return now.Sub(start) },
		Status:         func(msg string) { statuses = append(statuses, msg) },
		Now:            c.now,
	}, nil, slog.New(slog.NewTextHandler(&buf, nil)))
	s.Prime(start)

	c.t = start.Add(5 * time.Minute)
	s.Tick(context.Background())
	if strings.Contains(buf.String(), "uptime") {
		t.Fatalf("announced too early: %s", buf.String())
	}

	c.t = start.Add(10 * time.Minute)
	s.Tick(context.Background())
	if !strings.Contains(buf.String(), "uptime 10m") {
		t.Errorf("missing announcement: %s", buf.String())
	}
	if len(statuses) != 1 || statuses[0] != "uptime 10m" {
		t.Errorf("statuses = %q, want [uptime 10m]", statuses)
	}

	buf.Reset()
	vars.Set(hooks.VarUptimeAnnounce, "false")
	c.t = start.Add(30 * time.Minute)
	s.Tick(context.Background())
	if strings.Contains(buf.String(), "uptime") {
		t.Errorf("announced while disabled: %s", buf.String())
	}
}
