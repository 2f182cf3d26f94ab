package manifest

import (
	"fmt"
	"time"

	"github.com/modoterra/tender/pkg/lineproc"
	"github.com/modoterra/tender/pkg/logs"
	"github.com/modoterra/tender/pkg/rules"
)

// Validate checks the manifest for structural correctness.
func Validate(m *Manifest) []error {
	var errs []error

	if m.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", m.Version))
	}

	_, lineErrs := rules.ParseSpecs(m.Colors.Line, rules.ScopeLine)
	errs = append(errs, lineErrs...)
	_, wordErrs := rules.ParseSpecs(m.Colors.Word, rules.ScopeWord)
	errs = append(errs, wordErrs...)
	errs = append(errs, lineproc.ValidateCleanup(m.Cleanup)...)

	if !m.Timestamp.Valid() {
		errs = append(errs, fmt.Errorf("timestamp must be us or iso, got %q", m.Timestamp))
	}
	if _, err := logs.NewMatcher(m.Logs.Patterns); err != nil {
		errs = append(errs, err)
	}

	s := m.Schedule
	checkRange := func(name string, v, lo, hi int) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Errorf("schedule.%s must be %d-%d, got %d", name, lo, hi, v))
		}
	}
	checkRange("daily_hour", s.DailyHour, 0, 23)
	checkRange("weekly_day", s.WeeklyDay, 0, 6)
	checkRange("weekly_hour", s.WeeklyHour, 0, 23)
	checkRange("monthly_day", s.MonthlyDay, 1, 28)
	checkRange("monthly_hour", s.MonthlyHour, 0, 23)

	if m.Rotation.GzipAfterDays < 0 {
		errs = append(errs, fmt.Errorf("rotation.gzip_after_days must not be negative"))
	}
	if m.Rotation.DeleteAfterDays < 0 {
		errs = append(errs, fmt.Errorf("rotation.delete_after_days must not be negative"))
	}
	if m.Rotation.Interval.D() < 0 {
		errs = append(errs, fmt.Errorf("rotation.interval must not be negative"))
	}
	if m.ShutdownTimeout.D() < time.Second {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be at least 1s, got %s", m.ShutdownTimeout))
	}
	if m.TickInterval.D() < time.Second {
		errs = append(errs, fmt.Errorf("tick_interval must be at least 1s, got %s", m.TickInterval))
	}

	return errs
}
