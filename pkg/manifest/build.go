package manifest

import (
	"io"

	"github.com/modoterra/tender/pkg/lineproc"
	"github.com/modoterra/tender/pkg/logs"
	"github.com/modoterra/tender/pkg/rotate"
	"github.com/modoterra/tender/pkg/rules"
	"github.com/modoterra/tender/pkg/schedule"
)

// Rules builds the color engine. With colors disabled it still wraps lines
// but emits no escape codes. Invalid specs are skipped and returned.
func (m *Manifest) Rules(w io.Writer) (*rules.Engine, []error) {
	line, errs := rules.ParseSpecs(m.Colors.Line, rules.ScopeLine)
	word, wordErrs := rules.ParseSpecs(m.Colors.Word, rules.ScopeWord)
	errs = append(errs, wordErrs...)

	r := rules.PlainRenderer()
	if m.Colors.Enabled {
		r = rules.ANSIRenderer(w)
	}
	return rules.New(append(line, word...), r), errs
}

// ProcessorConfig returns the line processing settings.
func (m *Manifest) ProcessorConfig() lineproc.Config {
	return lineproc.Config{
		Filter:         m.Filter,
		Cleanup:        m.Cleanup,
		Template:       m.Format,
		TimestampStyle: m.Timestamp,
		StripANSI:      m.StripANSI,
	}
}

// LogsConfig returns the aggregator settings. The sink is excluded so the
// supervisor does not read back its own output.
func (m *Manifest) LogsConfig() logs.Config {
	cfg := logs.Config{Root: m.Logs.Root, Patterns: m.Logs.Patterns}
	if m.Logs.Sink != "" {
		cfg.Exclude = []string{m.Logs.Sink}
	}
	return cfg
}

// RotateConfig returns the rotation settings.
func (m *Manifest) RotateConfig() rotate.Config {
	cfg := rotate.Config{
		Root:            m.Logs.Root,
		Patterns:        m.Logs.Patterns,
		GzipAfterDays:   m.Rotation.GzipAfterDays,
		DeleteAfterDays: m.Rotation.DeleteAfterDays,
	}
	if m.Logs.Sink != "" {
		cfg.Exclude = []string{m.Logs.Sink}
	}
	return cfg
}

// Targets returns the schedule targets.
func (m *Manifest) Targets() schedule.Targets {
	s := m.Schedule
	return schedule.Targets{
		DailyHour:   s.DailyHour,
		WeeklyDay:   s.WeeklyDay,
		WeeklyHour:  s.WeeklyHour,
		MonthlyDay:  s.MonthlyDay,
		MonthlyHour: s.MonthlyHour,
	}
}
