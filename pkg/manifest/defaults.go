package manifest

import (
	"time"

	"github.com/modoterra/tender/pkg/lineproc"
	"github.com/modoterra/tender/pkg/schedule"
)

// Default values applied before a file is decoded.
const (
	DefaultFile            = "tender.yaml"
	DefaultSink            = "console.log"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTickInterval    = time.Minute
	DefaultRotateInterval  = time.Hour
)

// Default returns the manifest used when no file exists.
func Default() *Manifest {
	t := schedule.DefaultTargets
	return &Manifest{
		Version:   1,
		Root:      ".",
		Colors:    Colors{Enabled: true},
		Timestamp: lineproc.StyleUS,
		Format:    lineproc.DefaultTemplate,
		StripANSI: true,
		Logs: Logs{
			Root:     "${root}/logs",
			Patterns: []string{"*.log"},
			Sink:     DefaultSink,
		},
		Hooks: Hooks{Root: "${root}/hooks"},
		Schedule: Schedule{
			DailyHour:   t.DailyHour,
			WeeklyDay:   t.WeeklyDay,
			WeeklyHour:  t.WeeklyHour,
			MonthlyDay:  t.MonthlyDay,
			MonthlyHour: t.MonthlyHour,
		},
		Rotation:        Rotation{Interval: Duration(DefaultRotateInterval)},
		UptimeAnnounce:  true,
		ShutdownTimeout: Duration(DefaultShutdownTimeout),
		TickInterval:    Duration(DefaultTickInterval),
		ProcessGroup:    true,
	}
}
