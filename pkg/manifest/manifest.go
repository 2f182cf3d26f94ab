package manifest

import (
	"github.com/modoterra/tender/pkg/lineproc"
)

// Manifest represents a tender.yaml (or tender.toml) configuration file.
// Every field is optional; Default holds the values used when a field is
// absent.
type Manifest struct {
	Version int               `yaml:"version" toml:"version" json:"version"`
	Root    string            `yaml:"root" toml:"root" json:"root"`
	Command []string          `yaml:"command,omitempty" toml:"command,omitempty" json:"command,omitempty"`
	Dir     string            `yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" toml:"env,omitempty" json:"env,omitempty"`

	Filter    lineproc.FilterConfig   `yaml:"filter" toml:"filter" json:"filter"`
	Colors    Colors                  `yaml:"colors" toml:"colors" json:"colors"`
	Timestamp lineproc.TimestampStyle `yaml:"timestamp" toml:"timestamp" json:"timestamp"`
	Format    string                  `yaml:"format" toml:"format" json:"format"`
	Cleanup   []lineproc.CleanupRule  `yaml:"cleanup,omitempty" toml:"cleanup,omitempty" json:"cleanup,omitempty"`
	StripANSI bool                    `yaml:"strip_ansi" toml:"strip_ansi" json:"strip_ansi"`

	Logs     Logs     `yaml:"logs" toml:"logs" json:"logs"`
	Hooks    Hooks    `yaml:"hooks" toml:"hooks" json:"hooks"`
	Schedule Schedule `yaml:"schedule" toml:"schedule" json:"schedule"`
	Rotation Rotation `yaml:"rotation" toml:"rotation" json:"rotation"`

	UptimeAnnounce  bool     `yaml:"uptime_announce" toml:"uptime_announce" json:"uptime_announce"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout"`
	TickInterval    Duration `yaml:"tick_interval" toml:"tick_interval" json:"tick_interval"`
	ProcessGroup    bool     `yaml:"process_group" toml:"process_group" json:"process_group"`
	ControlSocket   string   `yaml:"control_socket" toml:"control_socket" json:"control_socket"`

	Log Log `yaml:"log" toml:"log" json:"log"`

	// FilePath is the file the manifest was loaded from.
	FilePath string `yaml:"-" toml:"-" json:"-"`
}

// Colors holds "pattern:COLOR" rule specs.
type Colors struct {
	Enabled bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	Line    []string `yaml:"line,omitempty" toml:"line,omitempty" json:"line,omitempty"`
	Word    []string `yaml:"word,omitempty" toml:"word,omitempty" json:"word,omitempty"`
}

// Logs selects the files followed under Root. Sink is the file, relative to
// Root, that receives the child's own output; empty disables it.
type Logs struct {
	Root     string   `yaml:"root" toml:"root" json:"root"`
	Patterns []string `yaml:"patterns" toml:"patterns" json:"patterns"`
	Sink     string   `yaml:"sink" toml:"sink" json:"sink"`
}

// Hooks points at the directory holding one subdirectory per category.
type Hooks struct {
	Root string `yaml:"root" toml:"root" json:"root"`
}

// Schedule sets when the daily, weekly and monthly categories fire.
// WeeklyDay counts from 0 = Sunday.
type Schedule struct {
	DailyHour   int `yaml:"daily_hour" toml:"daily_hour" json:"daily_hour"`
	WeeklyDay   int `yaml:"weekly_day" toml:"weekly_day" json:"weekly_day"`
	WeeklyHour  int `yaml:"weekly_hour" toml:"weekly_hour" json:"weekly_hour"`
	MonthlyDay  int `yaml:"monthly_day" toml:"monthly_day" json:"monthly_day"`
	MonthlyHour int `yaml:"monthly_hour" toml:"monthly_hour" json:"monthly_hour"`
}

// Rotation thresholds in days; 0 disables a step.
type Rotation struct {
	GzipAfterDays   int      `yaml:"gzip_after_days" toml:"gzip_after_days" json:"gzip_after_days"`
	DeleteAfterDays int      `yaml:"delete_after_days" toml:"delete_after_days" json:"delete_after_days"`
	Interval        Duration `yaml:"interval" toml:"interval" json:"interval"`
}

// Log configures the supervisor's own diagnostics.
type Log struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
}
