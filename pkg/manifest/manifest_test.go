package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modoterra/tender/pkg/lineproc"
)

func TestParseValidManifest(t *testing.T) {
	yaml := `
version: 1
root: /srv/app
command: ["java", "-jar", "${root}/server.jar"]
env:
  DATA: "${root}/data"
filter:
  skip: ["Debug"]
colors:
  line: ["ERROR:red", "WARN:yellow"]
  word: ["joined:green"]
timestamp: iso
cleanup:
  - pattern: '\[Server thread/INFO\]: '
logs:
  patterns: ["latest.log", "**/*.log"]
schedule:
  daily_hour: 3
  weekly_day: 6
rotation:
  gzip_after_days: 7
  interval: 30m
shutdown_timeout: 45s
tick_interval: 10
`
	m, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if m.Version != 1 {
		t.Errorf("version: got %d, want 1", m.Version)
	}
	if got := strings.Join(m.Command, " "); got != "java -jar /srv/app/server.jar" {
		t.Errorf("command interpolation: got %q", got)
	}
	if m.Env["DATA"] != "/srv/app/data" {
		t.Errorf("env interpolation: got %q", m.Env["DATA"])
	}
	if m.Logs.Root != "/srv/app/logs" {
		t.Errorf("default logs root: got %q", m.Logs.Root)
	}
	if m.Hooks.Root != "/srv/app/hooks" {
		t.Errorf("default hooks root: got %q", m.Hooks.Root)
	}
	if m.Logs.Sink != DefaultSink {
		t.Errorf("sink: got %q", m.Logs.Sink)
	}
	if m.Timestamp != lineproc.StyleISO {
		t.Errorf("timestamp: got %q", m.Timestamp)
	}
	if m.Schedule.DailyHour != 3 || m.Schedule.WeeklyDay != 6 || m.Schedule.MonthlyDay != 1 {
		t.Errorf("schedule: got %+v", m.Schedule)
	}
	if m.Rotation.Interval.D() != 30*time.Minute {
		t.Errorf("rotation interval: got %s", m.Rotation.Interval)
	}
	if m.ShutdownTimeout.D() != 45*time.Second {
		t.Errorf("shutdown timeout: got %s", m.ShutdownTimeout)
	}
	if m.TickInterval.D() != 10*time.Second {
		t.Errorf("tick interval: got %s", m.TickInterval)
	}
	if !m.StripANSI || !m.ProcessGroup || !m.Colors.Enabled {
		t.Errorf("defaults lost: strip_ansi=%v process_group=%v colors=%v", m.StripANSI, m.ProcessGroup, m.Colors.Enabled)
	}
	errs := Validate(m)
	if len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestParseDisablesSink(t *testing.T) {
	m, err := Parse([]byte("logs:\n  sink: \"\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Logs.Sink != "" {
		t.Errorf("sink: got %q, want empty", m.Logs.Sink)
	}
	if len(m.LogsConfig().Exclude) != 0 {
		t.Errorf("exclude: got %v", m.LogsConfig().Exclude)
	}
}

func TestParseTOML(t *testing.T) {
	data := `
version = 1
root = "/srv/app"
command = ["java", "-jar", "server.jar"]
shutdown_timeout = "20s"

[filter]
include = ["joined"]

[colors]
enabled = false
line = ["ERROR:red"]

[schedule]
monthly_day = 15
`
	m, err := ParseTOML([]byte(data))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if m.ShutdownTimeout.D() != 20*time.Second {
		t.Errorf("shutdown timeout: got %s", m.ShutdownTimeout)
	}
	if m.Colors.Enabled {
		t.Error("colors should be disabled")
	}
	if m.Schedule.MonthlyDay != 15 || m.Schedule.DailyHour != 4 {
		t.Errorf("schedule: got %+v", m.Schedule)
	}
	if len(m.Filter.Include) != 1 {
		t.Errorf("include: got %v", m.Filter.Include)
	}
	if errs := Validate(m); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "tender.yaml")
	tomlPath := filepath.Join(dir, "tender.toml")
	os.WriteFile(yamlPath, []byte("format: \"%MSG%\"\n"), 0o644)
	os.WriteFile(tomlPath, []byte("format = \"%FILE%: %MSG%\"\n"), 0o644)

	m, err := Load(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if m.Format != "%MSG%" || m.FilePath != yamlPath {
		t.Errorf("yaml: got format %q path %q", m.Format, m.FilePath)
	}
	m, err = Load(tomlPath)
	if err != nil {
		t.Fatal(err)
	}
	if m.Format != "%FILE%: %MSG%" {
		t.Errorf("toml: got format %q", m.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "tender.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got %v, want fs.ErrNotExist", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"tender.yaml", "tender.toml"} {
		t.Run(name, func(t *testing.T) {
			m := Default()
			m.Root = "/srv"
			m.Command = []string{"sleep", "600"}
			m.Colors.Line = []string{"ERROR:red"}
			m.ShutdownTimeout = Duration(12 * time.Second)

			path := filepath.Join(t.TempDir(), name)
			if err := Save(m, path); err != nil {
				t.Fatal(err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got.Command, " ") != "sleep 600" {
				t.Errorf("command: got %v", got.Command)
			}
			if got.ShutdownTimeout.D() != 12*time.Second {
				t.Errorf("shutdown timeout: got %s", got.ShutdownTimeout)
			}
			if got.Logs.Root != "/srv/logs" {
				t.Errorf("logs root: got %q", got.Logs.Root)
			}
		})
	}
}

func TestValidateVersionMustBe1(t *testing.T) {
	m := Default()
	m.Version = 2
	assertHasError(t, Validate(m), "version must be 1")
}

func TestValidateRules(t *testing.T) {
	m := Default()
	m.Colors.Line = []string{"(unclosed:red"}
	m.Colors.Word = []string{":green"}
	m.Cleanup = []lineproc.CleanupRule{{Pattern: "[z-a]"}}
	errs := Validate(m)
	assertHasError(t, errs, "line rule")
	assertHasError(t, errs, "empty pattern")
	assertHasError(t, errs, "cleanup")
}

func TestValidateRanges(t *testing.T) {
	m := Default()
	m.Schedule.DailyHour = 24
	m.Schedule.WeeklyDay = 7
	m.Schedule.MonthlyDay = 31
	m.Rotation.GzipAfterDays = -1
	m.ShutdownTimeout = Duration(500 * time.Millisecond)
	m.Timestamp = "eu"
	m.Logs.Patterns = []string{"[bad"}
	errs := Validate(m)
	assertHasError(t, errs, "schedule.daily_hour")
	assertHasError(t, errs, "schedule.weekly_day")
	assertHasError(t, errs, "schedule.monthly_day")
	assertHasError(t, errs, "gzip_after_days")
	assertHasError(t, errs, "shutdown_timeout")
	assertHasError(t, errs, "timestamp")
	assertHasError(t, errs, "invalid log pattern")
}

func TestDefaultIsValid(t *testing.T) {
	if errs := Validate(Default()); len(errs) != 0 {
		t.Errorf("default manifest invalid: %v", errs)
	}
}

func TestRulesRespectsColorsEnabled(t *testing.T) {
	m := Default()
	m.Colors.Line = []string{"ERROR:red", "(bad:red"}
	e, errs := m.Rules(nil)
	if len(errs) != 1 {
		t.Errorf("got %d errors, want 1", len(errs))
	}
	if got := e.Apply("ERROR x"); got != "\x1b[31mERROR x\x1b[0m" {
		t.Errorf("colored: got %q", got)
	}

	m.Colors.Enabled = false
	e, _ = m.Rules(nil)
	if got := e.Apply("ERROR x"); got != "ERROR x" {
		t.Errorf("plain: got %q", got)
	}
}

func assertHasError(t *testing.T, errs []error, substr string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return
		}
	}
	t.Errorf("expected error containing %q, got: %v", substr, errs)
}
