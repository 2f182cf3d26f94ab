package core

import (
	"fmt"
	"strings"
	"time"
)

// ProcessHandle describes the supervised child while it is alive.
type ProcessHandle struct {
	PID       int       `json:"pid"`
	Command   []string  `json:"command"`
	StartedAt time.Time `json:"started_at"`
}

// Uptime returns how long the child has been running at now.
func (h *ProcessHandle) Uptime(now time.Time) time.Duration {
	if h == nil || h.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(h.StartedAt)
}

// FormatUptime renders a duration as "1d 2h 3m", dropping leading zero units.
// Durations under a minute render as seconds.
func FormatUptime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	total := int(d.Minutes())
	days := total / (24 * 60)
	hours := (total / 60) % 24
	mins := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", mins))
	return strings.Join(parts, " ")
}

// DisplayCommand splits argv into display lines, keeping each flag together
// with the value that follows it. It is only used for logging; the process is
// always started from the original argv.
func DisplayCommand(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	lines := []string{argv[0]}
	for i := 1; i < len(argv); i++ {
		arg := argv[i]
		if isFlag(arg) && !strings.Contains(arg, "=") && i+1 < len(argv) && !isFlag(argv[i+1]) {
			lines = append(lines, arg+" "+argv[i+1])
			i++
			continue
		}
		lines = append(lines, arg)
	}
	return lines
}

func isFlag(s string) bool {
	return len(s) > 1 && s[0] == '-'
}
