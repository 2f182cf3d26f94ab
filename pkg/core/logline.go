package core

// DefaultSource tags lines emitted by the supervisor itself.
const DefaultSource = "tender"

// LogLine is a single raw line tagged with the source that produced it.
type LogLine struct {
	Raw    string `json:"raw"`
	Source string `json:"source"`
}

// NewLogLine builds a LogLine, falling back to DefaultSource.
func NewLogLine(raw, source string) LogLine {
	if source == "" {
		source = DefaultSource
	}
	return LogLine{Raw: raw, Source: source}
}
