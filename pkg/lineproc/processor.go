// Package lineproc turns raw log lines into formatted, colored console output.
package lineproc

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/modoterra/tender/pkg/core"
	"github.com/modoterra/tender/pkg/rules"
)

// DefaultTemplate is the line format used when none is configured.
const DefaultTemplate = "%DATE% %TIME%: [%FILE%] %MSG%"

// CleanupRule rewrites every match of Pattern with Replace. An empty Replace
// removes the match.
type CleanupRule struct {
	Pattern string `yaml:"pattern" toml:"pattern" json:"pattern"`
	Replace string `yaml:"replace,omitempty" toml:"replace" json:"replace,omitempty"`
}

// Config controls the processing steps.
type Config struct {
	Filter         FilterConfig
	Cleanup        []CleanupRule
	Template       string
	TimestampStyle TimestampStyle
	StripANSI      bool
}

type cleanup struct {
	re      *regexp.Regexp
	replace string
}

// ValidateCleanup reports every rule whose pattern does not compile.
func ValidateCleanup(rs []CleanupRule) []error {
	_, errs := compileCleanup(rs)
	return errs
}

func compileCleanup(rs []CleanupRule) ([]cleanup, []error) {
	var (
		out  []cleanup
		errs []error
	)
	for _, r := range rs {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup %q: %w", r.Pattern, err))
			continue
		}
		out = append(out, cleanup{re: re, replace: r.Replace})
	}
	return out, errs
}

// Processor applies the cleanup, filter, timestamp, template and color steps
// to each line. Process is safe for concurrent use; Emit serializes writes so
// lines from concurrent readers never interleave.
type Processor struct {
	cfg     Config
	cleanup []cleanup
	engine  *rules.Engine
	now     func() time.Time
	out     io.Writer
	mu      sync.Mutex
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithOutput sets the writer used by Emit (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(p *Processor) { p.out = w }
}

// New builds a Processor. Invalid cleanup patterns are dropped; use
// ValidateCleanup to report them.
func New(cfg Config, engine *rules.Engine, opts ...Option) *Processor {
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	cl, _ := compileCleanup(cfg.Cleanup)
	p := &Processor{
		cfg:     cfg,
		cleanup: cl,
		engine:  engine,
		now:     time.Now,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs raw through every step. The second result is false when the
// line is dropped because it is empty or rejected by the filter.
func (p *Processor) Process(raw, source string) (string, bool) {
	l := core.NewLogLine(raw, source)
	source = l.Source

	line := l.Raw
	if p.cfg.StripANSI {
		line = ansi.Strip(line)
	}
	line = strings.NewReplacer("\r", "", "\n", "").Replace(line)
	line = strings.TrimSpace(line)

	for _, c := range p.cleanup {
		line = c.re.ReplaceAllString(line, c.replace)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	if !Filter(line, p.cfg.Filter) {
		return "", false
	}

	ts := ExtractTimestamp(line, p.now(), p.cfg.TimestampStyle)
	msg := p.dropOwnTag(ts.Remainder, source)

	rendered := Render(p.cfg.Template, ts.Date, ts.Time, source, msg)
	return p.engine.Apply(rendered), true
}

// dropOwnTag removes a leading "[source]" left over when a line produced by
// this template is processed again.
func (p *Processor) dropOwnTag(msg, source string) string {
	if !strings.Contains(p.cfg.Template, "[%FILE%]") {
		return msg
	}
	tag := "[" + source + "]"
	if msg == tag {
		return ""
	}
	if strings.HasPrefix(msg, tag+" ") {
		return msg[len(tag)+1:]
	}
	return msg
}

// Emit processes raw and writes the result as one line. It reports whether
// anything was written.
func (p *Processor) Emit(raw, source string) bool {
	line, ok := p.Process(raw, source)
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, line+"\n")
	return err == nil
}

// Render substitutes the placeholders in tmpl in a single pass; substituted
// values are never expanded again.
func Render(tmpl, date, clock, file, msg string) string {
	return strings.NewReplacer(
		"%DATE%", date,
		"%TIME%", clock,
		"%FILE%", file,
		"%MSG%", msg,
	).Replace(tmpl)
}
