// Package rules colors log lines according to configured pattern rules.
package rules

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Scope selects whether a rule styles the whole line or each match.
type Scope int

const (
	ScopeLine Scope = iota
	ScopeWord
)

func (s Scope) String() string {
	if s == ScopeWord {
		return "word"
	}
	return "line"
}

// Rule maps a pattern to a style.
type Rule struct {
	Scope   Scope
	Pattern *regexp.Regexp
	Style   Style
}

// ParseSpec parses a "pattern:COLOR" pair. The split happens at the last
// colon so patterns may contain colons themselves. A spec without a color
// gets DefaultStyle.
func ParseSpec(spec string, scope Scope) (Rule, error) {
	pattern, colorName := spec, ""
	if i := strings.LastIndex(spec, ":"); i >= 0 {
		pattern, colorName = spec[:i], spec[i+1:]
	}
	if pattern == "" {
		return Rule{}, fmt.Errorf("%s rule %q: empty pattern", scope, spec)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%s rule %q: %w", scope, spec, err)
	}
	style, _ := ParseStyle(colorName)
	return Rule{Scope: scope, Pattern: re, Style: style}, nil
}

// ParseSpecs parses every spec, returning the rules that parsed and the
// errors for those that did not.
func ParseSpecs(specs []string, scope Scope) ([]Rule, []error) {
	var (
		out  []Rule
		errs []error
	)
	for _, spec := range specs {
		r, err := ParseSpec(spec, scope)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	return out, errs
}

type compiledRule struct {
	pattern *regexp.Regexp
	style   lipgloss.Style
}

// Engine applies a fixed rule set to lines. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	lineRules []compiledRule
	wordRules []compiledRule
}

// ANSIRenderer returns a renderer that always emits 16-color escape codes,
// regardless of whether w is a terminal.
func ANSIRenderer(w io.Writer) *lipgloss.Renderer {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI)
	return r
}

// PlainRenderer returns a renderer that emits no escape codes.
func PlainRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return r
}

// New builds an engine. A nil renderer means ANSIRenderer(os.Stdout).
func New(rules []Rule, r *lipgloss.Renderer) *Engine {
	if r == nil {
		r = ANSIRenderer(os.Stdout)
	}
	e := &Engine{}
	for _, rule := range rules {
		if rule.Pattern == nil {
			continue
		}
		cr := compiledRule{pattern: rule.Pattern, style: rule.Style.lipgloss(r)}
		if rule.Scope == ScopeWord {
			e.wordRules = append(e.wordRules, cr)
		} else {
			e.lineRules = append(e.lineRules, cr)
		}
	}
	return e
}

// Apply styles a line. Word rules run first, each over the text produced by
// the previous one; matches touching an escape sequence are skipped so a
// later rule never styles the codes inserted by an earlier one. Line rules
// then wrap the result, in declaration order, when their pattern matches
// the unstyled line.
func (e *Engine) Apply(line string) string {
	if e == nil {
		return line
	}
	out := line
	for _, r := range e.wordRules {
		out = applyWord(out, r)
	}
	for _, r := range e.lineRules {
		if r.pattern.MatchString(line) {
			out = r.style.Render(out)
		}
	}
	return out
}

// Apply is a convenience for a one-off engine over rules.
func Apply(line string, rules ...Rule) string {
	return New(rules, nil).Apply(line)
}

var escapeSeq = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// applyWord styles each non-overlapping, non-empty match of r in s. Matches
// are located once over s, so the loop ends even when a styled replacement
// would match the pattern again.
func applyWord(s string, r compiledRule) string {
	matches := r.pattern.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	escapes := escapeSeq.FindAllStringIndex(s, -1)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] == m[1] || overlaps(m, escapes) {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(r.style.Render(s[m[0]:m[1]]))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func overlaps(m []int, spans [][]int) bool {
	for _, sp := range spans {
		if m[0] < sp[1] && sp[0] < m[1] {
			return true
		}
	}
	return false
}
