package logs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns selects the files tailed when none are configured.
var DefaultPatterns = []string{"*.log"}

// Matcher decides which files under the log root are followed. Patterns are
// doublestar globs matched against the slash-separated path relative to the
// root and against the base name.
type Matcher struct {
	patterns []string
	exclude  map[string]bool
}

// NewMatcher validates patterns. Files whose relative path is listed in
// exclude, and gzip archives, never match.
func NewMatcher(patterns []string, exclude ...string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid log pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}
	m := &Matcher{patterns: patterns, exclude: make(map[string]bool)}
	for _, e := range exclude {
		if e != "" {
			m.exclude[filepath.ToSlash(e)] = true
		}
	}
	return m, nil
}

// Match reports whether rel, a path relative to the log root, is followed.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if strings.HasSuffix(rel, ".gz") || m.exclude[rel] {
		return false
	}
	base := filepath.Base(rel)
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}
