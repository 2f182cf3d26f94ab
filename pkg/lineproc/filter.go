package lineproc

import "strings"

// FilterConfig holds substring lists that decide which lines are kept.
type FilterConfig struct {
	Skip    []string `yaml:"skip" toml:"skip" json:"skip,omitempty"`
	Include []string `yaml:"include" toml:"include" json:"include,omitempty"`
}

// Filter reports whether line should be kept: it must contain no skip
// substring and, when the include list is non-empty, at least one include
// substring.
func Filter(line string, fc FilterConfig) bool {
	for _, s := range fc.Skip {
		if s != "" && strings.Contains(line, s) {
			return false
		}
	}
	if len(fc.Include) == 0 {
		return true
	}
	for _, s := range fc.Include {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
