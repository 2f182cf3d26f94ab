package rules

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color is one of the seven base terminal colors, numbered by ANSI code.
type Color int

const (
	Red Color = iota + 1
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

var colorNames = map[string]Color{
	"red":     Red,
	"green":   Green,
	"yellow":  Yellow,
	"blue":    Blue,
	"magenta": Magenta,
	"purple":  Magenta,
	"cyan":    Cyan,
	"white":   White,
}

// Style is a base color with an optional bold attribute.
type Style struct {
	Color Color
	Bold  bool
}

// DefaultStyle is used for color names that are not recognized.
var DefaultStyle = Style{Color: White}

// ParseStyle maps names such as "RED", "bold_green" or "CYAN_BOLD" to a
// Style. The second result is false when the name is unknown, in which case
// DefaultStyle is returned.
func ParseStyle(name string) (Style, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	bold := false
	for _, prefix := range []string{"bold_", "bright_", "light_"} {
		if strings.HasPrefix(n, prefix) {
			n = strings.TrimPrefix(n, prefix)
			bold = true
		}
	}
	if strings.HasSuffix(n, "_bold") {
		n = strings.TrimSuffix(n, "_bold")
		bold = true
	}
	c, ok := colorNames[n]
	if !ok {
		return DefaultStyle, false
	}
	return Style{Color: c, Bold: bold}, true
}

func (s Style) lipgloss(r *lipgloss.Renderer) lipgloss.Style {
	c := s.Color
	if c < Red || c > White {
		c = White
	}
	return r.NewStyle().
		Foreground(lipgloss.Color(strconv.Itoa(int(c)))).
		Bold(s.Bold).
		TabWidth(lipgloss.NoTabConversion)
}
