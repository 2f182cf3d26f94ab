package lineproc

import (
	"regexp"
	"strings"
	"time"
)

// TimestampStyle selects the date layout used in output.
type TimestampStyle string

const (
	StyleUS  TimestampStyle = "us"  // 07/13/2024
	StyleISO TimestampStyle = "iso" // 2024-07-13
)

const (
	usLayout   = "01/02/2006"
	isoLayout  = "2006-01-02"
	timeLayout = "15:04:05"
)

// Layout returns the time layout for the style, defaulting to StyleUS.
func (s TimestampStyle) Layout() string {
	if s == StyleISO {
		return isoLayout
	}
	return usLayout
}

// Valid reports whether s names a known style. Empty is valid.
func (s TimestampStyle) Valid() bool {
	switch s {
	case "", StyleUS, StyleISO:
		return true
	}
	return false
}

var (
	usDate    = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	isoDate   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	timeToken = regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}\b(?:: )?`)
)

// Timestamp is the result of splitting a date and time off a line.
type Timestamp struct {
	Date      string
	Time      string
	Remainder string
}

// ExtractTimestamp finds the first MM/DD/YYYY date and HH:MM:SS time in line
// and removes them. Missing parts are taken from now. The date is rendered in
// style; with StyleISO, YYYY-MM-DD dates are recognized as well. The
// remainder is whitespace-collapsed.
func ExtractTimestamp(line string, now time.Time, style TimestampStyle) Timestamp {
	ts := Timestamp{
		Date: now.Format(style.Layout()),
		Time: now.Format(timeLayout),
	}
	rest := line

	if loc := findDate(rest, style); loc != nil {
		raw := rest[loc[0]:loc[1]]
		ts.Date = normalizeDate(raw, style)
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
	}

	if loc := timeToken.FindStringIndex(rest); loc != nil {
		ts.Time = strings.TrimSuffix(rest[loc[0]:loc[1]], ": ")
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
	}

	ts.Remainder = strings.Join(strings.Fields(rest), " ")
	return ts
}

func findDate(s string, style TimestampStyle) []int {
	loc := usDate.FindStringIndex(s)
	if style != StyleISO {
		return loc
	}
	if iso := isoDate.FindStringIndex(s); iso != nil && (loc == nil || iso[0] < loc[0]) {
		return iso
	}
	return loc
}

func normalizeDate(raw string, style TimestampStyle) string {
	if style != StyleISO || !strings.Contains(raw, "/") {
		return raw
	}
	d, err := time.Parse(usLayout, raw)
	if err != nil {
		return raw
	}
	return d.Format(isoLayout)
}
