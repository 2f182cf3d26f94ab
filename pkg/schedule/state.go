// Package schedule fires hook categories once per hour, day, week and month.
package schedule

import (
	"fmt"
	"sync"
	"time"
)

// State records, per granularity, the period identifier of the last firing.
// An empty identifier means the granularity has not fired yet.
type State struct {
	mu        sync.Mutex
	LastHour  string
	LastDay   string
	LastWeek  string
	LastMonth string
}

// Snapshot is a copy of State without the lock.
type Snapshot struct {
	LastHour  string `json:"last_hour,omitempty"`
	LastDay   string `json:"last_day,omitempty"`
	LastWeek  string `json:"last_week,omitempty"`
	LastMonth string `json:"last_month,omitempty"`
}

// Snapshot returns the current identifiers.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{LastHour: s.LastHour, LastDay: s.LastDay, LastWeek: s.LastWeek, LastMonth: s.LastMonth}
}

// Period identifiers for t.
func hourID(t time.Time) string  { return fmt.Sprintf("%02d", t.Hour()) }
func dayID(t time.Time) string   { return fmt.Sprintf("%02d", t.Day()) }
func monthID(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) }

func weekID(t time.Time) string {
	_, w := t.ISOWeek()
	return fmt.Sprintf("%02d", w)
}
