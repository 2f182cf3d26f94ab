package core

import "fmt"

// State is a phase of the supervisor lifecycle.
type State int

const (
	StateInitializing State = iota
	StateStarting
	StateRunning
	StateShuttingDown
	StateTerminated
	StateFailed
)

var stateNames = map[State]string{
	StateInitializing: "initializing",
	StateStarting:     "starting",
	StateRunning:      "running",
	StateShuttingDown: "shutting-down",
	StateTerminated:   "terminated",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Final reports whether no further transitions are possible.
func (s State) Final() bool {
	return s == StateTerminated || s == StateFailed
}

// Hook categories, named after their subdirectory under the hook root.
const (
	CategoryPreStartup = "pre-startup"
	CategoryStartup    = "startup"
	CategoryHourly     = "hourly"
	CategoryDaily      = "daily"
	CategoryWeekly     = "weekly"
	CategoryMonthly    = "monthly"
	CategoryShutdown   = "shutdown"
)
