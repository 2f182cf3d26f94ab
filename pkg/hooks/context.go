package hooks

import (
	"sort"
	"sync"
)

// Variables with a meaning to the supervisor. Hooks may set them to change
// the launch command or the schedule targets.
const (
	VarLaunchCommand  = "LAUNCH_COMMAND"
	VarDailyHour      = "DAILY_HOUR"
	VarWeeklyDay      = "WEEKLY_DAY"
	VarWeeklyHour     = "WEEKLY_HOUR"
	VarMonthlyDay     = "MONTHLY_DAY"
	VarMonthlyHour    = "MONTHLY_HOUR"
	VarUptimeAnnounce = "UPTIME_ANNOUNCE"

	// Set for script units only.
	VarCategory = "HOOK_CATEGORY"
	VarEnvFile  = "HOOK_ENV_FILE"
)

// Context holds the variables shared by the supervisor and its hooks. It is
// safe for concurrent use.
type Context struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewContext returns a Context seeded with initial.
func NewContext(initial map[string]string) *Context {
	c := &Context{vars: make(map[string]string, len(initial))}
	for k, v := range initial {
		c.vars[k] = v
	}
	return c
}

// Get returns the value of key.
func (c *Context) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vars[key]
	return v, ok
}

// Set assigns key.
func (c *Context) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[key] = value
}

// Delete removes key.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vars, key)
}

// Merge assigns every entry of vars.
func (c *Context) Merge(vars map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range vars {
		c.vars[k] = v
	}
}

// Snapshot returns a copy of the variables.
func (c *Context) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// Environ returns the variables as sorted KEY=VALUE pairs.
func (c *Context) Environ() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.vars))
	for k, v := range c.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
