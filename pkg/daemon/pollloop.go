package daemon

import (
	"context"
	"time"
)

// loop monitors the running child once per tick and drives the scheduler.
// It returns when the child dies or ctx is cancelled.
func (s *Supervisor) loop(ctx context.Context, c *child) int {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.shutdown(c)
		case <-c.done:
			if ctx.Err() != nil {
				return s.shutdown(c)
			}
			return s.fail(c)
		case <-ticker.C:
			if !s.alive(c) {
				return s.fail(c)
			}
			if s.deps.Scheduler != nil {
				s.deps.Scheduler.Tick(ctx)
			}
		}
	}
}
