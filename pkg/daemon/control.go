package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/modoterra/tender/pkg/core"
	"github.com/modoterra/tender/pkg/schedule"
	"github.com/modoterra/tender/pkg/transport/uds"
)

var hookCategories = map[string]bool{
	core.CategoryPreStartup: true,
	core.CategoryStartup:    true,
	core.CategoryHourly:     true,
	core.CategoryDaily:      true,
	core.CategoryWeekly:     true,
	core.CategoryMonthly:    true,
	core.CategoryShutdown:   true,
}

// RegisterHandlers installs the control methods on srv.
func (s *Supervisor) RegisterHandlers(srv *uds.Server) {
	srv.Handle(uds.MethodPing, func(context.Context, uds.Message) (any, error) {
		return uds.PingResponse{Pong: true}, nil
	})
	srv.Handle(uds.MethodStatus, func(context.Context, uds.Message) (any, error) {
		return s.Status(time.Now()), nil
	})
	srv.Handle(uds.MethodRunHooks, s.handleRunHooks)
}

// Status reports the lifecycle state, the child and the schedule.
func (s *Supervisor) Status(now time.Time) uds.StatusResponse {
	resp := uds.StatusResponse{State: s.State().String()}
	if h := s.Handle(); h != nil {
		resp.PID = h.PID
		resp.Command = h.Command
		resp.StartedAt = h.StartedAt
		resp.Uptime = core.FormatUptime(h.Uptime(now))
	}
	if st, ok := s.deps.Scheduler.(interface{ State() *schedule.State }); ok {
		resp.Schedule = st.State().Snapshot()
	}
	if f, ok := s.deps.Logs.(interface{ Following() []string }); ok {
		resp.Following = f.Following()
	}
	return resp
}

func (s *Supervisor) handleRunHooks(ctx context.Context, req uds.Message) (any, error) {
	var r uds.RunHooksRequest
	if err := req.Decode(&r); err != nil {
		return nil, err
	}
	if !hookCategories[r.Category] {
		return nil, fmt.Errorf("unknown hook category %q", r.Category)
	}
	if s.deps.Hooks == nil {
		return nil, fmt.Errorf("hooks are not configured")
	}
	s.logger.Info("running hooks on request", "category", r.Category)
	resp := uds.RunHooksResponse{Category: r.Category}
	if err := s.deps.Hooks.RunCategory(ctx, r.Category); err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}
