package uds

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modoterra/tender/pkg/schedule"
)

func startServer(t *testing.T, register func(*Server)) (*Server, *Client) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "tender.sock")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	srv := NewServer(sock, logger)
	srv.Handle(MethodPing, func(_ context.Context, _ Message) (any, error) {
		return PingResponse{Pong: true}, nil
	})
	if register != nil {
		register(srv)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("start: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server not ready")
	}

	client, err := Dial(sock)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		cancel()
		srv.Shutdown()
	})
	return srv, client
}

func reqCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPingRoundTrip(t *testing.T) {
	_, client := startServer(t, nil)
	if err := client.Ping(reqCtx(t)); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSocketPermissions(t *testing.T) {
	srv, _ := startServer(t, nil)
	info, err := os.Stat(srv.socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("socket mode: got %o, want 600", perm)
	}
}

func TestUnknownMethod(t *testing.T) {
	_, client := startServer(t, nil)
	if _, err := client.Request(reqCtx(t), "NoSuchMethod", nil); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestStatus(t *testing.T) {
	started := time.Date(2024, 7, 13, 19, 0, 0, 0, time.UTC)
	_, client := startServer(t, func(s *Server) {
		s.Handle(MethodStatus, func(_ context.Context, _ Message) (any, error) {
			return StatusResponse{
				State:     "running",
				PID:       42,
				Command:   []string{"java", "-jar", "server.jar"},
				StartedAt: started,
				Uptime:    "1h 0m",
				Schedule:  schedule.Snapshot{LastHour: "19"},
			}, nil
		})
	})

	st, err := client.Status(reqCtx(t))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != "running" || st.PID != 42 || st.Schedule.LastHour != "19" {
		t.Errorf("got %+v", st)
	}
	if !st.StartedAt.Equal(started) {
		t.Errorf("started_at: got %v, want %v", st.StartedAt, started)
	}
}

func TestRunHooks(t *testing.T) {
	_, client := startServer(t, func(s *Server) {
		s.Handle(MethodRunHooks, func(_ context.Context, req Message) (any, error) {
			var r RunHooksRequest
			if err := req.Decode(&r); err != nil {
				return nil, err
			}
			if r.Category == "" {
				return nil, errors.New("category is required")
			}
			return RunHooksResponse{Category: r.Category, Error: "daily/1-fail.sh: exit status 1"}, nil
		})
	})

	res, err := client.RunHooks(reqCtx(t), "daily")
	if err != nil {
		t.Fatalf("run hooks: %v", err)
	}
	if res.Category != "daily" || res.Error == "" {
		t.Errorf("got %+v", res)
	}

	if _, err := client.RunHooks(reqCtx(t), ""); err == nil {
		t.Error("expected error for empty category")
	}
}

func TestBroadcastEvent(t *testing.T) {
	srv, client := startServer(t, nil)

	evtCh := make(chan Message, 1)
	client.OnEvent(func(msg Message) {
		evtCh <- msg
	})

	// Ensure the server registered the connection
	if err := client.Ping(reqCtx(t)); err != nil {
		t.Fatalf("ping: %v", err)
	}

	evt, _ := NewEvent(EventState, StateEvent{From: "running", To: "shutting-down"})
	srv.Broadcast(evt)

	select {
	case msg := <-evtCh:
		var se StateEvent
		if err := msg.Decode(&se); err != nil {
			t.Fatal(err)
		}
		if msg.Method != EventState || se.To != "shutting-down" {
			t.Errorf("got %s %+v", msg.Method, se)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for broadcast event")
	}
}

func TestRequestAfterServerShutdown(t *testing.T) {
	srv, client := startServer(t, nil)
	srv.Shutdown()

	select {
	case <-client.done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice closed connection")
	}
	if _, err := client.Request(reqCtx(t), MethodPing, nil); err == nil {
		t.Error("expected error after shutdown")
	}
}
