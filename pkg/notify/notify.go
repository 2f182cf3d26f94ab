// Package notify reports supervisor readiness over the service manager
// notification socket. Without NOTIFY_SOCKET every call is a no-op.
package notify

import (
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends state changes to the service manager.
type Notifier struct {
	logger *slog.Logger
}

// New creates a Notifier.
func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Ready reports that the child is running.
func (n *Notifier) Ready() { n.send(daemon.SdNotifyReady) }

// Stopping reports that shutdown has begun.
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Status sets the free-form status line.
func (n *Notifier) Status(msg string) { n.send("STATUS=" + msg) }

func (n *Notifier) send(state string) {
	if n == nil {
		return
	}
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("service notification failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("service notified", "state", state)
	}
}
