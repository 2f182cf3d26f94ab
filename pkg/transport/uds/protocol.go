// Package uds is the supervisor's control socket: newline-delimited JSON
// messages over a Unix domain socket.
package uds

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modoterra/tender/pkg/schedule"
)

var msgCounter atomic.Uint64

// MsgType identifies the kind of message.
type MsgType string

const (
	MsgTypeReq MsgType = "req"
	MsgTypeRes MsgType = "res"
	MsgTypeEvt MsgType = "evt"
)

// Message is the NDJSON envelope for all communication.
type Message struct {
	Type   MsgType         `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func encode(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

func newMessage(typ MsgType, id, method string, data any) (Message, error) {
	raw, err := encode(data)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", method, err)
	}
	return Message{Type: typ, ID: id, Method: method, Data: raw}, nil
}

// NewRequest creates a request message with a unique ID.
func NewRequest(method string, data any) (Message, error) {
	return newMessage(MsgTypeReq, fmt.Sprintf("req-%d", msgCounter.Add(1)), method, data)
}

// NewResponse creates a response to a request.
func NewResponse(reqID, method string, data any) (Message, error) {
	return newMessage(MsgTypeRes, reqID, method, data)
}

// NewErrorResponse creates an error response.
func NewErrorResponse(reqID, method, errMsg string) Message {
	return Message{Type: MsgTypeRes, ID: reqID, Method: method, Error: errMsg}
}

// NewEvent creates a server-pushed event.
func NewEvent(method string, data any) (Message, error) {
	return newMessage(MsgTypeEvt, fmt.Sprintf("evt-%d", msgCounter.Add(1)), method, data)
}

// Decode unmarshals the payload of msg into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: empty payload", m.Method)
	}
	return json.Unmarshal(m.Data, v)
}

// Methods
const (
	MethodPing     = "Ping"
	MethodStatus   = "Status"
	MethodRunHooks = "RunHooks"

	EventState = "state.changed"
)

// PingResponse is the response to a Ping request.
type PingResponse struct {
	Pong bool `json:"pong"`
}

// StatusResponse describes the supervisor and its child.
type StatusResponse struct {
	State     string            `json:"state"`
	PID       int               `json:"pid,omitempty"`
	Command   []string          `json:"command,omitempty"`
	StartedAt time.Time         `json:"started_at,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Schedule  schedule.Snapshot `json:"schedule"`
	Following []string          `json:"following,omitempty"`
}

// RunHooksRequest asks the supervisor to run one hook category now.
type RunHooksRequest struct {
	Category string `json:"category"`
}

// RunHooksResponse reports the outcome of a RunHooks request. Unit failures
// are reported here rather than as a request error.
type RunHooksResponse struct {
	Category string `json:"category"`
	Error    string `json:"error,omitempty"`
}

// StateEvent is broadcast on every lifecycle transition.
type StateEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}
