package uds

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrClosed is returned for requests on a closed connection.
var ErrClosed = errors.New("uds: connection closed")

// EventHandler is called when the server pushes an event.
type EventHandler func(msg Message)

// Client talks to a running supervisor over its control socket.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner

	mu      sync.Mutex
	pending map[string]chan Message
	events  EventHandler

	wmu       sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the control socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	c := &Client{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		pending: make(map[string]chan Message),
		done:    make(chan struct{}),
	}
	c.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	go c.readLoop()
	return c, nil
}

// OnEvent registers a handler for server-pushed events.
func (c *Client) OnEvent(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = h
}

// Request sends a request and waits for the correlated response.
func (c *Client) Request(ctx context.Context, method string, data any) (Message, error) {
	msg, err := NewRequest(method, data)
	if err != nil {
		return Message{}, err
	}

	ch := make(chan Message, 1)
	c.mu.Lock()
	c.pending[msg.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	line, err := marshalLine(msg)
	if err != nil {
		return Message{}, err
	}
	c.wmu.Lock()
	_, err = c.conn.Write(line)
	c.wmu.Unlock()
	if err != nil {
		return Message{}, fmt.Errorf("write: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return resp, fmt.Errorf("server error: %s", resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-c.done:
		return Message{}, ErrClosed
	}
}

// Ping checks that the supervisor answers.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Request(ctx, MethodPing, nil)
	if err != nil {
		return err
	}
	var pong PingResponse
	if err := resp.Decode(&pong); err != nil {
		return err
	}
	if !pong.Pong {
		return errors.New("unexpected ping response")
	}
	return nil
}

// Status fetches the supervisor status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var st StatusResponse
	resp, err := c.Request(ctx, MethodStatus, nil)
	if err != nil {
		return st, err
	}
	err = resp.Decode(&st)
	return st, err
}

// RunHooks runs category in the supervisor and waits for it to finish.
func (c *Client) RunHooks(ctx context.Context, category string) (RunHooksResponse, error) {
	var out RunHooksResponse
	resp, err := c.Request(ctx, MethodRunHooks, RunHooksRequest{Category: category})
	if err != nil {
		return out, err
	}
	err = resp.Decode(&out)
	return out, err
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer c.Close()
	for c.scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
			continue
		}

		switch msg.Type {
		case MsgTypeRes:
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
		case MsgTypeEvt:
			c.mu.Lock()
			h := c.events
			c.mu.Unlock()
			if h != nil {
				h(msg)
			}
		}
	}
}
