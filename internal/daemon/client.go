package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/npratt/cactus/internal/model"
)

const (
	// DefaultClientTimeout is the default timeout for client operations.
	DefaultClientTimeout = 5 * time.Second
)

// Client connects to the daemon via Unix socket.
type Client struct {
	sockPath string
	timeout  time.Duration
}

// NewClient creates a new daemon client.
func NewClient(sockPath string) *Client {
	return &Client{
		sockPath: sockPath,
		timeout:  DefaultClientTimeout,
	}
}

// SetTimeout sets the timeout for client operations.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// call sends a JSON-RPC request to the daemon and returns the response.
func (c *Client) call(method string, params any) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, c.timeout)
	if err != nil {
		return nil, c.wrapConnError(err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	req := Request{Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// wrapConnError converts connection errors to user-friendly messages.
func (c *Client) wrapConnError(err error) error {
	// Check for syscall errors that indicate specific conditions
	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.ENOENT:
			return errors.New("daemon not running (socket not found)")
		case syscall.ECONNREFUSED:
			return errors.New("daemon not running (connection refused)")
		}
	}

	// Fallback check for os.IsNotExist
	if os.IsNotExist(err) {
		return errors.New("daemon not running (socket not found)")
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return errors.New("daemon request timed out")
	}

	return fmt.Errorf("connect to daemon: %w", err)
}

// decodeResult re-marshals a response result into out.
func decodeResult(resp *Response, out any) error {
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

// snapshotCall invokes a method whose result is a Snapshot.
func (c *Client) snapshotCall(method string, params any) (model.Snapshot, error) {
	resp, err := c.call(method, params)
	if err != nil {
		return model.Snapshot{}, err
	}
	var snap model.Snapshot
	if err := decodeResult(resp, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Status returns the current daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	resp, err := c.call(MethodStatus, nil)
	if err != nil {
		return nil, err
	}
	var status StatusResponse
	if err := decodeResult(resp, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetState returns the daemon's current snapshot.
func (c *Client) GetState() (model.Snapshot, error) {
	return c.snapshotCall(MethodGetState, nil)
}

// StartWork starts a work countdown.
func (c *Client) StartWork() (model.Snapshot, error) {
	return c.snapshotCall(MethodStartWork, nil)
}

// StartBreak starts a break countdown.
func (c *Client) StartBreak() (model.Snapshot, error) {
	return c.snapshotCall(MethodStartBreak, nil)
}

// Stop halts the countdown. The daemon keeps running.
func (c *Client) Stop() (model.Snapshot, error) {
	return c.snapshotCall(MethodStop, nil)
}

// Pause freezes a running countdown.
func (c *Client) Pause() (model.Snapshot, error) {
	return c.snapshotCall(MethodPause, nil)
}

// Resume continues a paused countdown.
func (c *Client) Resume() (model.Snapshot, error) {
	return c.snapshotCall(MethodResume, nil)
}

// Extend adds seconds to the countdown; negative values shorten it.
func (c *Client) Extend(seconds int) (model.Snapshot, error) {
	return c.snapshotCall(MethodExtend, ExtendParams{Seconds: seconds})
}

// SaveSettings sends a partial settings document.
func (c *Client) SaveSettings(partial json.RawMessage) (model.Snapshot, error) {
	return c.snapshotCall(MethodSaveSettings, SaveSettingsParams{Settings: partial})
}

// Quit asks the daemon process to exit.
func (c *Client) Quit() error {
	_, err := c.call(MethodQuit, nil)
	return err
}

// IsRunning checks if the daemon is running by attempting to connect.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
