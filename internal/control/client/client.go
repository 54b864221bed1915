// Package client talks to the running daemon over its control socket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/promptvolley/promptvolley/internal/control"
)

const (
	// defaultTimeout is used when the caller does not provide a context
	// deadline. Staging can legitimately take longer; those calls get a
	// wider bound.
	defaultTimeout = 3 * time.Second
	stageTimeout   = 2 * time.Minute
)

// Client talks to the running daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	// StageResult reports what a staging achieved.
	StageResult = control.StageResult
	// FireResult carries the id of the started session.
	FireResult = control.FireResult
	// StatusReport is the daemon's full observable state.
	StatusReport = control.StatusReport
)

// New creates a client that connects to the provided socket path. When path
// is empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Stage asks the daemon to stage count windows over the given URLs.
func (c *Client) Stage(ctx context.Context, urls []string, count int) (StageResult, error) {
	if len(urls) == 0 {
		return StageResult{}, errors.New("at least one url is required")
	}
	if count <= 0 {
		return StageResult{}, errors.New("count must be positive")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stageTimeout)
		defer cancel()
	}
	params := map[string]any{"urls": urls, "count": count}
	var result StageResult
	if err := c.do(ctx, control.Request{Action: control.ActionStage, Params: params}, &result); err != nil {
		return StageResult{}, err
	}
	return result, nil
}

// Fire starts a session in the given mode. Rounds bounds auto mode when
// positive.
func (c *Client) Fire(ctx context.Context, mode, target, prompt string, rounds int) (FireResult, error) {
	if prompt == "" {
		return FireResult{}, errors.New("prompt cannot be empty")
	}
	params := map[string]any{"mode": mode, "target": target, "prompt": prompt}
	if rounds > 0 {
		params["rounds"] = rounds
	}
	var result FireResult
	if err := c.do(ctx, control.Request{Action: control.ActionFire, Params: params}, &result); err != nil {
		return FireResult{}, err
	}
	return result, nil
}

// Stop halts the active fire session, if any.
func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionStop}, nil)
}

// Status retrieves the daemon's session state and counters.
func (c *Client) Status(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	if err := c.do(ctx, control.Request{Action: control.ActionStatus}, &report); err != nil {
		return StatusReport{}, err
	}
	return report, nil
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionReload}, nil)
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
