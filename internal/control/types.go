package control

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/promptvolley/promptvolley/internal/fire"
	"github.com/promptvolley/promptvolley/internal/metrics"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionStage  = "stage"
	ActionFire   = "fire"
	ActionStop   = "stop"
	ActionStatus = "status"
	ActionReload = "reload"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// StageResult reports what a staging achieved.
type StageResult struct {
	Handles   []string `json:"handles"`
	Shortfall int      `json:"shortfall"`
}

// FireResult carries the id of the session a fire request started.
type FireResult struct {
	SessionID string `json:"sessionId"`
}

// StatusReport is the daemon's full observable state.
type StatusReport struct {
	Session fire.State       `json:"session"`
	Staged  int              `json:"staged"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// DefaultSocketPath returns the expected location of the control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("PROMPTVOLLEY_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "promptvolley", SocketFileName), nil
}
