// Package fire drives coordinated injection rounds against the staged
// windows. One session is active at a time; its state is mirrored to a file
// so other processes can observe it without any in-process coupling.
package fire

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/promptvolley/promptvolley/internal/util"
)

// Mode is the firing discipline of a session.
type Mode string

const (
	// ModeSafe means no session is firing.
	ModeSafe Mode = "safe"
	// ModeSemi fires exactly one round, then returns to safe.
	ModeSemi Mode = "semi"
	// ModeAuto fires rounds until the cap or a stop request.
	ModeAuto Mode = "auto"
	// ModeStopping is the transitional state after a stop request, before
	// the sequencer confirms it has halted.
	ModeStopping Mode = "stopping"
)

// State is the externally visible snapshot of the active session.
type State struct {
	Mode      Mode      `json:"mode"`
	SessionID string    `json:"sessionId,omitempty"`
	Target    string    `json:"target,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Rounds    int       `json:"rounds"`
	Shots     int       `json:"shots"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StateFile persists session state with atomic replacement. Readers polling
// the file see either the previous snapshot or the new one in full.
type StateFile struct {
	Path string

	now func() time.Time
}

// NewStateFile returns a state file at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{Path: path, now: time.Now}
}

// Save replaces the on-disk snapshot.
func (f *StateFile) Save(s State) error {
	s.UpdatedAt = f.now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	return util.WriteFileAtomic(f.Path, append(data, '\n'), 0o644)
}

// Load reads the current snapshot. A missing file reads as safe.
func (f *StateFile) Load() (State, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return State{Mode: ModeSafe}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read session state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode session state: %w", err)
	}
	return s, nil
}
