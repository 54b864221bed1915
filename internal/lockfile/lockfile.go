// Package lockfile provides an advisory single-instance lock. The lock is
// cooperative only: it tells a second daemon to back off, it does not kill
// anything.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
)

// ErrHeld is returned when another live session owns the lock.
var ErrHeld = errors.New("lock held by another session")

// Lock is an acquired advisory lock.
type Lock struct {
	path      string
	SessionID string
}

// Acquire takes the advisory lock at path. A leftover lock from a dead
// process (no such pid) is replaced; a lock owned by a live process yields
// ErrHeld with the owner's session id in the error.
func Acquire(path string) (*Lock, error) {
	id := uuid.NewString()
	content := fmt.Sprintf("%d %s\n", os.Getpid(), id)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if _, werr := f.WriteString(content); werr != nil {
				f.Close()
				os.Remove(path)
				return nil, fmt.Errorf("write lock %s: %w", path, werr)
			}
			if err := f.Close(); err != nil {
				os.Remove(path)
				return nil, fmt.Errorf("close lock %s: %w", path, err)
			}
			return &Lock{path: path, SessionID: id}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire lock %s: %w", path, err)
		}

		pid, owner, rerr := readLock(path)
		if rerr != nil {
			// Unreadable or malformed lock: treat as stale.
			os.Remove(path)
			continue
		}
		if pidAlive(pid) {
			return nil, fmt.Errorf("%w (pid %d, session %s)", ErrHeld, pid, owner)
		}
		os.Remove(path)
	}
	return nil, fmt.Errorf("acquire lock %s: could not claim after stale cleanup", path)
}

// Release removes the lock if this session still owns it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	_, owner, err := readLock(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if owner != l.SessionID {
		return fmt.Errorf("release lock %s: owned by session %s", l.path, owner)
	}
	return os.Remove(l.path)
}

func readLock(path string) (pid int, session string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("malformed lock %s: %q", path, string(data))
	}
	if _, err := fmt.Sscanf(fields[0], "%d", &pid); err != nil {
		return 0, "", fmt.Errorf("malformed lock pid %q: %w", fields[0], err)
	}
	return pid, fields[1], nil
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}
