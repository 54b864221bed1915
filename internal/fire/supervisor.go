package fire

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/promptvolley/promptvolley/internal/util"
)

// Supervisor enforces the single-session rule: at most one fire session runs
// at a time, and a new request replaces the old one. Replacement is
// stop-then-start with a grace period; the last requester wins.
type Supervisor struct {
	Seq *Sequencer
	Log *util.Logger

	grace atomic.Int64
	newID func() string

	// startStop serializes Start and Stop against each other. The running
	// session itself lives outside the lock.
	startStop chan struct{}
	active    *runningSession
}

type runningSession struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor returns a supervisor over the given sequencer.
func NewSupervisor(seq *Sequencer, log *util.Logger, grace time.Duration) *Supervisor {
	s := &Supervisor{
		Seq:       seq,
		Log:       log,
		newID:     uuid.NewString,
		startStop: make(chan struct{}, 1),
	}
	s.grace.Store(int64(grace))
	s.startStop <- struct{}{}
	return s
}

// Grace returns the current stop grace period.
func (s *Supervisor) Grace() time.Duration {
	return time.Duration(s.grace.Load())
}

// SetGrace swaps the stop grace period. Safe to call while a session runs.
func (s *Supervisor) SetGrace(d time.Duration) {
	s.grace.Store(int64(d))
}

// Start stops any active session and launches a new one. It returns the new
// session's id once the previous session has fully wound down.
func (s *Supervisor) Start(ctx context.Context, req Request) (string, error) {
	select {
	case <-s.startStop:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { s.startStop <- struct{}{} }()

	s.haltActive(ctx)

	id := s.newID()
	runCtx, cancel := context.WithCancel(context.Background())
	sess := &runningSession{id: id, cancel: cancel, done: make(chan struct{})}
	s.active = sess

	go func() {
		defer close(sess.done)
		if err := s.Seq.Run(runCtx, id, req); err != nil && runCtx.Err() == nil {
			s.Log.Errorf("fire session %s: %v", id, err)
		}
	}()
	s.Log.Infof("fire session %s started (%s)", id, req.Mode)
	return id, nil
}

// Stop halts the active session, if any, and waits for it to wind down.
func (s *Supervisor) Stop(ctx context.Context) error {
	select {
	case <-s.startStop:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { s.startStop <- struct{}{} }()

	s.haltActive(ctx)
	return nil
}

// haltActive asks the running session to stop, grants it the grace period,
// then cancels outright. Callers must hold the startStop token.
func (s *Supervisor) haltActive(ctx context.Context) {
	sess := s.active
	if sess == nil {
		return
	}
	select {
	case <-sess.done:
		s.active = nil
		return
	default:
	}

	s.Seq.Stop()
	grace := s.Grace()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-sess.done:
	case <-timer.C:
		s.Log.Warnf("fire session %s ignored stop for %s, cancelling", sess.id, grace)
		sess.cancel()
		<-sess.done
	case <-ctx.Done():
		sess.cancel()
		<-sess.done
	}
	sess.cancel()
	s.active = nil
}

// Active reports whether a session is currently running.
func (s *Supervisor) Active() bool {
	select {
	case token := <-s.startStop:
		sess := s.active
		s.startStop <- token
		if sess == nil {
			return false
		}
		select {
		case <-sess.done:
			return false
		default:
			return true
		}
	default:
		// Someone is mid start/stop; something is certainly active.
		return true
	}
}
