package fire

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/promptvolley/promptvolley/internal/config"
	"github.com/promptvolley/promptvolley/internal/layout"
	"github.com/promptvolley/promptvolley/internal/ledger"
	"github.com/promptvolley/promptvolley/internal/metrics"
	"github.com/promptvolley/promptvolley/internal/util"
	"github.com/promptvolley/promptvolley/internal/wm"
)

// Injector is the subset of window-system operations a round needs.
type Injector interface {
	Geometry(ctx context.Context, id string) (layout.Rect, error)
	PointerLocation(ctx context.Context) (wm.Point, error)
	MovePointer(ctx context.Context, x, y int) error
	MovePointerInWindow(ctx context.Context, id string, x, y int) error
	Click(ctx context.Context, id string, button wm.MouseButton) error
	Scroll(ctx context.Context, id string, ticks int) error
	SendKeys(ctx context.Context, id string, keys ...string) error
	Activate(ctx context.Context, id string) error
}

// Staging reads and rewrites the staged handle list.
type Staging interface {
	ReadStaging() ([]string, error)
	WriteStaging(handles []string) error
}

// RoundLedger records completed rounds against a target.
type RoundLedger interface {
	AppendRound(url string, r ledger.Round) error
}

// Options tunes the injection sequence.
type Options struct {
	FromLeft    layout.Anchor
	FromBottom  layout.Anchor
	Burst       int
	ShotDelay   time.Duration
	RoundDelay  time.Duration
	ScrollTicks int
	// RoundCap bounds auto mode; zero or negative means unbounded.
	RoundCap int
	// GeometryFailure decides whether an unresolvable window is retried
	// next round or dropped from the staging.
	GeometryFailure config.GeometryPolicy
}

// Request starts a session in semi or auto mode.
type Request struct {
	Mode   Mode
	Target string
	Prompt string
	// RoundCap overrides Options.RoundCap when positive.
	RoundCap int
}

// Sequencer executes fire rounds over the staged windows. A stop request is
// observed between windows, so the worst-case stop latency is one window's
// injection sequence.
type Sequencer struct {
	Inj     Injector
	Clip    wm.Clipboard
	Staging Staging
	Rounds  RoundLedger
	Metrics *metrics.Collector
	State   *StateFile
	Log     *util.Logger

	opts          atomic.Pointer[Options]
	stopRequested atomic.Bool
	sleep         func(context.Context, time.Duration) error
}

// NewSequencer wires a sequencer with real time sources.
func NewSequencer(inj Injector, clip wm.Clipboard, staging Staging, rounds RoundLedger, m *metrics.Collector, state *StateFile, log *util.Logger, opts Options) *Sequencer {
	s := &Sequencer{
		Inj:     inj,
		Clip:    clip,
		Staging: staging,
		Rounds:  rounds,
		Metrics: m,
		State:   state,
		Log:     log,
		sleep:   sleepCtx,
	}
	s.opts.Store(&opts)
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options returns the current tuning.
func (s *Sequencer) Options() Options {
	return *s.opts.Load()
}

// SetOptions swaps the tuning. A running session picks the change up at its
// next round boundary.
func (s *Sequencer) SetOptions(opts Options) {
	s.opts.Store(&opts)
}

// Stop requests a halt. The sequencer finishes the window it is on and
// stops before the next one. The transitional phase is visible to state
// readers: the session file moves to stopping here and to safe once the
// sequencer has drained.
func (s *Sequencer) Stop() {
	s.stopRequested.Store(true)
	if s.State == nil {
		return
	}
	st, err := s.State.Load()
	if err != nil || (st.Mode != ModeSemi && st.Mode != ModeAuto) {
		return
	}
	st.Mode = ModeStopping
	if err := s.State.Save(st); err != nil {
		s.Log.Debugf("persist stopping state: %v", err)
	}
}

// Run fires rounds until the mode's natural end, the round cap, a stop
// request, or context cancellation. It always leaves the state file in safe
// mode on return.
func (s *Sequencer) Run(ctx context.Context, sessionID string, req Request) error {
	switch req.Mode {
	case ModeSemi, ModeAuto:
	default:
		return fmt.Errorf("fire: mode %q cannot start a session", req.Mode)
	}
	if req.Prompt == "" {
		return errors.New("fire: empty prompt")
	}
	if req.Target == "" {
		return errors.New("fire: empty target")
	}
	s.stopRequested.Store(false)

	roundCap := s.Options().RoundCap
	if req.RoundCap > 0 {
		roundCap = req.RoundCap
	}
	if req.Mode == ModeSemi {
		roundCap = 1
	}

	rounds, totalShots := 0, 0
	saveState := func(mode Mode) {
		if s.State == nil {
			return
		}
		if mode != ModeSafe && s.stopRequested.Load() {
			mode = ModeStopping
		}
		if err := s.State.Save(State{
			Mode:      mode,
			SessionID: sessionID,
			Target:    req.Target,
			Prompt:    req.Prompt,
			Rounds:    rounds,
			Shots:     totalShots,
		}); err != nil {
			s.Log.Warnf("persist session state: %v", err)
		}
	}
	saveState(req.Mode)
	defer saveState(ModeSafe)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.stopRequested.Load() {
			s.Log.Infof("fire stopped after %d rounds", rounds)
			return nil
		}

		handles, err := s.Staging.ReadStaging()
		if err != nil {
			return fmt.Errorf("fire: read staging: %w", err)
		}
		if len(handles) == 0 {
			s.Log.Warnf("fire: nothing staged, ending session")
			return nil
		}

		// Progress is published after every window, not just at round
		// boundaries, so observers polling the state file track the
		// volley as it lands.
		shots, keep, halted := s.fireRound(ctx, handles, req, func(delta int) {
			totalShots += delta
			saveState(req.Mode)
		})
		if len(keep) != len(handles) {
			if err := s.Staging.WriteStaging(keep); err != nil {
				s.Log.Warnf("rewrite staging after drops: %v", err)
			}
		}
		if halted {
			// An interrupted round is not a completed round: no counter
			// bump, no history line.
			s.Log.Infof("fire stopped mid-round after %d rounds", rounds)
			return nil
		}

		rounds++
		// Exactly one history line per completed round, even when every
		// window was skipped.
		if err := s.Rounds.AppendRound(req.Target, ledger.Round{
			Prompt:  req.Prompt,
			Windows: len(handles),
			Shots:   shots,
		}); err != nil {
			s.Log.Warnf("append round ledger: %v", err)
		}
		s.Metrics.RecordRound(req.Target, uint64(shots))
		saveState(req.Mode)

		if roundCap > 0 && rounds >= roundCap {
			s.Log.Infof("fire finished: %d rounds, %d shots", rounds, totalShots)
			return nil
		}
		if err := s.sleep(ctx, s.Options().RoundDelay); err != nil {
			return err
		}
	}
}

// fireRound injects the prompt into every staged window once, calling
// onWindow with the shots landed after each window. It returns the round's
// shots, the handles that remain staged, and whether a stop request halted
// the round early.
func (s *Sequencer) fireRound(ctx context.Context, handles []string, req Request, onWindow func(delta int)) (shots int, keep []string, halted bool) {
	opts := s.Options()
	keep = make([]string, 0, len(handles))
	for i, h := range handles {
		if s.stopRequested.Load() || ctx.Err() != nil {
			keep = append(keep, handles[i:]...)
			return shots, keep, true
		}

		rect, err := s.Inj.Geometry(ctx, h)
		if err != nil {
			s.Metrics.RecordSkip(req.Target)
			if opts.GeometryFailure == config.GeometryDrop {
				s.Log.Warnf("dropping window %s: %v", h, err)
			} else {
				s.Log.Warnf("skipping window %s this round: %v", h, err)
				keep = append(keep, h)
			}
			onWindow(0)
			continue
		}
		keep = append(keep, h)

		if err := s.injectWindow(ctx, h, rect, req.Prompt, opts); err != nil {
			s.Metrics.RecordInjectionError(req.Target)
			s.Log.Warnf("inject %s: %v", h, err)
			onWindow(0)
			continue
		}
		shots += opts.Burst
		onWindow(opts.Burst)
	}
	return shots, keep, false
}

// injectWindow runs the full per-window sequence: park the pointer at the
// anchor, dismiss any hover UI with a scroll, focus, then paste and submit
// burst times. The user's pointer position is restored afterwards.
func (s *Sequencer) injectWindow(ctx context.Context, h string, rect layout.Rect, prompt string, opts Options) error {
	x, y := layout.InjectionPoint(opts.FromLeft, opts.FromBottom, rect.Width, rect.Height)

	saved, savedErr := s.Inj.PointerLocation(ctx)
	if savedErr != nil {
		s.Log.Debugf("pointer location: %v", savedErr)
	}
	defer func() {
		if savedErr == nil {
			if err := s.Inj.MovePointer(ctx, saved.X, saved.Y); err != nil {
				s.Log.Debugf("restore pointer: %v", err)
			}
		}
	}()

	if err := s.Inj.Activate(ctx, h); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	if err := s.Inj.MovePointerInWindow(ctx, h, x, y); err != nil {
		return fmt.Errorf("move pointer: %w", err)
	}
	if err := s.Inj.Scroll(ctx, h, opts.ScrollTicks); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	if err := s.Clip.Set(prompt); err != nil {
		return err
	}
	if err := s.Inj.Click(ctx, h, wm.ButtonLeft); err != nil {
		return fmt.Errorf("focus click: %w", err)
	}
	for b := 0; b < opts.Burst; b++ {
		if err := s.Inj.SendKeys(ctx, h, "ctrl+a"); err != nil {
			return fmt.Errorf("select all: %w", err)
		}
		if err := s.Inj.SendKeys(ctx, h, "ctrl+v"); err != nil {
			return fmt.Errorf("paste: %w", err)
		}
		if err := s.Inj.SendKeys(ctx, h, "Return"); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		if err := s.sleep(ctx, opts.ShotDelay); err != nil {
			return err
		}
	}
	s.Log.Tracef("injected %s at %d,%d (%d shots)", h, x, y, opts.Burst)
	return nil
}
