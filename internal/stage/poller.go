package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/promptvolley/promptvolley/internal/wm"
)

// Enumerator lists the live windows matching a title pattern.
type Enumerator interface {
	Query(ctx context.Context, pattern string) ([]wm.Window, error)
}

// Poller waits for a launched window population to settle. Browsers open
// windows at their own pace and sometimes not at all, so the poller favors
// progress over completion: once the observed count stops changing it
// reports what is there, even when that falls short of what was asked for.
type Poller struct {
	Enum        Enumerator
	Pattern     string
	Interval    time.Duration
	StableFor   time.Duration
	MaxAttempts int

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewPoller returns a poller with real time sources.
func NewPoller(enum Enumerator, pattern string, interval, stableFor time.Duration, maxAttempts int) *Poller {
	return &Poller{
		Enum:        enum,
		Pattern:     pattern,
		Interval:    interval,
		StableFor:   stableFor,
		MaxAttempts: maxAttempts,
		now:         time.Now,
		sleep:       sleepCtx,
	}
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

// AwaitStable polls until the matching window count has been unchanged for
// the stability window, or the attempt budget runs out. It returns the last
// observed window set and the shortfall against the expected count; a
// shortfall is not an error. An expectation of zero returns immediately.
func (p *Poller) AwaitStable(ctx context.Context, expected int) ([]wm.Window, int, error) {
	if expected <= 0 {
		return nil, 0, nil
	}

	var (
		last        []wm.Window
		lastCount   = -1
		stableSince time.Time
	)
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.Interval); err != nil {
				return last, shortfall(expected, len(last)), err
			}
		}
		windows, err := p.Enum.Query(ctx, p.Pattern)
		if err != nil {
			// Transient enumeration failures read as an empty set; the
			// stability clock restarts when windows reappear.
			windows = nil
		}
		last = windows
		if len(windows) != lastCount {
			lastCount = len(windows)
			stableSince = p.now()
			continue
		}
		if lastCount > 0 && p.now().Sub(stableSince) >= p.StableFor {
			return last, shortfall(expected, lastCount), nil
		}
	}
	return last, shortfall(expected, len(last)), nil
}

// AwaitVisible waits until a specific handle shows up in the enumeration,
// bounded by timeout. Unlike AwaitStable this is a hard wait: the handle was
// promised by an earlier staging, so absence after the bound is an error.
func (p *Poller) AwaitVisible(ctx context.Context, handle string, timeout time.Duration) error {
	deadline := p.now().Add(timeout)
	for {
		windows, err := p.Enum.Query(ctx, p.Pattern)
		if err == nil {
			for _, w := range windows {
				if w.ID == handle {
					return nil
				}
			}
		}
		if !p.now().Before(deadline) {
			return fmt.Errorf("window %s not visible after %s", handle, timeout)
		}
		if err := p.sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
}

func shortfall(expected, got int) int {
	if got >= expected {
		return 0
	}
	return expected - got
}
