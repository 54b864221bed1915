// Package stage launches, waits for, and arranges the window volley. A
// staging fully replaces whatever was staged before it.
package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptvolley/promptvolley/internal/layout"
	"github.com/promptvolley/promptvolley/internal/util"
)

// ErrNoWindows is returned when not a single window appeared.
var ErrNoWindows = errors.New("no windows appeared")

// Launcher spawns one browser window per call.
type Launcher interface {
	Launch(ctx context.Context, url string) error
}

// Arranger moves and sizes live windows and reports the screen extent.
type Arranger interface {
	Resize(ctx context.Context, id string, width, height int) error
	MoveWindow(ctx context.Context, id string, x, y int) error
	CloseWindow(ctx context.Context, id string) error
	ScreenSize(ctx context.Context) (width, height int, err error)
}

// Ledger persists the staging outcome.
type Ledger interface {
	ReadStaging() ([]string, error)
	WriteStaging(handles []string) error
	EnsureTarget(url string, singleTarget bool) error
}

// Request describes one staging run.
type Request struct {
	// URLs are assigned to windows round-robin until Count is reached.
	URLs  []string
	Count int
}

// Result reports what a staging actually achieved.
type Result struct {
	Handles []string
	// Shortfall is how many requested windows never appeared.
	Shortfall int
}

// Stager runs the full staging sequence: launch, settle, arrange, persist.
type Stager struct {
	Launcher Launcher
	Arranger Arranger
	Poller   *Poller
	Ledger   Ledger
	Log      *util.Logger

	Grid        func(screenW, screenH int) layout.Params
	LaunchDelay time.Duration
	// VisibleTimeout bounds the per-window visibility recheck after
	// arranging. Zero skips the recheck.
	VisibleTimeout time.Duration

	sleep func(context.Context, time.Duration) error
}

// NewStager wires a stager with real time sources.
func NewStager(launcher Launcher, arranger Arranger, poller *Poller, ledger Ledger, log *util.Logger, grid func(int, int) layout.Params, launchDelay time.Duration) *Stager {
	return &Stager{
		Launcher:    launcher,
		Arranger:    arranger,
		Poller:      poller,
		Ledger:      ledger,
		Log:         log,
		Grid:        grid,
		LaunchDelay: launchDelay,
		sleep:       sleepCtx,
	}
}

// Stage launches the requested windows, waits for the population to settle,
// arranges what appeared into the grid, and replaces the staging ledger.
// A partial population is arranged and recorded as-is; only a fully empty
// outcome aborts.
func (s *Stager) Stage(ctx context.Context, req Request) (Result, error) {
	if req.Count <= 0 {
		return Result{}, fmt.Errorf("stage: count must be positive, got %d", req.Count)
	}
	if len(req.URLs) == 0 {
		return Result{}, errors.New("stage: no target URLs")
	}

	// A new staging replaces the previous one, so close whatever the last
	// one left behind. Windows already gone just fail the close quietly.
	previous, err := s.Ledger.ReadStaging()
	if err != nil {
		return Result{}, fmt.Errorf("stage: read previous staging: %w", err)
	}
	for _, h := range previous {
		if err := s.Arranger.CloseWindow(ctx, h); err != nil {
			s.Log.Debugf("close previous window %s: %v", h, err)
		}
	}

	for i := 0; i < req.Count; i++ {
		url := req.URLs[i%len(req.URLs)]
		if err := s.Launcher.Launch(ctx, url); err != nil {
			return Result{}, fmt.Errorf("stage: launch %d of %d: %w", i+1, req.Count, err)
		}
		if i < req.Count-1 {
			if err := s.sleep(ctx, s.LaunchDelay); err != nil {
				return Result{}, err
			}
		}
	}

	windows, short, err := s.Poller.AwaitStable(ctx, req.Count)
	if err != nil {
		return Result{}, fmt.Errorf("stage: wait for windows: %w", err)
	}
	if len(windows) == 0 {
		return Result{}, ErrNoWindows
	}
	if short > 0 {
		s.Log.Warnf("staging settled short: %d of %d windows", len(windows), req.Count)
	}

	screenW, screenH, err := s.Arranger.ScreenSize(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("stage: screen size: %w", err)
	}
	params := s.Grid(screenW, screenH)

	handles := make([]string, len(windows))
	for i, w := range windows {
		handles[i] = w.ID
	}
	plan := layout.PlanGrid(handles, params)

	for _, pl := range plan.Placements {
		if err := s.Arranger.Resize(ctx, pl.ID, params.WindowW, params.WindowH); err != nil {
			s.Log.Warnf("resize %s: %v", pl.ID, err)
			continue
		}
		if err := s.Arranger.MoveWindow(ctx, pl.ID, pl.X, pl.Y); err != nil {
			s.Log.Warnf("move %s: %v", pl.ID, err)
		}
	}

	if s.VisibleTimeout > 0 {
		for _, h := range plan.Handles() {
			if err := s.Poller.AwaitVisible(ctx, h, s.VisibleTimeout); err != nil {
				s.Log.Warnf("visibility recheck: %v", err)
			}
		}
	}

	if err := s.Ledger.WriteStaging(plan.Handles()); err != nil {
		return Result{}, fmt.Errorf("stage: persist staging: %w", err)
	}
	single := len(distinct(req.URLs)) == 1
	for _, url := range distinct(req.URLs) {
		if err := s.Ledger.EnsureTarget(url, single); err != nil {
			return Result{}, fmt.Errorf("stage: target ledger: %w", err)
		}
	}

	s.Log.Infof("staged %d windows (%d short of requested)", len(windows), short)
	return Result{Handles: plan.Handles(), Shortfall: short}, nil
}

func distinct(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
