package main

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/promptvolley/promptvolley/internal/config"
	"github.com/promptvolley/promptvolley/internal/control"
	"github.com/promptvolley/promptvolley/internal/fire"
	"github.com/promptvolley/promptvolley/internal/layout"
	"github.com/promptvolley/promptvolley/internal/ledger"
	"github.com/promptvolley/promptvolley/internal/metrics"
	"github.com/promptvolley/promptvolley/internal/stage"
	"github.com/promptvolley/promptvolley/internal/util"
	"github.com/promptvolley/promptvolley/internal/wm"
)

// daemon glues the staging and firing machinery behind the control surface.
// Staging and firing are mutually exclusive: a stage request halts whatever
// session is running before it touches any windows.
type daemon struct {
	log     *util.Logger
	xdo     *wm.Client
	store   *ledger.Store
	metrics *metrics.Collector
	state   *fire.StateFile
	seq     *fire.Sequencer
	sup     *fire.Supervisor

	mu  sync.Mutex
	cfg *config.Config
}

func newDaemon(cfg *config.Config, log *util.Logger) (*daemon, error) {
	xdo := wm.NewClient()
	store := ledger.NewStore(filepath.Join(cfg.DataDir, "targets"))
	state := fire.NewStateFile(filepath.Join(cfg.DataDir, "session.json"))
	collector := metrics.NewCollector(cfg.Metrics.Enabled)

	opts, err := fireOptions(cfg)
	if err != nil {
		return nil, err
	}
	seq := fire.NewSequencer(xdo, wm.SystemClipboard{}, store, store, collector, state, log, opts)
	sup := fire.NewSupervisor(seq, log, cfg.Fire.StopGracePeriod.Std())

	return &daemon{
		log:     log,
		xdo:     xdo,
		store:   store,
		metrics: collector,
		state:   state,
		seq:     seq,
		sup:     sup,
		cfg:     cfg,
	}, nil
}

func fireOptions(cfg *config.Config) (fire.Options, error) {
	fromLeft, err := layout.ParseAnchor(cfg.Fire.AnchorFromLeft)
	if err != nil {
		return fire.Options{}, err
	}
	fromBottom, err := layout.ParseAnchor(cfg.Fire.AnchorFromBottom)
	if err != nil {
		return fire.Options{}, err
	}
	return fire.Options{
		FromLeft:        fromLeft,
		FromBottom:      fromBottom,
		Burst:           cfg.Fire.Burst,
		ShotDelay:       cfg.Fire.ShotDelay.Std(),
		RoundDelay:      cfg.Fire.RoundDelay.Std(),
		ScrollTicks:     cfg.Fire.ScrollTicks,
		RoundCap:        cfg.Fire.AutoRoundCap,
		GeometryFailure: cfg.Fire.GeometryFailure,
	}, nil
}

// applyConfig swaps in a freshly validated configuration.
func (d *daemon) applyConfig(cfg *config.Config) error {
	opts, err := fireOptions(cfg)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.seq.SetOptions(opts)
	d.sup.SetGrace(cfg.Fire.StopGracePeriod.Std())
	d.metrics.SetEnabled(cfg.Metrics.Enabled)
	d.log.SetLevel(util.ParseLogLevel(cfg.LogLevel))
	return nil
}

func (d *daemon) config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Stage halts any fire session and runs a fresh staging.
func (d *daemon) Stage(ctx context.Context, req stage.Request) (stage.Result, error) {
	if err := d.sup.Stop(ctx); err != nil {
		return stage.Result{}, err
	}
	cfg := d.config()

	launcher := &wm.Launcher{Binary: cfg.Browser.Binary, Args: cfg.Browser.Args}
	poller := stage.NewPoller(
		d.xdo,
		cfg.Browser.Pattern,
		cfg.Staging.PollInterval.Std(),
		cfg.Staging.StableDuration.Std(),
		cfg.Staging.MaxAttempts,
	)
	stager := stage.NewStager(launcher, d.xdo, poller, d.store, d.log, cfg.GridParams, cfg.Staging.LaunchDelay.Std())
	stager.VisibleTimeout = cfg.Staging.VisibleTimeout.Std()
	return stager.Stage(ctx, req)
}

// Fire starts a new session, replacing any running one.
func (d *daemon) Fire(ctx context.Context, req fire.Request) (string, error) {
	return d.sup.Start(ctx, req)
}

// StopFire halts the active session.
func (d *daemon) StopFire(ctx context.Context) error {
	return d.sup.Stop(ctx)
}

// Status reports session state, staged window count, and counters.
func (d *daemon) Status(context.Context) (control.StatusReport, error) {
	session, err := d.state.Load()
	if err != nil {
		return control.StatusReport{}, err
	}
	staged, err := d.store.ReadStaging()
	if err != nil {
		return control.StatusReport{}, err
	}
	return control.StatusReport{
		Session: session,
		Staged:  len(staged),
		Metrics: d.metrics.Snapshot(),
	}, nil
}
