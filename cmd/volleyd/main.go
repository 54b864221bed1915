package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/promptvolley/promptvolley/internal/config"
	"github.com/promptvolley/promptvolley/internal/control"
	"github.com/promptvolley/promptvolley/internal/lockfile"
	"github.com/promptvolley/promptvolley/internal/util"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "promptvolley")

	configDir := flag.String("config-dir", defaultConfigDir, "directory holding base.yaml, session.yaml, user.yaml")
	logLevel := flag.String("log-level", "", "log level override (trace|debug|info|warn|error)")
	flag.Parse()

	cfgPaths := config.DefaultPaths(*configDir)
	cfg, err := config.Load(cfgPaths...)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := util.NewLogger(util.ParseLogLevel(level))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		exitErr(fmt.Errorf("create data dir: %w", err))
	}
	lock, err := lockfile.Acquire(filepath.Join(cfg.DataDir, "daemon.lock"))
	if err != nil {
		exitErr(fmt.Errorf("another daemon may be running: %w", err))
	}
	defer lock.Release()
	logger.Infof("session %s holds %s", lock.SessionID, filepath.Join(cfg.DataDir, "daemon.lock"))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitErr(fmt.Errorf("watch config: %w", err))
	}
	defer watcher.Close()
	if err := watcher.Add(*configDir); err != nil {
		exitErr(fmt.Errorf("watch config dir: %w", err))
	}
	reloadRequests := make(chan string, 1)
	go watchConfig(logger, watcher, cfgPaths, reloadRequests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		exitErr(fmt.Errorf("initialize daemon: %w", err))
	}

	reload := func(reason string) error {
		logger.Infof("%s, reloading config", reason)
		next, err := config.Load(cfgPaths...)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return d.applyConfig(next)
	}

	ctrlSrv, err := control.NewServer(d, logger, cfg.Socket, reload)
	if err != nil {
		exitErr(fmt.Errorf("start control server: %w", err))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	errs := make(chan error, 1)
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	for {
		select {
		case err := <-errs:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("control server exited: %v", err)
				lock.Release()
				os.Exit(1)
			}
			logger.Infof("daemon stopped")
			return
		case reason := <-reloadRequests:
			if err := reload(reason); err != nil {
				logger.Errorf("reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if err := reload("received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				if err := d.StopFire(ctx); err != nil {
					logger.Warnf("stop fire on shutdown: %v", err)
				}
				cancel()
			}
		}
	}
}

// watchConfig debounces filesystem events on any of the layered config files
// into a single reload request.
func watchConfig(logger *util.Logger, watcher *fsnotify.Watcher, targets []string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	watched := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		watched[filepath.Clean(t)] = struct{}{}
	}
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if _, ok := watched[filepath.Clean(event.Name)]; !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
