// Package config loads the layered YAML configuration. Three sources merge
// in order (base, session, user) with later sources winning key by key, the
// same precedence the rest of the system assumes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/promptvolley/promptvolley/internal/layout"
)

// Duration wraps time.Duration for YAML decoding of values like "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// GeometryPolicy decides what happens to a window whose geometry cannot be
// resolved during a fire round.
type GeometryPolicy string

const (
	// GeometrySkip leaves the window staged and retries it next round.
	GeometrySkip GeometryPolicy = "skip"
	// GeometryDrop removes the window from the staging for good.
	GeometryDrop GeometryPolicy = "drop"
)

// Browser configures how target windows are launched and recognized.
type Browser struct {
	Binary string `yaml:"binary"`
	// Args may contain a {url} placeholder; without one the URL is appended.
	Args []string `yaml:"args"`
	// Pattern is a comma-separated list of title substrings that identify
	// windows belonging to this system.
	Pattern string `yaml:"pattern"`
}

// Window configures staged window dimensions and grid behavior.
type Window struct {
	Width         int `yaml:"width"`
	Height        int `yaml:"height"`
	Margin        int `yaml:"margin"`
	MaxOverlapPct int `yaml:"maxOverlapPct"`
	MaxCols       int `yaml:"maxCols"`
	VerticalGap   int `yaml:"verticalGap"`
}

// Staging configures launch pacing and the readiness poller.
type Staging struct {
	LaunchDelay    Duration `yaml:"launchDelay"`
	PollInterval   Duration `yaml:"pollInterval"`
	StableDuration Duration `yaml:"stableDuration"`
	MaxAttempts    int      `yaml:"maxAttempts"`
	VisibleTimeout Duration `yaml:"visibleTimeout"`
}

// Fire configures the injection sequencer.
type Fire struct {
	AnchorFromLeft   string         `yaml:"anchorFromLeft"`
	AnchorFromBottom string         `yaml:"anchorFromBottom"`
	Burst            int            `yaml:"burst"`
	ShotDelay        Duration       `yaml:"shotDelay"`
	RoundDelay       Duration       `yaml:"roundDelay"`
	ScrollTicks      int            `yaml:"scrollTicks"`
	AutoRoundCap     int            `yaml:"autoRoundCap"`
	GeometryFailure  GeometryPolicy `yaml:"geometryFailure"`
	StopGracePeriod  Duration       `yaml:"stopGracePeriod"`
}

// Metrics toggles the in-process counters.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the merged runtime configuration.
type Config struct {
	LogLevel string  `yaml:"logLevel"`
	DataDir  string  `yaml:"dataDir"`
	Socket   string  `yaml:"socket"`
	Browser  Browser `yaml:"browser"`
	Window   Window  `yaml:"window"`
	Staging  Staging `yaml:"staging"`
	Fire     Fire    `yaml:"fire"`
	Metrics  Metrics `yaml:"metrics"`
}

// mandatory lists the keys that have no sane default. A missing mandatory
// key is fatal and reported by name.
var mandatory = []struct {
	key     string
	present func(*Config) bool
}{
	{"browser.binary", func(c *Config) bool { return c.Browser.Binary != "" }},
	{"browser.pattern", func(c *Config) bool { return c.Browser.Pattern != "" }},
	{"window.width", func(c *Config) bool { return c.Window.Width > 0 }},
	{"window.height", func(c *Config) bool { return c.Window.Height > 0 }},
}

// Load merges the given YAML files in order and returns the validated
// configuration. Missing files are skipped; a path that exists but cannot be
// parsed is an error. At least one source must exist.
func Load(paths ...string) (*Config, error) {
	cfg := &Config{}
	loaded := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no configuration found (looked at %s)", strings.Join(paths, ", "))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.DataDir = filepath.Join(home, ".promptvolley")
		}
	}
	if c.Window.Margin == 0 {
		c.Window.Margin = 10
	}
	if c.Window.MaxOverlapPct == 0 {
		c.Window.MaxOverlapPct = 25
	}
	if c.Staging.LaunchDelay == 0 {
		c.Staging.LaunchDelay = Duration(400 * time.Millisecond)
	}
	if c.Staging.PollInterval == 0 {
		c.Staging.PollInterval = Duration(time.Second)
	}
	if c.Staging.StableDuration == 0 {
		c.Staging.StableDuration = Duration(3 * time.Second)
	}
	if c.Staging.MaxAttempts == 0 {
		c.Staging.MaxAttempts = 30
	}
	if c.Staging.VisibleTimeout == 0 {
		c.Staging.VisibleTimeout = Duration(5 * time.Second)
	}
	if c.Fire.AnchorFromLeft == "" {
		c.Fire.AnchorFromLeft = "50%"
	}
	if c.Fire.AnchorFromBottom == "" {
		c.Fire.AnchorFromBottom = "120"
	}
	if c.Fire.Burst == 0 {
		c.Fire.Burst = 1
	}
	if c.Fire.ShotDelay == 0 {
		c.Fire.ShotDelay = Duration(800 * time.Millisecond)
	}
	if c.Fire.RoundDelay == 0 {
		c.Fire.RoundDelay = Duration(10 * time.Second)
	}
	if c.Fire.ScrollTicks == 0 {
		c.Fire.ScrollTicks = 3
	}
	if c.Fire.GeometryFailure == "" {
		c.Fire.GeometryFailure = GeometrySkip
	}
	if c.Fire.StopGracePeriod == 0 {
		c.Fire.StopGracePeriod = Duration(5 * time.Second)
	}
}

// Validate reports the first problem found, naming the offending key.
func (c *Config) Validate() error {
	for _, m := range mandatory {
		if !m.present(c) {
			return fmt.Errorf("missing mandatory config key %s", m.key)
		}
	}
	if c.Window.MaxOverlapPct < 0 || c.Window.MaxOverlapPct > 100 {
		return errors.New("window.maxOverlapPct must be within 0..100")
	}
	if c.Fire.Burst < 1 {
		return errors.New("fire.burst must be at least 1")
	}
	if _, err := layout.ParseAnchor(c.Fire.AnchorFromLeft); err != nil {
		return fmt.Errorf("fire.anchorFromLeft: %w", err)
	}
	if _, err := layout.ParseAnchor(c.Fire.AnchorFromBottom); err != nil {
		return fmt.Errorf("fire.anchorFromBottom: %w", err)
	}
	switch c.Fire.GeometryFailure {
	case GeometrySkip, GeometryDrop:
	default:
		return fmt.Errorf("fire.geometryFailure must be %q or %q", GeometrySkip, GeometryDrop)
	}
	return nil
}

// GridParams derives planner inputs from the window section; the screen
// dimensions are resolved at stage time.
func (c *Config) GridParams(screenW, screenH int) layout.Params {
	return layout.Params{
		ScreenW:       screenW,
		ScreenH:       screenH,
		WindowW:       c.Window.Width,
		WindowH:       c.Window.Height,
		Margin:        c.Window.Margin,
		MaxOverlapPct: c.Window.MaxOverlapPct,
		MaxCols:       c.Window.MaxCols,
		VerticalGap:   c.Window.VerticalGap,
	}
}

// DefaultPaths returns the layered source paths in merge order: the base
// config shipped next to the binary's data dir, the per-session overlay, and
// the user overlay.
func DefaultPaths(dataDir string) []string {
	return []string{
		filepath.Join(dataDir, "base.yaml"),
		filepath.Join(dataDir, "session.yaml"),
		filepath.Join(dataDir, "user.yaml"),
	}
}
