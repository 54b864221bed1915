package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const baseYAML = `
browser:
  binary: firefox
  pattern: "firefox"
window:
  width: 800
  height: 600
`

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", baseYAML)

	cfg, err := Load(base)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window.MaxOverlapPct != 25 {
		t.Fatalf("default overlap: got %d", cfg.Window.MaxOverlapPct)
	}
	if cfg.Staging.MaxAttempts != 30 {
		t.Fatalf("default max attempts: got %d", cfg.Staging.MaxAttempts)
	}
	if cfg.Fire.GeometryFailure != GeometrySkip {
		t.Fatalf("default geometry policy: got %q", cfg.Fire.GeometryFailure)
	}
	if cfg.Fire.RoundDelay.Std() != 10*time.Second {
		t.Fatalf("default round delay: got %v", cfg.Fire.RoundDelay.Std())
	}
}

func TestLoadLaterSourceWins(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", baseYAML)
	user := writeFile(t, dir, "user.yaml", `
window:
  width: 1024
fire:
  burst: 3
`)

	cfg, err := Load(base, user)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window.Width != 1024 {
		t.Fatalf("override lost: width %d", cfg.Window.Width)
	}
	// Keys untouched by the overlay keep their earlier values.
	if cfg.Window.Height != 600 {
		t.Fatalf("base value lost: height %d", cfg.Window.Height)
	}
	if cfg.Fire.Burst != 3 {
		t.Fatalf("override lost: burst %d", cfg.Fire.Burst)
	}
}

func TestLoadMissingMandatoryKeyNamesIt(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", `
browser:
  binary: firefox
window:
  width: 800
  height: 600
`)
	_, err := Load(base)
	if err == nil {
		t.Fatal("expected error for missing pattern")
	}
	if !strings.Contains(err.Error(), "browser.pattern") {
		t.Fatalf("error must name the key, got %v", err)
	}
}

func TestLoadMissingFilesSkippedButOneRequired(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", baseYAML)

	if _, err := Load(filepath.Join(dir, "absent.yaml"), base); err != nil {
		t.Fatalf("missing overlay must be tolerated: %v", err)
	}
	if _, err := Load(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Fatal("expected error when no source exists")
	}
}

func TestLoadRejectsBadAnchor(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", baseYAML+`
fire:
  anchorFromLeft: "150%"
`)
	_, err := Load(base)
	if err == nil || !strings.Contains(err.Error(), "anchorFromLeft") {
		t.Fatalf("expected anchor error, got %v", err)
	}
}

func TestLoadRejectsBadGeometryPolicy(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", baseYAML+`
fire:
  geometryFailure: explode
`)
	if _, err := Load(base); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestDurationParsing(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", baseYAML+`
staging:
  pollInterval: 250ms
  stableDuration: 2s
`)
	cfg, err := Load(base)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Staging.PollInterval.Std() != 250*time.Millisecond {
		t.Fatalf("poll interval: %v", cfg.Staging.PollInterval.Std())
	}
	if cfg.Staging.StableDuration.Std() != 2*time.Second {
		t.Fatalf("stable duration: %v", cfg.Staging.StableDuration.Std())
	}
}
