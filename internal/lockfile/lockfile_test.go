package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if l.SessionID == "" {
		t.Fatal("missing session id")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("lock file survived release")
	}
}

func TestAcquireRejectsLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")
	// The test process itself is the live owner.
	content := fmt.Sprintf("%d other-session\n", os.Getpid())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	_, err := Acquire(path)
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")
	// PID 0 is never a live peer.
	if err := os.WriteFile(path, []byte("0 dead-session\n"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}
	defer l.Release()
}

func TestAcquireReplacesMalformedLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire over malformed lock: %v", err)
	}
	defer l.Release()
}

func TestReleaseRefusesForeignLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// Another session takes over the file out from under us.
	if err := os.WriteFile(path, []byte("1 hijacker\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := l.Release(); err == nil {
		t.Fatal("expected release to refuse a foreign lock")
	}
}
