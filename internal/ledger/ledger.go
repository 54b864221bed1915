// Package ledger persists the two durable records of a session: the staging
// ledger naming the currently staged window handles, and per-target history
// files recording fired rounds.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/promptvolley/promptvolley/internal/util"
)

const targetExt = ".log"

// Store owns the on-disk layout under a single base directory.
type Store struct {
	// Dir is the base directory; created on demand.
	Dir string

	// now is swapped in tests.
	now func() time.Time
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, now: time.Now}
}

// Slug maps a target URL to a filesystem-safe name. The mapping is lossy and
// not reversible: every run of non-alphanumeric characters collapses to a
// single underscore. Distinct URLs may collide; the header records the real
// URL when it is known unambiguously.
func Slug(url string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(url) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func (s *Store) targetPath(url string) string {
	return filepath.Join(s.Dir, Slug(url)+targetExt)
}

// EnsureTarget creates the history file for a target URL if it does not
// exist. The identifying header is written only on first creation, and only
// when the staging covered a single URL; multi-URL stagings share slugs too
// ambiguously to claim one.
func (s *Store) EnsureTarget(url string, singleTarget bool) error {
	if url == "" {
		return fmt.Errorf("ensure target: empty url")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure target dir: %w", err)
	}
	path := s.targetPath(url)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	var header string
	if singleTarget {
		header = fmt.Sprintf("target: %s\ncreated: %s\n\n", url, s.now().Format(time.RFC3339))
	}
	if err := util.WriteFileAtomic(path, []byte(header), 0o644); err != nil {
		return err
	}
	return nil
}

// Round summarizes one completed fire round against a target.
type Round struct {
	Prompt  string
	Windows int
	Shots   int
}

// AppendRound appends exactly one history line for a completed round. The
// prompt is flattened to a single line; per-window detail never appears here.
func (s *Store) AppendRound(url string, r Round) error {
	if url == "" {
		return fmt.Errorf("append round: empty url")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("append round dir: %w", err)
	}
	f, err := os.OpenFile(s.targetPath(url), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open target ledger: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("%s\twindows=%d\tshots=%d\t%s\n",
		s.now().Format(time.RFC3339), r.Windows, r.Shots, flatten(r.Prompt))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append round: %w", err)
	}
	return nil
}

func flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
