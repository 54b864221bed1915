package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/promptvolley/promptvolley/internal/util"
)

const stagingFile = "staged"

func (s *Store) stagingPath() string {
	return filepath.Join(s.Dir, stagingFile)
}

// WriteStaging replaces the staging ledger with the given handle list, one
// opaque handle per line. The replace is atomic; a concurrent reader sees
// either the previous staging or the new one, never a mixture.
func (s *Store) WriteStaging(handles []string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("staging dir: %w", err)
	}
	var b strings.Builder
	for _, h := range handles {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	return util.WriteFileAtomic(s.stagingPath(), []byte(b.String()), 0o644)
}

// ReadStaging returns the staged handle list in staging order. A missing
// ledger reads as empty.
func (s *Store) ReadStaging() ([]string, error) {
	data, err := os.ReadFile(s.stagingPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read staging ledger: %w", err)
	}
	var handles []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			handles = append(handles, line)
		}
	}
	return handles, nil
}
