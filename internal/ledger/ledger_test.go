package ledger

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	s.now = func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestSlugCollapsesRuns(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/chat", "https_example_com_chat"},
		{"HTTPS://EXAMPLE.COM", "https_example_com"},
		{"a---b", "a_b"},
		{"///", ""},
	}
	for _, tc := range cases {
		if got := Slug(tc.url); got != tc.want {
			t.Fatalf("Slug(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestEnsureTargetWritesHeaderOnceSingleOnly(t *testing.T) {
	s := testStore(t)
	url := "https://example.com/chat"

	if err := s.EnsureTarget(url, true); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	data, err := os.ReadFile(s.targetPath(url))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "target: "+url) {
		t.Fatalf("missing header in %q", string(data))
	}

	// Re-staging the same target must not duplicate the header.
	if err := s.EnsureTarget(url, true); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	again, _ := os.ReadFile(s.targetPath(url))
	if string(again) != string(data) {
		t.Fatalf("file changed on repeated ensure:\n%q\n%q", data, again)
	}
}

func TestEnsureTargetMultiURLOmitsHeader(t *testing.T) {
	s := testStore(t)
	url := "https://example.com/a"
	if err := s.EnsureTarget(url, false); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	data, err := os.ReadFile(s.targetPath(url))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty file, got %q", string(data))
	}
}

func TestAppendRoundOneLinePerRound(t *testing.T) {
	s := testStore(t)
	url := "https://example.com/chat"
	if err := s.EnsureTarget(url, false); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// Two rounds against three windows must yield exactly two lines.
	for i := 0; i < 2; i++ {
		if err := s.AppendRound(url, Round{Prompt: "draw a\nboat", Windows: 3, Shots: 3}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	data, err := os.ReadFile(s.targetPath(url))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}
	for _, line := range lines {
		if !strings.Contains(line, "windows=3") || !strings.Contains(line, "draw a boat") {
			t.Fatalf("unexpected line %q", line)
		}
		if strings.Contains(line, "\n") {
			t.Fatalf("prompt not flattened: %q", line)
		}
	}
}

func TestAppendRoundRejectsEmptyURL(t *testing.T) {
	s := testStore(t)
	if err := s.AppendRound("", Round{Prompt: "p", Windows: 1, Shots: 1}); err == nil {
		t.Fatal("expected error for empty url")
	}
	// An empty url slugs to nothing; nothing may be created for it.
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("unexpected files created: %v", entries)
	}
}

func TestStagingRoundTripAndReplace(t *testing.T) {
	s := testStore(t)
	first := []string{"0x01", "0x02", "0x03"}
	if err := s.WriteStaging(first); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.ReadStaging()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(first, got); diff != "" {
		t.Fatalf("round trip:\n%s", diff)
	}

	// A later staging fully replaces the earlier one.
	second := []string{"0x09"}
	if err := s.WriteStaging(second); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err = s.ReadStaging()
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Fatalf("replace:\n%s", diff)
	}
}

func TestReadStagingMissingIsEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.ReadStaging()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}
