package wm

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Launcher spawns browser windows. Each launch is detached: the browser
// process outlives the caller and is tracked only through window queries.
type Launcher struct {
	Binary string
	// Args is the launch argv after the binary. Occurrences of {url} are
	// substituted; when no placeholder is present the URL is appended.
	Args []string
}

// Launch starts one browser window for the given URL.
func (l *Launcher) Launch(ctx context.Context, url string) error {
	if l.Binary == "" {
		return fmt.Errorf("launch %s: no browser binary configured", url)
	}
	args := make([]string, 0, len(l.Args)+1)
	substituted := false
	for _, a := range l.Args {
		if strings.Contains(a, "{url}") {
			a = strings.ReplaceAll(a, "{url}", url)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, url)
	}
	cmd := exec.CommandContext(ctx, l.Binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", url, err)
	}
	// Reap the child when it exits so launches do not accumulate zombies.
	go func() { _ = cmd.Wait() }()
	return nil
}
