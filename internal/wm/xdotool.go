package wm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/promptvolley/promptvolley/internal/layout"
)

// Client wraps xdotool shell-outs.
type Client struct {
	Binary string
}

// NewClient returns an xdotool client using the binary on PATH.
func NewClient() *Client {
	return &Client{Binary: "xdotool"}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("xdotool %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Query returns the visible windows whose titles match the comma-separated
// pattern list, in the windowing system's enumeration order. Windows that
// disappear mid-query are silently dropped; transient under-reporting is
// expected and tolerated by callers.
func (c *Client) Query(ctx context.Context, pattern string) ([]Window, error) {
	data, err := c.run(ctx, "search", "--onlyvisible", ".")
	if err != nil {
		return nil, err
	}
	patterns := splitPatterns(pattern)
	windows := make([]Window, 0)
	for _, id := range strings.Fields(string(data)) {
		nameData, err := c.run(ctx, "getwindowname", id)
		if err != nil {
			continue
		}
		title := strings.TrimSpace(string(nameData))
		if !matchesTitle(title, patterns) {
			continue
		}
		windows = append(windows, Window{ID: id, Title: title})
	}
	return windows, nil
}

// Geometry re-resolves the current geometry for a window handle.
func (c *Client) Geometry(ctx context.Context, id string) (layout.Rect, error) {
	data, err := c.run(ctx, "getwindowgeometry", "--shell", id)
	if err != nil {
		return layout.Rect{}, err
	}
	fields := parseShellFields(string(data))
	rect := layout.Rect{}
	for key, dst := range map[string]*int{
		"X": &rect.X, "Y": &rect.Y, "WIDTH": &rect.Width, "HEIGHT": &rect.Height,
	} {
		raw, ok := fields[key]
		if !ok {
			return layout.Rect{}, fmt.Errorf("geometry for %s missing %s", id, key)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return layout.Rect{}, fmt.Errorf("geometry for %s: invalid %s %q: %w", id, key, raw, err)
		}
		*dst = v
	}
	return rect, nil
}

// Resize sets the outer size of a window.
func (c *Client) Resize(ctx context.Context, id string, width, height int) error {
	_, err := c.run(ctx, "windowsize", id, strconv.Itoa(width), strconv.Itoa(height))
	return err
}

// MoveWindow places a window at absolute screen coordinates.
func (c *Client) MoveWindow(ctx context.Context, id string, x, y int) error {
	_, err := c.run(ctx, "windowmove", id, strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// CloseWindow asks the window to close gracefully.
func (c *Client) CloseWindow(ctx context.Context, id string) error {
	_, err := c.run(ctx, "windowclose", id)
	return err
}

// Activate raises and focuses a window, waiting for the window manager to
// acknowledge.
func (c *Client) Activate(ctx context.Context, id string) error {
	_, err := c.run(ctx, "windowactivate", "--sync", id)
	return err
}

// PointerLocation returns the current pointer position.
func (c *Client) PointerLocation(ctx context.Context) (Point, error) {
	data, err := c.run(ctx, "getmouselocation", "--shell")
	if err != nil {
		return Point{}, err
	}
	fields := parseShellFields(string(data))
	xRaw, okX := fields["X"]
	yRaw, okY := fields["Y"]
	if !okX || !okY {
		return Point{}, fmt.Errorf("pointer location missing coordinates: %q", string(data))
	}
	x, err := strconv.Atoi(xRaw)
	if err != nil {
		return Point{}, fmt.Errorf("invalid pointer X %q: %w", xRaw, err)
	}
	y, err := strconv.Atoi(yRaw)
	if err != nil {
		return Point{}, fmt.Errorf("invalid pointer Y %q: %w", yRaw, err)
	}
	return Point{X: x, Y: y}, nil
}

// MovePointer warps the pointer to absolute screen coordinates.
func (c *Client) MovePointer(ctx context.Context, x, y int) error {
	_, err := c.run(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// MovePointerInWindow warps the pointer to window-relative coordinates.
func (c *Client) MovePointerInWindow(ctx context.Context, id string, x, y int) error {
	_, err := c.run(ctx, "mousemove", "--window", id, strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// Click sends a button press into a window. Fire-and-forget: there is no
// confirmation the target application handled it.
func (c *Client) Click(ctx context.Context, id string, button MouseButton) error {
	_, err := c.run(ctx, "click", "--clearmodifiers", "--window", id, strconv.Itoa(int(button)))
	return err
}

// Scroll emits upward scroll ticks into a window.
func (c *Client) Scroll(ctx context.Context, id string, ticks int) error {
	if ticks <= 0 {
		return nil
	}
	args := []string{"click", "--clearmodifiers", "--window", id}
	for i := 0; i < ticks; i++ {
		args = append(args, strconv.Itoa(int(ButtonScrollUp)))
	}
	_, err := c.run(ctx, args...)
	return err
}

// SendKeys sends a key chord sequence into a window.
func (c *Client) SendKeys(ctx context.Context, id string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := append([]string{"key", "--clearmodifiers", "--window", id}, keys...)
	_, err := c.run(ctx, args...)
	return err
}

// ScreenSize returns the display geometry in pixels.
func (c *Client) ScreenSize(ctx context.Context) (width, height int, err error) {
	data, err := c.run(ctx, "getdisplaygeometry")
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Fields(strings.TrimSpace(string(data)))
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", string(data))
	}
	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid display width %q: %w", parts[0], err)
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid display height %q: %w", parts[1], err)
	}
	return width, height, nil
}

// parseShellFields decodes xdotool --shell output, accepting both KEY=value
// and KEY: value lines. Keys are uppercased.
func parseShellFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var key, value string
		switch {
		case strings.Contains(line, "="):
			parts := strings.SplitN(line, "=", 2)
			key, value = parts[0], parts[1]
		case strings.Contains(line, ":"):
			parts := strings.SplitN(line, ":", 2)
			key, value = parts[0], parts[1]
		default:
			continue
		}
		fields[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return fields
}

func splitPatterns(pattern string) []string {
	parts := strings.Split(pattern, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.Trim(strings.TrimSpace(p), `"'`))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchesTitle(title string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	lower := strings.ToLower(title)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
