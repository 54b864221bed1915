package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Rect represents a window geometry in screen pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Anchor locates a point along one window axis, either as an absolute pixel
// offset or as a percentage of the window's extent on that axis.
type Anchor struct {
	Percent bool
	Value   int
}

// ParseAnchor accepts "120" (pixels) or "35%" (percent of the axis extent).
func ParseAnchor(s string) (Anchor, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Anchor{}, fmt.Errorf("empty anchor")
	}
	percent := strings.HasSuffix(trimmed, "%")
	if percent {
		trimmed = strings.TrimSuffix(trimmed, "%")
	}
	v, err := strconv.Atoi(strings.TrimSpace(trimmed))
	if err != nil {
		return Anchor{}, fmt.Errorf("invalid anchor %q: %w", s, err)
	}
	if v < 0 {
		return Anchor{}, fmt.Errorf("anchor %q cannot be negative", s)
	}
	if percent && v > 100 {
		return Anchor{}, fmt.Errorf("anchor %q exceeds 100%%", s)
	}
	return Anchor{Percent: percent, Value: v}, nil
}

// Resolve returns the pixel offset for the given axis extent.
func (a Anchor) Resolve(extent int) int {
	if a.Percent {
		return extent * a.Value / 100
	}
	return a.Value
}

// InjectionPoint computes window-relative click coordinates from the
// configured anchors. X is measured from the window's left edge, Y from its
// bottom edge.
func InjectionPoint(fromLeft, fromBottom Anchor, width, height int) (x, y int) {
	x = fromLeft.Resolve(width)
	y = height - fromBottom.Resolve(height)
	if y < 0 {
		y = 0
	}
	return x, y
}
