// Package wm is the boundary to the external windowing system. Everything in
// here is best-effort: windows may vanish between a query and the next
// operation, and injection primitives carry no success confirmation.
package wm

import (
	"github.com/promptvolley/promptvolley/internal/layout"
)

// Window references a live application window. The ID is owned by the
// windowing system and may become invalid at any time.
type Window struct {
	ID    string
	Title string
	// Geometry is a snapshot from the most recent query and goes stale
	// immediately.
	Geometry layout.Rect
}

// MouseButton identifies a pointer button in xdotool numbering.
type MouseButton int

const (
	ButtonLeft     MouseButton = 1
	ButtonScrollUp MouseButton = 4
)

// Point is a screen or window-relative pixel coordinate.
type Point struct {
	X int
	Y int
}
