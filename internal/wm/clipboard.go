package wm

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard stages text for paste-based injection.
type Clipboard interface {
	Set(text string) error
}

// SystemClipboard writes through to the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Set(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}
