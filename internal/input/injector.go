// File: internal/input/injector.go
// Description: Contract for OS-level input injection and desktop queries.
// Everything the executor does to the machine goes through this interface so
// tests can run against a recording fake instead of a live desktop.
package input

import (
	"context"
	"image"
)

// Injector abstracts the OS input stream and desktop state.
type Injector interface {
	// Move places the pointer at absolute screen coordinates.
	Move(ctx context.Context, x, y int) error

	// Click presses the primary button at the current pointer position.
	Click(ctx context.Context, double bool) error

	// TypeText injects the given text as keystrokes into the focused window.
	TypeText(ctx context.Context, text string) error

	// KeyTap presses a key with optional modifiers (e.g. "s", "ctrl").
	KeyTap(ctx context.Context, key string, modifiers ...string) error

	// Location reports the current pointer position.
	Location() (x, y int)

	// ScreenSize reports the primary display dimensions.
	ScreenSize() (width, height int)

	// ActiveWindowTitle reports the title of the foreground window.
	ActiveWindowTitle() (string, error)

	// CaptureScreen grabs the full primary display.
	CaptureScreen() (image.Image, error)
}
