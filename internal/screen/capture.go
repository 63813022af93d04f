// File: internal/screen/capture.go
// Description: Screenshot acquisition for a detection cycle. Live capture
// stages the desktop (minimize everything so icons are visible), grabs the
// frame, and restores; a static file can be supplied to bypass the desktop
// entirely.
package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // static screenshot overrides may be JPEG
	"image/png"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/input"
)

// Capturer produces the screenshot a detection cycle works on.
type Capturer struct {
	injector input.Injector
	logger   *zap.Logger
}

// NewCapturer creates a Capturer bound to the given input layer.
func NewCapturer(injector input.Injector, logger *zap.Logger) *Capturer {
	return &Capturer{injector: injector, logger: logger.Named("capture")}
}

// Capture grabs the primary display with the desktop staged: all windows are
// minimized first so application icons are visible, then restored via the
// undo chord after the frame is taken.
func (c *Capturer) Capture(ctx context.Context) (image.Image, error) {
	c.logger.Info("Minimizing windows before capture")
	if err := c.minimizeAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to stage desktop: %w", err)
	}
	if err := sleep(ctx, 600*time.Millisecond); err != nil {
		return nil, err
	}

	img, err := c.injector.CaptureScreen()
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	c.logger.Info("Captured screenshot", zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))

	if err := c.restoreAll(ctx); err != nil {
		// The frame is already taken; a failed restore is not fatal.
		c.logger.Warn("Failed to restore windows after capture", zap.Error(err))
	}
	return img, nil
}

// MinimizeAll exposes desktop staging for callers that need it outside a
// capture, such as right before launching a desktop icon.
func (c *Capturer) MinimizeAll(ctx context.Context) error {
	if err := c.minimizeAll(ctx); err != nil {
		return err
	}
	return sleep(ctx, 600*time.Millisecond)
}

func (c *Capturer) minimizeAll(ctx context.Context) error {
	if runtime.GOOS == "darwin" {
		return c.injector.KeyTap(ctx, "m", "cmd", "alt")
	}
	return c.injector.KeyTap(ctx, "m", "cmd")
}

func (c *Capturer) restoreAll(ctx context.Context) error {
	if runtime.GOOS == "darwin" {
		return nil // No reliable restore chord; windows come back on activation.
	}
	return c.injector.KeyTap(ctx, "m", "cmd", "shift")
}

// LoadFile reads a screenshot from disk, bypassing live capture.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot %s: %w", path, err)
	}
	return img, nil
}

// EncodePNG serializes an image for the detection request.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// sleep is a context-aware time.Sleep.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
