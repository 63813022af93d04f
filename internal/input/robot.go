// File: internal/input/robot.go
package input

import (
	"context"
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mlaterman/clickpilot/internal/config"
)

// RobotInjector is the production Injector backed by robotgo. A rate limiter
// paces injected events so the OS has time to react between them, matching
// the pause the desktop UI needs rather than firing as fast as possible.
type RobotInjector struct {
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRobotInjector builds the production injector.
func NewRobotInjector(cfg config.ExecutorConfig, logger *zap.Logger) *RobotInjector {
	return &RobotInjector{
		limiter: rate.NewLimiter(rate.Limit(cfg.EventsPerSec), 1),
		logger:  logger.Named("input"),
	}
}

// Move implements Injector. Pointer moves are not paced by the limiter;
// trajectory timing is owned by the caller and individual steps must not be
// stretched out.
func (r *RobotInjector) Move(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.Move(x, y)
	return nil
}

// Click implements Injector.
func (r *RobotInjector) Click(ctx context.Context, double bool) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	r.logger.Debug("Injecting click", zap.Bool("double", double))
	robotgo.Click("left", double)
	return nil
}

// TypeText implements Injector.
func (r *RobotInjector) TypeText(ctx context.Context, text string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	robotgo.TypeStr(text)
	return nil
}

// KeyTap implements Injector.
func (r *RobotInjector) KeyTap(ctx context.Context, key string, modifiers ...string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	r.logger.Debug("Injecting key tap", zap.String("key", key), zap.Strings("modifiers", modifiers))
	args := make([]interface{}, 0, len(modifiers))
	for _, m := range modifiers {
		args = append(args, m)
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return fmt.Errorf("key tap %q failed: %w", key, err)
	}
	return nil
}

// Location implements Injector.
func (r *RobotInjector) Location() (int, int) {
	return robotgo.Location()
}

// ScreenSize implements Injector.
func (r *RobotInjector) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// ActiveWindowTitle implements Injector.
func (r *RobotInjector) ActiveWindowTitle() (string, error) {
	title := robotgo.GetTitle()
	if title == "" {
		return "", fmt.Errorf("unable to read active window title")
	}
	return title, nil
}

// CaptureScreen implements Injector.
func (r *RobotInjector) CaptureScreen() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}
	return img, nil
}
