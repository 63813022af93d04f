// File: internal/resolve/resolver.go
// Description: Turns raw detection output into an actionable screen point.
// Keeping screen geometry behind this type lets unit tests supply synthetic
// bounds without an OS display.
package resolve

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/config"
	"github.com/mlaterman/clickpilot/internal/detector"
)

var (
	// ErrNotFound is the expected negative outcome when the service could not
	// locate the target. The cycle must never proceed to execution on it.
	ErrNotFound = errors.New("target not found on screen")

	// ErrLowConfidence means the service located something but below the
	// configured acceptance threshold.
	ErrLowConfidence = errors.New("detection confidence below threshold")

	// ErrOutOfBounds means the reported point lies outside the addressable
	// display area even after clamping tolerance.
	ErrOutOfBounds = errors.New("detected coordinates outside screen bounds")
)

// Bounds describes the addressable display area.
type Bounds struct {
	Width  int
	Height int
}

// ResolvedTarget is a validated, actionable screen point. It lives for one
// automation cycle only.
type ResolvedTarget struct {
	ScreenX    int
	ScreenY    int
	Confidence float64
	Verified   bool
}

// Resolver applies acceptance rules to detection results.
type Resolver struct {
	threshold float64
	tolerance int
	logger    *zap.Logger
}

// New creates a Resolver from configuration.
func New(cfg config.ResolverConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		threshold: cfg.ConfidenceThreshold,
		tolerance: cfg.ClampTolerance,
		logger:    logger.Named("resolver"),
	}
}

// Resolve validates a detection result against the screen bounds and the
// confidence threshold. Absent confidence is acceptable but unverified.
// The Verified flag is advisory; it never blocks execution by itself.
func (r *Resolver) Resolve(result detector.DetectionResult, bounds Bounds) (ResolvedTarget, error) {
	if !result.Found {
		return ResolvedTarget{}, ErrNotFound
	}

	confidence := 0.0
	if result.Confidence != nil {
		confidence = *result.Confidence
		if confidence < r.threshold {
			return ResolvedTarget{}, fmt.Errorf("%w: %.2f < %.2f",
				ErrLowConfidence, confidence, r.threshold)
		}
	}

	x, okX := clamp(result.X, bounds.Width, r.tolerance)
	y, okY := clamp(result.Y, bounds.Height, r.tolerance)
	if !okX || !okY {
		return ResolvedTarget{}, fmt.Errorf("%w: (%d, %d) not within %dx%d",
			ErrOutOfBounds, result.X, result.Y, bounds.Width, bounds.Height)
	}

	target := ResolvedTarget{
		ScreenX:    x,
		ScreenY:    y,
		Confidence: confidence,
		Verified:   result.OCRVerification == detector.OCRMatch,
	}

	r.logger.Info("Resolved detection to screen point",
		zap.Int("x", target.ScreenX),
		zap.Int("y", target.ScreenY),
		zap.Float64("confidence", confidence),
		zap.Bool("verified", target.Verified),
	)
	return target, nil
}

// clamp pulls a coordinate that overshoots the axis by at most tolerance back
// inside [0, limit). Anything farther out is rejected.
func clamp(v, limit, tolerance int) (int, bool) {
	switch {
	case v >= 0 && v < limit:
		return v, true
	case v < 0 && v >= -tolerance:
		return 0, true
	case v >= limit && v < limit+tolerance:
		return limit - 1, true
	default:
		return 0, false
	}
}
