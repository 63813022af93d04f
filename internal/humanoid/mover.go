// File: internal/humanoid/mover.go
// Description: Simulates human-like pointer movement on the real desktop.
// The trajectory model walks a Bezier path under a Fitts's-Law time budget,
// dispatching each step through the injected input layer.
package humanoid

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/input"
)

// MoverConfig holds the tuning constants of the movement model.
type MoverConfig struct {
	// FittsA and FittsB are the intercept and slope of the Fitts's-Law
	// duration model, in milliseconds.
	FittsA float64
	FittsB float64

	// JitterPx is the standard deviation of the Gaussian noise applied to
	// every intermediate step.
	JitterPx float64

	// StepsPerSecond controls path granularity.
	StepsPerSecond float64

	// MinDuration floors the computed movement time so short hops still read
	// as deliberate movement. Zero disables the floor.
	MinDuration time.Duration
}

// DefaultMoverConfig returns tuning that lands movements in the 300-900ms
// range for typical desktop distances.
func DefaultMoverConfig() MoverConfig {
	return MoverConfig{
		FittsA:         120,
		FittsB:         140,
		JitterPx:       1.2,
		StepsPerSecond: 100,
	}
}

// Mover drives the pointer along human-like paths.
type Mover struct {
	injector input.Injector
	cfg      MoverConfig
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewMover creates a Mover. The seed makes trajectories reproducible in tests.
func NewMover(injector input.Injector, cfg MoverConfig, seed int64, logger *zap.Logger) *Mover {
	return &Mover{
		injector: injector,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger.Named("humanoid"),
	}
}

// MoveTo walks the pointer from its current position to the target point.
// The final step always lands exactly on the target.
func (m *Mover) MoveTo(ctx context.Context, targetX, targetY int) error {
	curX, curY := m.injector.Location()
	start := Vector2D{X: float64(curX), Y: float64(curY)}
	end := Vector2D{X: float64(targetX), Y: float64(targetY)}

	dist := start.Dist(end)
	duration := m.fittsDuration(dist)
	numSteps := int(duration.Seconds() * m.cfg.StepsPerSecond)
	if numSteps < 2 {
		numSteps = 2
	}

	m.logger.Debug("Planning pointer trajectory",
		zap.Float64("distance", dist),
		zap.Duration("duration", duration),
		zap.Int("steps", numSteps),
	)

	path := generateIdealPath(start, end, m.rng, numSteps)
	startTime := time.Now()

	for i, point := range path {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Ease the time axis to get acceleration and deceleration.
		t := float64(i) / float64(len(path)-1)
		stepDeadline := startTime.Add(time.Duration(computeEaseInOutCubic(t) * float64(duration)))
		if wait := time.Until(stepDeadline); wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		stepPoint := point
		if i < len(path)-1 && m.cfg.JitterPx > 0 {
			stepPoint = point.Add(Vector2D{
				X: m.rng.NormFloat64() * m.cfg.JitterPx,
				Y: m.rng.NormFloat64() * m.cfg.JitterPx,
			})
		}

		if err := m.injector.Move(ctx, int(stepPoint.X+0.5), int(stepPoint.Y+0.5)); err != nil {
			return err
		}
	}

	return nil
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
