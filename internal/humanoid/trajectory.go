// File: internal/humanoid/trajectory.go
package humanoid

import (
	"math"
	"math/rand"
	"time"
)

// computeEaseInOutCubic provides a smooth acceleration and deceleration
// profile for movement.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// fittsDuration determines a realistic movement duration based on Fitts's
// Law, which models the time required to move to a target area.
func (m *Mover) fittsDuration(distance float64) time.Duration {
	const targetWidth = 30.0 // Assumed target width in pixels.

	// Index of Difficulty.
	id := math.Log2(1.0 + distance/targetWidth)

	// Movement time in milliseconds, with +/- 15% randomization.
	mt := m.cfg.FittsA + m.cfg.FittsB*id
	mt += mt * (m.rng.Float64()*0.3 - 0.15)

	d := time.Duration(mt) * time.Millisecond
	if d < m.cfg.MinDuration {
		d = m.cfg.MinDuration
	}
	return d
}

// generateIdealPath creates a human-like trajectory as a cubic Bezier curve
// whose control points deviate sideways from the straight line, the way a
// real hand overshoots and corrects.
func generateIdealPath(start, end Vector2D, rng *rand.Rand, numSteps int) []Vector2D {
	p0, p3 := start, end
	mainVec := end.Sub(start)
	dist := mainVec.Mag()

	if dist < 1.0 || numSteps <= 1 {
		return []Vector2D{end}
	}

	mainDir := mainVec.Normalize()
	perp := mainDir.Perp()

	// Control points at 1/3 and 2/3 along the line, pushed sideways by up to
	// a tenth of the travel distance.
	sway1 := (rng.Float64()*2 - 1) * dist * 0.1
	sway2 := (rng.Float64()*2 - 1) * dist * 0.1
	p1 := start.Add(mainDir.Mul(dist / 3.0)).Add(perp.Mul(sway1))
	p2 := start.Add(mainDir.Mul(dist * 2.0 / 3.0)).Add(perp.Mul(sway2))

	path := make([]Vector2D, numSteps)
	for i := 0; i < numSteps; i++ {
		t := float64(i) / float64(numSteps-1)
		omt := 1.0 - t
		omt2 := omt * omt
		omt3 := omt2 * omt
		t2 := t * t
		t3 := t2 * t

		path[i] = p0.Mul(omt3).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t3))
	}

	return path
}
