// File: internal/humanoid/trajectory_test.go
package humanoid

import (
	"context"
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pathRecorder implements input.Injector, recording pointer positions.
type pathRecorder struct {
	x, y   int
	points []Vector2D
}

func (p *pathRecorder) Move(ctx context.Context, x, y int) error {
	p.x, p.y = x, y
	p.points = append(p.points, Vector2D{X: float64(x), Y: float64(y)})
	return nil
}

func (p *pathRecorder) Click(ctx context.Context, double bool) error                  { return nil }
func (p *pathRecorder) TypeText(ctx context.Context, text string) error               { return nil }
func (p *pathRecorder) KeyTap(ctx context.Context, key string, mods ...string) error  { return nil }
func (p *pathRecorder) Location() (int, int)                                          { return p.x, p.y }
func (p *pathRecorder) ScreenSize() (int, int)                                        { return 1920, 1080 }
func (p *pathRecorder) ActiveWindowTitle() (string, error)                            { return "", nil }
func (p *pathRecorder) CaptureScreen() (image.Image, error)                           { return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil }

func fastConfig() MoverConfig {
	cfg := DefaultMoverConfig()
	// Collapse the time budget so trajectory tests stay fast.
	cfg.FittsA = 1
	cfg.FittsB = 1
	return cfg
}

func TestEaseInOutCubicBounds(t *testing.T) {
	assert.InDelta(t, 0.0, computeEaseInOutCubic(0), 1e-9)
	assert.InDelta(t, 0.5, computeEaseInOutCubic(0.5), 1e-9)
	assert.InDelta(t, 1.0, computeEaseInOutCubic(1), 1e-9)

	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := computeEaseInOutCubic(float64(i) / 100.0)
		assert.GreaterOrEqual(t, v, prev, "easing must be monotonic")
		prev = v
	}
}

func TestFittsDurationGrowsWithDistance(t *testing.T) {
	m := NewMover(&pathRecorder{}, DefaultMoverConfig(), 1, zap.NewNop())

	short := m.fittsDuration(50)
	long := m.fittsDuration(1500)
	assert.Positive(t, short)
	assert.Greater(t, long, short, "longer travel must take longer")
}

func TestFittsDurationFloor(t *testing.T) {
	cfg := DefaultMoverConfig()
	cfg.MinDuration = 2 * time.Second
	m := NewMover(&pathRecorder{}, cfg, 1, zap.NewNop())

	assert.GreaterOrEqual(t, m.fittsDuration(1), cfg.MinDuration)
	assert.GreaterOrEqual(t, m.fittsDuration(500), cfg.MinDuration)
}

func TestGenerateIdealPathEndpoints(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := Vector2D{X: 100, Y: 100}
	end := Vector2D{X: 900, Y: 500}

	path := generateIdealPath(start, end, rng, 50)
	require.Len(t, path, 50)
	assert.InDelta(t, start.X, path[0].X, 1e-6)
	assert.InDelta(t, start.Y, path[0].Y, 1e-6)
	assert.InDelta(t, end.X, path[len(path)-1].X, 1e-6)
	assert.InDelta(t, end.Y, path[len(path)-1].Y, 1e-6)

	// Intermediate points stay in the neighborhood of the straight line.
	for _, p := range path {
		assert.Less(t, p.Dist(start)+p.Dist(end), start.Dist(end)*1.5)
	}
}

func TestGenerateIdealPathDegenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	end := Vector2D{X: 10, Y: 10}

	path := generateIdealPath(Vector2D{X: 10, Y: 10}, end, rng, 20)
	require.Len(t, path, 1)
	assert.Equal(t, end, path[0])
}

func TestMoveToLandsOnTarget(t *testing.T) {
	rec := &pathRecorder{x: 300, y: 300}
	m := NewMover(rec, fastConfig(), 7, zap.NewNop())

	require.NoError(t, m.MoveTo(context.Background(), 800, 450))

	x, y := rec.Location()
	assert.Equal(t, 800, x, "final step must land exactly on the target")
	assert.Equal(t, 450, y)
	assert.GreaterOrEqual(t, len(rec.points), 2, "movement is stepped, not a jump")
}

func TestMoveToReproducibleWithSeed(t *testing.T) {
	run := func() []Vector2D {
		rec := &pathRecorder{x: 100, y: 100}
		m := NewMover(rec, fastConfig(), 1234, zap.NewNop())
		require.NoError(t, m.MoveTo(context.Background(), 500, 400))
		return rec.points
	}

	assert.Equal(t, run(), run(), "same seed must replay the same path")
}

func TestMoveToRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &pathRecorder{x: 0, y: 0}
	m := NewMover(rec, DefaultMoverConfig(), 1, zap.NewNop())

	err := m.MoveTo(ctx, 1000, 1000)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVectorOps(t *testing.T) {
	v := Vector2D{X: 3, Y: 4}
	assert.InDelta(t, 5.0, v.Mag(), 1e-9)
	assert.InDelta(t, 1.0, v.Normalize().Mag(), 1e-9)
	assert.Equal(t, Vector2D{X: -4, Y: 3}, v.Perp())
	assert.Equal(t, Vector2D{X: 6, Y: 8}, v.Mul(2))
	assert.InDelta(t, 5.0, Vector2D{}.Dist(v), 1e-9)
	assert.Equal(t, Vector2D{}, Vector2D{}.Normalize())
}
