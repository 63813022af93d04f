// File: internal/session/controller_test.go
package session

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/abort"
	"github.com/mlaterman/clickpilot/internal/config"
	"github.com/mlaterman/clickpilot/internal/content"
	"github.com/mlaterman/clickpilot/internal/detector"
	"github.com/mlaterman/clickpilot/internal/executor"
	"github.com/mlaterman/clickpilot/internal/resolve"
)

// --- Stub collaborators ---

type stubDetector struct {
	healthErr   error
	result      detector.DetectionResult
	detectErr   error
	mu          sync.Mutex
	detectCalls int
}

func (s *stubDetector) Health(ctx context.Context) error { return s.healthErr }

func (s *stubDetector) Detect(ctx context.Context, req detector.DetectionRequest) (detector.DetectionResult, error) {
	s.mu.Lock()
	s.detectCalls++
	s.mu.Unlock()
	if s.detectErr != nil {
		return detector.DetectionResult{}, s.detectErr
	}
	return s.result, nil
}

type fakeCapturer struct {
	img image.Image
	// waitFor blocks Capture until the channel closes, to pin down ordering
	// against the abort signal in tests.
	waitFor <-chan struct{}
}

func (f *fakeCapturer) Capture(ctx context.Context) (image.Image, error) {
	if f.waitFor != nil {
		select {
		case <-f.waitFor:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.img, nil
}

func (f *fakeCapturer) MinimizeAll(ctx context.Context) error { return nil }

type fakeRunner struct {
	mu       sync.Mutex
	calls    int
	targets  []resolve.ResolvedTarget
	outcome  executor.Outcome
	err      error
	blockSig bool // wait for the abort signal, then report an aborted sequence
}

func (f *fakeRunner) Execute(ctx context.Context, target resolve.ResolvedTarget, task executor.TaskDescriptor, sig *abort.Signal) (executor.Outcome, error) {
	f.mu.Lock()
	f.calls++
	f.targets = append(f.targets, target)
	f.mu.Unlock()

	if f.blockSig {
		select {
		case <-sig.Done():
			return executor.Outcome{Status: executor.SequenceAborted}, nil
		case <-ctx.Done():
			return executor.Outcome{Status: executor.SequenceAborted}, nil
		}
	}
	return f.outcome, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePosts struct {
	posts []content.Post
	err   error
}

func (f *fakePosts) Fetch(ctx context.Context) ([]content.Post, error) { return f.posts, f.err }

type fakeConfirmer struct {
	mu     sync.Mutex
	calls  int
	answer bool
	err    error
}

func (f *fakeConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.answer, f.err
}

func (f *fakeConfirmer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeMonitor optionally raises the signal once, then waits out the session.
type fakeMonitor struct {
	raiseAfter time.Duration
	raise      bool
}

func (f *fakeMonitor) Run(ctx context.Context, sig *abort.Signal) error {
	if f.raise {
		if f.raiseAfter > 0 {
			select {
			case <-time.After(f.raiseAfter):
			case <-ctx.Done():
				return nil
			}
		}
		sig.Raise()
	}
	<-ctx.Done()
	return nil
}

// --- Fixtures ---

func floatPtr(v float64) *float64 { return &v }

func testScreenshot() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1920, 1080))
}

func testConfig(t *testing.T, mode config.SessionMode) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Session = config.SessionConfig{AppName: "Notepad", Mode: mode}
	return cfg
}

type fixture struct {
	det       *stubDetector
	capturer  *fakeCapturer
	runner    *fakeRunner
	posts     *fakePosts
	confirmer *fakeConfirmer
	monitor   *fakeMonitor
	outputDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		det: &stubDetector{result: detector.DetectionResult{
			Found:           true,
			X:               150,
			Y:               200,
			Confidence:      floatPtr(0.87),
			Method:          "visual",
			OCRVerification: detector.OCRMatch,
		}},
		capturer: &fakeCapturer{img: testScreenshot()},
		runner: &fakeRunner{outcome: executor.Outcome{
			Status:     executor.SequenceDone,
			SavedFiles: []string{"post_1.txt"},
		}},
		posts:     &fakePosts{posts: []content.Post{{ID: 1, Title: "hello", Body: "world"}}},
		confirmer: &fakeConfirmer{answer: true},
		monitor:   &fakeMonitor{},
		outputDir: t.TempDir(),
	}
}

func (f *fixture) controller(t *testing.T, cfg *config.Config) *Controller {
	t.Helper()
	logger := zap.NewNop()
	c, err := New(cfg, f.det, resolve.New(cfg.Resolver, logger), f.capturer,
		f.runner, f.posts, f.confirmer, f.monitor, f.outputDir, logger)
	require.NoError(t, err)
	return c
}

// --- Tests ---

func TestRunHappyPathConfirmMode(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	report := f.controller(t, testConfig(t, config.ModeConfirm)).Run(context.Background())

	assert.Equal(t, StatusSucceeded, report.Status)
	assert.True(t, report.Status.Terminal())
	assert.NoError(t, report.Err)
	assert.Equal(t, ExitSucceeded, report.ExitCode())

	require.NotNil(t, report.Target)
	assert.Equal(t, 150, report.Target.ScreenX)
	assert.Equal(t, 200, report.Target.ScreenY)
	assert.InDelta(t, 0.87, report.Target.Confidence, 1e-9)
	assert.True(t, report.Target.Verified)

	assert.Equal(t, 1, f.confirmer.callCount())
	assert.Equal(t, 1, f.runner.callCount())
	assert.Equal(t, []string{"post_1.txt"}, report.SavedFiles)
	assert.Equal(t, filepath.Join(f.outputDir, "detection_preview.png"), report.PreviewPath)
	assert.FileExists(t, report.PreviewPath)
}

func TestRunLowConfidenceFails(t *testing.T) {
	f := newFixture(t)
	f.det.result.Confidence = floatPtr(0.2)

	report := f.controller(t, testConfig(t, config.ModeConfirm)).Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, resolve.ErrLowConfidence)
	assert.Equal(t, ExitFailed, report.ExitCode())
	assert.Equal(t, 0, f.confirmer.callCount(), "no confirmation on a rejected detection")
	assert.Equal(t, 0, f.runner.callCount(), "no input injection on a rejected detection")
}

func TestRunNotFoundFails(t *testing.T) {
	f := newFixture(t)
	f.det.result = detector.DetectionResult{Found: false}

	report := f.controller(t, testConfig(t, config.ModeAuto)).Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, resolve.ErrNotFound)
	assert.Equal(t, 0, f.runner.callCount())
}

func TestRunAbortDuringExecution(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	f.runner.blockSig = true
	f.monitor = &fakeMonitor{raise: true, raiseAfter: 30 * time.Millisecond}

	report := f.controller(t, testConfig(t, config.ModeAuto)).Run(context.Background())

	assert.Equal(t, StatusAborted, report.Status)
	assert.True(t, report.Status.Terminal())
	assert.NoError(t, report.Err, "an aborted run is not an error")
	assert.Equal(t, ExitAborted, report.ExitCode())
	assert.Equal(t, 1, f.runner.callCount())
}

func TestRunAbortBeforeConfirmation(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	// The capture phase finishes only after the abort has already fired, so
	// the next state transition must observe it.
	released := make(chan struct{})
	f.capturer.waitFor = released
	f.monitor = &fakeMonitor{raise: true}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(released)
	}()

	report := f.controller(t, testConfig(t, config.ModeConfirm)).Run(context.Background())

	assert.Equal(t, StatusAborted, report.Status)
	assert.Equal(t, 0, f.confirmer.callCount(), "abort supersedes the confirmation gate")
	assert.Equal(t, 0, f.runner.callCount())
}

func TestRunUserRejectsDetection(t *testing.T) {
	f := newFixture(t)
	f.confirmer.answer = false

	report := f.controller(t, testConfig(t, config.ModeConfirm)).Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "rejected")
	assert.Equal(t, 0, f.runner.callCount())
}

func TestRunAutoModeSkipsConfirmation(t *testing.T) {
	f := newFixture(t)

	report := f.controller(t, testConfig(t, config.ModeAuto)).Run(context.Background())

	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Equal(t, 0, f.confirmer.callCount())
	assert.Equal(t, 1, f.runner.callCount())
}

func TestRunPreflightUnreachable(t *testing.T) {
	f := newFixture(t)
	f.det.healthErr = fmt.Errorf("%w: connection refused", detector.ErrUnreachable)

	report := f.controller(t, testConfig(t, config.ModeConfirm)).Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, detector.ErrUnreachable)
	assert.Equal(t, ExitUnreachable, report.ExitCode())
	assert.Equal(t, 0, f.det.detectCalls, "no detection without a healthy service")
	assert.Equal(t, 0, f.runner.callCount())
}

func TestRunDetectorFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.det.detectErr = fmt.Errorf("%w: retries exhausted", detector.ErrUnavailable)

	report := f.controller(t, testConfig(t, config.ModeAuto)).Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, detector.ErrUnavailable)
	assert.Equal(t, ExitFailed, report.ExitCode())
}

func TestRunOneTaskPerPost(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = []content.Post{
		{ID: 1, Title: "a", Body: "x"},
		{ID: 2, Title: "b", Body: "y"},
		{ID: 3, Title: "c", Body: "z"},
	}

	report := f.controller(t, testConfig(t, config.ModeAuto)).Run(context.Background())

	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Equal(t, 3, f.runner.callCount())
	assert.Len(t, report.SavedFiles, 3)
}

func TestRunNoPostsFails(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = nil

	report := f.controller(t, testConfig(t, config.ModeAuto)).Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "no content")
}

func TestRunFailedSequenceFailsSession(t *testing.T) {
	f := newFixture(t)
	f.runner.outcome = executor.Outcome{Status: executor.SequenceFailed}
	f.runner.err = fmt.Errorf("%w: focus lost", executor.ErrFocusTimeout)

	report := f.controller(t, testConfig(t, config.ModeAuto)).Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, executor.ErrFocusTimeout)
	assert.Equal(t, ExitFailed, report.ExitCode())
}

func TestReportSessionIDUnique(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t, testConfig(t, config.ModeAuto))

	a := c.Run(context.Background())
	b := c.Run(context.Background())
	assert.NotEmpty(t, a.SessionID)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusSucceeded, StatusFailed, StatusAborted} {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []Status{
		StatusIdle, StatusCapturing, StatusDetecting,
		StatusResolving, StatusAwaitingConfirmation, StatusExecuting,
	} {
		assert.False(t, s.Terminal(), string(s))
	}
}

func TestNewRejectsNilDependencies(t *testing.T) {
	f := newFixture(t)
	logger := zap.NewNop()
	cfg := testConfig(t, config.ModeAuto)

	_, err := New(cfg, nil, resolve.New(cfg.Resolver, logger), f.capturer,
		f.runner, f.posts, f.confirmer, f.monitor, f.outputDir, logger)
	assert.Error(t, err)
}
