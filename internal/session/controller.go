// File: internal/session/controller.go
// Description: Owns one automation cycle: capture, detect, resolve, confirm,
// execute, report. The session state is mutated only here and discarded when
// the run ends; the abort monitor runs alongside for the whole lifetime.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mlaterman/clickpilot/internal/abort"
	"github.com/mlaterman/clickpilot/internal/config"
	"github.com/mlaterman/clickpilot/internal/content"
	"github.com/mlaterman/clickpilot/internal/detector"
	"github.com/mlaterman/clickpilot/internal/executor"
	"github.com/mlaterman/clickpilot/internal/resolve"
	"github.com/mlaterman/clickpilot/internal/screen"
)

// Capturer produces the screenshot a cycle works on.
type Capturer interface {
	Capture(ctx context.Context) (image.Image, error)
	MinimizeAll(ctx context.Context) error
}

// SequenceRunner executes one task's action sequence.
type SequenceRunner interface {
	Execute(ctx context.Context, target resolve.ResolvedTarget, task executor.TaskDescriptor, sig *abort.Signal) (executor.Outcome, error)
}

// PostSource supplies the content to save.
type PostSource interface {
	Fetch(ctx context.Context) ([]content.Post, error)
}

// AbortRunner watches the emergency hotkey for the session's lifetime.
type AbortRunner interface {
	Run(ctx context.Context, sig *abort.Signal) error
}

// Controller orchestrates the detect-confirm-act cycle.
type Controller struct {
	cfg       *config.Config
	detector  detector.Client
	resolver  *resolve.Resolver
	capturer  Capturer
	runner    SequenceRunner
	posts     PostSource
	confirmer Confirmer
	monitor   AbortRunner
	outputDir string
	logger    *zap.Logger
}

// New wires a Controller from its collaborators.
func New(
	cfg *config.Config,
	det detector.Client,
	resolver *resolve.Resolver,
	capturer Capturer,
	runner SequenceRunner,
	posts PostSource,
	confirmer Confirmer,
	monitor AbortRunner,
	outputDir string,
	logger *zap.Logger,
) (*Controller, error) {
	if cfg == nil || det == nil || resolver == nil || capturer == nil ||
		runner == nil || posts == nil || confirmer == nil || monitor == nil {
		return nil, fmt.Errorf("cannot initialize controller with nil dependencies")
	}
	return &Controller{
		cfg:       cfg,
		detector:  det,
		resolver:  resolver,
		capturer:  capturer,
		runner:    runner,
		posts:     posts,
		confirmer: confirmer,
		monitor:   monitor,
		outputDir: outputDir,
		logger:    logger.Named("session"),
	}, nil
}

// Run executes one full session and always returns a terminal report. Only
// the health preflight runs before the abort monitor is armed; everything
// after can be interrupted by the emergency hotkey.
func (c *Controller) Run(parent context.Context) Report {
	start := time.Now()
	report := Report{
		SessionID: uuid.New().String(),
		AppName:   c.cfg.Session.AppName,
		Status:    StatusIdle,
	}

	c.logger.Info("Session starting",
		zap.String("session_id", report.SessionID),
		zap.String("app", report.AppName),
		zap.String("mode", string(c.cfg.Session.Mode)),
	)

	if err := c.detector.Health(parent); err != nil {
		report.Status = StatusFailed
		report.Err = err
		report.Elapsed = time.Since(start)
		c.emit(&report)
		return report
	}

	sig := abort.NewSignal()
	ctx, cancel := sig.Context(parent)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.monitor.Run(gctx, sig)
	})
	g.Go(func() error {
		defer cancel() // Pipeline finished; release the monitor.
		c.pipeline(gctx, sig, &report)
		return nil
	})
	_ = g.Wait()

	report.Elapsed = time.Since(start)
	c.emit(&report)
	return report
}

// pipeline walks the forward states. Any abort observed between phases
// supersedes whatever the phase produced.
func (c *Controller) pipeline(ctx context.Context, sig *abort.Signal, report *Report) {
	// -- Capturing --
	if !c.transition(report, StatusCapturing, sig) {
		return
	}
	screenshot, err := c.acquireScreenshot(ctx)
	if err != nil {
		c.conclude(report, sig, err)
		return
	}
	bounds := resolve.Bounds{
		Width:  screenshot.Bounds().Dx(),
		Height: screenshot.Bounds().Dy(),
	}

	// -- Detecting --
	if !c.transition(report, StatusDetecting, sig) {
		return
	}
	encoded, err := screen.EncodePNG(screenshot)
	if err != nil {
		c.conclude(report, sig, err)
		return
	}
	result, err := c.detector.Detect(ctx, detector.DetectionRequest{
		Image: encoded,
		Description: fmt.Sprintf(
			"Locate the %s application icon from this desktop screenshot and return the center coordinates as (x, y)",
			c.cfg.Session.AppName),
		Context:    "desktop icon localization",
		Iterations: c.cfg.Detector.Iterations,
	})
	if err != nil {
		c.conclude(report, sig, err)
		return
	}

	// -- Resolving --
	if !c.transition(report, StatusResolving, sig) {
		return
	}
	target, err := c.resolver.Resolve(result, bounds)
	if err != nil {
		// Resolution errors are expected negative outcomes; no automatic
		// re-detection, a fresh run is required.
		c.conclude(report, sig, err)
		return
	}
	report.Target = &target

	previewPath, err := c.writePreview(screenshot, target)
	if err != nil {
		c.logger.Warn("Failed to write preview image", zap.Error(err))
	} else {
		report.PreviewPath = previewPath
	}

	// -- AwaitingConfirmation (Confirm mode only) --
	if c.cfg.Session.Mode == config.ModeConfirm {
		if !c.transition(report, StatusAwaitingConfirmation, sig) {
			return
		}
		ok, err := c.confirmer.Confirm(ctx, c.confirmPrompt(target, previewPath))
		if err != nil {
			c.conclude(report, sig, err)
			return
		}
		if !ok {
			c.conclude(report, sig, fmt.Errorf("user rejected the detection"))
			return
		}
	}

	// -- Executing --
	if !c.transition(report, StatusExecuting, sig) {
		return
	}
	if err := c.execute(ctx, sig, target, report); err != nil {
		c.conclude(report, sig, err)
		return
	}

	c.conclude(report, sig, nil)
}

// acquireScreenshot loads the static override when configured, otherwise
// performs a staged live capture.
func (c *Controller) acquireScreenshot(ctx context.Context) (image.Image, error) {
	if path := c.cfg.Session.ScreenshotPath; path != "" {
		c.logger.Info("Loading static screenshot", zap.String("path", path))
		return screen.LoadFile(path)
	}
	return c.capturer.Capture(ctx)
}

// execute fetches the content and drives one task per post against the
// resolved target. The first failed sequence fails the session; an aborted
// sequence aborts it.
func (c *Controller) execute(ctx context.Context, sig *abort.Signal, target resolve.ResolvedTarget, report *Report) error {
	posts, err := c.posts.Fetch(ctx)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return fmt.Errorf("no content available to save")
	}

	for _, post := range posts {
		if sig.Raised() || ctx.Err() != nil {
			return context.Canceled
		}

		c.logger.Info("Processing post", zap.Int("post_id", post.ID))
		if err := c.capturer.MinimizeAll(ctx); err != nil {
			return err
		}

		task := buildSaveTask(c.cfg, c.cfg.Session.AppName, post, c.outputDir)
		outcome, err := c.runner.Execute(ctx, target, task, sig)
		report.SavedFiles = append(report.SavedFiles, outcome.SavedFiles...)
		if outcome.Status == executor.SequenceAborted {
			return context.Canceled
		}
		if err != nil {
			return fmt.Errorf("task for post %d failed after %d steps: %w",
				post.ID, doneSteps(outcome), err)
		}
	}
	return nil
}

// transition advances the session state, unless the abort signal supersedes it.
func (c *Controller) transition(report *Report, next Status, sig *abort.Signal) bool {
	if sig.Raised() {
		report.Status = StatusAborted
		return false
	}
	c.logger.Debug("Session state change",
		zap.String("from", string(report.Status)),
		zap.String("to", string(next)),
	)
	report.Status = next
	return true
}

// conclude fixes the terminal state. An abort always wins over whatever
// result was in flight.
func (c *Controller) conclude(report *Report, sig *abort.Signal, err error) {
	switch {
	case sig.Raised() || errors.Is(err, context.Canceled):
		report.Status = StatusAborted
		report.Err = nil
	case err != nil:
		report.Status = StatusFailed
		report.Err = err
	default:
		report.Status = StatusSucceeded
	}
}

// writePreview renders and stores the annotated screenshot once per session.
func (c *Controller) writePreview(screenshot image.Image, target resolve.ResolvedTarget) (string, error) {
	preview := screen.RenderPreview(screenshot, target.ScreenX, target.ScreenY,
		fmt.Sprintf("%s icon", c.cfg.Session.AppName))
	return screen.WritePreview(c.outputDir, c.cfg.Output.PreviewName, preview)
}

// confirmPrompt summarizes what was detected so a human can judge it.
func (c *Controller) confirmPrompt(target resolve.ResolvedTarget, previewPath string) string {
	prompt := fmt.Sprintf(
		"Detected %s icon at (%d, %d), confidence %.2f, verified=%t.",
		c.cfg.Session.AppName, target.ScreenX, target.ScreenY, target.Confidence, target.Verified)
	if previewPath != "" {
		prompt += fmt.Sprintf(" Preview: %s.", previewPath)
	}
	return prompt + " Continue?"
}

// emit logs the terminal report.
func (c *Controller) emit(report *Report) {
	fields := []zap.Field{
		zap.String("session_id", report.SessionID),
		zap.String("status", string(report.Status)),
		zap.Duration("elapsed", report.Elapsed),
	}
	if report.Target != nil {
		fields = append(fields,
			zap.Int("x", report.Target.ScreenX),
			zap.Int("y", report.Target.ScreenY),
			zap.Float64("confidence", report.Target.Confidence),
			zap.Bool("verified", report.Target.Verified),
		)
	}
	if report.PreviewPath != "" {
		fields = append(fields, zap.String("preview", report.PreviewPath))
	}
	if len(report.SavedFiles) > 0 {
		fields = append(fields, zap.Strings("saved_files", report.SavedFiles))
	}
	if report.Err != nil {
		fields = append(fields, zap.Error(report.Err))
	}

	switch report.Status {
	case StatusSucceeded:
		c.logger.Info("Session succeeded", fields...)
	case StatusAborted:
		c.logger.Warn("Session aborted by emergency stop", fields...)
	default:
		c.logger.Error("Session failed", fields...)
	}
}

// doneSteps counts actions that completed.
func doneSteps(outcome executor.Outcome) int {
	n := 0
	for _, s := range outcome.Steps {
		if s.State == executor.StepDone {
			n++
		}
	}
	return n
}
