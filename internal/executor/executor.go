// File: internal/executor/executor.go
// Description: Runs a task's action sequence against the live desktop. Every
// injected event is irreversible, so each action runs at most once: ambiguous
// failures surface as errors instead of being silently re-tried.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/abort"
	"github.com/mlaterman/clickpilot/internal/config"
	"github.com/mlaterman/clickpilot/internal/input"
	"github.com/mlaterman/clickpilot/internal/resolve"
)

var (
	// ErrFocusTimeout means the expected window did not become foreground in time.
	ErrFocusTimeout = errors.New("window did not gain focus in time")

	// ErrInputInjection means an OS input call reported failure, e.g. the
	// target window closed mid-sequence.
	ErrInputInjection = errors.New("input injection failed")
)

// Mover abstracts pointer movement so the humanoid trajectory model can be
// swapped for a direct jump in tests or via configuration.
type Mover interface {
	MoveTo(ctx context.Context, x, y int) error
}

// directMover jumps the pointer straight to the target.
type directMover struct {
	injector input.Injector
}

func (d directMover) MoveTo(ctx context.Context, x, y int) error {
	return d.injector.Move(ctx, x, y)
}

// NewDirectMover returns a Mover without trajectory simulation.
func NewDirectMover(injector input.Injector) Mover {
	return directMover{injector: injector}
}

// Executor walks an action sequence, one action at a time, checking the abort
// signal and the pointer failsafe before every step.
type Executor struct {
	injector input.Injector
	mover    Mover
	cfg      config.ExecutorConfig
	logger   *zap.Logger
}

// New creates an Executor.
func New(injector input.Injector, mover Mover, cfg config.ExecutorConfig, logger *zap.Logger) *Executor {
	return &Executor{
		injector: injector,
		mover:    mover,
		cfg:      cfg,
		logger:   logger.Named("executor"),
	}
}

// Execute runs the sequence against the resolved target. The terminal status
// is Done only when every action reached Done in order; the first failure
// halts the rest, and an abort halts it with a distinct status. Partial
// progress is always reported through Outcome.Steps.
func (e *Executor) Execute(ctx context.Context, target resolve.ResolvedTarget, task TaskDescriptor, sig *abort.Signal) (Outcome, error) {
	outcome := Outcome{Steps: make([]StepResult, 0, len(task.Sequence))}

	for i, action := range task.Sequence {
		if sig.Raised() || ctx.Err() != nil {
			e.logger.Warn("Abort observed, halting sequence",
				zap.Int("completed_steps", i), zap.Int("total_steps", len(task.Sequence)))
			outcome.Status = SequenceAborted
			e.markSkipped(&outcome, task.Sequence[i:])
			return outcome, nil
		}
		if e.failsafeTripped() {
			e.logger.Warn("Failsafe corner reached, halting sequence")
			sig.Raise()
			outcome.Status = SequenceAborted
			e.markSkipped(&outcome, task.Sequence[i:])
			return outcome, nil
		}

		e.logger.Info("Executing action",
			zap.Int("step", i+1),
			zap.Int("of", len(task.Sequence)),
			zap.String("action", action.Describe()),
		)

		err := e.run(ctx, target, action, sig, &outcome)
		if err != nil {
			if isAbortErr(ctx, sig, err) {
				// The action was already running when the abort landed, so
				// it may have injected input. Report it as interrupted, not
				// skipped; only the never-started tail is skipped.
				outcome.Status = SequenceAborted
				outcome.Steps = append(outcome.Steps, StepResult{Action: action, State: StepInterrupted, Err: err})
				e.markSkipped(&outcome, task.Sequence[i+1:])
				return outcome, nil
			}
			outcome.Status = SequenceFailed
			outcome.Steps = append(outcome.Steps, StepResult{Action: action, State: StepFailed, Err: err})
			e.markSkipped(&outcome, task.Sequence[i+1:])
			return outcome, err
		}
		outcome.Steps = append(outcome.Steps, StepResult{Action: action, State: StepDone})
	}

	outcome.Status = SequenceDone
	return outcome, nil
}

// run performs a single action.
func (e *Executor) run(ctx context.Context, target resolve.ResolvedTarget, action Action, sig *abort.Signal, outcome *Outcome) error {
	switch action.Kind {
	case ActionMove:
		return e.mover.MoveTo(ctx, target.ScreenX, target.ScreenY)

	case ActionClick:
		if err := e.injector.Click(ctx, action.Double); err != nil {
			return fmt.Errorf("%w: %v", ErrInputInjection, err)
		}
		// Give the OS a moment to react before the next action.
		return sleep(ctx, e.cfg.SettleDelay)

	case ActionWaitForFocus:
		return e.waitForFocus(ctx, action, sig)

	case ActionTypeText:
		if err := e.injector.TypeText(ctx, action.Text); err != nil {
			return fmt.Errorf("%w: %v", ErrInputInjection, err)
		}
		return nil

	case ActionSaveAs:
		return e.saveAs(ctx, action, sig, outcome)

	case ActionDelay:
		return sleep(ctx, action.Duration)

	case ActionKeyChord:
		if err := e.injector.KeyTap(ctx, action.Key, action.Modifiers...); err != nil {
			return fmt.Errorf("%w: %v", ErrInputInjection, err)
		}
		return sleep(ctx, e.cfg.SettleDelay)

	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

// waitForFocus polls the foreground window title until it contains the
// expected substring or the timeout elapses. The poll interval bounds how
// long an abort can go unobserved here.
func (e *Executor) waitForFocus(ctx context.Context, action Action, sig *abort.Signal) error {
	timeout := action.Timeout
	if timeout <= 0 {
		timeout = e.cfg.FocusTimeout
	}
	deadline := time.Now().Add(timeout)
	want := strings.ToLower(action.TitleSubstring)

	for {
		title, err := e.injector.ActiveWindowTitle()
		if err == nil && strings.Contains(strings.ToLower(title), want) {
			e.logger.Debug("Focus acquired", zap.String("title", title))
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %q after %s", ErrFocusTimeout, action.TitleSubstring, timeout)
		}

		select {
		case <-time.After(e.cfg.FocusPoll):
		case <-sig.Done():
			return context.Canceled
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// saveAs drives the save dialog: open it, address it by typing the full path,
// confirm, accept an overwrite prompt, then verify the file landed with the
// expected content.
func (e *Executor) saveAs(ctx context.Context, action Action, sig *abort.Signal, outcome *Outcome) error {
	chords := []struct {
		key  string
		mods []string
		wait time.Duration
	}{
		{"s", []string{"ctrl"}, 800 * time.Millisecond},
		{"a", []string{"ctrl"}, 100 * time.Millisecond},
	}
	for _, c := range chords {
		if err := e.injector.KeyTap(ctx, c.key, c.mods...); err != nil {
			return fmt.Errorf("%w: %v", ErrInputInjection, err)
		}
		if err := sleep(ctx, c.wait); err != nil {
			return err
		}
	}

	if err := e.injector.TypeText(ctx, action.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrInputInjection, err)
	}
	if err := sleep(ctx, 250*time.Millisecond); err != nil {
		return err
	}

	if err := e.injector.KeyTap(ctx, "enter"); err != nil {
		return fmt.Errorf("%w: %v", ErrInputInjection, err)
	}
	if err := sleep(ctx, 400*time.Millisecond); err != nil {
		return err
	}

	// Accept the overwrite prompt if one appeared; harmless otherwise.
	if err := e.injector.KeyTap(ctx, "y", "alt"); err != nil {
		return fmt.Errorf("%w: %v", ErrInputInjection, err)
	}

	if action.ExpectedContent != "" {
		if err := e.verifySaved(ctx, action.Path, action.ExpectedContent, sig); err != nil {
			return err
		}
	}
	outcome.SavedFiles = append(outcome.SavedFiles, action.Path)
	return nil
}

// failsafeTripped re-checks the corner gesture immediately before an
// injection, closing the window between the abort monitor's poll ticks.
func (e *Executor) failsafeTripped() bool {
	x, y := e.injector.Location()
	w, h := e.injector.ScreenSize()
	atX := x <= 0 || x >= w-1
	atY := y <= 0 || y >= h-1
	return atX && atY
}

// markSkipped records the never-started tail of the sequence.
func (e *Executor) markSkipped(outcome *Outcome, rest []Action) {
	for _, a := range rest {
		outcome.Steps = append(outcome.Steps, StepResult{Action: a, State: StepSkipped})
	}
}

// isAbortErr distinguishes user-initiated cancellation from real failures.
func isAbortErr(ctx context.Context, sig *abort.Signal, err error) bool {
	if sig.Raised() {
		return true
	}
	return errors.Is(err, context.Canceled) && ctx.Err() != nil
}

// sleep is a context-aware time.Sleep.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
