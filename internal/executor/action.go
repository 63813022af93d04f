// File: internal/executor/action.go
package executor

import (
	"fmt"
	"time"
)

// ActionKind enumerates the physical interaction steps.
type ActionKind string

const (
	ActionMove         ActionKind = "move"
	ActionClick        ActionKind = "click"
	ActionWaitForFocus ActionKind = "wait_for_focus"
	ActionTypeText     ActionKind = "type_text"
	ActionSaveAs       ActionKind = "save_as"
	ActionDelay        ActionKind = "delay"
	ActionKeyChord     ActionKind = "key_chord"
)

// Action is one step of a task's interaction sequence. Exactly the fields for
// its kind are meaningful.
type Action struct {
	Kind ActionKind

	// Click
	Double bool

	// WaitForFocus
	TitleSubstring string
	Timeout        time.Duration

	// TypeText
	Text string

	// SaveAs
	Path            string
	ExpectedContent string

	// Delay
	Duration time.Duration

	// KeyChord
	Key       string
	Modifiers []string
}

// StepState tracks one action through the machine.
type StepState string

const (
	StepPending StepState = "pending"
	StepRunning StepState = "running"
	StepDone    StepState = "done"
	StepFailed  StepState = "failed"
	// StepInterrupted marks an action an abort caught mid-flight. Input may
	// already have been injected; the OS state cannot be assumed unchanged.
	StepInterrupted StepState = "interrupted"
	// StepSkipped marks an action that never started.
	StepSkipped StepState = "skipped"
)

// StepResult reports the terminal state of one action so partial execution is
// visible to the caller.
type StepResult struct {
	Action Action
	State  StepState
	Err    error
}

// SequenceStatus is the terminal state of a whole action sequence.
type SequenceStatus string

const (
	SequenceDone    SequenceStatus = "done"
	SequenceFailed  SequenceStatus = "failed"
	SequenceAborted SequenceStatus = "aborted"
)

// Outcome reports how far a sequence got. SavedFiles lists paths a SaveAs
// action verified on disk.
type Outcome struct {
	Status     SequenceStatus
	Steps      []StepResult
	SavedFiles []string
}

// TaskDescriptor names the target application and the ordered interaction
// sequence to run against it. It is immutable during a cycle.
type TaskDescriptor struct {
	AppName  string
	Sequence []Action
}

// Describe renders a short human-readable form for logs.
func (a Action) Describe() string {
	switch a.Kind {
	case ActionMove:
		return "move to target"
	case ActionClick:
		if a.Double {
			return "double click"
		}
		return "click"
	case ActionWaitForFocus:
		return fmt.Sprintf("wait for %q focus", a.TitleSubstring)
	case ActionTypeText:
		return fmt.Sprintf("type %d chars", len(a.Text))
	case ActionSaveAs:
		return fmt.Sprintf("save as %s", a.Path)
	case ActionDelay:
		return fmt.Sprintf("delay %s", a.Duration)
	case ActionKeyChord:
		return fmt.Sprintf("key chord %s+%v", a.Key, a.Modifiers)
	default:
		return string(a.Kind)
	}
}
