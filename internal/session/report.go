// File: internal/session/report.go
package session

import (
	"errors"
	"time"

	"github.com/mlaterman/clickpilot/internal/detector"
	"github.com/mlaterman/clickpilot/internal/resolve"
)

// Status enumerates the controller's states. A session moves strictly forward
// through the pipeline states and ends in exactly one terminal state.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusCapturing            Status = "capturing"
	StatusDetecting            Status = "detecting"
	StatusResolving            Status = "resolving"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusExecuting            Status = "executing"
	StatusSucceeded            Status = "succeeded"
	StatusFailed               Status = "failed"
	StatusAborted              Status = "aborted"
)

// Terminal reports whether s is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// Report is the terminal record of one session. The session itself is
// discarded after the report is emitted; nothing persists across runs.
type Report struct {
	SessionID   string
	AppName     string
	Status      Status
	Target      *resolve.ResolvedTarget
	Err         error
	Elapsed     time.Duration
	PreviewPath string
	SavedFiles  []string
}

// Exit codes for the command surface.
const (
	ExitSucceeded   = 0
	ExitFailed      = 1
	ExitAborted     = 2
	ExitUnreachable = 3
)

// ExitCode maps the terminal state onto the process exit status, keeping the
// preflight "service unreachable" failure distinguishable from a normal one.
func (r Report) ExitCode() int {
	switch r.Status {
	case StatusSucceeded:
		return ExitSucceeded
	case StatusAborted:
		return ExitAborted
	default:
		if errors.Is(r.Err, detector.ErrUnreachable) {
			return ExitUnreachable
		}
		return ExitFailed
	}
}
