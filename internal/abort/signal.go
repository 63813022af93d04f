// File: internal/abort/signal.go
package abort

import (
	"context"
	"sync"
)

// Signal is the session-scoped emergency stop. It is raised at most once and
// stays set for the remainder of the session; a fresh session gets a fresh
// Signal rather than resetting this one.
type Signal struct {
	once sync.Once
	done chan struct{}
}

// NewSignal creates an unraised signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Raise sets the signal. Raising an already-raised signal is a no-op.
func (s *Signal) Raise() {
	s.once.Do(func() { close(s.done) })
}

// Raised reports whether the signal has been set.
func (s *Signal) Raised() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is raised, for use in select
// statements at suspension points.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Context derives a context that is cancelled as soon as the signal is
// raised. The returned cancel func must be called when the session ends.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
