// File: internal/abort/monitor.go
package abort

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mlaterman/clickpilot/internal/config"
)

// Listener delivers a notification each time the emergency key combination is
// pressed, regardless of which window has focus. The production
// implementation wraps the global keyboard hook; tests inject their own.
type Listener interface {
	Start(keys []string) (<-chan struct{}, error)
	Stop()
}

// PointerSource reports pointer position and screen geometry for the corner
// failsafe. The production implementation is the OS input layer; a nil source
// disables the failsafe poll.
type PointerSource interface {
	Location() (x, y int)
	ScreenSize() (width, height int)
}

// Monitor watches the emergency hotkey for the lifetime of one session and
// raises the session's Signal when it fires. When given a PointerSource it
// also polls for the corner failsafe gesture, bounding how long either
// trigger can go unobserved by the configured poll interval.
type Monitor struct {
	listener Listener
	pointer  PointerSource
	keys     []string
	poll     time.Duration
	logger   *zap.Logger
}

// NewMonitor builds a Monitor from configuration.
func NewMonitor(cfg config.AbortConfig, listener Listener, pointer PointerSource, logger *zap.Logger) *Monitor {
	return &Monitor{
		listener: listener,
		pointer:  pointer,
		keys:     cfg.Hotkey,
		poll:     cfg.PollInterval,
		logger:   logger.Named("abort"),
	}
}

// Run blocks until the context ends, raising sig on the first hotkey press or
// failsafe corner hit. The signal is raised at most once; later triggers are
// ignored. Run keeps the listener installed until the session is over so the
// hotkey stays bound.
func (m *Monitor) Run(ctx context.Context, sig *Signal) error {
	presses, err := m.listener.Start(m.keys)
	if err != nil {
		return fmt.Errorf("failed to install emergency hotkey: %w", err)
	}
	defer m.listener.Stop()

	var tick <-chan time.Time
	if m.pointer != nil {
		ticker := time.NewTicker(m.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	m.logger.Info("Emergency stop armed",
		zap.Strings("hotkey", m.keys), zap.Duration("poll_interval", m.poll))

	for {
		select {
		case _, ok := <-presses:
			if !ok {
				return nil
			}
			if !sig.Raised() {
				m.logger.Warn("Emergency stop triggered")
				sig.Raise()
			}
		case <-tick:
			if cornerTripped(m.pointer) && !sig.Raised() {
				m.logger.Warn("Failsafe corner reached")
				sig.Raise()
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// cornerTripped reports whether the pointer sits in a screen corner, the
// conventional manual kill gesture for runaway automation.
func cornerTripped(src PointerSource) bool {
	x, y := src.Location()
	w, h := src.ScreenSize()
	atX := x <= 0 || x >= w-1
	atY := y <= 0 || y >= h-1
	return atX && atY
}
