// File: internal/abort/hotkey.go
package abort

import (
	hook "github.com/robotn/gohook"
)

// HookListener is the production Listener backed by a global OS keyboard
// hook, so the emergency combination is observed no matter which window has
// focus. Only one HookListener may be active per process.
type HookListener struct {
	events chan hook.Event
}

// NewHookListener creates an inactive listener.
func NewHookListener() *HookListener {
	return &HookListener{}
}

// Start implements Listener. The keys slice follows gohook's combo form, the
// main key first followed by modifiers (e.g. ["q", "ctrl", "shift"]).
func (l *HookListener) Start(keys []string) (<-chan struct{}, error) {
	presses := make(chan struct{}, 1)

	hook.Register(hook.KeyDown, keys, func(hook.Event) {
		select {
		case presses <- struct{}{}:
		default: // A press is already pending; dropping is fine.
		}
	})

	l.events = hook.Start()
	go func() {
		<-hook.Process(l.events)
		close(presses)
	}()
	return presses, nil
}

// Stop implements Listener and tears down the global hook.
func (l *HookListener) Stop() {
	hook.End()
}
