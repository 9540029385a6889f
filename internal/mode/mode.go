// Package mode holds the user-controlled switches shared by the hotkey,
// trigger and worker loops.
package mode

import "sync/atomic"

// State is written by the hotkey dispatcher and read everywhere else.
type State struct {
	autoRefresh    atomic.Bool
	overlayVisible atomic.Bool
}

// New returns a state with auto-refresh on and the overlay visible.
func New() *State {
	s := &State{}
	s.autoRefresh.Store(true)
	s.overlayVisible.Store(true)
	return s
}

// AutoRefresh reports whether periodic capture is enabled.
func (s *State) AutoRefresh() bool { return s.autoRefresh.Load() }

// OverlayVisible reports whether the user wants the overlay shown.
func (s *State) OverlayVisible() bool { return s.overlayVisible.Load() }

// Refreshing reports whether captures should be requested right now.
func (s *State) Refreshing() bool { return s.AutoRefresh() && s.OverlayVisible() }

// SetAutoRefresh sets the auto-refresh switch.
func (s *State) SetAutoRefresh(v bool) { s.autoRefresh.Store(v) }

// SetOverlayVisible sets the visibility switch.
func (s *State) SetOverlayVisible(v bool) { s.overlayVisible.Store(v) }

// ToggleAutoRefresh flips auto-refresh and returns the new value.
func (s *State) ToggleAutoRefresh() bool { return toggle(&s.autoRefresh) }

// ToggleOverlay flips visibility and returns the new value.
func (s *State) ToggleOverlay() bool { return toggle(&s.overlayVisible) }

func toggle(b *atomic.Bool) bool {
	for {
		old := b.Load()
		if b.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
