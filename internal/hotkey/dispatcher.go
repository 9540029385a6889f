// Package hotkey turns global hotkey presses into mode changes and display
// commands. It never touches the window itself.
package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/screenlingo/internal/command"
	"github.com/GriffinCanCode/screenlingo/internal/mode"
	"github.com/GriffinCanCode/screenlingo/internal/shutdown"
)

// DefaultDebounceWindow separates a single toggle press from a double press.
const DefaultDebounceWindow = 500 * time.Millisecond

// Action identifies which chord fired.
type Action int

const (
	Toggle Action = iota
	Shutdown
)

func (a Action) String() string {
	return [...]string{"toggle", "shutdown"}[a]
}

// Listener delivers chord presses until closed.
type Listener interface {
	Events() <-chan Action
	Close() error
}

// Mode selects how the toggle chord behaves.
type Mode int

const (
	// Debounced: a single press toggles auto-refresh once the window passes,
	// a double press toggles overlay visibility immediately.
	Debounced Mode = iota
	// Simple: every press toggles visibility, auto-refresh follows.
	Simple
)

func (m Mode) String() string {
	return [...]string{"debounced", "simple"}[m]
}

// ParseMode parses a HOTKEY_MODE value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debounced", "":
		return Debounced, nil
	case "simple":
		return Simple, nil
	}
	return Debounced, fmt.Errorf("unknown hotkey mode %q", s)
}

// Dispatcher drains a Listener.
type Dispatcher struct {
	listener Listener
	mode     *mode.State
	sink     command.Sink
	coord    *shutdown.Coordinator
	kind     Mode
	debounce *debouncer
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(l Listener, m *mode.State, sink command.Sink, coord *shutdown.Coordinator, kind Mode, window time.Duration) *Dispatcher {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	d := &Dispatcher{
		listener: l,
		mode:     m,
		sink:     sink,
		coord:    coord,
		kind:     kind,
		log:      slog.Default().With("component", "hotkey"),
	}
	d.debounce = newDebouncer(window, d.toggleAutoRefresh)
	return d
}

// Run handles presses until the shutdown chord, ctx end, or the listener
// closing its channel. The listener is closed on return.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("hotkey dispatcher started", "mode", d.kind)
	defer func() {
		d.debounce.stop()
		if err := d.listener.Close(); err != nil {
			d.log.Warn("unregister hotkeys", "error", err)
		}
		d.log.Info("hotkey dispatcher stopped")
	}()

	events := d.listener.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-events:
			if !ok {
				return
			}
			switch a {
			case Shutdown:
				d.log.Info("shutdown hotkey pressed")
				d.coord.Initiate("shutdown hotkey")
				return
			case Toggle:
				d.handleToggle()
			}
		}
	}
}

func (d *Dispatcher) handleToggle() {
	switch d.kind {
	case Simple:
		visible := d.mode.ToggleOverlay()
		d.mode.SetAutoRefresh(visible)
		d.log.Info("overlay toggled", "visible", visible)
		d.emitVisibility(visible)
	case Debounced:
		if d.debounce.press() {
			d.toggleOverlay()
		}
	}
}

// toggleAutoRefresh is action A, run when a single press is not followed
// by a second one.
func (d *Dispatcher) toggleAutoRefresh() {
	if d.coord.Signal().IsSet() {
		return
	}
	enabled := d.mode.ToggleAutoRefresh()
	d.log.Info("auto-refresh toggled", "enabled", enabled)
}

// toggleOverlay is action B, run immediately on a double press.
func (d *Dispatcher) toggleOverlay() {
	visible := d.mode.ToggleOverlay()
	d.log.Info("overlay toggled", "visible", visible)
	d.emitVisibility(visible)
}

func (d *Dispatcher) emitVisibility(visible bool) {
	if visible {
		d.sink.Send(command.ShowLast())
		return
	}
	d.sink.Send(command.HideOverlay())
}

// debouncer is a cancellable one-shot timer. Each instance owns its state.
type debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	cur      *pendingPress
	onSingle func()
}

type pendingPress struct {
	timer     *time.Timer
	cancelled bool
}

func newDebouncer(window time.Duration, onSingle func()) *debouncer {
	return &debouncer{window: window, onSingle: onSingle}
}

// press arms the timer, or cancels it and reports true when a press is
// still inside its window. A press whose timer already fired counts as a
// new first press.
func (d *debouncer) press() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cur != nil && d.cur.timer.Stop() {
		d.cur.cancelled = true
		d.cur = nil
		return true
	}

	p := &pendingPress{}
	p.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.cur == p {
			d.cur = nil
		}
		fire := !p.cancelled
		d.mu.Unlock()
		if fire {
			d.onSingle()
		}
	})
	d.cur = p
	return false
}

// pending reports whether a single press is waiting for its window.
func (d *debouncer) pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cur != nil
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur != nil {
		d.cur.cancelled = true
		d.cur.timer.Stop()
		d.cur = nil
	}
}
