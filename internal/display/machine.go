// Package display is the state machine that owns the overlay. It runs on the
// UI loop, is the only writer of visibility and label text, and drives the
// hide, settle, capture, restore sequence without blocking the loop.
package display

import (
	"log/slog"
	"time"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/command"
	"github.com/GriffinCanCode/screenlingo/internal/shutdown"
	"github.com/GriffinCanCode/screenlingo/internal/syncx"
)

const (
	DefaultSettle = 50 * time.Millisecond
	MaxSettle     = time.Second
	DefaultTick   = 100 * time.Millisecond

	// StartupLabel is shown until the first result arrives.
	StartupLabel = "Запуск..."
)

// State is the overlay state.
type State int

const (
	Hidden State = iota
	Shown
)

func (s State) String() string {
	return [...]string{"hidden", "shown"}[s]
}

// Window is the rendering collaborator. All methods are called on the UI loop.
type Window interface {
	Show()
	Hide()
	SetLabel(text string)
	Close()
	Quit()
}

// Host is a UI backend. It renders the Window and drives a Ticker on its own
// loop; Run blocks until the Ticker terminates.
type Host interface {
	Window
	SetTransparency(alpha float64)
	SelfExcluding() bool
	Run(t Ticker, every time.Duration) error
}

// Capturer is the capture gateway as seen from the UI loop.
type Capturer interface {
	Capture() (*capture.Frame, error)
	NeedsHide(overlayShown bool, overlay capture.Region) bool
}

// Commands is the consuming end of the command queue.
type Commands interface {
	TryNext() (command.Command, bool)
}

// Ticker is what a UI host drives: Tick on every loop iteration until it
// returns false, HandleClose when the window manager closes the window.
type Ticker interface {
	Tick() bool
	HandleClose()
}

// Snapshot is a read-only copy of the machine state.
type Snapshot struct {
	State       State  `json:"-"`
	StateName   string `json:"state"`
	Label       string `json:"label"`
	Visible     bool   `json:"visible"`
	Transitions uint64 `json:"transitions"`
	Captures    uint64 `json:"captures"`
	Coalesced   uint64 `json:"coalesced"`
	Terminated  bool   `json:"terminated"`
	Version     uint64 `json:"version"`
}

// Config holds machine settings.
type Config struct {
	Overlay      capture.Region
	Settle       time.Duration
	InitialLabel string
}

// Deps are the machine's collaborators.
type Deps struct {
	Window      Window
	Capturer    Capturer
	Commands    Commands
	Frames      *syncx.Slot[*capture.Frame]
	Coordinator *shutdown.Coordinator
}

// Machine is the display state machine. Only Snapshot may be called off the
// UI loop.
type Machine struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
	now  func() time.Time

	state       State
	label       string
	settling    bool
	settleUntil time.Time
	terminated  bool
	transitions uint64
	captures    uint64
	coalesced   uint64

	snap *syncx.Published[Snapshot]
}

// New creates a machine in the Hidden state with the initial label set.
func New(cfg Config, deps Deps) *Machine {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Settle > MaxSettle {
		cfg.Settle = MaxSettle
	}
	if cfg.InitialLabel == "" {
		cfg.InitialLabel = StartupLabel
	}
	m := &Machine{
		cfg:   cfg,
		deps:  deps,
		log:   slog.Default().With("component", "display"),
		now:   time.Now,
		label: cfg.InitialLabel,
		snap:  syncx.NewPublished(Snapshot{}),
	}
	deps.Window.SetLabel(m.label)
	m.publish()
	return m
}

// Snapshot returns the last published state. Version grows with every
// publish. Safe from any goroutine.
func (m *Machine) Snapshot() Snapshot {
	s, version := m.snap.Load()
	s.Version = version
	return s
}

// Tick advances the machine by at most one command. It returns false once
// the machine has terminated and the host should stop ticking.
func (m *Machine) Tick() bool {
	if m.terminated {
		return false
	}
	if m.deps.Coordinator.Signal().IsSet() {
		m.terminate("shutdown signalled")
		return false
	}
	if m.settling && !m.now().Before(m.settleUntil) {
		m.finishCapture()
	}

	cmd, ok := m.deps.Commands.TryNext()
	if !ok {
		return true
	}
	m.handle(cmd)
	m.publish()
	return !m.terminated
}

// HandleClose converges a window-manager close onto the Stop sequence.
func (m *Machine) HandleClose() {
	m.terminate("window closed")
}

func (m *Machine) handle(cmd command.Command) {
	switch cmd.Kind {
	case command.RequestCapture:
		m.requestCapture()
	case command.Show:
		if cmd.HasText {
			m.label = cmd.Text
			m.deps.Window.SetLabel(cmd.Text)
		}
		m.setState(Shown)
	case command.Hide:
		m.setState(Hidden)
	case command.ToggleVisibility:
		if m.state == Shown {
			m.setState(Hidden)
		} else {
			m.setState(Shown)
		}
	case command.Stop:
		m.terminate("stop command")
	}
}

func (m *Machine) setState(s State) {
	if s == m.state {
		return
	}
	m.state = s
	m.transitions++
	if m.settling {
		// applied when the capture restores the window
		return
	}
	m.apply()
}

func (m *Machine) apply() {
	switch m.state {
	case Shown:
		m.deps.Window.Show()
	case Hidden:
		m.deps.Window.Hide()
	}
}

func (m *Machine) requestCapture() {
	if m.settling {
		m.coalesced++
		return
	}
	if m.deps.Capturer.NeedsHide(m.state == Shown, m.cfg.Overlay) {
		m.deps.Window.Hide()
		m.settling = true
		m.settleUntil = m.now().Add(m.cfg.Settle)
		return
	}
	m.captureNow()
}

func (m *Machine) finishCapture() {
	m.captureNow()
	m.settling = false
	if m.state == Shown {
		m.deps.Window.Show()
	}
	m.publish()
}

func (m *Machine) captureNow() {
	frame, err := m.deps.Capturer.Capture()
	if err != nil {
		if m.deps.Coordinator.Signal().IsSet() {
			m.deps.Frames.Seal()
			return
		}
		m.log.Warn("capture failed, skipping cycle", "error", err)
		return
	}
	m.captures++
	if err := m.deps.Frames.Put(frame); err != nil {
		m.log.Debug("frame discarded", "seq", frame.Seq, "error", err)
	}
}

func (m *Machine) terminate(reason string) {
	if m.terminated {
		return
	}
	m.terminated = true
	m.deps.Coordinator.MarkClosed(reason)
	m.deps.Frames.Seal()
	m.log.Info("display terminating", "reason", reason)
	m.deps.Window.Close()
	m.deps.Window.Quit()
	m.publish()
}

func (m *Machine) publish() {
	m.snap.Publish(Snapshot{
		State:       m.state,
		StateName:   m.state.String(),
		Label:       m.label,
		Visible:     m.state == Shown && !m.settling && !m.terminated,
		Transitions: m.transitions,
		Captures:    m.captures,
		Coalesced:   m.coalesced,
		Terminated:  m.terminated,
	})
}
