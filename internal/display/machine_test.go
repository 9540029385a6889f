package display

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/command"
	"github.com/GriffinCanCode/screenlingo/internal/shutdown"
	"github.com/GriffinCanCode/screenlingo/internal/syncx"
)

type fakeWindow struct {
	calls   []string
	label   string
	visible bool
	closed  int
	quit    int
}

func (w *fakeWindow) Show() {
	w.calls = append(w.calls, "show")
	w.visible = true
}

func (w *fakeWindow) Hide() {
	w.calls = append(w.calls, "hide")
	w.visible = false
}

func (w *fakeWindow) SetLabel(s string) {
	w.calls = append(w.calls, "label")
	w.label = s
}

func (w *fakeWindow) Close() { w.closed++ }
func (w *fakeWindow) Quit()  { w.quit++ }

type fakeCapturer struct {
	win      *fakeWindow
	hide     bool
	failures int
	onFail   func()
	seq      uint64
	shown    []bool // window visibility at each grab
}

func (c *fakeCapturer) Capture() (*capture.Frame, error) {
	c.shown = append(c.shown, c.win.visible)
	if c.failures > 0 {
		c.failures--
		if c.onFail != nil {
			c.onFail()
		}
		return nil, errors.New("grab failed")
	}
	c.seq++
	return &capture.Frame{Image: image.NewRGBA(image.Rect(0, 0, 4, 4)), Seq: c.seq}, nil
}

func (c *fakeCapturer) NeedsHide(shown bool, _ capture.Region) bool { return shown && c.hide }

type rig struct {
	m      *Machine
	win    *fakeWindow
	cap    *fakeCapturer
	queue  *command.Queue
	frames *syncx.Slot[*capture.Frame]
	coord  *shutdown.Coordinator
	clock  time.Time
}

func newRig(t *testing.T, hide bool) *rig {
	t.Helper()
	r := &rig{
		win:    &fakeWindow{},
		queue:  command.NewQueue(),
		frames: syncx.NewSlot[*capture.Frame](),
		clock:  time.Unix(1_700_000_000, 0),
	}
	r.cap = &fakeCapturer{win: r.win, hide: hide}
	r.coord = shutdown.NewCoordinator(shutdown.NewSignal(context.Background()), r.queue)
	r.m = New(Config{Settle: 50 * time.Millisecond}, Deps{
		Window:      r.win,
		Capturer:    r.cap,
		Commands:    r.queue,
		Frames:      r.frames,
		Coordinator: r.coord,
	})
	r.m.now = func() time.Time { return r.clock }
	return r
}

func (r *rig) advance(d time.Duration) { r.clock = r.clock.Add(d) }

func (r *rig) send(cmds ...command.Command) {
	for _, c := range cmds {
		r.queue.Send(c)
	}
}

func (r *rig) drain() {
	for r.queue.Len() > 0 && r.m.Tick() {
	}
}

func TestInitialState(t *testing.T) {
	r := newRig(t, false)

	snap := r.m.Snapshot()
	if snap.State != Hidden || snap.Visible {
		t.Errorf("initial snapshot = %+v, want hidden", snap)
	}
	if r.win.label != StartupLabel || snap.Label != StartupLabel {
		t.Errorf("initial label = %q, want %q", r.win.label, StartupLabel)
	}
}

func TestShowHideToggle(t *testing.T) {
	r := newRig(t, false)

	r.send(command.ShowText("Привет"))
	r.drain()
	if snap := r.m.Snapshot(); snap.State != Shown || snap.Label != "Привет" || !r.win.visible {
		t.Fatalf("after show: %+v visible=%v", snap, r.win.visible)
	}

	r.send(command.ShowLast())
	r.drain()
	if r.win.label != "Привет" {
		t.Errorf("show without text changed label to %q", r.win.label)
	}

	r.send(command.HideOverlay())
	r.drain()
	if r.m.Snapshot().State != Hidden || r.win.visible {
		t.Error("hide should hide the window")
	}

	r.send(command.Toggle(), command.Toggle())
	r.drain()
	snap := r.m.Snapshot()
	if snap.State != Hidden {
		t.Errorf("two toggles should return to hidden, got %v", snap.State)
	}
	// show, hide, show, hide
	if snap.Transitions != 4 {
		t.Errorf("Transitions = %d, want 4", snap.Transitions)
	}
}

func TestSnapshotVersionAdvances(t *testing.T) {
	r := newRig(t, false)
	before := r.m.Snapshot().Version

	r.send(command.ShowText("Привет"))
	r.drain()
	after := r.m.Snapshot()
	if after.Version <= before {
		t.Errorf("Version = %d after show, want more than %d", after.Version, before)
	}
	if again := r.m.Snapshot(); again.Version != after.Version {
		t.Errorf("reading the snapshot changed Version from %d to %d", after.Version, again.Version)
	}
}

func TestTickProcessesOneCommand(t *testing.T) {
	r := newRig(t, false)
	r.send(command.ShowText("a"), command.HideOverlay())

	r.m.Tick()
	if r.queue.Len() != 1 {
		t.Errorf("queue length after one tick = %d, want 1", r.queue.Len())
	}
}

func TestCaptureWithoutHide(t *testing.T) {
	r := newRig(t, false)
	r.send(command.Capture())
	r.drain()

	f, res := r.frames.TryTake()
	if res != syncx.Received || f.Seq != 1 {
		t.Fatalf("TryTake() = %v, %v; want frame 1", f, res)
	}
	for _, c := range r.win.calls {
		if c == "hide" {
			t.Error("capture without overlap should not hide the window")
		}
	}
}

func TestCaptureHideSettleRestore(t *testing.T) {
	r := newRig(t, true)
	r.send(command.ShowText("x"))
	r.drain()

	r.send(command.Capture())
	r.m.Tick()
	if r.win.visible {
		t.Fatal("window should be hidden while settling")
	}
	if r.frames.Pending() {
		t.Fatal("capture must wait for settle")
	}
	if r.m.Snapshot().Visible {
		t.Error("snapshot should report not visible while settling")
	}

	// not yet settled
	r.advance(20 * time.Millisecond)
	r.m.Tick()
	if r.frames.Pending() {
		t.Fatal("captured before settle elapsed")
	}

	r.advance(40 * time.Millisecond)
	r.m.Tick()
	if !r.frames.Pending() {
		t.Fatal("capture should run once settled")
	}
	if !r.win.visible {
		t.Error("window should be restored after capture")
	}
	if len(r.cap.shown) != 1 || r.cap.shown[0] {
		t.Errorf("window visible during capture: %v", r.cap.shown)
	}
}

func TestCaptureRequestsCoalesce(t *testing.T) {
	r := newRig(t, true)
	r.send(command.ShowText("x"))
	r.drain()

	r.send(command.Capture(), command.Capture(), command.Capture())
	r.drain()
	r.advance(time.Second)
	r.m.Tick()

	if got := len(r.cap.shown); got != 1 {
		t.Errorf("captures = %d, want 1", got)
	}
	if got := r.m.Snapshot().Coalesced; got != 2 {
		t.Errorf("Coalesced = %d, want 2", got)
	}
}

func TestHideDuringSettleStaysHidden(t *testing.T) {
	r := newRig(t, true)
	r.send(command.ShowText("x"))
	r.drain()

	r.send(command.Capture(), command.HideOverlay())
	r.drain()
	r.advance(time.Second)
	r.m.Tick()

	if r.win.visible {
		t.Error("overlay hidden during settle should not be restored")
	}
	if r.m.Snapshot().State != Hidden {
		t.Error("state should be hidden")
	}
}

func TestCaptureFailureSkipsOneCycle(t *testing.T) {
	r := newRig(t, false)
	r.cap.failures = 1

	r.send(command.Capture())
	r.drain()
	if r.frames.Pending() {
		t.Fatal("failed capture must not produce a frame")
	}
	if r.coord.Signal().IsSet() {
		t.Fatal("capture failure must not stop the app")
	}

	r.send(command.Capture())
	r.drain()
	if !r.frames.Pending() {
		t.Error("next request should capture normally")
	}
}

func TestCaptureFailureDuringShutdownSeals(t *testing.T) {
	r := newRig(t, false)
	r.cap.failures = 1
	r.cap.onFail = func() { r.coord.Signal().Set("racing shutdown") }

	r.send(command.Capture())
	r.m.Tick()

	if _, res := r.frames.TryTake(); res != syncx.Sealed {
		t.Errorf("TryTake() = %v, want sealed", res)
	}
}

func TestStopTerminates(t *testing.T) {
	r := newRig(t, false)
	r.send(command.ShowText("x"))
	r.drain()

	r.send(command.StopApp())
	if r.m.Tick() {
		t.Error("Tick should report false after stop")
	}
	if r.win.closed != 1 || r.win.quit != 1 {
		t.Errorf("closed=%d quit=%d, want 1 each", r.win.closed, r.win.quit)
	}
	if _, res := r.frames.TryTake(); res != syncx.Sealed {
		t.Errorf("slot result = %v, want sealed", res)
	}
	if !r.coord.Signal().IsSet() {
		t.Error("stop should leave the signal set")
	}
	if !r.m.Snapshot().Terminated {
		t.Error("snapshot should report terminated")
	}

	r.m.HandleClose()
	r.m.Tick()
	if r.win.closed != 1 || r.win.quit != 1 {
		t.Error("terminate should be idempotent")
	}
}

func TestHandleCloseSealsWithoutStop(t *testing.T) {
	r := newRig(t, false)

	r.m.HandleClose()

	if r.coord.Signal().Reason() != "window closed" {
		t.Errorf("Reason() = %q", r.coord.Signal().Reason())
	}
	if r.queue.Len() != 0 {
		t.Error("window close should not enqueue a Stop")
	}
	if _, res := r.frames.TryTake(); res != syncx.Sealed {
		t.Errorf("slot result = %v, want sealed", res)
	}
	if r.m.Tick() {
		t.Error("Tick after close should report false")
	}
}

func TestShutdownSignalTerminatesOnTick(t *testing.T) {
	r := newRig(t, false)
	_ = r.frames.Put(&capture.Frame{Seq: 9})

	r.coord.Initiate("worker fault")
	if r.m.Tick() {
		t.Error("Tick should report false once shutdown is signalled")
	}
	if _, res := r.frames.TryTake(); res != syncx.Sealed {
		t.Errorf("sentinel should replace the pending frame, got %v", res)
	}
	if r.win.closed != 1 {
		t.Error("window should be closed")
	}
}

func TestSettleClamped(t *testing.T) {
	r := newRig(t, false)
	m := New(Config{Settle: time.Hour}, r.m.deps)
	if m.cfg.Settle != MaxSettle {
		t.Errorf("Settle = %v, want %v", m.cfg.Settle, MaxSettle)
	}
}
