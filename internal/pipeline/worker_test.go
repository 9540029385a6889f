package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/command"
	"github.com/GriffinCanCode/screenlingo/internal/fingerprint"
	"github.com/GriffinCanCode/screenlingo/internal/history"
	"github.com/GriffinCanCode/screenlingo/internal/mode"
	"github.com/GriffinCanCode/screenlingo/internal/shutdown"
	"github.com/GriffinCanCode/screenlingo/internal/syncx"
	"github.com/GriffinCanCode/screenlingo/internal/translate"
)

type result struct {
	text string
	err  error
}

type fakeRecognizer struct {
	mu      sync.Mutex
	script  []result
	calls   int
	closed  bool
	panicOn int // 1-based call that panics, 0 = never
}

func (f *fakeRecognizer) Recognize(context.Context, image.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicOn == f.calls {
		panic("engine crashed")
	}
	if len(f.script) == 0 {
		return "", nil
	}
	r := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return r.text, r.err
}

func (f *fakeRecognizer) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeRecognizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func says(texts ...string) []result {
	out := make([]result, len(texts))
	for i, t := range texts {
		out[i] = result{text: t}
	}
	return out
}

func toRussian(calls *int) translate.Translator {
	return translate.Func(func(_ context.Context, text, _, dst string) (string, error) {
		if calls != nil {
			*calls++
		}
		return dst + ":" + text, nil
	})
}

// frameOf renders a distinct stripe pattern per variant.
func frameOf(variant int, seq uint64) *capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 48, 24))
	period := variant + 2
	for y := 0; y < 24; y++ {
		for x := 0; x < 48; x++ {
			c := color.RGBA{A: 255}
			if (x/period)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return &capture.Frame{Image: img, Seq: seq, CapturedAt: time.Now()}
}

type harness struct {
	w     *Worker
	rec   *fakeRecognizer
	queue *command.Queue
	mode  *mode.State
	slot  *syncx.Slot[*capture.Frame]
	coord *shutdown.Coordinator
	hist  *history.Store
}

func newHarness(cfg Config, rec *fakeRecognizer, tr translate.Translator) *harness {
	if cfg.Threshold == 0 {
		cfg.Threshold = fingerprint.DefaultThreshold
	}
	if cfg.Target == "" {
		cfg.Source, cfg.Target = "en", "ru"
	}
	h := &harness{
		rec:   rec,
		queue: command.NewQueue(),
		mode:  mode.New(),
		slot:  syncx.NewSlot[*capture.Frame](),
		hist:  history.NewStore(10),
	}
	h.coord = shutdown.NewCoordinator(shutdown.NewSignal(context.Background()), h.queue)
	h.w = New(cfg, Deps{
		Frames:      h.slot,
		Recognizer:  rec,
		Translator:  tr,
		Commands:    h.queue,
		Mode:        h.mode,
		Coordinator: h.coord,
		History:     h.hist,
	})
	return h
}

func (h *harness) process(t *testing.T, f *capture.Frame) Outcome {
	t.Helper()
	out, err := h.w.process(context.Background(), f)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return out
}

func (h *harness) commands() []string {
	var out []string
	for {
		c, ok := h.queue.TryNext()
		if !ok {
			return out
		}
		out = append(out, c.String())
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStaticScreenRecognizedOnce(t *testing.T) {
	h := newHarness(Config{}, &fakeRecognizer{script: says("Hello there")}, toRussian(nil))

	for i := 0; i < 5; i++ {
		h.process(t, frameOf(1, uint64(i)))
	}

	if h.rec.Calls() != 1 {
		t.Errorf("recognizer calls = %d, want 1", h.rec.Calls())
	}
	if got := h.commands(); !equal(got, []string{`show("ru:Hello there")`}) {
		t.Errorf("commands = %v", got)
	}
	if s := h.w.Stats(); s.Unchanged != 4 || s.Shown != 1 {
		t.Errorf("stats = %v", s)
	}
}

func TestDedupeComparesNormalizedText(t *testing.T) {
	calls := 0
	h := newHarness(Config{}, &fakeRecognizer{script: says("Hello\nworld", "Hello   world ")}, toRussian(&calls))

	h.process(t, frameOf(1, 1))
	if out := h.process(t, frameOf(2, 2)); out != Duplicate {
		t.Errorf("second cycle = %v, want duplicate", out)
	}

	if calls != 1 {
		t.Errorf("translator calls = %d, want 1", calls)
	}
	if got := h.commands(); len(got) != 1 {
		t.Errorf("commands = %v, want one show", got)
	}
}

func TestHelloEmptyHelloOrdering(t *testing.T) {
	h := newHarness(Config{}, &fakeRecognizer{script: says("Hello", "", "Hello")}, toRussian(nil))

	h.process(t, frameOf(1, 1))
	h.process(t, frameOf(2, 2))
	h.process(t, frameOf(3, 3))

	want := []string{`show("ru:Hello")`, "hide", `show("ru:Hello")`}
	if got := h.commands(); !equal(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
	if got := h.hist.Len(); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestHistoryRecordsOnlyShownLines(t *testing.T) {
	h := newHarness(Config{}, &fakeRecognizer{script: says("Hello there", "Goodbye now")}, toRussian(nil))

	h.process(t, frameOf(1, 1))
	h.mode.SetOverlayVisible(false)
	h.process(t, frameOf(2, 2))

	entries := h.hist.Last(0)
	if len(entries) != 1 {
		t.Fatalf("history = %+v, want one entry", entries)
	}
	if entries[0].Original != "Hello there" || entries[0].Translated != "ru:Hello there" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestShortTextHides(t *testing.T) {
	h := newHarness(Config{}, &fakeRecognizer{script: says("  ok \n")}, toRussian(nil))

	if out := h.process(t, frameOf(1, 1)); out != TooShort {
		t.Errorf("outcome = %v, want too_short", out)
	}
	if got := h.commands(); !equal(got, []string{"hide"}) {
		t.Errorf("commands = %v", got)
	}
}

func TestRecognitionFailureResetsBaseline(t *testing.T) {
	rec := &fakeRecognizer{script: []result{{err: errors.New("tesseract busy")}, {text: "Hello"}}}
	h := newHarness(Config{}, rec, toRussian(nil))

	if out := h.process(t, frameOf(1, 1)); out != RecognitionFailed {
		t.Fatalf("first cycle = %v", out)
	}
	if out := h.process(t, frameOf(1, 2)); out != Shown {
		t.Errorf("identical frame after failure = %v, want shown", out)
	}
	if rec.Calls() != 2 {
		t.Errorf("recognizer calls = %d, want 2", rec.Calls())
	}
}

func TestTranslationFallbackOriginal(t *testing.T) {
	failing := translate.Func(func(context.Context, string, string, string) (string, error) {
		return "", errors.New("translator offline")
	})
	h := newHarness(Config{Fallback: translate.ShowOriginal}, &fakeRecognizer{script: says("|t works")}, failing)

	if out := h.process(t, frameOf(1, 1)); out != Shown {
		t.Errorf("outcome = %v, want shown", out)
	}
	if got := h.commands(); !equal(got, []string{`show("It works")`}) {
		t.Errorf("commands = %v", got)
	}
}

func TestTranslationFallbackDropRetries(t *testing.T) {
	attempts := 0
	flaky := translate.Func(func(_ context.Context, text, _, _ string) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("timeout")
		}
		return "ru:" + text, nil
	})
	h := newHarness(Config{Fallback: translate.Drop}, &fakeRecognizer{script: says("Hello")}, flaky)

	if out := h.process(t, frameOf(1, 1)); out != Dropped {
		t.Fatalf("first cycle = %v, want dropped", out)
	}
	if got := h.commands(); len(got) != 0 {
		t.Errorf("dropped cycle emitted %v", got)
	}
	if out := h.process(t, frameOf(2, 2)); out != Shown {
		t.Errorf("next changed frame = %v, want shown", out)
	}
	if attempts != 2 {
		t.Errorf("translator attempts = %d, want 2", attempts)
	}
}

func TestSuppressedWhileOverlayHidden(t *testing.T) {
	h := newHarness(Config{}, &fakeRecognizer{script: says("Hello")}, toRussian(nil))
	h.mode.SetOverlayVisible(false)

	if out := h.process(t, frameOf(1, 1)); out != Suppressed {
		t.Fatalf("outcome = %v, want suppressed", out)
	}
	if got := h.commands(); len(got) != 0 {
		t.Errorf("commands = %v, want none", got)
	}

	h.mode.SetOverlayVisible(true)
	if out := h.process(t, frameOf(1, 2)); out != Shown {
		t.Errorf("same frame once visible = %v, want shown", out)
	}
}

func TestPHashMethod(t *testing.T) {
	h := newHarness(Config{Method: fingerprint.PHash}, &fakeRecognizer{script: says("Hello")}, toRussian(nil))

	h.process(t, frameOf(1, 1))
	if out := h.process(t, frameOf(1, 2)); out != Unchanged {
		t.Errorf("identical frame = %v, want unchanged", out)
	}
}

func TestProcessRejectsEmptyFrame(t *testing.T) {
	h := newHarness(Config{}, &fakeRecognizer{}, toRussian(nil))
	if _, err := h.w.process(context.Background(), &capture.Frame{}); err == nil {
		t.Error("empty frame should be an internal error")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRunStopsOnSentinel(t *testing.T) {
	rec := &fakeRecognizer{script: says("Hello")}
	h := newHarness(Config{FrameWait: 10 * time.Millisecond}, rec, toRussian(nil))

	done := make(chan error, 1)
	go func() { done <- h.w.Run(h.coord.Signal().Context()) }()

	_ = h.slot.Put(frameOf(1, 1))
	waitFor(t, func() bool { return h.w.Stats().Shown == 1 })
	h.slot.Seal()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on sentinel")
	}
	if !rec.closed {
		t.Error("recognizer should be closed when the worker exits")
	}
	if h.coord.Signal().IsSet() {
		t.Error("clean exit should not initiate shutdown")
	}
}

// gatedRecognizer holds every call until the test releases it and records
// the width of each frame it was given.
type gatedRecognizer struct {
	mu      sync.Mutex
	widths  []int
	entered chan struct{}
	release chan struct{}
}

func newGatedRecognizer() *gatedRecognizer {
	return &gatedRecognizer{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	width := img.Bounds().Dx()
	g.mu.Lock()
	g.widths = append(g.widths, width)
	g.mu.Unlock()

	select {
	case g.entered <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("frame %d", width), nil
}

func (g *gatedRecognizer) Close() error { return nil }

func (g *gatedRecognizer) seen() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.widths...)
}

func sized(width int, seq uint64) *capture.Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, 16))
	return &capture.Frame{Image: img, Seq: seq, CapturedAt: time.Now()}
}

func await(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestRunProcessesOnlyTheLatestFrame(t *testing.T) {
	rec := newGatedRecognizer()
	h := newHarness(Config{FrameWait: 10 * time.Millisecond}, nil, toRussian(nil))
	h.w.deps.Recognizer = rec

	for i, width := range []int{10, 20, 30} {
		_ = h.slot.Put(sized(width, uint64(i+1)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.w.Run(ctx) }()

	await(t, rec.entered, "first recognition")
	// the worker is busy; these arrive behind its back
	_ = h.slot.Put(sized(40, 4))
	_ = h.slot.Put(sized(50, 5))
	rec.release <- struct{}{}

	await(t, rec.entered, "second recognition")
	rec.release <- struct{}{}
	waitFor(t, func() bool { return h.w.Stats().Shown == 2 })
	h.slot.Seal()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	if got := rec.seen(); len(got) != 2 || got[0] != 30 || got[1] != 50 {
		t.Errorf("recognized widths = %v, want [30 50]", got)
	}
	if got := h.slot.Drops(); got != 3 {
		t.Errorf("slot drops = %d, want 3", got)
	}
	want := []string{`show("ru:frame 30")`, `show("ru:frame 50")`}
	if got := h.commands(); !equal(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestFreshestSupersedesTakenFrame(t *testing.T) {
	h := newHarness(Config{}, &fakeRecognizer{}, toRussian(nil))
	taken := sized(10, 1)
	_ = h.slot.Put(sized(20, 2))

	got, sealed := h.w.freshest(taken)
	if sealed {
		t.Fatal("freshest() reported sealed on an open slot")
	}
	if got.Seq != 2 {
		t.Errorf("freshest() = frame %d, want 2", got.Seq)
	}
	if n := h.w.Stats().Superseded; n != 1 {
		t.Errorf("Superseded = %d, want 1", n)
	}

	same, _ := h.w.freshest(got)
	if same != got {
		t.Error("freshest() with an empty slot should keep the frame")
	}

	_ = h.slot.Put(sized(30, 3))
	h.slot.Seal()
	if _, sealed := h.w.freshest(got); !sealed {
		t.Error("freshest() should report sealed even with a pending frame")
	}
}

func TestRunPanicInitiatesShutdown(t *testing.T) {
	h := newHarness(Config{FrameWait: 10 * time.Millisecond}, &fakeRecognizer{panicOn: 1}, toRussian(nil))
	_ = h.slot.Put(frameOf(1, 1))

	err := h.w.Run(h.coord.Signal().Context())
	if err == nil {
		t.Fatal("Run() should report the panic")
	}
	if !h.coord.Signal().IsSet() {
		t.Error("panic should set the shutdown signal")
	}
	if got := h.commands(); !equal(got, []string{"stop"}) {
		t.Errorf("commands = %v, want exactly one stop", got)
	}
}

func TestRunExitsOnShutdownWithoutFrames(t *testing.T) {
	h := newHarness(Config{FrameWait: 5 * time.Millisecond}, &fakeRecognizer{}, toRussian(nil))

	done := make(chan error, 1)
	go func() { done <- h.w.Run(h.coord.Signal().Context()) }()
	time.Sleep(20 * time.Millisecond)
	h.coord.Initiate("test")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not notice shutdown after a frame-wait timeout")
	}
}

func TestPacedModeRequestsCaptures(t *testing.T) {
	h := newHarness(Config{Paced: true, PaceDelay: 5 * time.Millisecond, FrameWait: 5 * time.Millisecond}, &fakeRecognizer{}, toRussian(nil))

	done := make(chan error, 1)
	go func() { done <- h.w.Run(h.coord.Signal().Context()) }()
	waitFor(t, func() bool { return h.queue.Len() >= 2 })

	h.mode.SetAutoRefresh(false)
	h.commands()
	time.Sleep(40 * time.Millisecond)
	// one request may have been in flight when the mode changed
	if n := len(h.commands()); n > 1 {
		t.Errorf("got %d capture requests with auto-refresh off", n)
	}

	h.slot.Seal()
	h.coord.Initiate("test")
	<-done
}
