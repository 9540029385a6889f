// Package pipeline runs the recognition-translation worker: it takes the
// latest captured frame, skips it when nothing changed, recognizes and
// normalizes the text, translates it and tells the display what to show.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/command"
	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/fingerprint"
	"github.com/GriffinCanCode/screenlingo/internal/mode"
	"github.com/GriffinCanCode/screenlingo/internal/recognize"
	"github.com/GriffinCanCode/screenlingo/internal/shutdown"
	"github.com/GriffinCanCode/screenlingo/internal/syncx"
	"github.com/GriffinCanCode/screenlingo/internal/trace"
	"github.com/GriffinCanCode/screenlingo/internal/translate"
)

// Config tunes the worker.
type Config struct {
	Method    fingerprint.Method
	Threshold float64
	FrameWait time.Duration
	Source    string
	Target    string
	Fallback  translate.Fallback

	// Paced makes the worker request its own captures, PaceDelay apart,
	// instead of relying on the interval trigger.
	Paced     bool
	PaceDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.FrameWait <= 0 {
		c.FrameWait = DefaultFrameWait
	}
	if c.PaceDelay <= 0 {
		c.PaceDelay = DefaultPaceDelay
	}
	return c
}

// Recorder receives every line shown on the overlay.
type Recorder interface {
	Record(original, translated string)
}

// Deps are the worker's collaborators. History is optional.
type Deps struct {
	Frames      *syncx.Slot[*capture.Frame]
	Recognizer  recognize.Recognizer
	Translator  translate.Translator
	Commands    command.Sink
	Mode        *mode.State
	Coordinator *shutdown.Coordinator
	History     Recorder
}

// Outcome is how a cycle ended.
type Outcome int

const (
	Unchanged         Outcome = iota // below the diff threshold
	RecognitionFailed                // collaborator fault, baseline reset
	TooShort                         // Hide emitted
	Duplicate                        // same normalized text as shown
	Dropped                          // translation failed under the drop policy
	Suppressed                       // overlay hidden by the user
	Shown                            // Show emitted
)

func (o Outcome) String() string {
	return [...]string{"unchanged", "recognition_failed", "too_short", "duplicate", "dropped", "suppressed", "shown"}[o]
}

// Stats are cumulative worker counters.
type Stats struct {
	Cycles     uint64
	Superseded uint64
	Unchanged  uint64
	Recognized uint64
	Shown      uint64
}

// Worker is the single pipeline loop. At most one recognition and
// translation is in flight because Run is the only caller of both.
type Worker struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	// owned by the Run goroutine
	baseline *fingerprint.Fingerprint
	lastText string
	hasLast  bool

	cycles     atomic.Uint64
	superseded atomic.Uint64
	unchanged  atomic.Uint64
	recognized atomic.Uint64
	shown      atomic.Uint64
}

// New creates a worker. It takes ownership of deps.Recognizer and closes it
// when Run returns.
func New(cfg Config, deps Deps) *Worker {
	return &Worker{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  slog.Default().With("component", "worker"),
	}
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Cycles:     w.cycles.Load(),
		Superseded: w.superseded.Load(),
		Unchanged:  w.unchanged.Load(),
		Recognized: w.recognized.Load(),
		Shown:      w.shown.Load(),
	}
}

// Run processes frames until the slot is sealed or ctx ends. A panic or an
// internal error stops the whole application.
func (w *Worker) Run(ctx context.Context) (err error) {
	w.log.Info("worker started", "paced", w.cfg.Paced, "method", w.cfg.Method, "threshold", w.cfg.Threshold)
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.Internal, "worker panic: %v", r)
			w.log.Error("critical worker error", "error", err, "stack", string(debug.Stack()))
			w.deps.Coordinator.Initiate("worker fault")
		}
		if cerr := w.deps.Recognizer.Close(); cerr != nil {
			w.log.Warn("close recognizer", "error", cerr)
		}
		w.log.Info("worker stopped", "cycles", w.cycles.Load(), "shown", w.shown.Load())
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if w.cfg.Paced && !w.pace(ctx) {
			return nil
		}

		frame, res := w.deps.Frames.Take(w.cfg.FrameWait)
		switch res {
		case syncx.Sealed:
			return nil
		case syncx.TimedOut:
			continue
		case syncx.Received:
		}

		frame, sealed := w.freshest(frame)
		if sealed {
			return nil
		}

		if _, err := w.process(ctx, frame); err != nil {
			w.log.Error("critical worker error", "error", err)
			w.deps.Coordinator.Initiate("worker fault")
			return err
		}
	}
}

// pace waits PaceDelay and requests the next capture. It reports false when
// shutdown interrupted the wait.
func (w *Worker) pace(ctx context.Context) bool {
	timer := time.NewTimer(w.cfg.PaceDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	if w.deps.Mode.Refreshing() {
		w.deps.Commands.Send(command.Capture())
	}
	return true
}

// freshest drains anything that arrived after frame.
func (w *Worker) freshest(frame *capture.Frame) (*capture.Frame, bool) {
	for {
		next, res := w.deps.Frames.TryTake()
		switch res {
		case syncx.Received:
			w.superseded.Add(1)
			frame = next
		case syncx.Sealed:
			return nil, true
		case syncx.TimedOut:
			return frame, false
		}
	}
}

// process runs one cycle. A returned error is fatal; collaborator faults are
// absorbed into the outcome.
func (w *Worker) process(ctx context.Context, frame *capture.Frame) (Outcome, error) {
	if frame == nil || frame.Image == nil {
		return Unchanged, apperrors.New(apperrors.Internal, "received empty frame")
	}
	w.cycles.Add(1)

	ctx, span := trace.StartSpan(ctx, "worker_cycle")
	log := trace.Logger(ctx)
	span.SetAttr("seq", frame.Seq)

	outcome := w.cycle(ctx, log, span, frame)
	span.SetAttr("outcome", outcome.String())
	span.EndAndLog(log, "cycle done")
	return outcome, nil
}

func (w *Worker) cycle(ctx context.Context, log *slog.Logger, span *trace.Span, frame *capture.Frame) Outcome {
	fp := fingerprint.New(frame.Image)
	if w.baseline != nil {
		score := w.cfg.Method.Diff(w.baseline, fp)
		span.SetAttr("diff", score)
		if score < w.cfg.Threshold {
			w.unchanged.Add(1)
			return Unchanged
		}
	}
	w.baseline = fp

	raw, err := w.deps.Recognizer.Recognize(ctx, frame.Image)
	if err != nil {
		log.Warn("recognition failed", "error", err, "seq", frame.Seq)
		w.baseline = nil
		return RecognitionFailed
	}
	w.recognized.Add(1)

	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) < MinTextRunes {
		w.forgetText()
		w.deps.Commands.Send(command.HideOverlay())
		return TooShort
	}

	text := Normalize(trimmed)
	if w.hasLast && text == w.lastText {
		return Duplicate
	}

	out, err := w.deps.Translator.Translate(ctx, text, w.cfg.Source, w.cfg.Target)
	if err != nil {
		log.Warn("translation failed", "error", err, "fallback", w.cfg.Fallback)
		switch w.cfg.Fallback {
		case translate.Drop:
			return Dropped
		case translate.ShowOriginal:
			out = text
		}
	}

	if !w.deps.Mode.OverlayVisible() {
		w.baseline = nil
		w.forgetText()
		return Suppressed
	}

	w.deps.Commands.Send(command.ShowText(out))
	w.lastText = text
	w.hasLast = true
	w.shown.Add(1)
	if w.deps.History != nil {
		w.deps.History.Record(text, out)
	}
	log.Debug("text shown", "chars", utf8.RuneCountInString(out))
	return Shown
}

func (w *Worker) forgetText() {
	w.lastText = ""
	w.hasLast = false
}

// String implements fmt.Stringer for debug logging.
func (s Stats) String() string {
	return fmt.Sprintf("cycles=%d superseded=%d unchanged=%d recognized=%d shown=%d",
		s.Cycles, s.Superseded, s.Unchanged, s.Recognized, s.Shown)
}
