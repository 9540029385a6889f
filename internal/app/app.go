// Package app wires the overlay together and owns process lifecycle.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/command"
	"github.com/GriffinCanCode/screenlingo/internal/config"
	"github.com/GriffinCanCode/screenlingo/internal/display"
	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/grpcclient"
	"github.com/GriffinCanCode/screenlingo/internal/history"
	"github.com/GriffinCanCode/screenlingo/internal/hotkey"
	"github.com/GriffinCanCode/screenlingo/internal/mode"
	"github.com/GriffinCanCode/screenlingo/internal/pipeline"
	"github.com/GriffinCanCode/screenlingo/internal/recognize"
	"github.com/GriffinCanCode/screenlingo/internal/shutdown"
	"github.com/GriffinCanCode/screenlingo/internal/syncx"
	"github.com/GriffinCanCode/screenlingo/internal/translate"
	"github.com/GriffinCanCode/screenlingo/internal/trigger"
)

// JoinTimeout bounds how long Run waits for background loops after the UI
// loop ends.
const JoinTimeout = 5 * time.Second

// Backends are the device-bound collaborators, built by the caller so this
// package stays free of cgo. Host, Source and Listener are required.
// Recognizer and Translator are built from config when nil; History is
// optional.
type Backends struct {
	Host       display.Host
	Source     capture.Source
	Listener   hotkey.Listener
	Recognizer recognize.Recognizer
	Translator translate.Translator
	History    *history.Store
}

// App holds every loop and the state they share.
type App struct {
	cfg *config.Config
	log *slog.Logger

	queue  *command.Queue
	frames *syncx.Slot[*capture.Frame]
	mode   *mode.State
	coord  *shutdown.Coordinator

	host       display.Host
	machine    *display.Machine
	worker     *pipeline.Worker
	trigger    *trigger.Interval
	dispatcher *hotkey.Dispatcher
	inference  *grpcclient.Client

	joinTimeout time.Duration
}

// New builds the app. Cancelling ctx later shuts it down.
func New(ctx context.Context, cfg *config.Config, b Backends) (*App, error) {
	if b.Host == nil || b.Source == nil || b.Listener == nil {
		return nil, apperrors.New(apperrors.Internal, "host, source and listener are required")
	}

	a := &App{
		cfg:         cfg,
		log:         slog.Default().With("component", "app"),
		queue:       command.NewQueue(),
		frames:      syncx.NewSlot[*capture.Frame](),
		mode:        mode.New(),
		host:        b.Host,
		joinTimeout: JoinTimeout,
	}
	a.coord = shutdown.NewCoordinator(shutdown.NewSignal(ctx), a.queue)

	needInference := (b.Recognizer == nil && cfg.Recognizer == config.RecognizerGRPC) ||
		(b.Translator == nil && cfg.Translator == config.TranslatorGRPC)
	if needInference {
		client, err := dialInference(ctx, cfg.InferenceAddr)
		if err != nil {
			return nil, err
		}
		a.inference = client
	}

	rec, err := a.recognizer(b.Recognizer)
	if err != nil {
		a.closeInference()
		return nil, err
	}

	b.Host.SetTransparency(cfg.OverlayAlpha)
	gw := capture.NewGateway(b.Source, cfg.Region, b.Host)
	a.machine = display.New(display.Config{
		Overlay: cfg.Overlay,
		Settle:  cfg.CaptureSettle,
	}, display.Deps{
		Window:      b.Host,
		Capturer:    gw,
		Commands:    a.queue,
		Frames:      a.frames,
		Coordinator: a.coord,
	})

	deps := pipeline.Deps{
		Frames:      a.frames,
		Recognizer:  rec,
		Translator:  a.translator(b.Translator),
		Commands:    a.queue,
		Mode:        a.mode,
		Coordinator: a.coord,
	}
	if b.History != nil {
		deps.History = b.History
	}

	paced := cfg.TriggerMode == config.TriggerPaced
	a.worker = pipeline.New(pipeline.Config{
		Method:    cfg.DiffMethod,
		Threshold: cfg.DiffThreshold,
		FrameWait: cfg.FrameWait,
		Source:    cfg.SourceLang,
		Target:    cfg.TargetLang,
		Fallback:  cfg.Fallback,
		Paced:     paced,
		PaceDelay: cfg.PaceDelay,
	}, deps)
	if !paced {
		a.trigger = trigger.NewInterval(cfg.RefreshInterval, a.mode, a.queue)
	}
	a.dispatcher = hotkey.NewDispatcher(b.Listener, a.mode, a.queue, a.coord, cfg.HotkeyMode, cfg.DebounceWindow)

	a.log.Info("app configured",
		"region", cfg.Region.String(),
		"overlay", cfg.Overlay.String(),
		"recognizer", cfg.Recognizer,
		"translator", cfg.Translator,
		"trigger", cfg.TriggerMode,
		"renderer", cfg.Renderer,
	)
	return a, nil
}

func dialInference(ctx context.Context, addr string) (*grpcclient.Client, error) {
	client, err := grpcclient.New(grpcclient.DefaultConfig(addr))
	if err != nil {
		return nil, err
	}
	if err := client.Check(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (a *App) recognizer(given recognize.Recognizer) (recognize.Recognizer, error) {
	if given != nil {
		return given, nil
	}
	switch a.cfg.Recognizer {
	case config.RecognizerGRPC:
		return recognize.NewRemote(a.inference), nil
	default:
		return nil, apperrors.Newf(apperrors.RecognizerInitFailed, "recognizer %q must be supplied by the caller", a.cfg.Recognizer)
	}
}

func (a *App) translator(given translate.Translator) translate.Translator {
	next := given
	if next == nil {
		switch a.cfg.Translator {
		case config.TranslatorGRPC:
			next = a.inference
		case config.TranslatorLibre:
			next = translate.NewLibre(a.cfg.LibreTranslateURL, a.cfg.LibreTranslateKey)
		default:
			return translate.Passthrough{}
		}
	}
	return translate.NewGuarded(next, a.cfg.TranslateTimeout, nil)
}

// Coordinator returns the shutdown coordinator.
func (a *App) Coordinator() *shutdown.Coordinator { return a.coord }

// Run starts the background loops, runs the UI loop on the calling
// goroutine until it terminates, then joins everything. It must be called
// from the main goroutine.
func (a *App) Run() error {
	sig := a.coord.Signal()
	ctx := sig.Context()

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			a.log.Debug("loop exited", "loop", name)
		}()
	}

	start("worker", func(ctx context.Context) {
		if err := a.worker.Run(ctx); err != nil {
			a.log.Error("worker stopped", "error", err)
		}
	})
	if a.trigger != nil {
		start("trigger", a.trigger.Run)
	}
	start("hotkeys", a.dispatcher.Run)
	start("signals", a.watchSignals)

	hostErr := a.host.Run(a.machine, a.cfg.UITick)
	if hostErr != nil {
		a.log.Error("ui loop failed", "error", hostErr)
	}

	// a host that returned without the machine terminating still ends the app
	a.coord.MarkClosed("ui loop ended")
	a.frames.Seal()
	a.queue.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(a.joinTimeout):
		a.log.Warn("background loops did not exit in time", "timeout", a.joinTimeout)
	}

	a.closeInference()
	a.log.Info("shutdown complete", "reason", sig.Reason(), "commands", a.queue.Sent())
	return hostErr
}

func (a *App) watchSignals(ctx context.Context) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case s := <-sigc:
		a.coord.Initiate("signal " + s.String())
	case <-ctx.Done():
	}
}

func (a *App) closeInference() {
	if a.inference == nil {
		return
	}
	if err := a.inference.Close(); err != nil {
		a.log.Warn("close inference client", "error", err)
	}
}
