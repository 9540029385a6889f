// Screenlingo - captures a screen region, recognizes and translates its text,
// and shows the translation in an overlay
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/GriffinCanCode/screenlingo/internal/app"
	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/config"
	"github.com/GriffinCanCode/screenlingo/internal/display"
	"github.com/GriffinCanCode/screenlingo/internal/history"
	"github.com/GriffinCanCode/screenlingo/internal/hotkey/xhotkey"
	"github.com/GriffinCanCode/screenlingo/internal/overlay/fynewin"
	"github.com/GriffinCanCode/screenlingo/internal/overlay/web"
	"github.com/GriffinCanCode/screenlingo/internal/recognize/tesseract"
)

func main() {
	if err := run(); err != nil {
		slog.Error("screenlingo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	src, err := capture.NewScreenshotSource()
	if err != nil {
		return err
	}
	if bounds := capture.DisplayBounds(); !cfg.Region.Rect().In(bounds) {
		slog.Warn("capture region extends past the displays",
			"region", cfg.Region.String(),
			"displays", bounds.String(),
		)
	}

	hist := history.NewStore(cfg.HistorySize)
	b := app.Backends{
		Host:    newHost(cfg, hist),
		Source:  src,
		History: hist,
	}

	listener, err := xhotkey.Register(cfg.ToggleChord, cfg.ShutdownChord)
	if err != nil {
		return err
	}
	b.Listener = listener

	if cfg.Recognizer == config.RecognizerTesseract {
		rec, err := tesseract.New(cfg.TesseractLang)
		if err != nil {
			return errors.Join(err, listener.Close())
		}
		b.Recognizer = rec
	}

	a, err := app.New(context.Background(), cfg, b)
	if err != nil {
		if b.Recognizer != nil {
			err = errors.Join(err, b.Recognizer.Close())
		}
		return errors.Join(err, listener.Close())
	}

	slog.Info("screenlingo starting",
		"toggle", cfg.ToggleChord.String(),
		"shutdown", cfg.ShutdownChord.String(),
		"source", cfg.SourceLang,
		"target", cfg.TargetLang,
	)
	return a.Run()
}

func newHost(cfg *config.Config, hist *history.Store) display.Host {
	if cfg.Renderer == config.RendererWeb {
		return web.New(web.Config{Addr: cfg.WebAddr, History: hist})
	}
	return fynewin.New(fynewin.Config{Overlay: cfg.Overlay})
}
