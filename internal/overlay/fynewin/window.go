// Package fynewin hosts the overlay in a borderless fyne window.
package fynewin

import (
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
	"github.com/GriffinCanCode/screenlingo/internal/display"
)

const (
	appID = "com.griffincancode.screenlingo"

	DefaultFontSize = 16
	DefaultPadding  = 5
)

// Config holds window settings.
type Config struct {
	Overlay  capture.Region
	FontSize float32
	Padding  float32
}

// overlayTheme sizes the label and keeps text readable on the dark backdrop.
type overlayTheme struct {
	fyne.Theme
	text    float32
	padding float32
}

func (t overlayTheme) Size(n fyne.ThemeSizeName) float32 {
	switch n {
	case theme.SizeNameText:
		return t.text
	case theme.SizeNamePadding, theme.SizeNameInnerPadding:
		return t.padding
	}
	return t.Theme.Size(n)
}

func (t overlayTheme) Color(n fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	if n == theme.ColorNameForeground {
		return color.White
	}
	return t.Theme.Color(n, v)
}

// Window is a display.Host backed by fyne. Every method except Run must be
// called on the fyne main goroutine, which is where Run schedules ticks.
type Window struct {
	cfg   Config
	app   fyne.App
	win   fyne.Window
	label *widget.Label
	bg    *canvas.Rectangle
	log   *slog.Logger

	place      placer
	nativeDone bool
	excluded   atomic.Bool

	alphaOnce sync.Once
}

// New creates the window hidden. fyne must be initialised from the main
// goroutine, so New belongs there too.
func New(cfg Config) *Window {
	if cfg.FontSize <= 0 {
		cfg.FontSize = DefaultFontSize
	}
	if cfg.Padding <= 0 {
		cfg.Padding = DefaultPadding
	}

	a := app.NewWithID(appID)
	a.Settings().SetTheme(overlayTheme{Theme: theme.DefaultTheme(), text: cfg.FontSize, padding: cfg.Padding})

	var w fyne.Window
	if drv, ok := a.(desktop.App); ok {
		w = drv.CreateSplashWindow()
	} else {
		w = a.NewWindow("screenlingo")
	}

	label := widget.NewLabel("")
	label.Wrapping = fyne.TextWrapWord
	label.Alignment = fyne.TextAlignLeading
	bg := canvas.NewRectangle(color.NRGBA{A: 0xff})

	w.SetContent(container.NewStack(bg, container.NewVBox(label)))
	w.SetPadded(false)
	w.Resize(fyne.NewSize(float32(cfg.Overlay.Width), float32(cfg.Overlay.Height)))
	w.SetFixedSize(true)

	return &Window{
		cfg:   cfg,
		app:   a,
		win:   w,
		label: label,
		bg:    bg,
		log:   slog.Default().With("component", "fynewin"),
		place: applyPlatform,
	}
}

// SelfExcluding reports whether the platform hook kept the window out of
// screen captures. It is false until the window has been shown once.
func (w *Window) SelfExcluding() bool { return w.excluded.Load() }

// Show shows the window and, the first time a native handle exists, moves it
// over the overlay rectangle.
func (w *Window) Show() {
	w.win.Show()
	w.applyNative()
}

func (w *Window) Hide() { w.win.Hide() }

func (w *Window) SetLabel(text string) { w.label.SetText(text) }

// SetTransparency applies alpha to the backdrop. Whole-window transparency
// depends on the compositor and is not exposed by fyne.
func (w *Window) SetTransparency(alpha float64) {
	w.bg.FillColor = color.NRGBA{A: alphaByte(alpha)}
	w.bg.Refresh()
	w.alphaOnce.Do(func() {
		w.log.Info("window transparency not supported, backdrop alpha only",
			"alpha", alpha,
			"overlay", w.cfg.Overlay.String(),
		)
	})
}

func (w *Window) Close() {
	w.win.SetCloseIntercept(nil)
	w.win.Close()
}

func (w *Window) Quit() { w.app.Quit() }

// Run drives t from the fyne main loop until it terminates. It must be
// called from the main goroutine.
func (w *Window) Run(t display.Ticker, every time.Duration) error {
	if every <= 0 {
		every = display.DefaultTick
	}
	w.win.SetCloseIntercept(t.HandleClose)

	stop := make(chan struct{})
	var halt sync.Once
	done := func() { halt.Do(func() { close(stop) }) }

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fyne.Do(func() {
					if !t.Tick() {
						done()
					}
				})
			}
		}
	}()

	w.log.Info("overlay running", "overlay", w.cfg.Overlay.String(), "tick", every)
	w.app.Run()
	done()
	return nil
}

func alphaByte(alpha float64) uint8 {
	switch {
	case alpha <= 0:
		return 0
	case alpha >= 1:
		return 0xff
	}
	return uint8(alpha*255 + 0.5)
}
