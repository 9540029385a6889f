package fynewin

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2/driver"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
)

var (
	errNoHandle    = errors.New("native window not created yet")
	errUnsupported = errors.New("windowing system has no placement hook")
)

// nativeResult is what a platform hook managed to apply.
type nativeResult struct {
	placed   bool // moved over the overlay rectangle, topmost
	excluded bool // left out of screen captures by the compositor
}

// placer applies platform window attributes inside RunNative. ctx is the
// driver context, for example driver.WindowsWindowContext.
type placer func(ctx any, overlay capture.Region) (nativeResult, error)

// applyNative runs the platform hook after the window has been shown, since
// fyne only creates the native window on first Show. It retries on later
// shows until a handle exists, then never again.
func (w *Window) applyNative() {
	if w.nativeDone {
		return
	}
	nw, ok := w.win.(driver.NativeWindow)
	if !ok {
		w.nativeDone = true
		w.log.Info("native window hooks unavailable, overlay hides for captures")
		return
	}

	nw.RunNative(func(ctx any) {
		res, err := w.place(ctx, w.cfg.Overlay)
		if errors.Is(err, errNoHandle) {
			return
		}
		w.nativeDone = true
		w.excluded.Store(res.excluded)

		switch {
		case errors.Is(err, errUnsupported):
			w.log.Info("overlay placement unavailable, overlay hides for captures",
				"context", fmt.Sprintf("%T", ctx))
		case err != nil:
			w.log.Warn("native overlay setup incomplete",
				"error", err,
				"placed", res.placed,
				"excluded", res.excluded,
			)
		default:
			w.log.Info("overlay placed",
				"overlay", w.cfg.Overlay.String(),
				"excluded", res.excluded,
			)
		}
	})
}
