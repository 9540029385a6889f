//go:build linux || freebsd || netbsd || openbsd

package fynewin

import (
	"fmt"

	"fyne.io/fyne/v2/driver"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
)

// applyPlatform moves the window over the overlay rectangle and raises it.
// X11 has no capture exclusion, so the result never reports excluded.
// Wayland surfaces cannot be positioned by clients.
func applyPlatform(ctx any, overlay capture.Region) (nativeResult, error) {
	xc, ok := ctx.(driver.X11WindowContext)
	if !ok {
		return nativeResult{}, errUnsupported
	}
	if xc.WindowHandle == 0 {
		return nativeResult{}, errNoHandle
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return nativeResult{}, fmt.Errorf("connect to X server: %w", err)
	}
	defer conn.Close()

	mask, values := x11Geometry(overlay)
	if err := xproto.ConfigureWindowChecked(conn, xproto.Window(xc.WindowHandle), mask, values).Check(); err != nil {
		return nativeResult{}, fmt.Errorf("configure window: %w", err)
	}
	return nativeResult{placed: true}, nil
}

// x11Geometry builds a ConfigureWindow request. Values follow mask bit order.
func x11Geometry(r capture.Region) (uint16, []uint32) {
	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY |
		xproto.ConfigWindowWidth | xproto.ConfigWindowHeight |
		xproto.ConfigWindowStackMode)
	return mask, []uint32{
		uint32(int32(r.Left)),
		uint32(int32(r.Top)),
		uint32(r.Width),
		uint32(r.Height),
		xproto.StackModeAbove,
	}
}
