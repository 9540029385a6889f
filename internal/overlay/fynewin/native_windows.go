//go:build windows

package fynewin

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2/driver"
	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"github.com/GriffinCanCode/screenlingo/internal/capture"
)

const (
	wdaExcludeFromCapture = 0x00000011
	lwaAlpha              = 0x00000002
)

// lxn/win predates these two user32 calls.
var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procSetWindowDisplayAffinity   = user32.NewProc("SetWindowDisplayAffinity")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
)

// overlayExStyle makes the window click-through and keeps it off the taskbar.
func overlayExStyle(style int32) int32 {
	return int32(uint32(style) |
		uint32(win.WS_EX_LAYERED) |
		uint32(win.WS_EX_TRANSPARENT) |
		uint32(win.WS_EX_TOOLWINDOW))
}

func applyPlatform(ctx any, overlay capture.Region) (nativeResult, error) {
	wc, ok := ctx.(driver.WindowsWindowContext)
	if !ok {
		return nativeResult{}, errUnsupported
	}
	if wc.HWND == 0 {
		return nativeResult{}, errNoHandle
	}
	hwnd := win.HWND(wc.HWND)

	var res nativeResult
	var errs []error

	old := win.GetWindowLong(hwnd, win.GWL_EXSTYLE)
	win.SetWindowLong(hwnd, win.GWL_EXSTYLE, overlayExStyle(old))
	// a layered window is not drawn until its attributes are set
	if r, _, err := procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, 0xff, lwaAlpha); r == 0 {
		win.SetWindowLong(hwnd, win.GWL_EXSTYLE, old)
		errs = append(errs, fmt.Errorf("click-through: %w", err))
	}

	if win.SetWindowPos(hwnd, win.HWND_TOPMOST,
		int32(overlay.Left), int32(overlay.Top), int32(overlay.Width), int32(overlay.Height),
		win.SWP_NOACTIVATE|win.SWP_SHOWWINDOW) {
		res.placed = true
	} else {
		errs = append(errs, fmt.Errorf("set window position: %w", windows.GetLastError()))
	}

	// WDA_EXCLUDEFROMCAPTURE needs Windows 10 2004 or later
	if r, _, err := procSetWindowDisplayAffinity.Call(uintptr(hwnd), wdaExcludeFromCapture); r != 0 {
		res.excluded = true
	} else {
		errs = append(errs, fmt.Errorf("exclude from capture: %w", err))
	}

	return res, errors.Join(errs...)
}
