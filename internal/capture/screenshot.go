package capture

import (
	"image"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
)

// ScreenshotSource captures through the platform screenshot APIs.
type ScreenshotSource struct{}

// NewScreenshotSource verifies at least one display is attached.
func NewScreenshotSource() (*ScreenshotSource, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, apperrors.New(apperrors.CaptureFailed, "no active displays")
	}
	return &ScreenshotSource{}, nil
}

// Capture implements Source.
func (ScreenshotSource) Capture(rect image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(rect)
}

// DisplayBounds returns the union of all active display bounds.
func DisplayBounds() image.Rectangle {
	var all image.Rectangle
	for i := 0; i < screenshot.NumActiveDisplays(); i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return all
}
