// Package capture owns the screen-capture boundary: a Source collaborator
// that grabs pixels and a Gateway that turns grabs into sequenced Frames.
//
// The Gateway is only called from the UI loop; pixels and window state are
// never touched from the worker.
package capture

import (
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
)

// Frame is one immutable capture of the region.
type Frame struct {
	Image      *image.RGBA
	Region     Region
	Seq        uint64
	CapturedAt time.Time
}

// Source grabs the pixels of a screen rectangle.
type Source interface {
	Capture(rect image.Rectangle) (*image.RGBA, error)
}

// Excluder reports whether the renderer currently keeps the overlay out of
// captured pixels on its own. A native window may only learn this once it
// has been shown.
type Excluder interface {
	SelfExcluding() bool
}

// Gateway captures the configured region through a Source.
type Gateway struct {
	src      Source
	region   Region
	excluder Excluder
	seq      atomic.Uint64
	log      *slog.Logger
}

// NewGateway creates a gateway. excluder is asked before every capture; nil
// means the overlay is never excluded.
func NewGateway(src Source, region Region, excluder Excluder) *Gateway {
	return &Gateway{
		src:      src,
		region:   region,
		excluder: excluder,
		log:      slog.Default().With("component", "capture"),
	}
}

// Region returns the capture region.
func (g *Gateway) Region() Region { return g.region }

// Capture grabs the region once.
func (g *Gateway) Capture() (*Frame, error) {
	start := time.Now()
	img, err := g.src.Capture(g.region.Rect())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureFailed, "capture region").
			WithMetadata("region", g.region.String())
	}
	if img == nil {
		return nil, apperrors.New(apperrors.CaptureFailed, "capture returned no image").
			WithMetadata("region", g.region.String())
	}

	f := &Frame{
		Image:      img,
		Region:     g.region,
		Seq:        g.seq.Add(1),
		CapturedAt: start,
	}
	g.log.Debug("frame captured", "seq", f.Seq, "latency", time.Since(start))
	return f, nil
}

// NeedsHide reports whether the overlay has to be hidden before capturing so
// that it does not end up in its own input.
func (g *Gateway) NeedsHide(overlayShown bool, overlay Region) bool {
	if !overlayShown {
		return false
	}
	if g.excluder != nil && g.excluder.SelfExcluding() {
		return false
	}
	return g.region.Intersects(overlay)
}

// Captured returns how many frames have been produced.
func (g *Gateway) Captured() uint64 { return g.seq.Load() }
