// Package trigger asks the UI loop for a capture on a fixed interval.
package trigger

import (
	"context"
	"log/slog"
	"time"

	"github.com/GriffinCanCode/screenlingo/internal/command"
	"github.com/GriffinCanCode/screenlingo/internal/mode"
)

// DefaultInterval is the refresh period.
const DefaultInterval = time.Second

// Interval emits RequestCapture every period while auto-refresh is on and
// the overlay is visible.
type Interval struct {
	period time.Duration
	mode   *mode.State
	sink   command.Sink
	log    *slog.Logger
}

// NewInterval creates an interval trigger.
func NewInterval(period time.Duration, m *mode.State, sink command.Sink) *Interval {
	if period <= 0 {
		period = DefaultInterval
	}
	return &Interval{period: period, mode: m, sink: sink, log: slog.Default().With("component", "trigger")}
}

// Run emits until ctx ends. The first request goes out immediately.
func (t *Interval) Run(ctx context.Context) {
	t.log.Info("trigger started", "interval", t.period)
	defer t.log.Info("trigger stopped")

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		if t.mode.Refreshing() {
			t.sink.Send(command.Capture())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
