// Package shutdown implements the set-once stop signal shared by every loop.
package shutdown

import (
	"context"
	"log/slog"
	"sync"

	"github.com/GriffinCanCode/screenlingo/internal/command"
)

const reasonCancelled = "context cancelled"

// Signal is a monotonic, idempotent broadcast. The first reason wins.
type Signal struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	reason string
}

// NewSignal derives a signal from parent. Cancelling parent sets the signal
// but emits nothing through a Coordinator, so OS signals should go through
// Coordinator.Initiate instead.
func NewSignal(parent context.Context) *Signal {
	ctx, cancel := context.WithCancel(parent)
	return &Signal{ctx: ctx, cancel: cancel}
}

// Set raises the signal and reports whether this call did it.
func (s *Signal) Set(reason string) bool {
	first := false
	s.once.Do(func() {
		if s.ctx.Err() != nil {
			s.reason = reasonCancelled
			return
		}
		s.reason = reason
		first = true
		s.cancel()
	})
	return first
}

// IsSet reports whether the signal has been raised.
func (s *Signal) IsSet() bool { return s.ctx.Err() != nil }

// Done is closed once the signal is raised.
func (s *Signal) Done() <-chan struct{} { return s.ctx.Done() }

// Context returns a context cancelled by the signal.
func (s *Signal) Context() context.Context { return s.ctx }

// Reason returns the reason passed to the first Set, or "context cancelled"
// when the parent context ended it.
func (s *Signal) Reason() string {
	if !s.IsSet() {
		return ""
	}
	s.once.Do(func() { s.reason = reasonCancelled })
	return s.reason
}

// Coordinator couples the signal to the command queue so that initiating
// shutdown from any loop emits exactly one Stop.
type Coordinator struct {
	sig  *Signal
	sink command.Sink
	log  *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(sig *Signal, sink command.Sink) *Coordinator {
	return &Coordinator{sig: sig, sink: sink, log: slog.Default().With("component", "shutdown")}
}

// Signal returns the underlying signal.
func (c *Coordinator) Signal() *Signal { return c.sig }

// Initiate sets the signal and, on the first call only, sends Stop.
func (c *Coordinator) Initiate(reason string) bool {
	if !c.sig.Set(reason) {
		return false
	}
	c.log.Info("shutdown initiated", "reason", reason)
	c.sink.Send(command.StopApp())
	return true
}

// MarkClosed sets the signal without sending Stop. Used when the UI loop is
// the one going away.
func (c *Coordinator) MarkClosed(reason string) bool {
	if !c.sig.Set(reason) {
		return false
	}
	c.log.Info("shutdown initiated", "reason", reason)
	return true
}
