// Package resilience provides the circuit breaker guarding the recognition and
// translation collaborators, and the retry loop used for inference calls.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker position.
type State uint32

const (
	Closed   State = iota // calls pass through
	Open                  // calls fail fast with ErrOpen
	HalfOpen              // trial calls test whether the collaborator recovered
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen is returned while the breaker is failing fast.
var ErrOpen = errors.New("circuit breaker open")

// Counts is a point-in-time view of a breaker.
type Counts struct {
	State     State
	Failures  int
	Successes int
	Rejected  uint64
	OpenedAt  time.Time
}

// Breaker counts consecutive failures of one collaborator and stops calling
// it for ResetTimeout once Threshold is reached. HalfOpenSuccesses trial
// successes in a row close it again.
type Breaker struct {
	cfg Config
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex
	counts Counts
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	cfg = cfg.withDefaults()
	return &Breaker{
		cfg: cfg,
		log: slog.Default().With("breaker", cfg.Name),
		now: time.Now,
	}
}

// Name returns the configured breaker name.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts.State
}

// Counts returns a copy of the counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Allow reports ErrOpen while the breaker is open and the reset timeout has
// not yet elapsed. The first call after it elapses moves to half-open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.counts.State {
	case Open:
		if b.now().Sub(b.counts.OpenedAt) < b.cfg.ResetTimeout {
			b.counts.Rejected++
			return ErrOpen
		}
		b.moveLocked(HalfOpen)
	case Closed, HalfOpen:
	}
	return nil
}

// Success records a call that worked.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.counts.State {
	case Closed:
		b.counts.Failures = 0
	case HalfOpen:
		b.counts.Successes++
		if b.counts.Successes >= b.cfg.HalfOpenSuccesses {
			b.moveLocked(Closed)
		}
	case Open:
	}
}

// Failure records a call that failed.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counts.Failures++
	switch b.counts.State {
	case Closed:
		if b.counts.Failures >= b.cfg.Threshold {
			b.moveLocked(Open)
		}
	case HalfOpen:
		b.moveLocked(Open)
	case Open:
	}
}

func (b *Breaker) moveLocked(to State) {
	from := b.counts.State
	if from == to {
		return
	}
	b.counts.State = to
	b.counts.Successes = 0

	switch to {
	case Open:
		b.counts.OpenedAt = b.now()
		b.log.Warn("circuit breaker opened", "failures", b.counts.Failures, "retry_in", b.cfg.ResetTimeout)
	case HalfOpen:
		b.log.Info("circuit breaker half-open")
	case Closed:
		b.counts.Failures = 0
		b.log.Info("circuit breaker closed", "rejected", b.counts.Rejected)
	}
}

// Call runs fn under b and returns its result. ErrOpen is returned without
// calling fn while the breaker is open.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	out, err := fn()
	if err != nil {
		b.Failure()
		return zero, err
	}
	b.Success()
	return out, nil
}
