package syncx

import (
	"errors"
	"sync"
	"time"
)

// ErrSealed is returned by Put after the slot has been sealed.
var ErrSealed = errors.New("slot sealed")

// Result tells a Take caller why it returned.
type Result int

const (
	Received Result = iota // a value was taken
	TimedOut               // nothing arrived within the wait
	Sealed                 // the sentinel was delivered; no more values will follow
)

func (r Result) String() string {
	return [...]string{"received", "timed-out", "sealed"}[r]
}

// Slot is a single-slot mailbox with overwrite semantics.
//
// Put replaces any unread value instead of queueing behind it, so the
// consumer only ever sees the latest one. Seal delivers a sentinel that
// replaces a pending value and makes every later Take return Sealed, which
// is how a blocked consumer is released at shutdown.
//
// Put and Seal are safe from any goroutine; Take and TryTake expect a single
// consumer.
type Slot[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	sealed  bool
	drops   uint64
	notify  chan struct{}
	sealedC chan struct{}
}

// NewSlot creates an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{
		notify:  make(chan struct{}, 1),
		sealedC: make(chan struct{}),
	}
}

// Put stores v, replacing an unread value. It never blocks.
func (s *Slot[T]) Put(v T) error {
	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return ErrSealed
	}
	if s.full {
		s.drops++
	}
	s.value = v
	s.full = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Seal delivers the sentinel. It is idempotent and reports whether this call
// sealed the slot.
func (s *Slot[T]) Seal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return false
	}
	if s.full {
		var zero T
		s.value = zero
		s.full = false
		s.drops++
	}
	s.sealed = true
	close(s.sealedC)
	return true
}

// TryTake takes the pending value without waiting.
func (s *Slot[T]) TryTake() (T, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeLocked()
}

func (s *Slot[T]) takeLocked() (T, Result) {
	var zero T
	if s.sealed {
		return zero, Sealed
	}
	if !s.full {
		return zero, TimedOut
	}
	v := s.value
	s.value = zero
	s.full = false
	return v, Received
}

// Take waits up to timeout for a value or the sentinel.
func (s *Slot[T]) Take(timeout time.Duration) (T, Result) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if v, r := s.TryTake(); r != TimedOut {
			return v, r
		}
		select {
		case <-s.notify:
		case <-s.sealedC:
		case <-timer.C:
			return s.TryTake()
		}
	}
}

// Pending reports whether an unread value is waiting.
func (s *Slot[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full
}

// Drops returns how many values were overwritten before being read.
func (s *Slot[T]) Drops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}
