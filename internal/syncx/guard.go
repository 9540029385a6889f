// Package syncx holds the handoff primitives shared by the loops.
package syncx

import "sync"

// Published is the state one loop publishes for readers on other goroutines,
// such as the display snapshot served to browser overlays. Each Publish bumps
// a version so a poller can tell whether anything changed since its last read.
type Published[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// NewPublished creates a published value at version 0.
func NewPublished[T any](initial T) *Published[T] {
	return &Published[T]{value: initial}
}

// Publish replaces the value and returns the new version.
func (p *Published[T]) Publish(v T) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
	p.version++
	return p.version
}

// Load returns a copy of the value and the version it was published at.
// T should be a value type or immutable.
func (p *Published[T]) Load() (T, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value, p.version
}
