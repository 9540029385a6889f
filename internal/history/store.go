// Package history keeps the most recent lines shown on the overlay.
package history

import (
	"sync"
	"time"
)

// DefaultSize is the number of entries kept when none is configured.
const DefaultSize = 100

// Entry is one shown line.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
}

// Store is a bounded in-memory history, oldest first.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
	now     func() time.Time
}

// NewStore creates a store holding at most maxEntries.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultSize
	}
	return &Store{
		entries: make([]Entry, 0, maxEntries),
		maxSize: maxEntries,
		now:     time.Now,
	}
}

// Record appends a shown line, evicting the oldest past the bound.
func (s *Store) Record(original, translated string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		Timestamp:  s.now(),
		Original:   original,
		Translated: translated,
	})
	if len(s.entries) > s.maxSize {
		s.entries = append(s.entries[:0], s.entries[len(s.entries)-s.maxSize:]...)
	}
}

// Recent returns the entries recorded within window.
func (s *Store) Recent(window time.Duration) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-window)
	var out []Entry
	for _, e := range s.entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Last returns up to n of the newest entries, oldest first.
func (s *Store) Last(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
