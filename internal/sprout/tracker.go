package sprout

import (
	"sync"
	"time"

	"github.com/nvandessel/thoughtseed/internal/thoughtseed"
)

// Entry is one tracked sprout and its activation time.
type Entry struct {
	Sprout    *thoughtseed.Thoughtsprout `json:"sprout"`
	Timestamp time.Time                  `json:"timestamp"`
}

// Tracker is an append-only record of sprouts in orchestration order.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track appends s and stamps its Sequence with its position.
func (t *Tracker) Track(s *thoughtseed.Thoughtsprout) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.Sequence = len(t.entries)
	t.entries = append(t.entries, Entry{Sprout: s, Timestamp: s.TimeActivated})
}

// Len returns the number of tracked sprouts.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entries returns a copy of the tracked entries in order.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Timestamps returns the activation times in order.
func (t *Tracker) Timestamps() []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Time, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Timestamp
	}
	return out
}
