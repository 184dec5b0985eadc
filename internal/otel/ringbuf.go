package otel

import (
	"maps"

	"github.com/abelbrown/rankscrape/internal/work"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 1024

// RingBuffer keeps the most recent events. Goroutine-safe.
type RingBuffer struct {
	ring *work.Ring[Event]
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{ring: work.NewRing[Event](size)}
}

// Push adds an event, overwriting the oldest if full. Extra is copied so
// callers may reuse their map.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		e.Extra = maps.Clone(e.Extra)
	}
	r.ring.Push(e)
}

// Snapshot returns all events oldest first.
func (r *RingBuffer) Snapshot() []Event { return r.ring.Snapshot() }

// Last returns the n most recent events oldest first.
func (r *RingBuffer) Last(n int) []Event { return r.ring.Last(n) }

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int { return r.ring.Len() }

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int { return r.ring.Cap() }

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	counts := make(map[EventKind]int)
	for _, e := range r.ring.Snapshot() {
		counts[e.Kind]++
	}
	return counts
}
