// Package work holds the small concurrency primitives shared by the crawl
// runner, the controller and the UI: a bounded ring, an unbounded event
// queue, and a task handle that pairs the two with a one-shot result.
package work

import "sync"

// Ring is a fixed-size circular buffer. Goroutine-safe.
type Ring[T any] struct {
	mu    sync.Mutex
	buf   []T
	size  int
	head  int // next write position
	count int // valid entries (0..size)
}

// NewRing creates a ring holding at most size values. size must be positive.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	return &Ring[T]{buf: make([]T, size), size: size}
}

// Push adds v, overwriting the oldest value if full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	r.buf[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// Snapshot returns a copy of all values oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(r.count)
}

// Last returns the n most recent values oldest first. n <= 0 returns nil.
func (r *Ring[T]) Last(n int) []T {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.count {
		n = r.count
	}
	return r.lastLocked(n)
}

func (r *Ring[T]) lastLocked(n int) []T {
	if n == 0 {
		return nil
	}
	result := make([]T, n)
	start := (r.head - n + r.size) % r.size
	if start+n <= r.size {
		copy(result, r.buf[start:start+n])
	} else {
		first := copy(result, r.buf[start:])
		copy(result[first:], r.buf[:n-first])
	}
	return result
}

// Reset drops all values.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.count = 0, 0
	r.mu.Unlock()
}

// Len returns the number of values held.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return r.size
}
