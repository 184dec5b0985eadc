package work

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO. Producers never block; one consumer polls
// with Recv. After Close, Recv drains what is left and then reports closed.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // capacity 1; a pending token means "look again"
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

// Push appends v. Pushing to a closed queue is a no-op and returns false.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.wake()
	return true
}

// Close marks the end of the stream. Idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *Queue[T]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryRecv pops the head without waiting.
func (q *Queue[T]) TryRecv() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Recv waits up to timeout for a value. open is false once the queue is
// closed and empty; ok is false on timeout or close.
func (q *Queue[T]) Recv(timeout time.Duration) (v T, ok bool, open bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if v, ok = q.TryRecv(); ok {
			return v, true, true
		}
		if q.isClosed() {
			// Close may have raced a final Push.
			if v, ok = q.TryRecv(); ok {
				return v, true, true
			}
			return v, false, false
		}
		select {
		case <-q.signal:
		case <-timer.C:
			return v, false, true
		}
	}
}

// Drain pops everything currently queued without waiting.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
