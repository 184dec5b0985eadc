package work

import (
	"context"
	"sync"
)

// Task is the handle to one background job: a stream of events of type E
// and exactly one result of type R. The result is readable before the
// terminal event is queued and before the stream closes, so a consumer that
// sees either can always collect the result.
type Task[E, R any] struct {
	events *Queue[E]
	result chan R
	cancel context.CancelFunc
	once   sync.Once
}

// Go starts fn in a goroutine. fn emits through emit and returns its result.
// If done is non-nil its event is queued last, after the result is stored.
// The derived context is cancelled by Cancel.
func Go[E, R any](ctx context.Context, fn func(ctx context.Context, emit func(E)) R, done func(R) E) *Task[E, R] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[E, R]{
		events: NewQueue[E](),
		result: make(chan R, 1),
		cancel: cancel,
	}
	go func() {
		defer cancel()
		r := fn(ctx, func(e E) { t.events.Push(e) })
		t.result <- r
		if done != nil {
			t.events.Push(done(r))
		}
		t.events.Close()
	}()
	return t
}

// Events is the task's event stream.
func (t *Task[E, R]) Events() *Queue[E] {
	return t.events
}

// Cancel asks the task to stop at its next checkpoint. Idempotent.
func (t *Task[E, R]) Cancel() {
	t.once.Do(t.cancel)
}

// Result blocks until the task finishes or ctx ends.
func (t *Task[E, R]) Result(ctx context.Context) (R, error) {
	select {
	case r := <-t.result:
		// Put it back so later readers see it too.
		t.result <- r
		return r, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryResult returns the result if the task has finished.
func (t *Task[E, R]) TryResult() (R, bool) {
	select {
	case r := <-t.result:
		t.result <- r
		return r, true
	default:
		var zero R
		return zero, false
	}
}
