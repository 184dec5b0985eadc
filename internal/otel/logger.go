package otel

// Goroutine safety:
// The drain goroutine is the sole reader of l.ch and the sole writer to l.w.
// Logger.mu protects only the l.buf pointer (read by drain, written by SetRingBuffer).
// The ring buffer has its own lock.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// writerChanSize is the capacity of the async write channel.
const writerChanSize = 4096

// logEntry carries both serialized bytes (for disk) and the original Event
// (for the ring buffer) so Dur survives in the ring copy.
type logEntry struct {
	data []byte
	ev   Event
}

// Logger serializes events as JSONL via an async background writer.
// Goroutine-safe.
type Logger struct {
	mu        sync.Mutex
	buf       *RingBuffer
	sessionID string
	ch        chan logEntry
	w         io.Writer
	dropped   atomic.Uint64 // full channel, encode failure, or write error
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewLogger creates a Logger writing JSONL to w asynchronously.
// Call Close() to flush and stop.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		sessionID: uuid.NewString(),
		ch:        make(chan logEntry, writerChanSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger creates a Logger that discards output.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// SessionID identifies this process in every emitted line.
func (l *Logger) SessionID() string {
	return l.sessionID
}

func (l *Logger) drain() {
	defer close(l.done)
	for entry := range l.ch {
		if _, err := l.w.Write(entry.data); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		rb := l.buf
		l.mu.Unlock()

		if rb != nil {
			rb.Push(entry.ev)
		}
	}
}

// Emit writes an event to the JSONL log (and ring buffer if attached).
// Non-blocking: if the channel is full or the logger is closed, the event
// is dropped and counted.
//
// A Close racing between the closed check and the send panics on the
// closed channel; that panic is recovered and counted as a drop.
func (l *Logger) Emit(e Event) {
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case l.ch <- logEntry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Scope stamps a component, and optionally a run ID, onto what it emits.
// The zero Scope and a Scope over a nil Logger discard everything.
type Scope struct {
	l     *Logger
	comp  string
	runID string
}

// Scope returns an emitter for one component. Safe on a nil Logger.
func (l *Logger) Scope(comp string) Scope {
	return Scope{l: l, comp: comp}
}

// Run returns a copy of s that tags events with runID.
func (s Scope) Run(runID string) Scope {
	s.runID = runID
	return s
}

// Emit fills Comp and RunID when the event leaves them empty.
func (s Scope) Emit(e Event) {
	if s.l == nil {
		return
	}
	if e.Comp == "" {
		e.Comp = s.comp
	}
	if e.RunID == "" {
		e.RunID = s.runID
	}
	s.l.Emit(e)
}

// Info emits an info-level event.
func (s Scope) Info(kind EventKind, msg string) {
	s.Emit(Event{Level: LevelInfo, Kind: kind, Msg: msg})
}

// Warn emits a warn-level event.
func (s Scope) Warn(kind EventKind, msg string) {
	s.Emit(Event{Level: LevelWarn, Kind: kind, Msg: msg})
}

// Error emits an error-level event. Nil err is safe.
func (s Scope) Error(kind EventKind, err error) {
	e := Event{Level: LevelError, Kind: kind}
	if err != nil {
		e.Err = err.Error()
	}
	s.Emit(e)
}

// SetRingBuffer attaches a ring buffer for live inspection.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = buf
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes pending events and stops the drain goroutine. Concurrent
// Emit calls after Close are dropped, not panicked.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "rankscrape: %d events dropped during session %s\n", d, l.sessionID)
		}
	})
}
