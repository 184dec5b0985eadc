package crawl

import (
	"fmt"
	"time"
)

// EventKind discriminates run events.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
	EventDone
)

// Level is a log line's severity.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Event flows from the running crawl to whoever started it.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Level   Level
	Msg     string
	Percent int     // EventProgress
	Result  *Result // EventDone
}

// Sink receives events in emission order.
type Sink func(Event)

// Discard drops every event.
func Discard(Event) {}

// DoneEvent is the terminal marker carrying the finished result.
func DoneEvent(r Result) Event {
	return Event{Kind: EventDone, Time: time.Now(), Msg: r.Summary(), Result: &r}
}

type emitter struct {
	sink Sink
}

func (e emitter) log(level Level, format string, args ...any) {
	e.sink(Event{Kind: EventLog, Time: time.Now(), Level: level, Msg: fmt.Sprintf(format, args...)})
}

func (e emitter) infof(format string, args ...any) { e.log(LevelInfo, format, args...) }
func (e emitter) warnf(format string, args ...any) { e.log(LevelWarn, format, args...) }
func (e emitter) errorf(format string, args ...any) { e.log(LevelError, format, args...) }

func (e emitter) progress(pct int) {
	e.sink(Event{Kind: EventProgress, Time: time.Now(), Percent: pct})
}
