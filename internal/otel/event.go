// Package otel provides structured observability for rankscrape.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events for the TUI debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Crawl events
	KindRunStart    EventKind = "crawl.run_start"
	KindRunComplete EventKind = "crawl.run_complete"
	KindRunCancel   EventKind = "crawl.run_cancel"
	KindDateStart   EventKind = "crawl.date_start"
	KindDateDone    EventKind = "crawl.date_done"
	KindReveal      EventKind = "crawl.reveal"
	KindNavError    EventKind = "crawl.nav_error"

	// Captcha events
	KindCaptchaDetected EventKind = "captcha.detected"
	KindCaptchaSolved   EventKind = "captcha.solved"
	KindCaptchaFailed   EventKind = "captcha.failed"

	// Extraction events
	KindExtractBatch EventKind = "extract.batch"

	// Session events
	KindMerge   EventKind = "session.merge"
	KindPersist EventKind = "session.persist"
	KindExport  EventKind = "session.export"

	// Store events
	KindStoreError EventKind = "store.error"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "coord", "crawl", "captcha", "ui", "main"
	SessionID string         `json:"session_id,omitempty"` // same for entire process
	RunID     string         `json:"run_id,omitempty"`     // one crawl run
	Date      string         `json:"date,omitempty"`       // YYYYMMDD
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Modality  string         `json:"modality,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
