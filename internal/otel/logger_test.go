package otel

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEmitWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindRunStart, Level: LevelInfo, Comp: "crawl", RunID: "r1", Msg: "short/south-korea"})
	l.Emit(Event{Kind: KindDateDone, Level: LevelInfo, Comp: "crawl", RunID: "r1", Date: "20240101", Count: 4, Dur: 1500 * time.Millisecond})
	l.Emit(Event{Kind: KindCaptchaFailed, Level: LevelWarn, Comp: "captcha", Modality: "hcaptcha", Err: "solver timeout"})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	tests := []struct {
		line  int
		field string
		want  any
	}{
		{0, "kind", "crawl.run_start"},
		{0, "level", "info"},
		{0, "run_id", "r1"},
		{1, "date", "20240101"},
		{1, "count", float64(4)},
		{1, "dur_ms", float64(1500)},
		{2, "comp", "captcha"},
		{2, "modality", "hcaptcha"},
		{2, "err", "solver timeout"},
	}
	for _, tt := range tests {
		if got := lines[tt.line][tt.field]; got != tt.want {
			t.Errorf("line %d %s = %v, want %v", tt.line, tt.field, got, tt.want)
		}
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Emit(Event{Kind: KindShutdown})
	l.Close()
	after := time.Now()

	dec := json.NewDecoder(&buf)
	for i := 0; i < 2; i++ {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			t.Fatalf("decode line %d: %v", i, err)
		}
		if ev.Time.Before(before) || ev.Time.After(after) {
			t.Errorf("line %d: time %v not in [%v, %v]", i, ev.Time, before, after)
		}
		if ev.SessionID == "" || ev.SessionID != l.SessionID() {
			t.Errorf("line %d: session_id = %q, want %q", i, ev.SessionID, l.SessionID())
		}
	}
}

func TestOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := strings.TrimSpace(buf.String())
	for _, field := range []string{"dur_ms", "count", "run_id", "date", "modality", "err", "msg", "extra"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("expected field %q to be omitted, but found in: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Scope("crawl").Info(KindReveal, "scroll")
		}()
	}
	wg.Wait()
	l.Close()

	if lines := decodeLines(t, &buf); len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup, Msg: "start"})
	l.Close()
	l.Close()
	l.Emit(Event{Kind: KindShutdown, Msg: "late"})

	if lines := decodeLines(t, &buf); len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
}

func TestDropCounter(t *testing.T) {
	// Use a blocking writer that holds up the drain goroutine while we flood the channel.
	bw := &blockingWriter{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	l := NewLogger(bw)

	// First emit gets picked up by drain, which blocks on write.
	l.Emit(Event{Kind: KindRunStart})
	<-bw.started // wait for drain to enter Write (deterministic, no sleep)

	// Now flood: channel capacity is writerChanSize, so writerChanSize+10 should cause drops.
	for i := 0; i < writerChanSize+10; i++ {
		l.Emit(Event{Kind: KindRunStart})
	}

	dropped := l.Dropped()
	if dropped == 0 {
		t.Error("expected some drops when channel is full, got 0")
	}

	close(bw.block) // unblock writer
	l.Close()
}

type blockingWriter struct {
	started chan struct{} // closed when first Write begins
	block   chan struct{} // closed to unblock writer
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started) // signal that drain has entered Write
		<-w.block        // block until test is done flooding
	})
	return len(p), nil
}

func TestScopeStampsCompAndRun(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	crawl := l.Scope("crawl")
	crawl.Info(KindStartup, "starting")
	crawl.Run("run-1").Warn(KindNavError, "timeout")
	crawl.Run("run-1").Emit(Event{Kind: KindCaptchaSolved, Comp: "captcha", Modality: "recaptcha_v2"})
	l.Scope("coord").Error(KindError, errForTest("disk full"))
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}

	tests := []struct {
		level string
		kind  string
		comp  string
		run   any
	}{
		{"info", "sys.startup", "crawl", nil},
		{"warn", "crawl.nav_error", "crawl", "run-1"},
		{"", "captcha.solved", "captcha", "run-1"},
		{"error", "sys.error", "coord", nil},
	}
	for i, tt := range tests {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(lines[i]), &decoded); err != nil {
			t.Errorf("line %d: %v", i, err)
			continue
		}
		if lvl, _ := decoded["level"].(string); lvl != tt.level {
			t.Errorf("line %d: level=%v, want %v", i, decoded["level"], tt.level)
		}
		if decoded["kind"] != tt.kind {
			t.Errorf("line %d: kind=%v, want %v", i, decoded["kind"], tt.kind)
		}
		if decoded["comp"] != tt.comp {
			t.Errorf("line %d: comp=%v, want %v", i, decoded["comp"], tt.comp)
		}
		if decoded["run_id"] != tt.run {
			t.Errorf("line %d: run_id=%v, want %v", i, decoded["run_id"], tt.run)
		}
	}
	if !strings.Contains(lines[3], `"err":"disk full"`) {
		t.Errorf("error line missing err: %s", lines[3])
	}
}

func TestNilLoggerScopeDiscards(t *testing.T) {
	var l *Logger
	s := l.Scope("crawl").Run("r")
	s.Info(KindRunStart, "ignored")
	s.Error(KindError, nil)

	var zero Scope
	zero.Emit(Event{Kind: KindStartup})
	// no panic = pass
}

type errForTest string

func (e errForTest) Error() string { return string(e) }
