package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is set once at package init and read from the UI goroutine.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("RANKSCRAPE_TRACE") != "")
}

// TraceEnabled reports whether RANKSCRAPE_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// setTraceEnabled overrides the flag for tests.
func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
