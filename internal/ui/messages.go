// Package ui provides the Bubble Tea TUI for rankscrape.
package ui

import "github.com/abelbrown/rankscrape/internal/crawl"

// RunEvents carries whatever the running crawl queued since the last poll.
// Empty when the poll timed out.
type RunEvents struct {
	Events []crawl.Event
}

// ExportDone is sent when an export file has been written.
type ExportDone struct {
	Path  string
	Items int
	Err   error
}

// BrowserReady is sent when the browser finished launching (and logging in,
// when credentials are configured).
type BrowserReady struct {
	Err error
}
