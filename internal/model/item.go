// Package model holds the records produced by a crawl.
package model

import "time"

// DateLayout is how a chart day is displayed and exported.
const DateLayout = "2006-01-02"

// Item is one chart entry as scraped from a ranking page.
// Values are copied, never mutated after extraction.
type Item struct {
	Thumbnail          string
	Title              string
	Views              string // raw text, e.g. "1.5M" or "N/A"
	ViewsNumeric       int64
	Channel            string
	Date               time.Time // chart day (midnight, chart time zone)
	Subscribers        string    // raw text or the no-data placeholder
	SubscribersNumeric int64     // -1 = unknown, distinct from 0
	Hash               string    // fingerprint; the sole identity key
	VideoID            string
	URL                string // canonical watch URL, "" when no ID resolved
}

// Day returns the chart day formatted for display.
func (i Item) Day() string {
	if i.Date.IsZero() {
		return ""
	}
	return i.Date.Format(DateLayout)
}

// HasSubscribers reports whether the subscriber count is known.
func (i Item) HasSubscribers() bool {
	return i.SubscribersNumeric >= 0
}

// Hashes returns the fingerprints of items in order.
func Hashes(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Hash
	}
	return out
}
