// Package normalize converts raw chart text into canonical numbers and identifiers.
// All functions are pure: string in, value out. None of them panic.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NoData is the placeholder written into a record when the chart row has no
// subscriber element.
const NoData = "no data"

// NotAvailable is the placeholder for missing views or channel text.
const NotAvailable = "N/A"

// noDataMarkers are subscriber texts that mean "unknown", not zero.
var noDataMarkers = []string{NoData, "구독자 정보 없음"}

// nonCountRe matches everything a subscriber count may not contain.
var nonCountRe = regexp.MustCompile(`[^0-9,]`)

// nonWordRe matches runes outside Unicode letters, digits and underscore.
var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// Subscribers parses a subscriber count such as "12,000" or "구독자 12,000명".
// Returns -1 when the text is a no-data marker, empty or unparsable.
func Subscribers(text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return -1
	}
	for _, marker := range noDataMarkers {
		if strings.EqualFold(text, marker) {
			return -1
		}
	}

	digits := strings.ReplaceAll(nonCountRe.ReplaceAllString(text, ""), ",", "")
	if digits == "" {
		return -1
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Views parses a view count with an optional K/M/B suffix ("1.5K", "2M", "12,345").
// Returns 0 on failure; a view count of zero is itself plausible.
func Views(text string) int64 {
	text = strings.ToUpper(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, ",", "")
	if text == "" {
		return 0
	}

	multiplier := 1.0
	switch text[len(text)-1] {
	case 'K':
		multiplier = 1e3
	case 'M':
		multiplier = 1e6
	case 'B':
		multiplier = 1e9
	}

	if multiplier == 1 {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text[:len(text)-1]), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	v := f * multiplier
	if v >= math.MaxInt64 {
		return 0
	}
	return int64(v)
}

// VideoID pulls a video ID out of a chart link ("/video/{id}") or, failing
// that, a thumbnail URL ("/vi/{id}/"). The href wins when both resolve.
func VideoID(href, thumbnailURL string) (string, bool) {
	if id, ok := idAfter(href, "/video/", "?&/#"); ok {
		return id, true
	}
	return idAfter(thumbnailURL, "/vi/", "/_?")
}

// idAfter returns the token following marker, cut at the first of stops.
// Tokens outside 8..15 characters are rejected as malformed matches.
func idAfter(s, marker, stops string) (string, bool) {
	_, rest, found := strings.Cut(s, marker)
	if !found {
		return "", false
	}
	if i := strings.IndexAny(rest, stops); i >= 0 {
		rest = rest[:i]
	}
	if len(rest) < 8 || len(rest) > 15 {
		return "", false
	}
	return rest, true
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}

// Thumbnail canonicalizes the lazy-image background attribute.
func Thumbnail(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		return raw
	default:
		return ""
	}
}

// Fingerprint is the identity key of a chart entry: the lower-cased title with
// all non-word runes removed, joined with the lower-cased channel, hashed.
// Stable across runs; used for cross-session dedup.
func Fingerprint(title, channel string) string {
	t := nonWordRe.ReplaceAllString(strings.ToLower(title), "")
	c := strings.ToLower(channel)
	sum := sha256.Sum256([]byte(t + "|" + c))
	return hex.EncodeToString(sum[:])
}
