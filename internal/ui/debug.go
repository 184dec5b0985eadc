package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/rankscrape/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing crawl stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Crawl Stats"))
	lines = append(lines, fmt.Sprintf("  Runs:       %d started, %d complete, %d cancelled",
		stats[otel.KindRunStart], stats[otel.KindRunComplete], stats[otel.KindRunCancel]))
	lines = append(lines, fmt.Sprintf("  Dates:      %d started, %d done, %d nav errors",
		stats[otel.KindDateStart], stats[otel.KindDateDone], stats[otel.KindNavError]))
	lines = append(lines, fmt.Sprintf("  Extract:    %d pages, %d reveal steps",
		stats[otel.KindExtractBatch], stats[otel.KindReveal]))
	lines = append(lines, fmt.Sprintf("  Captcha:    %d detected, %d solved, %d failed",
		stats[otel.KindCaptchaDetected], stats[otel.KindCaptchaSolved], stats[otel.KindCaptchaFailed]))
	lines = append(lines, fmt.Sprintf("  Session:    %d merges, %d saves, %d store errors",
		stats[otel.KindMerge], stats[otel.KindPersist], stats[otel.KindStoreError]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-22s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Date != "" {
			line += "  " + e.Date
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.RunID != "" {
			line += "  run:" + truncateRunes(e.RunID, 8)
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 90
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// truncateRunes cuts s to n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
