// Package filter decides which chart entries a crawl keeps.
// Config is an immutable value; Include and the list helpers are pure.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abelbrown/rankscrape/internal/model"
)

// Config is the subscriber filter for one crawl run. Build it with
// Selection.Config or NewConfig; a copy is never affected by later edits.
type Config struct {
	applied   bool
	selected  string // sorted range names joined by "\x00"
	useCustom bool
	customMin int64
	customMax int64
}

// NewConfig builds a Config. Unknown range names are ignored.
// Negative custom bounds mean unbounded on that side.
func NewConfig(applied bool, ranges []string, useCustom bool, customMin, customMax int64) Config {
	names := make([]string, 0, len(ranges))
	seen := make(map[string]bool, len(ranges))
	for _, name := range ranges {
		if _, ok := Lookup(name); !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)

	if customMin < 0 {
		customMin = Unbounded
	}
	if customMax < 0 {
		customMax = Unbounded
	}
	return Config{
		applied:   applied,
		selected:  strings.Join(names, "\x00"),
		useCustom: useCustom,
		customMin: customMin,
		customMax: customMax,
	}
}

// Applied reports whether filtering is switched on.
func (c Config) Applied() bool { return c.applied }

// Ranges returns the selected range names, sorted.
func (c Config) Ranges() []string {
	if c.selected == "" {
		return nil
	}
	return strings.Split(c.selected, "\x00")
}

// Custom returns the custom range state.
func (c Config) Custom() (enabled bool, min, max int64) {
	return c.useCustom, c.customMin, c.customMax
}

// active reports whether any selection criterion is in force.
func (c Config) active() bool {
	return c.selected != "" || c.useCustom
}

// Include decides whether an entry with the given subscriber count is kept.
//
// Precedence: an unapplied filter keeps everything; an unknown count (-1) is
// dropped once applied; an applied filter with no active criterion keeps
// everything; otherwise the count must match a selected range or the custom
// bound. Any active criterion flips the default from include to exclude.
func Include(subscribers int64, cfg Config) bool {
	if !cfg.applied {
		return true
	}
	if subscribers == -1 {
		return false
	}
	if !cfg.active() {
		return true
	}

	for _, name := range cfg.Ranges() {
		if r, ok := Lookup(name); ok && r.Contains(subscribers) {
			return true
		}
	}

	if cfg.useCustom {
		lo, hi := cfg.customMin, cfg.customMax
		switch {
		case lo >= 0 && hi < 0:
			return subscribers >= lo
		case lo < 0 && hi >= 0:
			return subscribers <= hi
		case lo >= 0 && hi >= 0:
			return lo <= subscribers && subscribers <= hi
		}
	}
	return false
}

// Describe summarizes the configuration for logs.
func (c Config) Describe() string {
	if !c.applied {
		return "off"
	}
	if !c.active() {
		return "on (no criteria, keeps all)"
	}
	var parts []string
	if names := c.Ranges(); len(names) > 0 {
		parts = append(parts, "ranges "+strings.Join(names, ", "))
	}
	if c.useCustom {
		parts = append(parts, fmt.Sprintf("custom %s..%s", bound(c.customMin), bound(c.customMax)))
	}
	return "on: " + strings.Join(parts, "; ")
}

func bound(n int64) string {
	if n < 0 {
		return "*"
	}
	return fmt.Sprintf("%d", n)
}

// BySubscribers keeps items accepted by cfg.
func BySubscribers(items []model.Item, cfg Config) []model.Item {
	result := make([]model.Item, 0, len(items))
	for _, item := range items {
		if Include(item.SubscribersNumeric, cfg) {
			result = append(result, item)
		}
	}
	return result
}

// Dedup removes items with a fingerprint already seen. First occurrence wins.
func Dedup(items []model.Item) []model.Item {
	if len(items) == 0 {
		return []model.Item{}
	}

	seen := make(map[string]bool, len(items))
	result := make([]model.Item, 0, len(items))
	for _, item := range items {
		if seen[item.Hash] {
			continue
		}
		seen[item.Hash] = true
		result = append(result, item)
	}
	return result
}
