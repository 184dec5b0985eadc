package session

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/abelbrown/rankscrape/internal/model"
)

// SortMode orders a result table.
type SortMode int

const (
	SortDefault SortMode = iota // insertion order
	SortChannel                 // channel A-Z, then views high-low
	SortViewsDesc
	SortViewsAsc
	SortSubsDesc
	SortSubsAsc
)

var sortNames = []string{"default", "channel", "views-desc", "views-asc", "subs-desc", "subs-asc"}

var sortLabels = []string{"Default", "By channel", "Most views", "Fewest views", "Most subscribers", "Fewest subscribers"}

// SortModes lists every mode in menu order.
func SortModes() []SortMode {
	return []SortMode{SortDefault, SortChannel, SortViewsDesc, SortViewsAsc, SortSubsDesc, SortSubsAsc}
}

func (m SortMode) String() string {
	if m < 0 || int(m) >= len(sortNames) {
		return "unknown"
	}
	return sortNames[m]
}

// Label is the menu text.
func (m SortMode) Label() string {
	if m < 0 || int(m) >= len(sortLabels) {
		return "Unknown"
	}
	return sortLabels[m]
}

// Next cycles to the following mode.
func (m SortMode) Next() SortMode {
	return (m + 1) % SortMode(len(sortNames))
}

// ParseSort accepts the names printed by String.
func ParseSort(s string) (SortMode, error) {
	i := slices.Index(sortNames, strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return SortDefault, fmt.Errorf("unknown sort %q (want one of %s)", s, strings.Join(sortNames, ", "))
	}
	return SortMode(i), nil
}

// Sorted returns a sorted copy. Ties keep insertion order.
func Sorted(items []model.Item, mode SortMode) []model.Item {
	out := slices.Clone(items)
	var less func(a, b model.Item) int
	switch mode {
	case SortChannel:
		less = func(a, b model.Item) int {
			if c := cmp.Compare(a.Channel, b.Channel); c != 0 {
				return c
			}
			return cmp.Compare(b.ViewsNumeric, a.ViewsNumeric)
		}
	case SortViewsDesc:
		less = func(a, b model.Item) int { return cmp.Compare(b.ViewsNumeric, a.ViewsNumeric) }
	case SortViewsAsc:
		less = func(a, b model.Item) int { return cmp.Compare(a.ViewsNumeric, b.ViewsNumeric) }
	case SortSubsDesc:
		less = func(a, b model.Item) int { return cmp.Compare(b.SubscribersNumeric, a.SubscribersNumeric) }
	case SortSubsAsc:
		less = func(a, b model.Item) int { return cmp.Compare(a.SubscribersNumeric, b.SubscribersNumeric) }
	default:
		return out
	}
	slices.SortStableFunc(out, less)
	return out
}
