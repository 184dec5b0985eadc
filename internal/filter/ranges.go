package filter

import (
	"math"
	"strconv"
)

// Unbounded marks an open side of a custom range.
const Unbounded int64 = -1

// Range is a named half-open subscriber interval [Min, Max).
// The top bucket uses math.MaxInt64 as Max.
type Range struct {
	Name string
	Min  int64
	Max  int64
}

// Contains reports whether n falls in [Min, Max).
func (r Range) Contains(n int64) bool {
	return n >= r.Min && n < r.Max
}

// Category groups ranges for display.
type Category struct {
	Name   string
	Ranges []Range
}

// ladder is the fixed, non-overlapping partition from 0 to 10M+.
// It is a lookup table, not configuration.
var ladder = []Category{
	{Name: "0K~100K", Ranges: []Range{
		{"0~1K", 0, 1_000},
		{"1K~5K", 1_000, 5_000},
		{"5K~10K", 5_000, 10_000},
		{"10K~50K", 10_000, 50_000},
		{"50K~100K", 50_000, 100_000},
	}},
	{Name: "100K~1M", Ranges: []Range{
		{"100K~500K", 100_000, 500_000},
		{"500K~1M", 500_000, 1_000_000},
	}},
	{Name: "1M~5M", Ranges: steps(1_000_000, 5_000_000)},
	{Name: "5M~10M", Ranges: steps(5_000_000, 10_000_000)},
	{Name: "10M+", Ranges: []Range{
		{"10M+", 10_000_000, math.MaxInt64},
	}},
}

// byName indexes the ladder.
var byName = func() map[string]Range {
	m := make(map[string]Range)
	for _, c := range ladder {
		for _, r := range c.Ranges {
			m[r.Name] = r
		}
	}
	return m
}()

// steps splits [from, to) into 500K buckets named like "1M~1.5M".
func steps(from, to int64) []Range {
	var out []Range
	for lo := from; lo < to; lo += 500_000 {
		hi := lo + 500_000
		out = append(out, Range{Name: millions(lo) + "~" + millions(hi), Min: lo, Max: hi})
	}
	return out
}

// millions formats multiples of 500K as "1M", "1.5M".
func millions(n int64) string {
	whole := n / 1_000_000
	s := strconv.FormatInt(whole, 10)
	if n%1_000_000 != 0 {
		s += ".5"
	}
	return s + "M"
}

// Categories returns the ladder in display order. The slice is a copy.
func Categories() []Category {
	out := make([]Category, len(ladder))
	for i, c := range ladder {
		out[i] = Category{Name: c.Name, Ranges: append([]Range(nil), c.Ranges...)}
	}
	return out
}

// Lookup returns the range with the given name.
func Lookup(name string) (Range, bool) {
	r, ok := byName[name]
	return r, ok
}

// RangeNames returns every range name in ladder order.
func RangeNames() []string {
	var names []string
	for _, c := range ladder {
		for _, r := range c.Ranges {
			names = append(names, r.Name)
		}
	}
	return names
}
