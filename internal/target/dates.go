package target

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// KeyLayout is the compact day format used in date specs.
const KeyLayout = "20060102"

// chartZone is the zone chart days are cut in (KST, UTC+9).
var chartZone = time.FixedZone("KST", 9*60*60)

// Day truncates t to midnight of its calendar day in the chart zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, chartZone)
}

// PeriodKey is the chart's period parameter: unix seconds of the day's start.
func PeriodKey(day time.Time) int64 {
	return Day(day).Unix()
}

// FromPeriodKey inverts PeriodKey.
func FromPeriodKey(key int64) time.Time {
	return time.Unix(key, 0).In(chartZone)
}

// FormatKey renders a day as YYYYMMDD.
func FormatKey(day time.Time) string {
	return day.Format(KeyLayout)
}

// maxRangeDays guards against a typo expanding into decades of days.
const maxRangeDays = 366 * 2

// ParseDates expands a spec like "20240101, 20240105-20240107" into ascending,
// unique days. Invalid tokens are skipped and reported.
func ParseDates(spec string) ([]time.Time, []error) {
	var (
		days []time.Time
		errs []error
	)
	compact := strings.Join(strings.Fields(spec), "")
	for _, token := range strings.Split(compact, ",") {
		if token == "" {
			continue
		}
		if start, end, isRange := strings.Cut(token, "-"); isRange {
			expanded, err := expandRange(start, end)
			if err != nil {
				errs = append(errs, fmt.Errorf("date range %q: %w", token, err))
				continue
			}
			days = append(days, expanded...)
			continue
		}
		day, err := parseKey(token)
		if err != nil {
			errs = append(errs, fmt.Errorf("date %q: %w", token, err))
			continue
		}
		days = append(days, day)
	}

	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	days = slices.CompactFunc(days, func(a, b time.Time) bool { return a.Equal(b) })
	return days, errs
}

// FormatKeys renders days as YYYYMMDD strings.
func FormatKeys(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = FormatKey(d)
	}
	return out
}

func parseKey(s string) (time.Time, error) {
	if len(s) != len(KeyLayout) {
		return time.Time{}, fmt.Errorf("want 8 digits YYYYMMDD")
	}
	t, err := time.ParseInLocation(KeyLayout, s, chartZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a calendar day")
	}
	return t, nil
}

func expandRange(startKey, endKey string) ([]time.Time, error) {
	start, err := parseKey(startKey)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := parseKey(endKey)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end is before start")
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if len(days) >= maxRangeDays {
			return nil, fmt.Errorf("longer than %d days", maxRangeDays)
		}
		days = append(days, d)
	}
	return days, nil
}
