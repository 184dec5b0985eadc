// Package target describes what one crawl run visits: the chart kind, the
// country, the list of chart days and the item cap.
package target

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultBaseURL is the chart site.
const DefaultBaseURL = "https://playboard.co"

// MaxItemsChoices are the caps the operator may pick from.
var MaxItemsChoices = []int{200, 500, 2500, 5000}

// Mode selects the chart kind.
type Mode string

const (
	ModeShort Mode = "short"
	ModeLong  Mode = "long"
)

// ParseMode accepts "short" or "long" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeShort:
		return ModeShort, nil
	case ModeLong:
		return ModeLong, nil
	}
	return "", &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("%q is not short or long", s)}
}

// Country is a chart region.
type Country struct {
	Code    string // URL slug
	Display string
}

// Countries lists the supported regions in display order.
var Countries = []Country{
	{Code: "south-korea", Display: "South Korea"},
	{Code: "united-states", Display: "United States"},
	{Code: "japan", Display: "Japan"},
}

// LookupCountry finds a region by slug.
func LookupCountry(code string) (Country, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, c := range Countries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}

// ConfigurationError reports invalid operator input. A run is not started.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Target is one validated crawl request. Dates are ascending and unique.
type Target struct {
	Mode     Mode
	Country  Country
	Dates    []time.Time
	MaxItems int
}

// New validates operator input into a Target. Long-form charts are
// region-independent and always use the first country.
func New(mode Mode, countryCode string, dates []time.Time, maxItems int) (Target, error) {
	if mode != ModeShort && mode != ModeLong {
		return Target{}, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("%q is not short or long", mode)}
	}
	country, ok := LookupCountry(countryCode)
	if !ok {
		return Target{}, &ConfigurationError{Field: "country", Reason: fmt.Sprintf("unsupported country %q", countryCode)}
	}
	if mode == ModeLong {
		country = Countries[0]
	}
	if len(dates) == 0 {
		return Target{}, &ConfigurationError{Field: "dates", Reason: "no valid dates"}
	}
	if !slices.Contains(MaxItemsChoices, maxItems) {
		return Target{}, &ConfigurationError{Field: "max items", Reason: fmt.Sprintf("%d is not one of %v", maxItems, MaxItemsChoices)}
	}

	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		days = append(days, Day(d))
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	days = slices.CompactFunc(days, func(a, b time.Time) bool { return a.Equal(b) })

	return Target{Mode: mode, Country: country, Dates: days, MaxItems: maxItems}, nil
}

// URL builds the chart address for one day.
func (t Target) URL(baseURL string, day time.Time) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	key := PeriodKey(day)
	if t.Mode == ModeShort {
		return fmt.Sprintf("%s/chart/short/most-viewed-all-videos-in-%s-daily?period=%d", baseURL, t.Country.Code, key)
	}
	return fmt.Sprintf("%s/chart/video/?period=%d", baseURL, key)
}

// String summarizes the target for logs.
func (t Target) String() string {
	return fmt.Sprintf("%s chart, %s, %d day(s), up to %d items", t.Mode, t.Country.Display, len(t.Dates), t.MaxItems)
}
