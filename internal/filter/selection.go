package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Selection is the operator-side, editable filter state. It is owned by the
// controller; crawls only ever see the Config snapshot.
type Selection struct {
	Applied   bool
	UseCustom bool
	CustomMin int64
	CustomMax int64
	checked   map[string]bool
}

// NewSelection returns an empty selection with unbounded custom limits.
func NewSelection() *Selection {
	return &Selection{
		CustomMin: Unbounded,
		CustomMax: Unbounded,
		checked:   make(map[string]bool),
	}
}

// Toggle flips a named range. Unknown names are ignored.
func (s *Selection) Toggle(name string) {
	if _, ok := Lookup(name); !ok {
		return
	}
	s.checked[name] = !s.checked[name]
}

// Set selects or clears a named range.
func (s *Selection) Set(name string, on bool) {
	if _, ok := Lookup(name); !ok {
		return
	}
	s.checked[name] = on
}

// Checked reports whether a named range is selected.
func (s *Selection) Checked(name string) bool {
	return s.checked[name]
}

// ToggleCategory selects every range in a category, or clears them all when
// they are already all selected.
func (s *Selection) ToggleCategory(category string) {
	for _, c := range ladder {
		if c.Name != category {
			continue
		}
		all := true
		for _, r := range c.Ranges {
			all = all && s.checked[r.Name]
		}
		for _, r := range c.Ranges {
			s.checked[r.Name] = !all
		}
		return
	}
}

// SetCustom parses operator text for the custom bounds. Empty text means
// unbounded; thousands separators are accepted.
func (s *Selection) SetCustom(minText, maxText string) error {
	lo, err := parseBound(minText)
	if err != nil {
		return fmt.Errorf("minimum subscribers: %w", err)
	}
	hi, err := parseBound(maxText)
	if err != nil {
		return fmt.Errorf("maximum subscribers: %w", err)
	}
	s.CustomMin, s.CustomMax = lo, hi
	return nil
}

func parseBound(text string) (int64, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if text == "" {
		return Unbounded, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Unbounded, fmt.Errorf("%q is not a number", text)
	}
	if n < 0 {
		return Unbounded, fmt.Errorf("%q is negative", text)
	}
	return n, nil
}

// Reset clears every range and the custom bounds.
func (s *Selection) Reset() {
	s.checked = make(map[string]bool)
	s.UseCustom = false
	s.CustomMin, s.CustomMax = Unbounded, Unbounded
}

// Config snapshots the selection.
func (s *Selection) Config() Config {
	var names []string
	for _, name := range RangeNames() {
		if s.checked[name] {
			names = append(names, name)
		}
	}
	return NewConfig(s.Applied, names, s.UseCustom, s.CustomMin, s.CustomMax)
}
