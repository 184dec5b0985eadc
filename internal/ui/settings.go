package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/rankscrape/internal/target"
)

type settingsField int

const (
	fieldCountry settingsField = iota
	fieldMaxItems
	fieldDates
	settingsFields
)

// settings is the run form: country, item cap and the date spec.
type settings struct {
	country  int // index into target.Countries
	maxItems int // index into target.MaxItemsChoices
	dates    textinput.Model
	cursor   settingsField
}

func newSettings(country string, maxItems int, dates string) settings {
	ti := textinput.New()
	ti.Placeholder = "20240101, 20240105-20240107"
	ti.CharLimit = 400
	ti.Width = 50
	ti.SetValue(dates)

	s := settings{dates: ti}
	for i, c := range target.Countries {
		if c.Code == country {
			s.country = i
		}
	}
	for i, n := range target.MaxItemsChoices {
		if n == maxItems {
			s.maxItems = i
		}
	}
	return s
}

// editing reports whether keystrokes belong to the dates input.
func (s settings) editing() bool {
	return s.dates.Focused()
}

func (s settings) update(msg tea.KeyMsg) (settings, tea.Cmd) {
	if s.editing() {
		switch msg.String() {
		case "enter", "esc", "tab":
			s.dates.Blur()
			return s, nil
		}
		var cmd tea.Cmd
		s.dates, cmd = s.dates.Update(msg)
		return s, cmd
	}

	switch msg.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < settingsFields-1 {
			s.cursor++
		}
	case "left":
		s.cycle(-1)
	case "right", " ":
		s.cycle(1)
	case "enter", "e":
		if s.cursor == fieldDates {
			return s, s.dates.Focus()
		}
		s.cycle(1)
	}
	return s, nil
}

func (s *settings) cycle(step int) {
	wrap := func(i, n int) int { return ((i+step)%n + n) % n }
	switch s.cursor {
	case fieldCountry:
		s.country = wrap(s.country, len(target.Countries))
	case fieldMaxItems:
		s.maxItems = wrap(s.maxItems, len(target.MaxItemsChoices))
	}
}

// target validates the form for a run in mode. Invalid date tokens are
// returned as warnings; the run goes ahead with the valid ones.
func (s settings) target(mode target.Mode) (target.Target, []error, error) {
	days, warnings := target.ParseDates(s.dates.Value())
	tgt, err := target.New(mode, target.Countries[s.country].Code, days, target.MaxItemsChoices[s.maxItems])
	return tgt, warnings, err
}

func (s settings) view() string {
	var b strings.Builder
	b.WriteString(SectionHeader.Render("Crawl settings"))
	b.WriteString("\n")

	row := func(f settingsField, label, value string) {
		line := fmt.Sprintf("%-12s %s", label, value)
		if s.cursor == f {
			line = SelectedItem.Render("> " + line)
		} else {
			line = NormalItem.Render("  " + line)
		}
		b.WriteString(line + "\n")
	}
	row(fieldCountry, "Country", "< "+target.Countries[s.country].Display+" >")
	row(fieldMaxItems, "Max items", fmt.Sprintf("< %d >", target.MaxItemsChoices[s.maxItems]))
	row(fieldDates, "Dates", s.dates.View())

	days, bad := target.ParseDates(s.dates.Value())
	b.WriteString("\n")
	switch {
	case len(days) == 0:
		b.WriteString(MutedText.Render("  no valid dates"))
	case len(days) == 1:
		b.WriteString(MutedText.Render("  1 date: " + target.FormatKey(days[0])))
	default:
		b.WriteString(MutedText.Render(fmt.Sprintf("  %d dates: %s .. %s", len(days),
			target.FormatKey(days[0]), target.FormatKey(days[len(days)-1]))))
	}
	for _, err := range bad {
		b.WriteString("\n" + LogWarn.Render("  "+err.Error()))
	}
	b.WriteString("\n\n" + MutedText.Render("  enter: edit/cycle  s: crawl shorts  l: crawl long videos  x: cancel"))
	return b.String()
}
