package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/rankscrape/internal/filter"
)

// filterRow is one line of the filter tab: a toggle, a category header or
// a named range.
type filterRow struct {
	kind     filterRowKind
	category string
	rng      string
}

type filterRowKind int

const (
	rowApplied filterRowKind = iota
	rowCategory
	rowRange
	rowCustom
	rowCustomMin
	rowCustomMax
)

// filters edits a filter.Selection. Runs only ever see Config snapshots.
type filters struct {
	sel    *filter.Selection
	rows   []filterRow
	cursor int
	min    textinput.Model
	max    textinput.Model
	err    error
}

func newFilters() filters {
	f := filters{sel: filter.NewSelection(), min: boundInput("min"), max: boundInput("max")}
	f.rows = append(f.rows, filterRow{kind: rowApplied})
	for _, c := range filter.Categories() {
		f.rows = append(f.rows, filterRow{kind: rowCategory, category: c.Name})
		for _, r := range c.Ranges {
			f.rows = append(f.rows, filterRow{kind: rowRange, category: c.Name, rng: r.Name})
		}
	}
	f.rows = append(f.rows,
		filterRow{kind: rowCustom},
		filterRow{kind: rowCustomMin},
		filterRow{kind: rowCustomMax},
	)
	return f
}

func boundInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 20
	ti.Width = 16
	return ti
}

// Config snapshots the current selection.
func (f filters) Config() filter.Config {
	return f.sel.Config()
}

func (f filters) editing() bool {
	return f.min.Focused() || f.max.Focused()
}

func (f filters) update(msg tea.KeyMsg) (filters, tea.Cmd) {
	if f.editing() {
		switch msg.String() {
		case "enter", "esc", "tab":
			f.min.Blur()
			f.max.Blur()
			f.err = f.sel.SetCustom(f.min.Value(), f.max.Value())
			return f, nil
		}
		var cmd tea.Cmd
		if f.min.Focused() {
			f.min, cmd = f.min.Update(msg)
		} else {
			f.max, cmd = f.max.Update(msg)
		}
		return f, cmd
	}

	switch msg.String() {
	case "up", "k":
		if f.cursor > 0 {
			f.cursor--
		}
	case "down", "j":
		if f.cursor < len(f.rows)-1 {
			f.cursor++
		}
	case "r":
		f.sel.Reset()
		f.min.SetValue("")
		f.max.SetValue("")
		f.err = nil
	case " ", "enter":
		row := f.rows[f.cursor]
		switch row.kind {
		case rowApplied:
			f.sel.Applied = !f.sel.Applied
		case rowCategory:
			f.sel.ToggleCategory(row.category)
		case rowRange:
			f.sel.Toggle(row.rng)
		case rowCustom:
			f.sel.UseCustom = !f.sel.UseCustom
		case rowCustomMin:
			return f, f.min.Focus()
		case rowCustomMax:
			return f, f.max.Focus()
		}
	}
	return f, nil
}

func checkbox(on bool) string {
	if on {
		return Checked.Render("[x]")
	}
	return "[ ]"
}

func (f filters) categoryChecked(name string) bool {
	for _, c := range filter.Categories() {
		if c.Name != name {
			continue
		}
		for _, r := range c.Ranges {
			if !f.sel.Checked(r.Name) {
				return false
			}
		}
		return true
	}
	return false
}

// view renders the rows around the cursor so the list fits height.
func (f filters) view(height int) string {
	var lines []string
	for i, row := range f.rows {
		var line string
		switch row.kind {
		case rowApplied:
			line = checkbox(f.sel.Applied) + " Apply subscriber filter"
		case rowCategory:
			line = checkbox(f.categoryChecked(row.category)) + " " + row.category
		case rowRange:
			line = "    " + checkbox(f.sel.Checked(row.rng)) + " " + row.rng
		case rowCustom:
			line = checkbox(f.sel.UseCustom) + " Custom range"
		case rowCustomMin:
			line = "    Min subscribers " + f.min.View()
		case rowCustomMax:
			line = "    Max subscribers " + f.max.View()
		}
		if i == f.cursor {
			line = SelectedItem.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}

	body := height - 4
	if body < 3 {
		body = 3
	}
	start := 0
	if f.cursor >= body {
		start = f.cursor - body + 1
	}
	end := min(start+body, len(lines))

	var b strings.Builder
	b.WriteString(SectionHeader.Render("Subscriber filter"))
	b.WriteString("\n")
	b.WriteString(strings.Join(lines[start:end], "\n"))
	b.WriteString("\n" + MutedText.Render(fmt.Sprintf("  %s   space: toggle  r: reset", f.Config().Describe())))
	if f.err != nil {
		b.WriteString("\n" + LogError.Render("  "+f.err.Error()))
	}
	return b.String()
}
