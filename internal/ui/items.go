package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/session"
)

// Fixed column widths; Title takes the rest.
const (
	colMark     = 3
	colIndex    = 5
	colViews    = 9
	colChannel  = 20
	colDate     = 10
	colSubs     = 12
	minTitleCol = 20
)

// itemList is a sortable, markable table of items.
type itemList struct {
	src    []model.Item // as given
	items  []model.Item // display order
	mode   session.SortMode
	marked map[string]bool
	table  table.Model
	width  int
}

func newItemList() itemList {
	t := table.New(table.WithFocused(true), table.WithHeight(10))
	st := table.DefaultStyles()
	st.Selected = st.Selected.Foreground(colorWhite).Background(colorPrimary).Bold(true)
	t.SetStyles(st)
	l := itemList{marked: map[string]bool{}, table: t}
	l.resize(100, 10)
	return l
}

// setItems replaces the list contents, keeping marks that still apply.
func (l *itemList) setItems(items []model.Item) {
	l.src = items
	l.items = session.Sorted(items, l.mode)
	present := make(map[string]bool, len(l.items))
	for _, it := range l.items {
		present[it.Hash] = true
	}
	for h := range l.marked {
		if !present[h] {
			delete(l.marked, h)
		}
	}
	l.refresh()
}

func (l *itemList) refresh() {
	rows := make([]table.Row, len(l.items))
	for i, it := range l.items {
		mark := ""
		if l.marked[it.Hash] {
			mark = "*"
		}
		rows[i] = table.Row{mark, strconv.Itoa(i + 1), it.Title, it.Views, it.Channel, it.Day(), it.Subscribers}
	}
	l.table.SetRows(rows)
	if c := l.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		l.table.SetCursor(len(rows) - 1)
	}
}

func (l *itemList) resize(width, height int) {
	l.width = width
	title := width - colMark - colIndex - colViews - colChannel - colDate - colSubs - 14
	if title < minTitleCol {
		title = minTitleCol
	}
	l.table.SetColumns([]table.Column{
		{Title: "", Width: colMark},
		{Title: "#", Width: colIndex},
		{Title: "Title", Width: title},
		{Title: "Views", Width: colViews},
		{Title: "Channel", Width: colChannel},
		{Title: "Date", Width: colDate},
		{Title: "Subscribers", Width: colSubs},
	})
	if height < 3 {
		height = 3
	}
	l.table.SetHeight(height)
}

func (l itemList) update(msg tea.KeyMsg) (itemList, tea.Cmd) {
	switch msg.String() {
	case " ":
		if it, ok := l.current(); ok {
			l.marked[it.Hash] = !l.marked[it.Hash]
			if !l.marked[it.Hash] {
				delete(l.marked, it.Hash)
			}
			l.refresh()
			l.table.MoveDown(1)
		}
		return l, nil
	case "A":
		if len(l.marked) == len(l.items) {
			l.marked = map[string]bool{}
		} else {
			for _, it := range l.items {
				l.marked[it.Hash] = true
			}
		}
		l.refresh()
		return l, nil
	case "o":
		l.mode = l.mode.Next()
		l.setItems(l.src)
		return l, nil
	}
	var cmd tea.Cmd
	l.table, cmd = l.table.Update(msg)
	return l, cmd
}

func (l itemList) current() (model.Item, bool) {
	c := l.table.Cursor()
	if c < 0 || c >= len(l.items) {
		return model.Item{}, false
	}
	return l.items[c], true
}

// selection is the marked hashes in display order, or the row under the
// cursor when nothing is marked.
func (l itemList) selection() []string {
	var out []string
	for _, it := range l.items {
		if l.marked[it.Hash] {
			out = append(out, it.Hash)
		}
	}
	if len(out) == 0 {
		if it, ok := l.current(); ok {
			out = append(out, it.Hash)
		}
	}
	return out
}

// selectedItems resolves selection to items.
func (l itemList) selectedItems() []model.Item {
	want := map[string]bool{}
	for _, h := range l.selection() {
		want[h] = true
	}
	var out []model.Item
	for _, it := range l.items {
		if want[it.Hash] {
			out = append(out, it)
		}
	}
	return out
}

// markedItems returns only explicitly marked items, in display order.
func (l itemList) markedItems() []model.Item {
	var out []model.Item
	for _, it := range l.items {
		if l.marked[it.Hash] {
			out = append(out, it)
		}
	}
	return out
}

func (l *itemList) clearMarks() {
	l.marked = map[string]bool{}
	l.refresh()
}

func (l itemList) view(title string) string {
	head := fmt.Sprintf("%s  %s items  sort: %s", title, humanize.Comma(int64(len(l.items))), l.mode.Label())
	if n := len(l.marked); n > 0 {
		head += fmt.Sprintf("  (%d marked)", n)
	}
	return SectionHeader.Render(head) + "\n" + l.table.View()
}
