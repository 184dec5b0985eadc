package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/abelbrown/rankscrape/internal/model"
)

// utf8BOM makes spreadsheet apps detect UTF-8 (Korean titles).
const utf8BOM = "\uFEFF"

// WriteCSV writes items with FileColumns. Quoting follows RFC 4180.
func WriteCSV(w io.Writer, items []model.Item) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := make([]string, len(FileColumns))
	for i, c := range FileColumns {
		header[i] = string(c)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(Rows(items, FileColumns)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// NewTable builds a go-pretty table of items. Output goes to w when
// rendered with Render, RenderMarkdown or RenderHTML.
func NewTable(w io.Writer, items []model.Item, cols []Column) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = string(c)
	}
	t.AppendHeader(header)

	for _, r := range Rows(items, cols) {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}
	return t
}

// WriteMarkdown renders items as a Markdown table.
func WriteMarkdown(w io.Writer, items []model.Item, cols []Column) {
	NewTable(w, items, cols).RenderMarkdown()
}
