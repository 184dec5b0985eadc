// Package export renders item lists for people: CSV for spreadsheets, PDF
// for sharing, Markdown and terminal tables for the CLI.
package export

import (
	"strconv"

	"github.com/abelbrown/rankscrape/internal/model"
)

// Column is a dataset column header.
type Column string

const (
	ColThumbnail          Column = "Thumbnail"
	ColTitle              Column = "Title"
	ColViews              Column = "Views"
	ColViewsNumeric       Column = "Views_numeric"
	ColChannel            Column = "Channel"
	ColDate               Column = "Date"
	ColSubscribers        Column = "Subscribers"
	ColSubscribersNumeric Column = "Subscribers_numeric"
	ColHash               Column = "Hash"
	ColURL                Column = "YouTube URL"
)

// AllColumns is the full dataset layout.
var AllColumns = []Column{
	ColThumbnail, ColTitle, ColViews, ColViewsNumeric, ColChannel,
	ColDate, ColSubscribers, ColSubscribersNumeric, ColHash, ColURL,
}

// FileColumns drop the numeric helpers, which exist only for sorting.
var FileColumns = []Column{
	ColThumbnail, ColTitle, ColViews, ColChannel, ColDate, ColSubscribers, ColHash, ColURL,
}

// PDFColumns fit a landscape page.
var PDFColumns = []Column{ColTitle, ColViews, ColChannel, ColDate, ColSubscribers}

// Value returns the cell for it in column c.
func Value(it model.Item, c Column) string {
	switch c {
	case ColThumbnail:
		return it.Thumbnail
	case ColTitle:
		return it.Title
	case ColViews:
		return it.Views
	case ColViewsNumeric:
		return strconv.FormatInt(it.ViewsNumeric, 10)
	case ColChannel:
		return it.Channel
	case ColDate:
		return it.Day()
	case ColSubscribers:
		return it.Subscribers
	case ColSubscribersNumeric:
		return strconv.FormatInt(it.SubscribersNumeric, 10)
	case ColHash:
		return it.Hash
	case ColURL:
		return it.URL
	}
	return ""
}

// Rows lays items out as string rows in column order.
func Rows(items []model.Item, cols []Column) [][]string {
	out := make([][]string, len(items))
	for i, it := range items {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = Value(it, c)
		}
		out[i] = row
	}
	return out
}
