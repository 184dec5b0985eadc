package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/normalize"
	"github.com/abelbrown/rankscrape/internal/target"
)

func items() []model.Item {
	day := target.Day(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return []model.Item{
		{
			Thumbnail: "https://i.ytimg.com/vi/abcdefghij/mq.jpg", Title: `Say "hi", world`,
			Views: "1.5K", ViewsNumeric: 1500, Channel: "Chan", Date: day,
			Subscribers: "12,000", SubscribersNumeric: 12000,
			Hash: normalize.Fingerprint("hi", "Chan"), URL: normalize.WatchURL("abcdefghij"),
		},
		{
			Title: "한국어 제목", Views: "N/A", Channel: "채널", Date: day,
			Subscribers: normalize.NoData, SubscribersNumeric: -1, Hash: "h2",
		},
	}
}

func TestValue(t *testing.T) {
	it := items()[0]
	assert.Equal(t, "1500", Value(it, ColViewsNumeric))
	assert.Equal(t, "12000", Value(it, ColSubscribersNumeric))
	assert.Equal(t, "2024-01-01", Value(it, ColDate))
	assert.Equal(t, "https://www.youtube.com/watch?v=abcdefghij", Value(it, ColURL))
	assert.Empty(t, Value(it, Column("nope")))
}

func TestWriteCSVDropsNumericColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, items()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Thumbnail", "Title", "Views", "Channel", "Date", "Subscribers", "Hash", "YouTube URL"}, records[0])
	assert.Equal(t, `Say "hi", world`, records[1][1])
	assert.Equal(t, "한국어 제목", records[2][1])
	assert.NotContains(t, records[0], string(ColViewsNumeric))
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	WriteMarkdown(&buf, items(), PDFColumns)

	out := buf.String()
	assert.Contains(t, out, "| Title | Views | Channel | Date | Subscribers |")
	assert.Contains(t, out, "한국어 제목")
	assert.Equal(t, 4, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	err := WritePDF(&buf, items(), PDFOptions{Title: "Cart", Created: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFMissingFont(t *testing.T) {
	var buf bytes.Buffer
	err := WritePDF(&buf, items(), PDFOptions{FontPath: "/nonexistent/font.ttf"})
	assert.Error(t, err)
}
