package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/rankscrape/internal/browser"
	"github.com/abelbrown/rankscrape/internal/filter"
	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/normalize"
)

// ItemOutcome is what happened to one row.
type ItemOutcome int

const (
	Kept ItemOutcome = iota
	Duplicate
	Filtered
	Skipped // unreadable identity fields or a driver failure
)

func (o ItemOutcome) String() string {
	switch o {
	case Kept:
		return "kept"
	case Duplicate:
		return "duplicate"
	case Filtered:
		return "filtered"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// ExtractReport tallies one pass over a snapshot.
type ExtractReport struct {
	Found      int
	Kept       int
	Duplicates int
	Filtered   int
	Skipped    int
	Cancelled  bool
	Full       bool // run reached its item cap
}

func (r *ExtractReport) add(o ItemOutcome) {
	switch o {
	case Kept:
		r.Kept++
	case Duplicate:
		r.Duplicates++
	case Filtered:
		r.Filtered++
	case Skipped:
		r.Skipped++
	}
}

// Collector accumulates a run's items. The seen set spans the whole run,
// so a row revealed on two days is kept once. Not goroutine-safe.
type Collector struct {
	limit   int
	cfg     filter.Config
	em      emitter
	seen    map[string]struct{}
	items   []model.Item
	lastPct int
}

// NewCollector caps the run at limit items and filters with cfg.
func NewCollector(limit int, cfg filter.Config, sink Sink) *Collector {
	if sink == nil {
		sink = Discard
	}
	return &Collector{
		limit: limit,
		cfg:   cfg,
		em:    emitter{sink: sink},
		seen:  make(map[string]struct{}),
	}
}

// Items returns a copy of what has been kept so far.
func (c *Collector) Items() []model.Item {
	out := make([]model.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of kept items.
func (c *Collector) Len() int { return len(c.items) }

// Full reports whether the cap is reached.
func (c *Collector) Full() bool { return len(c.items) >= c.limit }

type columns struct {
	titles, views, thumbs, channels, subs []browser.Element
}

func (s Selectors) columns(snap browser.Snapshot) columns {
	return columns{
		titles:   snap.FindAll(s.Title),
		views:    snap.FindAll(s.Views),
		thumbs:   snap.FindAll(s.Thumbnail),
		channels: snap.FindAll(s.Channel),
		subs:     snap.FindAll(s.Subscribers),
	}
}

// Extract walks the snapshot's rows by position, stopping once the cap is
// reached or ctx ends.
func (c *Collector) Extract(ctx context.Context, snap browser.Snapshot, sel Selectors, day time.Time) ExtractReport {
	cols := sel.columns(snap)
	rep := ExtractReport{Found: len(cols.titles)}
	c.em.infof("Processing %d rows found on the page", rep.Found)

	for i := range cols.titles {
		if c.Full() {
			c.em.infof("Reached the target of %d items; stopping", c.limit)
			rep.Full = true
			break
		}
		if ctx.Err() != nil {
			c.em.warnf("Cancelled during extraction after %d rows", i)
			rep.Cancelled = true
			break
		}
		out, reason := c.take(i, cols, sel, day)
		if out == Skipped {
			c.em.warnf("Row %d skipped: %s", i+1, reason)
		}
		rep.add(out)
	}
	if c.Full() {
		rep.Full = true
	}
	return rep
}

// take processes row i. A panic from a driver element is contained here.
func (c *Collector) take(i int, cols columns, sel Selectors, day time.Time) (out ItemOutcome, reason string) {
	defer func() {
		if p := recover(); p != nil {
			out, reason = Skipped, fmt.Sprintf("panic: %v", p)
		}
	}()

	title, err := cols.titles[i].Text()
	if err != nil {
		return Skipped, fmt.Sprintf("title unreadable: %v", err)
	}
	if title == "" {
		return Skipped, "empty title"
	}

	channel := normalize.NotAvailable
	if i < len(cols.channels) {
		if channel, err = cols.channels[i].Text(); err != nil {
			return Skipped, fmt.Sprintf("channel unreadable: %v", err)
		}
	}

	hash := normalize.Fingerprint(title, channel)
	if _, dup := c.seen[hash]; dup {
		return Duplicate, ""
	}

	views := textAt(cols.views, i, normalize.NotAvailable)
	subsText := textAt(cols.subs, i, normalize.NoData)
	subs := normalize.Subscribers(subsText)
	if !filter.Include(subs, c.cfg) {
		return Filtered, ""
	}

	var thumb string
	if i < len(cols.thumbs) {
		raw, _ := cols.thumbs[i].Attr(sel.ThumbnailAttr)
		thumb = normalize.Thumbnail(raw)
	}
	href, _ := cols.titles[i].Attr("href")
	id, _ := normalize.VideoID(href, thumb)

	c.items = append(c.items, model.Item{
		Thumbnail:          thumb,
		Title:              title,
		Views:              views,
		ViewsNumeric:       normalize.Views(views),
		Channel:            channel,
		Date:               day,
		Subscribers:        subsText,
		SubscribersNumeric: subs,
		Hash:               hash,
		VideoID:            id,
		URL:                normalize.WatchURL(id),
	})
	c.seen[hash] = struct{}{}
	c.reportProgress()
	return Kept, ""
}

// reportProgress emits only when the whole-percent value rises, so values
// are monotonic and 100 is reported once.
func (c *Collector) reportProgress() {
	if c.limit <= 0 {
		return
	}
	pct := min(100, len(c.items)*100/c.limit)
	if pct > c.lastPct {
		c.lastPct = pct
		c.em.progress(pct)
	}
}

// textAt reads a companion column, degrading to def when absent or unreadable.
func textAt(els []browser.Element, i int, def string) string {
	if i >= len(els) {
		return def
	}
	s, err := els[i].Text()
	if err != nil || s == "" {
		return def
	}
	return s
}
