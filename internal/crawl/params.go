// Package crawl drives one run over a ranking chart: navigate to each day,
// scroll until enough rows are revealed (escalating to challenge recovery on
// repeated stalls), then extract, dedupe and filter the rows.
//
// Every stage reports an explicit outcome. Cancellation is checked at the
// top of each day, inside the scroll loop and inside the extraction loop;
// calls already in flight to the page are allowed to finish.
package crawl

import "time"

// Params are the tuned heuristics for the chart site.
type Params struct {
	ItemsPerScroll int           // rows one scroll is expected to reveal
	ScrollSlack    int           // extra scroll attempts beyond target/ItemsPerScroll
	StallThreshold int           // consecutive no-growth scrolls before recovery
	SettleDelay    time.Duration // wait after each scroll for lazy rows
	LoadTimeout    time.Duration // wait for the first rows after navigation
}

// DefaultParams returns the values tuned against the live site.
func DefaultParams() Params {
	return Params{
		ItemsPerScroll: 20,
		ScrollSlack:    15,
		StallThreshold: 3,
		SettleDelay:    2500 * time.Millisecond,
		LoadTimeout:    45 * time.Second,
	}
}

// MaxScrolls bounds the scroll loop for a target row count.
func (p Params) MaxScrolls(target int) int {
	per := p.ItemsPerScroll
	if per <= 0 {
		per = 20
	}
	return target/per + p.ScrollSlack
}

// Selectors locate row fields. Title doubles as the row marker.
type Selectors struct {
	Title         string
	Views         string
	Thumbnail     string
	ThumbnailAttr string
	Channel       string
	Subscribers   string
}

// DefaultSelectors match the chart site's table markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:         "a.title__label",
		Views:         "span.fluc-label",
		Thumbnail:     "div.thumb-wrapper.image div.thumb.lazy-image",
		ThumbnailAttr: "data-background-image",
		Channel:       "td.channel a span.name",
		Subscribers:   "div.subs span.subs__count",
	}
}
