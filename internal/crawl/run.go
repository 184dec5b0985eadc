package crawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/rankscrape/internal/browser"
	"github.com/abelbrown/rankscrape/internal/filter"
	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/otel"
	"github.com/abelbrown/rankscrape/internal/target"
)

// Page is the page surface a run needs.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	Count(ctx context.Context, selector string) (int, error)
	Snapshot(ctx context.Context) (browser.Snapshot, error)
	ScrollToBottom(ctx context.Context) error
}

// DateOutcome is how one day of a run ended.
type DateOutcome int

const (
	DateCompleted DateOutcome = iota
	DateSkipped               // navigation or snapshot failed
	DateCancelled
)

func (o DateOutcome) String() string {
	switch o {
	case DateCompleted:
		return "completed"
	case DateSkipped:
		return "skipped"
	case DateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// DateReport describes one day of a run.
type DateReport struct {
	Day     time.Time
	URL     string
	Outcome DateOutcome
	Reveal  RevealReport
	Extract ExtractReport
	Err     string
}

// Result is everything a run produced. Items are valid even when the run
// was cancelled or ended on a fatal error.
type Result struct {
	RunID     string
	Target    target.Target
	Items     []model.Item
	Dates     []DateReport
	Cancelled bool
	Fatal     string // set when an unexpected panic ended the run
	Started   time.Time
	Finished  time.Time
}

// Summary is a one-line description for logs and the done marker.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d items from %d day(s)", len(r.Items), len(r.Dates))
	if r.Cancelled {
		b.WriteString(", cancelled")
	}
	if r.Fatal != "" {
		b.WriteString(", ended early: " + r.Fatal)
	}
	return b.String()
}

// Runner executes runs against one page. One run at a time.
type Runner struct {
	Page      Page
	Recovery  Recoverer // nil disables challenge handling
	Params    Params
	Selectors Selectors
	BaseURL   string
	Journal   *otel.Logger // optional

	sink      Sink
	runID     string
	journal   otel.Scope
	lastCount int
}

// NewRunner uses the default heuristics and selectors.
func NewRunner(page Page, rec Recoverer) *Runner {
	return &Runner{
		Page:      page,
		Recovery:  rec,
		Params:    DefaultParams(),
		Selectors: DefaultSelectors(),
		BaseURL:   target.DefaultBaseURL,
	}
}

func (r *Runner) em() emitter {
	if r.sink == nil {
		return emitter{sink: Discard}
	}
	return emitter{sink: r.sink}
}

// Run crawls every day of tgt in ascending order. It never panics; an
// unexpected failure ends the run with the items collected so far.
func (r *Runner) Run(ctx context.Context, tgt target.Target, cfg filter.Config, sink Sink) (res Result) {
	if sink == nil {
		sink = Discard
	}
	r.sink = sink
	r.runID = uuid.NewString()
	r.journal = r.Journal.Scope("crawl").Run(r.runID)
	em := r.em()

	res = Result{RunID: r.runID, Target: tgt, Started: time.Now()}
	col := NewCollector(tgt.MaxItems, cfg, sink)

	defer func() {
		if p := recover(); p != nil {
			res.Fatal = fmt.Sprint(p)
			em.errorf("Crawl aborted by an unexpected error: %v", p)
			r.journal.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindError, Err: res.Fatal})
		}
		res.Items = col.Items()
		res.Finished = time.Now()
		em.infof("Crawl finished: %s", res.Summary())
		kind := otel.KindRunComplete
		if res.Cancelled {
			kind = otel.KindRunCancel
		}
		r.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: kind, Count: len(res.Items),
			Dur: res.Finished.Sub(res.Started), Msg: res.Summary()})
	}()

	em.infof("Starting crawl: %s", tgt)
	em.infof("Filter: %s", cfg.Describe())
	r.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRunStart, Msg: tgt.String()})

	for _, day := range tgt.Dates {
		if ctx.Err() != nil {
			em.warnf("Cancelled; remaining dates not attempted")
			res.Cancelled = true
			break
		}
		if col.Full() {
			em.infof("Collected %d items; remaining dates not needed", col.Len())
			break
		}

		rep := r.runDate(ctx, tgt, day, col)
		res.Dates = append(res.Dates, rep)
		if rep.Outcome == DateCancelled {
			res.Cancelled = true
			break
		}
	}
	return res
}

func (r *Runner) runDate(ctx context.Context, tgt target.Target, day time.Time, col *Collector) DateReport {
	em := r.em()
	start := time.Now()
	key := target.FormatKey(day)
	rep := DateReport{Day: day, URL: tgt.URL(r.BaseURL, day)}
	call := context.WithoutCancel(ctx)

	em.infof("Crawling %s (target %d items)", day.Format(model.DateLayout), tgt.MaxItems)
	r.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDateStart, Date: key})

	skip := func(err error) DateReport {
		rep.Outcome = DateSkipped
		rep.Err = err.Error()
		em.errorf("Skipping %s: %v", day.Format(model.DateLayout), err)
		r.journal.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindNavError, Date: key, Err: rep.Err})
		return rep
	}

	em.infof("Opening %s", rep.URL)
	if err := r.Page.Navigate(call, rep.URL); err != nil {
		return skip(err)
	}
	if err := r.Page.WaitPresent(call, r.Selectors.Title, r.Params.LoadTimeout); err != nil {
		return skip(err)
	}
	r.lastCount = 0

	rep.Reveal = r.Reveal(ctx, tgt.MaxItems)
	if rep.Reveal.Outcome == Cancelled {
		rep.Outcome = DateCancelled
		return rep
	}

	snap, err := r.Page.Snapshot(call)
	if err != nil {
		return skip(err)
	}
	rep.Extract = col.Extract(ctx, snap, r.Selectors, day)
	if rep.Extract.Cancelled {
		rep.Outcome = DateCancelled
	}

	em.infof("%s: kept %d, duplicates %d, filtered %d, skipped %d",
		day.Format(model.DateLayout), rep.Extract.Kept, rep.Extract.Duplicates, rep.Extract.Filtered, rep.Extract.Skipped)
	r.journal.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindExtractBatch, Date: key, Count: rep.Extract.Found,
		Extra: map[string]any{"kept": rep.Extract.Kept, "duplicates": rep.Extract.Duplicates,
			"filtered": rep.Extract.Filtered, "skipped": rep.Extract.Skipped}})
	r.journal.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDateDone, Date: key,
		Count: rep.Extract.Kept, Dur: time.Since(start), Msg: rep.Reveal.Outcome.String()})
	return rep
}

// sleepCtx waits d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
