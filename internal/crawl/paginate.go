package crawl

import (
	"context"

	"github.com/abelbrown/rankscrape/internal/captcha"
	"github.com/abelbrown/rankscrape/internal/otel"
)

// RevealOutcome says why the scroll loop stopped.
type RevealOutcome int

const (
	Reached   RevealOutcome = iota // target rows on the page
	Exhausted                      // scroll attempts used up
	Blocked                        // stalled and recovery failed
	Cancelled                      // run cancelled mid-loop
)

func (o RevealOutcome) String() string {
	switch o {
	case Reached:
		return "reached"
	case Exhausted:
		return "exhausted"
	case Blocked:
		return "blocked"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Recoverer resolves a challenge once per call.
type Recoverer interface {
	Attempt(ctx context.Context, logf captcha.Logf) captcha.Outcome
}

// RevealReport summarizes one scroll loop.
type RevealReport struct {
	Outcome    RevealOutcome
	Revealed   int
	Scrolls    int
	Recoveries int
}

// Reveal scrolls the current page until target rows are present, the
// attempt cap is hit, recovery fails after repeated stalls, or ctx ends.
// Each iteration either grows the row count or increments the stall counter.
func (r *Runner) Reveal(ctx context.Context, target int) RevealReport {
	em := r.em()
	call := context.WithoutCancel(ctx)
	maxScrolls := r.Params.MaxScrolls(target)

	var rep RevealReport
	stalls := 0
	count := r.count(call)
	for {
		rep.Revealed = count
		if count >= target {
			em.infof("Found %d rows (target %d), done scrolling", count, target)
			rep.Outcome = Reached
			return rep
		}
		if rep.Scrolls >= maxScrolls {
			em.warnf("Reached max scroll attempts (%d); continuing with %d rows", maxScrolls, count)
			rep.Outcome = Exhausted
			return rep
		}
		if ctx.Err() != nil {
			em.warnf("Cancelled while scrolling (%d rows revealed)", count)
			rep.Outcome = Cancelled
			return rep
		}

		if err := r.Page.ScrollToBottom(call); err != nil {
			em.warnf("Scroll failed: %v", err)
		}
		rep.Scrolls++
		sleepCtx(ctx, r.Params.SettleDelay)
		if ctx.Err() != nil {
			em.warnf("Cancelled while waiting for rows (%d rows revealed)", count)
			rep.Outcome = Cancelled
			return rep
		}

		next := r.count(call)
		if otel.TraceEnabled() {
			r.journal.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindReveal, Count: next,
				Extra: map[string]any{"scroll": rep.Scrolls, "stalls": stalls}})
		}

		if next > count {
			stalls = 0
			count = next
			continue
		}

		stalls++
		em.warnf("No new rows after scroll (%d/%d)", stalls, r.Params.StallThreshold)
		if stalls < r.Params.StallThreshold {
			continue
		}

		if ctx.Err() != nil {
			em.warnf("Cancelled before challenge recovery (%d rows revealed)", next)
			rep.Revealed = next
			rep.Outcome = Cancelled
			return rep
		}
		if r.Recovery == nil {
			em.warnf("Rows stopped loading; no challenge recovery configured")
			rep.Revealed = next
			rep.Outcome = Blocked
			return rep
		}
		rep.Recoveries++
		out := r.Recovery.Attempt(ctx, em.infof)
		r.journalRecovery(out)
		if !out.Solved {
			em.warnf("Rows stopped loading and recovery failed (%s); continuing with %d rows", out.Reason, next)
			rep.Revealed = next
			rep.Outcome = Blocked
			return rep
		}
		stalls = 0
		count = r.count(call)
	}
}

// count returns the current row count, treating driver errors as zero growth.
func (r *Runner) count(ctx context.Context) int {
	n, err := r.Page.Count(ctx, r.Selectors.Title)
	if err != nil {
		r.em().warnf("Counting rows failed: %v", err)
		return r.lastCount
	}
	r.lastCount = n
	return n
}

func (r *Runner) journalRecovery(out captcha.Outcome) {
	if out.Modality == "" {
		return
	}
	kind := otel.KindCaptchaSolved
	level := otel.LevelInfo
	if !out.Solved {
		kind, level = otel.KindCaptchaFailed, otel.LevelWarn
	}
	r.journal.Emit(otel.Event{Level: level, Kind: kind, Comp: "captcha", Modality: out.Modality, Msg: out.Reason})
}
