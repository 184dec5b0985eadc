// Package coord owns the crawl lifecycle: one background run at a time,
// its event stream, and folding finished runs into the session.
package coord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/abelbrown/rankscrape/internal/browser"
	"github.com/abelbrown/rankscrape/internal/captcha"
	"github.com/abelbrown/rankscrape/internal/crawl"
	"github.com/abelbrown/rankscrape/internal/filter"
	"github.com/abelbrown/rankscrape/internal/logging"
	"github.com/abelbrown/rankscrape/internal/otel"
	"github.com/abelbrown/rankscrape/internal/session"
	"github.com/abelbrown/rankscrape/internal/store"
	"github.com/abelbrown/rankscrape/internal/target"
	"github.com/abelbrown/rankscrape/internal/work"
)

var (
	// ErrRunInProgress is returned by Start while a run is active.
	ErrRunInProgress = errors.New("a crawl is already running")
	// ErrNoPage is returned by Start when no browser page is attached.
	ErrNoPage = errors.New("no browser page attached")
	// ErrStillStopping is returned by Close when the run outlived the
	// timeout. The page and store are released once the run ends.
	ErrStillStopping = errors.New("run still stopping; browser closes when it ends")
)

// defaultLogLines is the log pane's scrollback.
const defaultLogLines = 500

// pumpInterval bounds each Wait in Run.
const pumpInterval = 200 * time.Millisecond

// Page is everything a run, its challenge recovery and login need.
type Page interface {
	crawl.Page
	captcha.Page
	browser.Form
}

// LogLine is one entry of the log pane.
type LogLine struct {
	Time  time.Time
	Level crawl.Level
	Msg   string
}

// Options configures a Controller. Zero values are usable.
type Options struct {
	Solver   captcha.Solver // nil = challenges are reported, not solved
	Store    *store.Store   // nil = no persistence
	Journal  *otel.Logger
	Params   crawl.Params
	BaseURL  string
	Grace    time.Duration
	LogLines int
	// Echo sees every applied event after controller state is updated.
	Echo func(crawl.Event)
}

type task = work.Task[crawl.Event, crawl.Result]

// Controller is the single owner of the page, session and store.
// Start and Cancel may be called from any goroutine; Wait only reads the
// event queue; Apply is the only place run events change state.
type Controller struct {
	opts Options

	mu       sync.Mutex
	page     Page
	sess     *session.Session
	task     *task
	progress int
	last     *crawl.Result
	logs     *work.Ring[LogLine]

	releaseOnce sync.Once
	released    chan struct{}
	releaseErr  error
}

// New builds a controller around page (may be nil until a browser is up)
// and sess (nil starts empty).
func New(page Page, sess *session.Session, opts Options) *Controller {
	if sess == nil {
		sess = session.New()
	}
	if opts.Params == (crawl.Params{}) {
		opts.Params = crawl.DefaultParams()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = target.DefaultBaseURL
	}
	if opts.Grace <= 0 {
		opts.Grace = captcha.DefaultGrace
	}
	if opts.LogLines <= 0 {
		opts.LogLines = defaultLogLines
	}
	return &Controller{
		opts:     opts,
		page:     page,
		sess:     sess,
		logs:     work.NewRing[LogLine](opts.LogLines),
		released: make(chan struct{}),
	}
}

// SetPage attaches or (with nil) detaches the browser page.
func (c *Controller) SetPage(p Page) {
	c.mu.Lock()
	c.page = p
	c.mu.Unlock()
}

// HasPage reports whether a page is attached.
func (c *Controller) HasPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page != nil
}

// Session is the live session. Callers must not mutate it while a run's
// done event is being applied.
func (c *Controller) Session() *session.Session {
	return c.sess
}

// Login signs in on the attached page. On failure the page is closed and
// detached, so the operator has to relaunch the browser.
func (c *Controller) Login(ctx context.Context, creds browser.Credentials, timeout time.Duration) error {
	c.mu.Lock()
	page, running := c.page, c.task != nil
	c.mu.Unlock()
	if page == nil {
		return ErrNoPage
	}
	if running {
		return ErrRunInProgress
	}

	c.log(crawl.LevelInfo, "logging in as %s", creds.Email)
	err := browser.Login(ctx, page, c.opts.BaseURL, creds, browser.DefaultLoginSelectors(), timeout)
	if err == nil {
		c.log(crawl.LevelInfo, "login succeeded")
		return nil
	}

	c.log(crawl.LevelError, "login failed: %v", err)
	logging.Error("login failed", "err", err)
	c.closePage()
	return err
}

// Start launches a run in the background. ctx bounds the run's lifetime;
// Cancel stops it at the next checkpoint.
func (c *Controller) Start(ctx context.Context, tgt target.Target, cfg filter.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.task != nil {
		return ErrRunInProgress
	}
	if c.page == nil {
		return ErrNoPage
	}

	// Without a solver, detection still runs so the operator sees why the
	// run stalled.
	rec := captcha.NewRecovery(c.page, c.opts.Solver)
	rec.Grace = c.opts.Grace

	runner := crawl.NewRunner(c.page, rec)
	runner.Params = c.opts.Params
	runner.BaseURL = c.opts.BaseURL
	runner.Journal = c.opts.Journal

	c.progress = 0
	c.last = nil
	c.pushLog(crawl.LevelInfo, fmt.Sprintf("starting %s (%s)", tgt, cfg.Describe()))

	c.task = work.Go(ctx, func(ctx context.Context, emit func(crawl.Event)) crawl.Result {
		return runner.Run(ctx, tgt, cfg, emit)
	}, crawl.DoneEvent)
	return nil
}

// Cancel asks the active run to stop. Reports whether one was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	t := c.task
	c.mu.Unlock()
	if t == nil {
		return false
	}
	t.Cancel()
	c.log(crawl.LevelWarn, "cancel requested, finishing in-flight step")
	return true
}

// Running reports whether a run has not yet been applied as done.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task != nil
}

// Wait blocks up to timeout for the next event, then drains whatever else
// is queued. It does not change controller state.
func (c *Controller) Wait(timeout time.Duration) []crawl.Event {
	c.mu.Lock()
	t := c.task
	c.mu.Unlock()
	if t == nil {
		return nil
	}

	q := t.Events()
	first, ok, _ := q.Recv(timeout)
	if !ok {
		return nil
	}
	return append([]crawl.Event{first}, q.Drain()...)
}

// Apply folds events into controller state and returns the run result if
// the done marker was among them.
func (c *Controller) Apply(events []crawl.Event) *crawl.Result {
	var done *crawl.Result

	c.mu.Lock()
	for _, e := range events {
		switch e.Kind {
		case crawl.EventLog:
			c.logs.Push(LogLine{Time: e.Time, Level: e.Level, Msg: e.Msg})
		case crawl.EventProgress:
			if e.Percent > c.progress {
				c.progress = min(e.Percent, 100)
			}
		case crawl.EventDone:
			if e.Result != nil {
				c.finish(*e.Result)
				done = e.Result
			}
		}
	}
	c.mu.Unlock()

	if c.opts.Echo != nil {
		for _, e := range events {
			c.opts.Echo(e)
		}
	}
	return done
}

// finish merges a run into the session and persists it. Caller holds mu.
func (c *Controller) finish(r crawl.Result) {
	c.task = nil
	c.last = &r

	added := c.sess.MergeRun(r.Items)
	c.pushLog(crawl.LevelInfo, fmt.Sprintf("run done: %s; %d new in results (%d total)", r.Summary(), added, c.sess.Results.Len()))
	c.journal(otel.Event{Kind: otel.KindMerge, Level: otel.LevelInfo, RunID: r.RunID, Count: added, Msg: r.Summary()})

	if err := c.persistLocked(); err != nil {
		c.pushLog(crawl.LevelError, "saving session failed: "+err.Error())
	}
}

// Persist saves the session, e.g. after cart or group edits.
func (c *Controller) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

func (c *Controller) persistLocked() error {
	if c.opts.Store == nil {
		return nil
	}
	start := time.Now()
	if err := c.opts.Store.SaveSession(c.sess); err != nil {
		logging.Error("save session", "err", err)
		c.journal(otel.Event{Kind: otel.KindStoreError, Level: otel.LevelError, Err: err.Error()})
		return err
	}
	c.journal(otel.Event{Kind: otel.KindPersist, Level: otel.LevelDebug, Dur: time.Since(start), Count: c.sess.Results.Len()})
	return nil
}

// Progress is the active (or last) run's percent, monotonic within a run.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Last is the most recently finished run, nil before the first.
func (c *Controller) Last() *crawl.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Logs returns up to n recent log lines, oldest first.
func (c *Controller) Logs(n int) []LogLine {
	return c.logs.Last(n)
}

// Log adds an operator-facing line, for actions outside a run.
func (c *Controller) Log(level crawl.Level, format string, args ...any) {
	c.log(level, format, args...)
}

func (c *Controller) log(level crawl.Level, format string, args ...any) {
	c.mu.Lock()
	c.pushLog(level, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

func (c *Controller) pushLog(level crawl.Level, msg string) {
	c.logs.Push(LogLine{Time: time.Now(), Level: level, Msg: msg})
}

func (c *Controller) journal(e otel.Event) {
	c.opts.Journal.Scope("coord").Emit(e)
}

// Run starts a run and pumps its events until done. Cancelling ctx cancels
// the run; the partial result is still returned.
func (c *Controller) Run(ctx context.Context, tgt target.Target, cfg filter.Config) (crawl.Result, error) {
	if err := c.Start(ctx, tgt, cfg); err != nil {
		return crawl.Result{}, err
	}
	for {
		if r := c.Apply(c.Wait(pumpInterval)); r != nil {
			return *r, nil
		}
	}
}

// Close cancels any run and applies what it flushed, bounded by timeout,
// then releases the page and the store. A run that outlives the timeout
// keeps the page: Close returns ErrStillStopping and the release happens
// in the background once the run's result arrives. Released reports when.
func (c *Controller) Close(timeout time.Duration) error {
	if c.Cancel() {
		deadline := time.Now().Add(timeout)
		for c.Running() && time.Now().Before(deadline) {
			c.Apply(c.Wait(pumpInterval))
		}
	}
	if c.Running() {
		c.log(crawl.LevelWarn, "run still stopping after %s; browser stays open until it ends", timeout)
		go func() {
			for c.Running() {
				c.Apply(c.Wait(pumpInterval))
			}
			if err := c.release(); err != nil {
				logging.Error("close store", "err", err)
			}
		}()
		return ErrStillStopping
	}
	return c.release()
}

// Released is closed once Close has let go of the page and the store.
func (c *Controller) Released() <-chan struct{} {
	return c.released
}

func (c *Controller) release() error {
	c.releaseOnce.Do(func() {
		c.closePage()
		if c.opts.Store != nil {
			c.releaseErr = c.opts.Store.Close()
		}
		close(c.released)
	})
	return c.releaseErr
}

func (c *Controller) closePage() {
	c.mu.Lock()
	p := c.page
	c.page = nil
	c.mu.Unlock()

	if cl, ok := p.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			logging.Warn("close browser", "err", err)
		}
	}
}
