package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/abelbrown/rankscrape/internal/logging"
)

// Options configures the Chrome instance.
type Options struct {
	Headless        bool
	WindowWidth     int
	WindowHeight    int
	UserAgent       string
	UserDataDir     string        // "" = throwaway profile
	PageLoadTimeout time.Duration // per navigation
}

// DefaultOptions mirrors a desktop browser at 1920x1080.
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		WindowWidth:     1920,
		WindowHeight:    1080,
		PageLoadTimeout: 30 * time.Second,
	}
}

// Chrome is a single long-lived browser tab. Not safe for concurrent use by
// more than one driver at a time; the controller hands it to one run at a time.
type Chrome struct {
	opts Options

	tab         context.Context
	cancelAlloc context.CancelFunc

	mu        sync.Mutex
	cancelTab context.CancelFunc // nil once closed
	frame     *cdp.Node          // nil = top document
}

// Launch starts Chrome and opens a blank tab.
func Launch(ctx context.Context, opts Options) (*Chrome, error) {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = DefaultOptions().PageLoadTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logging.Debug(fmt.Sprintf(format, args...), "comp", "chromedp")
	}))

	// First Run starts the browser process.
	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	logging.Info("Chrome started", "headless", opts.Headless)
	return &Chrome{opts: opts, tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.mu.Lock()
	cancelTab := c.cancelTab
	c.cancelTab = nil
	c.mu.Unlock()
	if cancelTab == nil {
		return nil
	}
	cancelTab()
	c.cancelAlloc()
	logging.Info("Chrome stopped")
	return nil
}

func (c *Chrome) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelTab == nil
}

// run executes actions on the tab, bounded by the caller's deadline and
// cancellation, without tying the tab's lifetime to the caller.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.closed() {
		return ErrClosed
	}
	runCtx, cancel := context.WithCancel(c.tab)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// scope returns query options for the current frame.
func (c *Chrome) scope(by chromedp.QueryOption) []chromedp.QueryOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame != nil {
		return []chromedp.QueryOption{chromedp.ByQuery, chromedp.FromNode(c.frame)}
	}
	return []chromedp.QueryOption{by}
}

// Navigate loads url and waits for the document to be ready.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.ExitFrame()
	navCtx, cancel := context.WithTimeout(ctx, c.opts.PageLoadTimeout)
	defer cancel()

	if err := c.run(navCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
		}
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

// WaitPresent blocks until selector matches at least one element.
func (c *Chrome) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.run(waitCtx, chromedp.WaitReady(selector, c.scope(chromedp.BySearch)...)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: waiting for %s", ErrNavigationTimeout, selector)
		}
		return fmt.Errorf("%w: waiting for %s: %v", ErrNavigation, selector, err)
	}
	return nil
}

// WaitGone blocks until selector no longer matches.
func (c *Chrome) WaitGone(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.run(waitCtx, chromedp.WaitNotPresent(selector, c.scope(chromedp.BySearch)...)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s still present", ErrNavigationTimeout, selector)
		}
		return err
	}
	return nil
}

// Count returns how many elements match a CSS selector right now.
func (c *Chrome) Count(ctx context.Context, selector string) (int, error) {
	c.mu.Lock()
	frame := c.frame
	c.mu.Unlock()

	if frame != nil {
		var nodes []*cdp.Node
		err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(frame), chromedp.AtLeast(0)))
		return len(nodes), err
	}

	quoted, err := json.Marshal(selector)
	if err != nil {
		return 0, err
	}
	var n int
	err = c.run(ctx, chromedp.Evaluate(fmt.Sprintf("document.querySelectorAll(%s).length", quoted), &n))
	return n, err
}

// Snapshot captures the current document (or frame) and parses it.
func (c *Chrome) Snapshot(ctx context.Context) (Snapshot, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, c.scope(chromedp.ByQuery)...)); err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	return ParseSnapshot(html)
}

// Exec evaluates a script in the top document.
func (c *Chrome) Exec(ctx context.Context, script string) error {
	return c.run(ctx, chromedp.Evaluate(script, nil))
}

// EvalBool evaluates a script that yields a boolean.
func (c *Chrome) EvalBool(ctx context.Context, script string) (bool, error) {
	var ok bool
	err := c.run(ctx, chromedp.Evaluate(script, &ok))
	return ok, err
}

// ScrollToBottom scrolls the window to the end of the document.
func (c *Chrome) ScrollToBottom(ctx context.Context) error {
	return c.Exec(ctx, "window.scrollTo(0, document.body.scrollHeight);")
}

// CurrentURL returns the tab's location.
func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := c.run(ctx, chromedp.Location(&url))
	return url, err
}

// Click clicks the first element matching selector (CSS or XPath).
func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.Click(selector, append(c.scope(chromedp.BySearch), chromedp.NodeVisible)...))
}

// SendKeys types text into the element matching selector.
func (c *Chrome) SendKeys(ctx context.Context, selector, text string) error {
	return c.run(ctx, chromedp.SendKeys(selector, text, append(c.scope(chromedp.BySearch), chromedp.NodeVisible)...))
}

// Screenshot captures a PNG of the element matching selector.
func (c *Chrome) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.Screenshot(selector, &buf, c.scope(chromedp.ByQuery)...)); err != nil {
		return nil, err
	}
	return buf, nil
}

// EnterFrame scopes subsequent element queries to the iframe matching selector.
func (c *Chrome) EnterFrame(ctx context.Context, selector string) error {
	c.ExitFrame()
	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: frame %s", ErrNotFound, selector)
	}
	c.mu.Lock()
	c.frame = nodes[0]
	c.mu.Unlock()
	return nil
}

// ExitFrame returns to the top document.
func (c *Chrome) ExitFrame() {
	c.mu.Lock()
	c.frame = nil
	c.mu.Unlock()
}
