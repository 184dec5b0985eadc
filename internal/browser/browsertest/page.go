// Package browsertest provides an in-memory page that serves HTML, so crawl
// and captcha logic can be tested without Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abelbrown/rankscrape/internal/browser"
)

// Render produces the document for url after the given number of scrolls.
type Render func(url string, scrolls int) string

// Page is a scriptable fake. Zero value is not usable; use New.
type Page struct {
	mu sync.Mutex

	render  Render
	url     string
	scrolls int
	frame   string // selector of the entered frame, "" = top

	// NavErr, if set, is consulted on every Navigate.
	NavErr func(url string) error
	// Frames maps an iframe selector to the HTML inside it.
	Frames map[string]string
	// OnClick and OnExec let tests mutate state (clear a challenge, etc.).
	OnClick func(p *Page, selector string)
	OnExec  func(p *Page, script string)
	// EvalResult answers EvalBool; nil means false.
	EvalResult func(script string) bool
	// FailText makes Text() fail for the element at index i of selector.
	FailText map[string]int
	// Shot is returned by Screenshot.
	Shot []byte

	Navigations []string
	Clicks      []string
	Scripts     []string
	Keys        map[string]string
}

// New returns a page that renders documents with r.
func New(r Render) *Page {
	return &Page{render: r, Frames: map[string]string{}, Keys: map[string]string{}}
}

// SetRender swaps the renderer.
func (p *Page) SetRender(r Render) {
	p.mu.Lock()
	p.render = r
	p.mu.Unlock()
}

// Scrolls returns how many times ScrollToBottom ran since the last navigation.
func (p *Page) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls
}

func (p *Page) html() string {
	if p.frame != "" {
		return p.Frames[p.frame]
	}
	if p.render == nil {
		return ""
	}
	return p.render(p.url, p.scrolls)
}

func (p *Page) snapshot() (browser.Snapshot, error) {
	p.mu.Lock()
	html := p.html()
	fail := p.FailText
	p.mu.Unlock()

	snap, err := browser.ParseSnapshot(html)
	if err != nil {
		return nil, err
	}
	if len(fail) == 0 {
		return snap, nil
	}
	return failingSnapshot{Snapshot: snap, fail: fail}, nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	navErr := p.NavErr
	p.mu.Unlock()

	if navErr != nil {
		if err := navErr(url); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.url, p.scrolls, p.frame = url, 0, ""
	p.mu.Unlock()
	return nil
}

func (p *Page) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	n, err := p.Count(ctx, selector)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: waiting for %s", browser.ErrNavigationTimeout, selector)
	}
	return nil
}

func (p *Page) WaitGone(ctx context.Context, selector string, timeout time.Duration) error {
	n, err := p.Count(ctx, selector)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s still present", browser.ErrNavigationTimeout, selector)
	}
	return nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	snap, err := p.snapshot()
	if err != nil {
		return 0, err
	}
	return len(snap.FindAll(selector)), nil
}

func (p *Page) Snapshot(ctx context.Context) (browser.Snapshot, error) {
	return p.snapshot()
}

func (p *Page) Exec(ctx context.Context, script string) error {
	p.mu.Lock()
	p.Scripts = append(p.Scripts, script)
	hook := p.OnExec
	p.mu.Unlock()
	if hook != nil {
		hook(p, script)
	}
	return nil
}

func (p *Page) EvalBool(ctx context.Context, script string) (bool, error) {
	p.mu.Lock()
	p.Scripts = append(p.Scripts, script)
	eval := p.EvalResult
	p.mu.Unlock()
	if eval == nil {
		return false, nil
	}
	return eval(script), nil
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	p.mu.Lock()
	p.scrolls++
	p.mu.Unlock()
	return nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.Clicks = append(p.Clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *Page) SendKeys(ctx context.Context, selector, text string) error {
	p.mu.Lock()
	p.Keys[selector] = text
	p.mu.Unlock()
	return nil
}

func (p *Page) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Shot) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
	}
	return p.Shot, nil
}

func (p *Page) EnterFrame(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.Frames[selector]; !ok {
		return fmt.Errorf("%w: frame %s", browser.ErrNotFound, selector)
	}
	p.frame = selector
	return nil
}

func (p *Page) ExitFrame() {
	p.mu.Lock()
	p.frame = ""
	p.mu.Unlock()
}

// Clicked reports whether selector was clicked.
func (p *Page) Clicked(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.Clicks {
		if c == selector {
			return true
		}
	}
	return false
}

// Executed reports whether any script contained fragment.
func (p *Page) Executed(fragment string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.Scripts {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}

type failingSnapshot struct {
	browser.Snapshot
	fail map[string]int
}

func (s failingSnapshot) FindAll(selector string) []browser.Element {
	els := s.Snapshot.FindAll(selector)
	if i, ok := s.fail[selector]; ok && i < len(els) {
		els[i] = brokenElement{}
	}
	return els
}

type brokenElement struct{}

func (brokenElement) Text() (string, error)       { return "", fmt.Errorf("stale element") }
func (brokenElement) Attr(string) (string, error) { return "", fmt.Errorf("stale element") }
