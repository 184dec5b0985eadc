// Package captcha resolves anti-bot challenges that stall the chart's
// infinite scroll.
//
// A Recovery tries each configured Modality in order. The first one whose
// marker is present on the page resolves the challenge through a Solver.
// Every path ends in an Outcome; nothing is returned as an error or panic.
package captcha

import (
	"context"
	"errors"
	"time"

	"github.com/abelbrown/rankscrape/internal/browser"
)

var (
	// ErrSolverAuth means the solver rejected the API key.
	ErrSolverAuth = errors.New("solver authentication failed")
	// ErrSolverTimeout means the solver did not answer in time.
	ErrSolverTimeout = errors.New("solver timed out")
	// ErrSolverRejected means the solver could not solve the challenge.
	ErrSolverRejected = errors.New("solver rejected challenge")
)

// ImageChallenge is the image-selection variant sent to a Solver.
type ImageChallenge struct {
	Image        []byte // PNG of the tile grid
	Instructions string
	SiteKey      string
	PageURL      string
}

// Solver turns challenge parameters into a response token.
type Solver interface {
	SolveToken(ctx context.Context, siteKey, pageURL string) (string, error)
	SolveImage(ctx context.Context, ch ImageChallenge) (string, error)
}

// Page is the page surface challenge handling needs.
type Page interface {
	Count(ctx context.Context, selector string) (int, error)
	Snapshot(ctx context.Context) (browser.Snapshot, error)
	CurrentURL(ctx context.Context) (string, error)
	Exec(ctx context.Context, script string) error
	EvalBool(ctx context.Context, script string) (bool, error)
	Click(ctx context.Context, selector string) error
	Screenshot(ctx context.Context, selector string) ([]byte, error)
	EnterFrame(ctx context.Context, selector string) error
	ExitFrame()
}

// Modality is one way a challenge can be presented and answered.
type Modality interface {
	Name() string
	Present(ctx context.Context, page Page) bool
	Resolve(ctx context.Context, page Page, solver Solver) error
}

// Logf receives human-readable progress lines.
type Logf func(format string, args ...any)

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) {
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
