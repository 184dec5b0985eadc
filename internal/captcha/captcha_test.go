package captcha

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/browser/browsertest"
)

type fakeSolver struct {
	mu     sync.Mutex
	token  string
	err    error
	calls  int
	key    string
	url    string
	images []ImageChallenge
}

func (s *fakeSolver) SolveToken(ctx context.Context, siteKey, pageURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.key, s.url = siteKey, pageURL
	return s.token, s.err
}

func (s *fakeSolver) SolveImage(ctx context.Context, ch ImageChallenge) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.images = append(s.images, ch)
	return s.token, s.err
}

type panicModality struct{}

func (panicModality) Name() string                                { return "boom" }
func (panicModality) Present(context.Context, Page) bool          { return true }
func (panicModality) Resolve(context.Context, Page, Solver) error { panic("driver crashed") }

func staticPage(body string) *browsertest.Page {
	p := browsertest.New(func(string, int) string {
		return "<html><body>" + body + "</body></html>"
	})
	_ = p.Navigate(context.Background(), "https://playboard.co/chart/video/?period=1")
	return p
}

func newTestRecovery(page Page, solver Solver) *Recovery {
	r := NewRecovery(page, solver)
	r.Grace = 0
	r.Modalities = []Modality{TokenCallback{}, ImageSelect{}}
	return r
}

func collect(lines *[]string) Logf {
	return func(format string, args ...any) {
		*lines = append(*lines, fmt.Sprintf(format, args...))
	}
}

func TestAttemptNoChallenge(t *testing.T) {
	solver := &fakeSolver{token: "T"}
	out := newTestRecovery(staticPage("<p>chart</p>"), solver).Attempt(context.Background(), nil)

	assert.True(t, out.Solved)
	assert.Empty(t, out.Modality)
	assert.Zero(t, solver.calls)
}

func TestTokenCallbackUsesDataCallback(t *testing.T) {
	page := staticPage(`<div class="g-recaptcha" data-sitekey="SITE-KEY" data-callback="onSolved"></div>`)
	solver := &fakeSolver{token: "TOKEN-123"}

	var lines []string
	out := newTestRecovery(page, solver).Attempt(context.Background(), collect(&lines))

	require.True(t, out.Solved, out.Reason)
	assert.Equal(t, "token-callback", out.Modality)
	assert.Equal(t, 1, solver.calls)
	assert.Equal(t, "SITE-KEY", solver.key)
	assert.Equal(t, "https://playboard.co/chart/video/?period=1", solver.url)
	assert.True(t, page.Executed(`el.value = "TOKEN-123"`))
	assert.True(t, page.Executed(`window["onSolved"]("TOKEN-123")`))
	assert.False(t, page.Clicked(submitControl))
	assert.Contains(t, strings.Join(lines, "\n"), "CAPTCHA solved (token-callback)")
}

func TestTokenCallbackFallsBackToSubmit(t *testing.T) {
	page := staticPage(`<div class="g-recaptcha" data-sitekey="K"></div><button type="submit">go</button>`)
	solver := &fakeSolver{token: "T"}

	out := newTestRecovery(page, solver).Attempt(context.Background(), nil)

	require.True(t, out.Solved, out.Reason)
	assert.True(t, page.Executed("___grecaptcha_cfg"))
	assert.True(t, page.Clicked(submitControl))
}

func TestTokenCallbackConfigCallback(t *testing.T) {
	page := staticPage(`<div class="g-recaptcha" data-sitekey="K"></div>`)
	page.EvalResult = func(script string) bool { return strings.Contains(script, "___grecaptcha_cfg") }

	out := newTestRecovery(page, &fakeSolver{token: "T"}).Attempt(context.Background(), nil)

	require.True(t, out.Solved)
	assert.False(t, page.Clicked(submitControl))
}

func TestSiteKeyFromIframeSrc(t *testing.T) {
	page := staticPage(`<div class="g-recaptcha"><iframe src="https://www.google.com/recaptcha/api2/anchor?ar=1&k=FRAME-KEY&co=x"></iframe></div>`)
	solver := &fakeSolver{token: "T"}

	out := newTestRecovery(page, solver).Attempt(context.Background(), nil)

	require.True(t, out.Solved, out.Reason)
	assert.Equal(t, "FRAME-KEY", solver.key)
}

func TestAttemptWithoutSolver(t *testing.T) {
	page := staticPage(`<div class="g-recaptcha" data-sitekey="K"></div>`)

	var lines []string
	out := newTestRecovery(page, nil).Attempt(context.Background(), collect(&lines))

	assert.False(t, out.Solved)
	assert.Equal(t, "token-callback", out.Modality)
	assert.Contains(t, out.Reason, "not configured")
	assert.Len(t, lines, 2)
}

func TestAttemptSolverError(t *testing.T) {
	page := staticPage(`<div class="g-recaptcha" data-sitekey="K"></div>`)
	solver := &fakeSolver{err: fmt.Errorf("%w: ERROR_CAPTCHA_UNSOLVABLE", ErrSolverRejected)}

	out := newTestRecovery(page, solver).Attempt(context.Background(), nil)

	assert.False(t, out.Solved)
	assert.Contains(t, out.Reason, "ERROR_CAPTCHA_UNSOLVABLE")
	assert.Equal(t, 1, solver.calls)
	assert.False(t, page.Executed("g-recaptcha-response"))
}

func TestAttemptMissingSiteKey(t *testing.T) {
	page := staticPage(`<div class="g-recaptcha"></div>`)
	solver := &fakeSolver{token: "T"}

	out := newTestRecovery(page, solver).Attempt(context.Background(), nil)

	assert.False(t, out.Solved)
	assert.Contains(t, out.Reason, "extract challenge")
	assert.Zero(t, solver.calls)
}

func TestAttemptRecoversPanic(t *testing.T) {
	r := newTestRecovery(staticPage(""), &fakeSolver{})
	r.Modalities = []Modality{panicModality{}}

	var out Outcome
	assert.NotPanics(t, func() { out = r.Attempt(context.Background(), nil) })
	assert.False(t, out.Solved)
	assert.Equal(t, "boom", out.Modality)
	assert.Contains(t, out.Reason, "driver crashed")
}

func TestImageSelectFullChallenge(t *testing.T) {
	challengeOpen := false
	page := browsertest.New(func(string, int) string {
		body := `<iframe title="reCAPTCHA" src="https://www.google.com/recaptcha/api2/anchor?k=IMG-KEY"></iframe>`
		if challengeOpen {
			body += `<iframe title="recaptcha challenge expires in two minutes"></iframe>`
		}
		return "<html><body>" + body + "</body></html>"
	})
	_ = page.Navigate(context.Background(), "https://playboard.co/chart")
	page.Frames[anchorFrame] = `<html><body><span id="recaptcha-anchor"></span></body></html>`
	page.Frames[challengeFrame] = `<html><body>
		<div class="rc-imageselect-instructions">Select all images with <strong>buses</strong></div>
		<img class="rc-image-tile-44" src="payload">
		<button id="recaptcha-verify-button">Verify</button></body></html>`
	page.Shot = []byte("png-bytes")
	page.OnClick = func(_ *browsertest.Page, sel string) {
		if sel == anchorCheckbox {
			challengeOpen = true
		}
	}
	solver := &fakeSolver{token: "IMG-TOKEN"}

	out := newTestRecovery(page, solver).Attempt(context.Background(), nil)

	require.True(t, out.Solved, out.Reason)
	assert.Equal(t, "image-select", out.Modality)
	require.Len(t, solver.images, 1)
	assert.Equal(t, "buses", solver.images[0].Instructions)
	assert.Equal(t, []byte("png-bytes"), solver.images[0].Image)
	assert.Equal(t, "IMG-KEY", solver.images[0].SiteKey)
	assert.True(t, page.Executed(`"IMG-TOKEN"`))
	assert.True(t, page.Clicked(verifyButton))
}

func TestImageSelectCheckboxOnly(t *testing.T) {
	page := staticPage(`<iframe title="reCAPTCHA"></iframe>`)
	page.Frames[anchorFrame] = `<html><body><span id="recaptcha-anchor"></span></body></html>`
	solver := &fakeSolver{token: "T"}

	out := newTestRecovery(page, solver).Attempt(context.Background(), nil)

	require.True(t, out.Solved, out.Reason)
	assert.Equal(t, "image-select", out.Modality)
	assert.True(t, page.Clicked(anchorCheckbox))
	assert.Zero(t, solver.calls)
}

func TestImageSelectMissingAnchorFrame(t *testing.T) {
	page := staticPage(`<iframe title="reCAPTCHA"></iframe>`)

	out := newTestRecovery(page, &fakeSolver{token: "T"}).Attempt(context.Background(), nil)

	assert.False(t, out.Solved)
	assert.Contains(t, out.Reason, "anchor frame")
}
