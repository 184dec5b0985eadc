package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const (
	widgetSelector   = ".g-recaptcha"
	responseFieldID  = "g-recaptcha-response"
	anchorFrame      = "iframe[title='reCAPTCHA']"
	anchorCheckbox   = "#recaptcha-anchor"
	challengeFrame   = "iframe[title*='challenge'], iframe[title*='보안문자']"
	tileImage        = "img.rc-image-tile-44, img.rc-image-tile-33, img.rc-image-tile-42"
	instructionsText = ".rc-imageselect-instructions strong"
	instructionsBox  = ".rc-imageselect-instructions"
	verifyButton     = "#recaptcha-verify-button"
	submitControl    = "button[type='submit'], input[type='submit']"
)

// siteKey reads the widget's data-sitekey, falling back to the k parameter
// of the anchor iframe's src.
func siteKey(ctx context.Context, page Page) (string, error) {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	for _, el := range snap.FindAll(widgetSelector) {
		if key, _ := el.Attr("data-sitekey"); key != "" {
			return key, nil
		}
	}
	for _, el := range snap.FindAll("iframe[src*='recaptcha']") {
		src, _ := el.Attr("src")
		if u, err := url.Parse(src); err == nil {
			if key := u.Query().Get("k"); key != "" {
				return key, nil
			}
		}
	}
	return "", fmt.Errorf("no site key on page")
}

// injectScript writes token into the response textarea, creating it if the
// widget has not rendered one.
func injectScript(token string) string {
	t, _ := json.Marshal(token)
	id, _ := json.Marshal(responseFieldID)
	return fmt.Sprintf(`(function(){
  var el = document.getElementById(%[2]s);
  if (!el) {
    el = document.createElement('textarea');
    el.id = %[2]s; el.name = %[2]s;
    el.style.display = 'none';
    document.body.appendChild(el);
  }
  el.innerHTML = %[1]s;
  el.value = %[1]s;
})();`, t, id)
}

// configCallbackScript walks the grecaptcha client config looking for a
// registered callback and calls it. Evaluates to true when one was found.
func configCallbackScript(token string) string {
	t, _ := json.Marshal(token)
	return fmt.Sprintf(`(function(){
  var cfg = window.___grecaptcha_cfg;
  if (!cfg || !cfg.clients) return false;
  var seen = [];
  function walk(o, depth) {
    if (!o || typeof o !== 'object' || depth > 4 || seen.indexOf(o) >= 0) return null;
    seen.push(o);
    for (var k in o) {
      var v = o[k];
      if (k === 'callback') {
        if (typeof v === 'function') return v;
        if (typeof v === 'string' && typeof window[v] === 'function') return window[v];
      }
      var f = walk(v, depth + 1);
      if (f) return f;
    }
    return null;
  }
  for (var id in cfg.clients) {
    var cb = walk(cfg.clients[id], 0);
    if (cb) { cb(%s); return true; }
  }
  return false;
})()`, t)
}

// TokenCallback answers a reCAPTCHA widget with a solver token and triggers
// the page's own callback.
type TokenCallback struct{}

func (TokenCallback) Name() string { return "token-callback" }

func (TokenCallback) Present(ctx context.Context, page Page) bool {
	n, err := page.Count(ctx, widgetSelector)
	return err == nil && n > 0
}

func (TokenCallback) Resolve(ctx context.Context, page Page, solver Solver) error {
	key, err := siteKey(ctx, page)
	if err != nil {
		return fmt.Errorf("extract challenge: %w", err)
	}
	pageURL, err := page.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("extract challenge: %w", err)
	}

	token, err := solver.SolveToken(ctx, key, pageURL)
	if err != nil {
		return err
	}

	if err := page.Exec(ctx, injectScript(token)); err != nil {
		return fmt.Errorf("inject token: %w", err)
	}
	return submit(ctx, page, token)
}

// submit triggers data-callback, then the client config callback, then a
// submit control.
func submit(ctx context.Context, page Page, token string) error {
	if snap, err := page.Snapshot(ctx); err == nil {
		for _, el := range snap.FindAll(widgetSelector) {
			if cb, _ := el.Attr("data-callback"); cb != "" {
				name, _ := json.Marshal(cb)
				t, _ := json.Marshal(token)
				return page.Exec(ctx, fmt.Sprintf("window[%s](%s);", name, t))
			}
		}
	}

	if found, err := page.EvalBool(ctx, configCallbackScript(token)); err == nil && found {
		return nil
	}

	if err := page.Click(ctx, submitControl); err != nil {
		return fmt.Errorf("no callback or submit control: %w", err)
	}
	return nil
}

// ImageSelect handles the checkbox-then-tiles flow: tick the anchor box,
// and if a tile challenge opens, send a screenshot and its instruction text
// to the solver.
type ImageSelect struct {
	// CheckboxWait is how long to give the challenge frame to open.
	CheckboxWait time.Duration
}

func (ImageSelect) Name() string { return "image-select" }

func (ImageSelect) Present(ctx context.Context, page Page) bool {
	n, err := page.Count(ctx, anchorFrame)
	return err == nil && n > 0
}

func (m ImageSelect) Resolve(ctx context.Context, page Page, solver Solver) error {
	if err := page.EnterFrame(ctx, anchorFrame); err != nil {
		return fmt.Errorf("anchor frame: %w", err)
	}
	err := page.Click(ctx, anchorCheckbox)
	page.ExitFrame()
	if err != nil {
		return fmt.Errorf("click checkbox: %w", err)
	}
	sleep(ctx, m.CheckboxWait)

	// Checkbox alone was enough.
	if n, err := page.Count(ctx, challengeFrame); err != nil || n == 0 {
		return nil
	}

	ch, err := captureTiles(ctx, page)
	if err != nil {
		return fmt.Errorf("extract challenge: %w", err)
	}
	ch.SiteKey, _ = siteKey(ctx, page)
	ch.PageURL, _ = page.CurrentURL(ctx)

	token, err := solver.SolveImage(ctx, ch)
	if err != nil {
		return err
	}

	if err := page.Exec(ctx, injectScript(token)); err != nil {
		return fmt.Errorf("inject token: %w", err)
	}

	if err := page.EnterFrame(ctx, challengeFrame); err != nil {
		return fmt.Errorf("challenge frame: %w", err)
	}
	defer page.ExitFrame()
	if err := page.Click(ctx, verifyButton); err != nil {
		return fmt.Errorf("click verify: %w", err)
	}
	return nil
}

func captureTiles(ctx context.Context, page Page) (ImageChallenge, error) {
	if err := page.EnterFrame(ctx, challengeFrame); err != nil {
		return ImageChallenge{}, err
	}
	defer page.ExitFrame()

	img, err := page.Screenshot(ctx, tileImage)
	if err != nil {
		return ImageChallenge{}, fmt.Errorf("screenshot tiles: %w", err)
	}

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return ImageChallenge{}, err
	}
	var text string
	for _, sel := range []string{instructionsText, instructionsBox} {
		if els := snap.FindAll(sel); len(els) > 0 {
			if text, _ = els[0].Text(); text != "" {
				break
			}
		}
	}
	if text == "" {
		return ImageChallenge{}, fmt.Errorf("no instruction text")
	}
	return ImageChallenge{Image: img, Instructions: text}, nil
}
