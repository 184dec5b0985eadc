package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/browser"
	"github.com/abelbrown/rankscrape/internal/browser/browsertest"
)

func TestParseSnapshot(t *testing.T) {
	snap, err := browser.ParseSnapshot(`<div><a class="t" href="/v/1">  First </a><a class="t">Second</a></div>`)
	require.NoError(t, err)

	els := snap.FindAll("a.t")
	require.Len(t, els, 2)

	text, err := els[0].Text()
	require.NoError(t, err)
	assert.Equal(t, "First", text)

	href, err := els[0].Attr("href")
	require.NoError(t, err)
	assert.Equal(t, "/v/1", href)

	missing, err := els[1].Attr("href")
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.Empty(t, snap.FindAll("span.none"))
}

func cssLogin() browser.LoginSelectors {
	return browser.LoginSelectors{
		OpenLink: "a.login",
		Email:    "input[name='email']",
		Password: "input[name='password']",
		Submit:   "button.submit",
	}
}

// loginSite walks home -> form -> signed in as the controls are clicked.
func loginSite(acceptSubmit bool) *browsertest.Page {
	stage := 0
	page := browsertest.New(func(url string, scrolls int) string {
		switch stage {
		case 0:
			return `<html><body><a class="login">로그인</a></body></html>`
		case 1:
			return `<html><body><form><input name="email"><input name="password" type="password"><button class="submit">로그인</button></form></body></html>`
		}
		return `<html><body><span class="avatar"></span></body></html>`
	})
	page.OnClick = func(p *browsertest.Page, selector string) {
		switch {
		case selector == "a.login":
			stage = 1
		case selector == "button.submit" && acceptSubmit:
			stage = 2
		}
	}
	return page
}

func TestLogin(t *testing.T) {
	page := loginSite(true)
	creds := browser.Credentials{Email: "me@example.com", Password: "secret"}

	err := browser.Login(context.Background(), page, "https://chart.test", creds, cssLogin(), time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://chart.test"}, page.Navigations)
	assert.Equal(t, "me@example.com", page.Keys["input[name='email']"])
	assert.Equal(t, "secret", page.Keys["input[name='password']"])
	assert.True(t, page.Clicked("button.submit"))
}

func TestLoginFormStaysOpen(t *testing.T) {
	page := loginSite(false)
	creds := browser.Credentials{Email: "me@example.com", Password: "wrong"}

	err := browser.Login(context.Background(), page, "https://chart.test", creds, cssLogin(), time.Millisecond)
	assert.ErrorIs(t, err, browser.ErrLoginFailed)
}

func TestLoginRequiresCredentials(t *testing.T) {
	page := loginSite(true)
	err := browser.Login(context.Background(), page, "https://chart.test", browser.Credentials{Email: "x"}, cssLogin(), time.Millisecond)
	assert.ErrorIs(t, err, browser.ErrLoginFailed)
	assert.Empty(t, page.Navigations, "nothing is attempted without a password")
}

func TestLoginNavigationError(t *testing.T) {
	page := loginSite(true)
	page.NavErr = func(string) error { return browser.ErrNavigationTimeout }

	err := browser.Login(context.Background(), page, "https://chart.test", browser.Credentials{Email: "a", Password: "b"}, cssLogin(), time.Millisecond)
	assert.True(t, errors.Is(err, browser.ErrNavigationTimeout))
}

func TestDefaultOptions(t *testing.T) {
	o := browser.DefaultOptions()
	assert.True(t, o.Headless)
	assert.Equal(t, 1920, o.WindowWidth)
	assert.Equal(t, 30*time.Second, o.PageLoadTimeout)
}
