package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/rankscrape/internal/logging"
)

// ErrLoginFailed is returned when the login form never goes away.
var ErrLoginFailed = errors.New("login failed")

// LoginSelectors locate the site's login form. XPath and CSS are both accepted.
type LoginSelectors struct {
	OpenLink string
	Email    string
	Password string
	Submit   string
}

// DefaultLoginSelectors match the chart site's Korean-locale header.
func DefaultLoginSelectors() LoginSelectors {
	return LoginSelectors{
		OpenLink: "//a[text()='로그인']",
		Email:    "input[name='email']",
		Password: "input[name='password']",
		Submit:   "//button[@type='submit' and .//span[text()='로그인']]",
	}
}

// Credentials for the chart site account.
type Credentials struct {
	Email    string
	Password string
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.Email != "" && c.Password != ""
}

// Form is the page surface the login flow needs.
type Form interface {
	Navigate(ctx context.Context, url string) error
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	WaitGone(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, text string) error
}

// Login signs in at baseURL. Charts render without an account, but logged-in
// sessions see far fewer challenges.
func Login(ctx context.Context, page Form, baseURL string, creds Credentials, sel LoginSelectors, timeout time.Duration) error {
	if !creds.Valid() {
		return fmt.Errorf("%w: email and password required", ErrLoginFailed)
	}

	logging.Info("Logging in", "email", creds.Email)
	if err := page.Navigate(ctx, baseURL); err != nil {
		return err
	}
	if err := page.WaitPresent(ctx, sel.OpenLink, timeout); err != nil {
		return fmt.Errorf("%w: login link: %v", ErrLoginFailed, err)
	}
	if err := page.Click(ctx, sel.OpenLink); err != nil {
		return fmt.Errorf("%w: open form: %v", ErrLoginFailed, err)
	}
	if err := page.WaitPresent(ctx, sel.Email, timeout); err != nil {
		return fmt.Errorf("%w: form did not open: %v", ErrLoginFailed, err)
	}
	if err := page.SendKeys(ctx, sel.Email, creds.Email); err != nil {
		return fmt.Errorf("%w: email: %v", ErrLoginFailed, err)
	}
	if err := page.SendKeys(ctx, sel.Password, creds.Password); err != nil {
		return fmt.Errorf("%w: password: %v", ErrLoginFailed, err)
	}
	if err := page.Click(ctx, sel.Submit); err != nil {
		return fmt.Errorf("%w: submit: %v", ErrLoginFailed, err)
	}
	if err := page.WaitGone(ctx, sel.Email, timeout); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	logging.Info("Logged in", "email", creds.Email)
	return nil
}
