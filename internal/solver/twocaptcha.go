// Package solver is a 2Captcha client implementing captcha.Solver.
//
// A challenge is submitted to in.php, then res.php is polled at a fixed
// pace until a token comes back, the service gives up, or the overall
// timeout passes.
package solver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/abelbrown/rankscrape/internal/captcha"
	"github.com/abelbrown/rankscrape/internal/logging"
)

// DefaultBaseURL is the 2Captcha API host.
const DefaultBaseURL = "https://2captcha.com"

// ErrNoAPIKey is returned by New when no key is configured.
var ErrNoAPIKey = errors.New("2captcha API key not set")

const notReady = "CAPCHA_NOT_READY"

// Config for the 2Captcha client.
type Config struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration // whole solve, submit through final poll
	PollInterval time.Duration // between res.php calls
	InitialWait  time.Duration // before the first poll
}

// DefaultConfig matches 2Captcha's recommended pacing for reCAPTCHA.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      180 * time.Second,
		PollInterval: 5 * time.Second,
		InitialWait:  15 * time.Second,
	}
}

// Client talks to in.php and res.php.
type Client struct {
	http    *resty.Client
	cfg     Config
	limiter *rate.Limiter
}

var _ captcha.Solver = (*Client)(nil)

// New builds a client. Zero BaseURL, Timeout and PollInterval take
// DefaultConfig values; InitialWait is used as given.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.InitialWait < 0 {
		cfg.InitialWait = 0
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(30 * time.Second)
	client.SetHeader("user-agent", "rankscrape/"+logging.Version)

	return &Client{
		http:    client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
	}, nil
}

type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// SolveToken solves a checkbox/invisible reCAPTCHA v2.
func (c *Client) SolveToken(ctx context.Context, siteKey, pageURL string) (string, error) {
	return c.solve(ctx, map[string]string{
		"method":    "userrecaptcha",
		"googlekey": siteKey,
		"pageurl":   pageURL,
	})
}

// SolveImage sends the tile grid with its instruction text. With a site key
// the service answers with a token; without one it treats the grid as a
// plain image task.
func (c *Client) SolveImage(ctx context.Context, ch captcha.ImageChallenge) (string, error) {
	params := map[string]string{
		"textinstructions": ch.Instructions,
		"body":             base64.StdEncoding.EncodeToString(ch.Image),
	}
	if ch.SiteKey != "" {
		params["method"] = "userrecaptcha"
		params["googlekey"] = ch.SiteKey
		params["pageurl"] = ch.PageURL
	} else {
		params["method"] = "base64"
		params["recaptcha"] = "1"
	}
	return c.solve(ctx, params)
}

func (c *Client) solve(ctx context.Context, params map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	id, err := c.submit(ctx, params)
	if err != nil {
		return "", err
	}
	logging.Debug("2captcha task submitted", "id", id, "method", params["method"])

	if c.cfg.InitialWait > 0 {
		t := time.NewTimer(c.cfg.InitialWait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return "", fmt.Errorf("%w: task %s", captcha.ErrSolverTimeout, id)
		}
	}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: task %s", captcha.ErrSolverTimeout, id)
		}
		token, done, err := c.poll(ctx, id)
		if err != nil {
			return "", err
		}
		if done {
			logging.Info("2captcha solved", "id", id, "dur", time.Since(start).Round(time.Second))
			return token, nil
		}
	}
}

func (c *Client) submit(ctx context.Context, params map[string]string) (string, error) {
	form := map[string]string{"key": c.cfg.APIKey, "json": "1"}
	for k, v := range params {
		form[k] = v
	}

	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/in.php")
	if err != nil {
		return "", c.transportErr(ctx, "submit", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: in.php HTTP %d", captcha.ErrSolverRejected, resp.StatusCode())
	}
	if out.Status != 1 {
		return "", classify(out.Request)
	}
	return out.Request, nil
}

// poll makes one res.php call. done is false while the task is pending.
func (c *Client) poll(ctx context.Context, id string) (token string, done bool, err error) {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":    c.cfg.APIKey,
			"action": "get",
			"id":     id,
			"json":   "1",
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Get("/res.php")
	if err != nil {
		return "", false, c.transportErr(ctx, "poll", err)
	}
	if resp.IsError() {
		return "", false, fmt.Errorf("%w: res.php HTTP %d", captcha.ErrSolverRejected, resp.StatusCode())
	}
	if out.Status == 1 {
		return out.Request, true, nil
	}
	if out.Request == notReady {
		return "", false, nil
	}
	return "", false, classify(out.Request)
}

func (c *Client) transportErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %v", captcha.ErrSolverTimeout, op, err)
	}
	return fmt.Errorf("2captcha %s: %w", op, err)
}

// classify maps a 2Captcha error code onto the solver error taxonomy.
func classify(code string) error {
	switch code {
	case "ERROR_WRONG_USER_KEY", "ERROR_KEY_DOES_NOT_EXIST", "ERROR_ZERO_BALANCE", "ERROR_IP_NOT_ALLOWED", "IP_BANNED":
		return fmt.Errorf("%w: %s", captcha.ErrSolverAuth, code)
	default:
		return fmt.Errorf("%w: %s", captcha.ErrSolverRejected, code)
	}
}
