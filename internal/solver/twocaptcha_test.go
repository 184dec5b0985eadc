package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/captcha"
)

func writeJSON(w http.ResponseWriter, status int, request string) {
	w.Header().Set("Content-Type", "text/plain")
	_ = json.NewEncoder(w).Encode(apiResponse{Status: status, Request: request})
}

func testClient(t *testing.T, srv *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		Timeout:      timeout,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestSolveTokenPollsUntilReady(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "test-key", r.PostForm.Get("key"))
			assert.Equal(t, "userrecaptcha", r.PostForm.Get("method"))
			assert.Equal(t, "SITE", r.PostForm.Get("googlekey"))
			assert.Equal(t, "https://playboard.co/chart", r.PostForm.Get("pageurl"))
			writeJSON(w, 1, "4242")
		case "/res.php":
			assert.Equal(t, "get", r.URL.Query().Get("action"))
			assert.Equal(t, "4242", r.URL.Query().Get("id"))
			if polls.Add(1) < 3 {
				writeJSON(w, 0, notReady)
				return
			}
			writeJSON(w, 1, "TOKEN")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	token, err := testClient(t, srv, 5*time.Second).SolveToken(context.Background(), "SITE", "https://playboard.co/chart")
	require.NoError(t, err)
	assert.Equal(t, "TOKEN", token)
	assert.EqualValues(t, 3, polls.Load())
}

func TestSolveTokenAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 0, "ERROR_WRONG_USER_KEY")
	}))
	defer srv.Close()

	_, err := testClient(t, srv, time.Second).SolveToken(context.Background(), "SITE", "u")
	assert.ErrorIs(t, err, captcha.ErrSolverAuth)
}

func TestSolveTokenUnsolvable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			writeJSON(w, 1, "1")
			return
		}
		writeJSON(w, 0, "ERROR_CAPTCHA_UNSOLVABLE")
	}))
	defer srv.Close()

	_, err := testClient(t, srv, time.Second).SolveToken(context.Background(), "SITE", "u")
	assert.ErrorIs(t, err, captcha.ErrSolverRejected)
	assert.Contains(t, err.Error(), "ERROR_CAPTCHA_UNSOLVABLE")
}

func TestSolveTokenTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			writeJSON(w, 1, "1")
			return
		}
		writeJSON(w, 0, notReady)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, 50*time.Millisecond).SolveToken(context.Background(), "SITE", "u")
	assert.ErrorIs(t, err, captcha.ErrSolverTimeout)
}

func TestSolveImageSendsInstructions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/in.php" {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "base64", r.PostForm.Get("method"))
			assert.Equal(t, "1", r.PostForm.Get("recaptcha"))
			assert.Equal(t, "buses", r.PostForm.Get("textinstructions"))
			assert.Equal(t, "cG5n", r.PostForm.Get("body"))
			writeJSON(w, 1, "7")
			return
		}
		writeJSON(w, 1, "IMG-TOKEN")
	}))
	defer srv.Close()

	token, err := testClient(t, srv, time.Second).SolveImage(context.Background(), captcha.ImageChallenge{
		Image:        []byte("png"),
		Instructions: "buses",
	})
	require.NoError(t, err)
	assert.Equal(t, "IMG-TOKEN", token)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("ERROR_ZERO_BALANCE"), captcha.ErrSolverAuth)
	assert.ErrorIs(t, classify("ERROR_KEY_DOES_NOT_EXIST"), captcha.ErrSolverAuth)
	assert.ErrorIs(t, classify("ERROR_BAD_DUPLICATES"), captcha.ErrSolverRejected)
}
