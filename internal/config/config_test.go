package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/crawl"
	"github.com/abelbrown/rankscrape/internal/solver"
)

func home(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RANKSCRAPE_HOME", dir)
	for _, k := range []string{"PLAYBOARD_EMAIL", "PLAYBOARD_PASSWORD", "TWOCAPTCHA_API_KEY", "RANKSCRAPE_HEADLESS"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	home(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadYAML(t *testing.T) {
	dir := home(t)
	cfg := DefaultConfig()
	cfg.Account.Email = "me@example.com"
	cfg.Solver.Timeout = 90 * time.Second
	cfg.Crawl.StallThreshold = 5
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDurationsFromText(t *testing.T) {
	dir := home(t)
	yml := "solver:\n  timeout: 2m\ncrawl:\n  settle_delay: 1500ms\n  mode: long\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Solver.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.CrawlParams().SettleDelay)
	assert.Equal(t, "long", cfg.Crawl.Mode)
	assert.Equal(t, "south-korea", cfg.Crawl.Country, "omitted fields keep defaults")
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadFallsBackToJSON(t *testing.T) {
	dir := home(t)
	js := `{"account":{"email":"a@b.c"},"store":{"persist":false}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(js), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", cfg.Account.Email)
	assert.False(t, cfg.Store.Persist)
}

func TestLoadRejectsMalformed(t *testing.T) {
	dir := home(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("crawl: [1, 2"), 0600))

	_, err := Load()
	assert.Error(t, err)
}

func TestAutoPopulateFromEnv(t *testing.T) {
	home(t)
	t.Setenv("PLAYBOARD_EMAIL", "env@example.com")
	t.Setenv("PLAYBOARD_PASSWORD", "pw")
	t.Setenv("TWOCAPTCHA_API_KEY", "key")
	t.Setenv("RANKSCRAPE_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Credentials().Valid())
	assert.Equal(t, "key", cfg.SolverClientConfig().APIKey)
	assert.False(t, cfg.BrowserOptions().Headless)
}

func TestOverridesKeepDefaultsForZero(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, crawl.DefaultParams(), cfg.CrawlParams())

	sc := cfg.SolverClientConfig()
	def := solver.DefaultConfig()
	assert.Equal(t, def.Timeout, sc.Timeout)
	assert.Equal(t, def.BaseURL, sc.BaseURL)

	cfg.Crawl.ItemsPerScroll = 50
	assert.Equal(t, 50, cfg.CrawlParams().ItemsPerScroll)
}

func TestPaths(t *testing.T) {
	dir := home(t)
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(dir, "session.db"), cfg.StorePath())
	assert.Equal(t, filepath.Join(dir, "exports"), cfg.ExportDir())
	cfg.Store.Path = ":memory:"
	assert.Equal(t, ":memory:", cfg.StorePath())
}
