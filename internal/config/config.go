package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/abelbrown/rankscrape/internal/browser"
	"github.com/abelbrown/rankscrape/internal/captcha"
	"github.com/abelbrown/rankscrape/internal/crawl"
	"github.com/abelbrown/rankscrape/internal/solver"
	"github.com/abelbrown/rankscrape/internal/target"
)

// Config is the persistent application configuration
type Config struct {
	Account AccountConfig `yaml:"account" json:"account"`
	Solver  SolverConfig  `yaml:"solver" json:"solver"`
	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Crawl   CrawlConfig   `yaml:"crawl" json:"crawl"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Export  ExportConfig  `yaml:"export" json:"export"`
}

// AccountConfig holds the chart site login. Empty skips login.
type AccountConfig struct {
	Email    string `yaml:"email,omitempty" json:"email,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// SolverConfig for the 2Captcha service
type SolverConfig struct {
	APIKey       string        `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL      string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
	Grace        time.Duration `yaml:"grace,omitempty" json:"grace,omitempty"` // settle after a solved challenge
}

// BrowserConfig holds Chrome settings
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" json:"headless"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout,omitempty" json:"page_load_timeout,omitempty"`
	UserDataDir     string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
}

// CrawlConfig holds run defaults and heuristic overrides. Zero keeps the
// built-in value.
type CrawlConfig struct {
	Mode     string `yaml:"mode" json:"mode"`
	Country  string `yaml:"country" json:"country"`
	MaxItems int    `yaml:"max_items" json:"max_items"`

	ItemsPerScroll int           `yaml:"items_per_scroll,omitempty" json:"items_per_scroll,omitempty"`
	ScrollSlack    int           `yaml:"scroll_slack,omitempty" json:"scroll_slack,omitempty"`
	StallThreshold int           `yaml:"stall_threshold,omitempty" json:"stall_threshold,omitempty"`
	SettleDelay    time.Duration `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty"`
	LoadTimeout    time.Duration `yaml:"load_timeout,omitempty" json:"load_timeout,omitempty"`
}

// StoreConfig controls sqlite persistence of the session
type StoreConfig struct {
	Persist bool   `yaml:"persist" json:"persist"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"` // "" = <Dir>/session.db
}

// ExportConfig holds export destinations
type ExportConfig struct {
	Dir     string `yaml:"dir,omitempty" json:"dir,omitempty"`
	PDFFont string `yaml:"pdf_font,omitempty" json:"pdf_font,omitempty"` // TTF with Hangul glyphs
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{Headless: true},
		Crawl: CrawlConfig{
			Mode:     string(target.ModeShort),
			Country:  "south-korea",
			MaxItems: target.MaxItemsChoices[0],
		},
		Store: StoreConfig{Persist: true},
	}
}

// Dir is the settings directory; RANKSCRAPE_HOME overrides ~/.rankscrape.
func Dir() string {
	if d := os.Getenv("RANKSCRAPE_HOME"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rankscrape")
}

// ConfigPath returns the path Save writes to
func ConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// legacyPath is the JSON layout, read when no YAML file exists.
func legacyPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads config from disk, or returns defaults. Environment variables
// are applied on top in both cases.
func Load() (*Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if os.IsNotExist(err) {
		cfg, err = LoadFile(legacyPath())
	}
	if os.IsNotExist(err) {
		cfg, err = DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// LoadFile reads one file; the extension picks YAML or JSON. Fields the
// file omits keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to disk as YAML
func (c *Config) Save() error {
	return c.SaveFile(ConfigPath())
}

// SaveFile writes config to path as YAML.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // holds the password and API key
}

// AutoPopulateFromEnv fills in credentials and toggles from environment variables
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("PLAYBOARD_EMAIL"); v != "" {
		c.Account.Email = v
	}
	if v := os.Getenv("PLAYBOARD_PASSWORD"); v != "" {
		c.Account.Password = v
	}
	if v := os.Getenv("TWOCAPTCHA_API_KEY"); v != "" {
		c.Solver.APIKey = v
	}
	if v := os.Getenv("RANKSCRAPE_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
}

// Credentials returns the login, which may be incomplete.
func (c *Config) Credentials() browser.Credentials {
	return browser.Credentials{Email: c.Account.Email, Password: c.Account.Password}
}

// SolverClientConfig maps onto solver.Config, keeping defaults for zero fields.
func (c *Config) SolverClientConfig() solver.Config {
	sc := solver.DefaultConfig()
	sc.APIKey = c.Solver.APIKey
	if c.Solver.BaseURL != "" {
		sc.BaseURL = c.Solver.BaseURL
	}
	if c.Solver.Timeout > 0 {
		sc.Timeout = c.Solver.Timeout
	}
	if c.Solver.PollInterval > 0 {
		sc.PollInterval = c.Solver.PollInterval
	}
	return sc
}

// Grace is the settle delay after a solved challenge.
func (c *Config) Grace() time.Duration {
	if c.Solver.Grace > 0 {
		return c.Solver.Grace
	}
	return captcha.DefaultGrace
}

// BrowserOptions maps onto browser.Options.
func (c *Config) BrowserOptions() browser.Options {
	o := browser.DefaultOptions()
	o.Headless = c.Browser.Headless
	o.UserDataDir = c.Browser.UserDataDir
	if c.Browser.PageLoadTimeout > 0 {
		o.PageLoadTimeout = c.Browser.PageLoadTimeout
	}
	return o
}

// CrawlParams applies the overrides to crawl.DefaultParams.
func (c *Config) CrawlParams() crawl.Params {
	p := crawl.DefaultParams()
	if c.Crawl.ItemsPerScroll > 0 {
		p.ItemsPerScroll = c.Crawl.ItemsPerScroll
	}
	if c.Crawl.ScrollSlack > 0 {
		p.ScrollSlack = c.Crawl.ScrollSlack
	}
	if c.Crawl.StallThreshold > 0 {
		p.StallThreshold = c.Crawl.StallThreshold
	}
	if c.Crawl.SettleDelay > 0 {
		p.SettleDelay = c.Crawl.SettleDelay
	}
	if c.Crawl.LoadTimeout > 0 {
		p.LoadTimeout = c.Crawl.LoadTimeout
	}
	return p
}

// StorePath resolves where the session database lives.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(Dir(), "session.db")
}

// ExportDir resolves where exports are written.
func (c *Config) ExportDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	return filepath.Join(Dir(), "exports")
}
