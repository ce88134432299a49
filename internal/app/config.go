package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// EnvPrefix prefixes environment overrides. Nested keys use "__",
// e.g. REELMETA_GRAPH__APP_ID sets graph.app_id.
const EnvPrefix = "REELMETA_"

// Browser fallback modes.
const (
	BrowserFallback = "fallback"
	BrowserAlways   = "always"
	BrowserNever    = "never"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server" validate:"required"`
	Fetch     FetchConfig     `koanf:"fetch" validate:"required"`
	Browser   BrowserConfig   `koanf:"browser" validate:"required"`
	Graph     GraphConfig     `koanf:"graph" validate:"required"`
	Cache     CacheConfig     `koanf:"cache"`
	Scrape    ScrapeConfig    `koanf:"scrape" validate:"required"`
	Platforms PlatformsConfig `koanf:"platforms" validate:"required"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	StaticDir    string        `koanf:"static_dir"`
}

// FetchConfig holds static document fetch settings.
type FetchConfig struct {
	Timeout      time.Duration `koanf:"timeout" validate:"required"`
	MaxRedirects int           `koanf:"max_redirects" validate:"min=0"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" validate:"required,min=1024"`
	RateLimit    float64       `koanf:"rate_limit" validate:"min=0"`
	RateBurst    int           `koanf:"rate_burst" validate:"min=0"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	ChromePath  string        `koanf:"chrome_path"`
	Headless    bool          `koanf:"headless"`
	NoSandbox   bool          `koanf:"no_sandbox"`
	HTMLTimeout time.Duration `koanf:"html_timeout" validate:"required"`
}

// GraphConfig holds the Graph API endpoint and its two-part credential.
type GraphConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	Version     string        `koanf:"version" validate:"required"`
	AppID       string        `koanf:"app_id" validate:"required_with=ClientToken"`
	ClientToken string        `koanf:"client_token" validate:"required_with=AppID"`
	Timeout     time.Duration `koanf:"timeout" validate:"required"`
}

// CacheConfig holds the optional Redis result cache settings.
type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr" validate:"required_if=Enabled true"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db" validate:"min=0"`
	TTL      time.Duration `koanf:"ttl" validate:"required_if=Enabled true"`
}

// ScrapeConfig holds batch scraping settings.
type ScrapeConfig struct {
	MaxConcurrency int `koanf:"max_concurrency" validate:"required,min=1"`
}

// PlatformsConfig holds per-platform extraction policy.
type PlatformsConfig struct {
	Instagram PlatformConfig `koanf:"instagram" validate:"required"`
	TikTok    PlatformConfig `koanf:"tiktok" validate:"required"`
	Facebook  PlatformConfig `koanf:"facebook" validate:"required"`
}

// PlatformConfig is the extraction policy for one platform.
type PlatformConfig struct {
	APIFirst           bool          `koanf:"api_first"`
	TrustEmbeddedState bool          `koanf:"trust_embedded_state"`
	Browser            BrowserPolicy `koanf:"browser" validate:"required"`
}

// BrowserPolicy controls when and how the browser session runs for a platform.
type BrowserPolicy struct {
	Mode              string            `koanf:"mode" validate:"required,oneof=fallback always never"`
	Attempts          int               `koanf:"attempts" validate:"required,min=1,max=10"`
	Backoff           time.Duration     `koanf:"backoff" validate:"min=0"`
	NavigationTimeout time.Duration     `koanf:"navigation_timeout" validate:"required"`
	SelectorTimeout   time.Duration     `koanf:"selector_timeout" validate:"required"`
	BlockResources    bool              `koanf:"block_resources"`
	Selectors         []string          `koanf:"selectors" validate:"required,min=1,dive,required"`
	Headers           map[string]string `koanf:"headers"`
}

// defaults mirror config.yaml so the binary runs without one.
var defaults = map[string]any{
	"server.addr":          ":3001",
	"server.read_timeout":  "15s",
	"server.write_timeout": "0s",

	"fetch.timeout":        "20s",
	"fetch.max_redirects":  5,
	"fetch.max_body_bytes": 8 << 20,
	"fetch.rate_limit":     0,
	"fetch.rate_burst":     1,

	"browser.headless":     true,
	"browser.no_sandbox":   true,
	"browser.html_timeout": "10s",

	"graph.base_url": "https://graph.facebook.com",
	"graph.version":  "v18.0",
	"graph.timeout":  "15s",

	"cache.enabled": false,
	"cache.ttl":     "10m",

	"scrape.max_concurrency": 2,

	"platforms.instagram.browser.mode":               BrowserFallback,
	"platforms.instagram.browser.attempts":           1,
	"platforms.instagram.browser.navigation_timeout": "60s",
	"platforms.instagram.browser.selector_timeout":   "5s",
	"platforms.instagram.browser.selectors": []string{
		"video[src]",
		"video source[src]",
		"video[data-video-id]",
		".EmbeddedMedia video",
		`[role="presentation"] video`,
	},

	"platforms.tiktok.trust_embedded_state":       true,
	"platforms.tiktok.browser.mode":               BrowserFallback,
	"platforms.tiktok.browser.attempts":           3,
	"platforms.tiktok.browser.backoff":            "2s",
	"platforms.tiktok.browser.navigation_timeout": "30s",
	"platforms.tiktok.browser.selector_timeout":   "5s",
	"platforms.tiktok.browser.block_resources":    true,
	"platforms.tiktok.browser.selectors": []string{
		`[data-e2e="browse-video"] video`,
		"video[src]",
		"video source[src]",
		".tiktok-web-player video",
		"xg-video-container video",
	},

	"platforms.facebook.api_first":                  true,
	"platforms.facebook.browser.mode":               BrowserFallback,
	"platforms.facebook.browser.attempts":           1,
	"platforms.facebook.browser.navigation_timeout": "60s",
	"platforms.facebook.browser.selector_timeout":   "5s",
	"platforms.facebook.browser.selectors": []string{
		"video[src]",
		"video source[src]",
		"div[data-video-id] video",
		`[data-pagelet="WatchPermalinkVideo"] video`,
	},
}

// Load reads configuration from defaults, an optional YAML file, an optional
// .env file and REELMETA_ environment variables, in that order, then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// envKey maps REELMETA_GRAPH__APP_ID to graph.app_id.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
