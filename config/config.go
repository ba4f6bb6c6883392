package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/passoworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Target site
	StartURL      string
	CategoryLabel string

	// Browser configuration
	Headless     bool
	BrowserBin   string
	RemoteURL    string
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	NoSandbox    bool
	ProxyList    []string

	// Wait windows
	NavTimeout    time.Duration
	ListTimeout   time.Duration
	DetailTimeout time.Duration
	PopupTimeout  time.Duration
	ExpandTimeout time.Duration

	// Settle fallbacks, zero disables
	NavSettle    time.Duration
	ScrollSettle time.Duration
	ExpandSettle time.Duration

	// EmptyListIsError turns "items present but none parsed" into a failure
	EmptyListIsError bool

	// Redis configuration (event mirror, disabled when RedisAddr is empty)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration (category URL cache, disabled when MemcacheAddr is empty)
	MemcacheAddr     string
	CategoryCacheTTL time.Duration

	// Environment
	Environment string
}

// DefaultUserAgent is a desktop Chrome user agent applied to every page
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	width, _ := strconv.Atoi(getEnv("BROWSER_WINDOW_WIDTH", "1920"))
	height, _ := strconv.Atoi(getEnv("BROWSER_WINDOW_HEIGHT", "1080"))
	cacheTTL, _ := strconv.Atoi(getEnv("CATEGORY_CACHE_TTL_SECONDS", "3600"))

	return &Config{
		StartURL:      getEnv("PASSO_START_URL", "https://www.passo.com.tr/tr"),
		CategoryLabel: getEnv("PASSO_CATEGORY", "Futbol"),

		Headless:     getBool("BROWSER_HEADLESS", true),
		BrowserBin:   getEnv("BROWSER_BIN", ""),
		RemoteURL:    getEnv("BROWSER_REMOTE_URL", ""),
		WindowWidth:  width,
		WindowHeight: height,
		UserAgent:    getEnv("BROWSER_USER_AGENT", DefaultUserAgent),
		NoSandbox:    getBool("BROWSER_NO_SANDBOX", true),
		ProxyList:    splitList(getEnv("PROXY_LIST", "")),

		NavTimeout:    getMillis("NAV_TIMEOUT_MS", 15000),
		ListTimeout:   getMillis("LIST_TIMEOUT_MS", 10000),
		DetailTimeout: getMillis("DETAIL_TIMEOUT_MS", 10000),
		PopupTimeout:  getMillis("POPUP_TIMEOUT_MS", 10000),
		ExpandTimeout: getMillis("EXPAND_TIMEOUT_MS", 3000),

		NavSettle:    getMillis("NAV_SETTLE_MS", 2000),
		ScrollSettle: getMillis("SCROLL_SETTLE_MS", 1000),
		ExpandSettle: getMillis("EXPAND_SETTLE_MS", 1500),

		EmptyListIsError: getBool("EMPTY_LIST_IS_ERROR", false),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "passo_events"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLength,

		MemcacheAddr:     getEnv("MEMCACHE_ADDR", ""),
		CategoryCacheTTL: time.Duration(cacheTTL) * time.Second,

		Environment: getEnv("PASSO_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the scraper cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.StartURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewConfiguration(fmt.Sprintf("invalid start url %q", c.StartURL), err)
	}
	if strings.TrimSpace(c.CategoryLabel) == "" {
		return errors.NewConfiguration("category label must not be empty", nil)
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return errors.NewConfiguration(fmt.Sprintf("invalid window size %dx%d", c.WindowWidth, c.WindowHeight), nil)
	}

	timeouts := map[string]time.Duration{
		"NAV_TIMEOUT_MS":    c.NavTimeout,
		"LIST_TIMEOUT_MS":   c.ListTimeout,
		"DETAIL_TIMEOUT_MS": c.DetailTimeout,
		"POPUP_TIMEOUT_MS":  c.PopupTimeout,
		"EXPAND_TIMEOUT_MS": c.ExpandTimeout,
	}
	for key, d := range timeouts {
		if d <= 0 {
			return errors.NewConfiguration(fmt.Sprintf("%s must be positive", key), nil)
		}
	}

	if c.NavSettle < 0 || c.ScrollSettle < 0 || c.ExpandSettle < 0 {
		return errors.NewConfiguration("settle delays must not be negative", nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	return nil
}

// IsProduction reports whether the worker runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getMillis(key string, defaultValue int) time.Duration {
	ms, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		ms = defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
