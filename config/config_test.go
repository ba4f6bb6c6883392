package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "https://www.passo.com.tr/tr", config.StartURL)
	assert.Equal(t, "Futbol", config.CategoryLabel)
	assert.True(t, config.Headless)
	assert.Equal(t, 1920, config.WindowWidth)
	assert.Equal(t, 1080, config.WindowHeight)
	assert.Equal(t, 15*time.Second, config.NavTimeout)
	assert.Equal(t, 10*time.Second, config.ListTimeout)
	assert.Equal(t, 3*time.Second, config.ExpandTimeout)
	assert.Equal(t, 1500*time.Millisecond, config.ExpandSettle)
	assert.False(t, config.EmptyListIsError)
	assert.Empty(t, config.RedisAddr)
	assert.Empty(t, config.MemcacheAddr)
	assert.Nil(t, config.ProxyList)
	assert.NoError(t, config.Validate())

	// Test with environment variables
	os.Setenv("PASSO_START_URL", "https://example.com/tr")
	os.Setenv("PASSO_CATEGORY", "Basketbol")
	os.Setenv("BROWSER_HEADLESS", "false")
	os.Setenv("NAV_TIMEOUT_MS", "500")
	os.Setenv("EMPTY_LIST_IS_ERROR", "true")
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("REDIS_DB", "1")
	os.Setenv("PROXY_LIST", "socks5://10.0.0.1:1080, http://10.0.0.2:8080,")

	config = LoadConfig()
	assert.Equal(t, "https://example.com/tr", config.StartURL)
	assert.Equal(t, "Basketbol", config.CategoryLabel)
	assert.False(t, config.Headless)
	assert.Equal(t, 500*time.Millisecond, config.NavTimeout)
	assert.True(t, config.EmptyListIsError)
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, []string{"socks5://10.0.0.1:1080", "http://10.0.0.2:8080"}, config.ProxyList)

	// Clean up
	os.Unsetenv("PASSO_START_URL")
	os.Unsetenv("PASSO_CATEGORY")
	os.Unsetenv("BROWSER_HEADLESS")
	os.Unsetenv("NAV_TIMEOUT_MS")
	os.Unsetenv("EMPTY_LIST_IS_ERROR")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("REDIS_DB")
	os.Unsetenv("PROXY_LIST")
}

func TestValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.StartURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.CategoryLabel = "  "
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.PopupTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.ScrollSettle = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.NavSettle = 0
	assert.NoError(t, cfg.Validate(), "zero settle disables the fallback")
}
