package cache

import (
	"errors"
	"strings"
	"time"

	"sjsage522/passoworker/helpers"
	"sjsage522/passoworker/logger"
)

// ErrMiss is returned by Get when the key is not cached
var ErrMiss = errors.New("cache: miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

const categoryKeyPrefix = "passo:category:"

// CategoryCache remembers the URL a category label resolved to, so a restart
// can skip clicking through the site menu.
type CategoryCache struct {
	svc CacheService
	ttl time.Duration
	log *logger.Logger
}

// NewCategoryCache wraps svc. A nil svc yields a cache that never hits.
func NewCategoryCache(svc CacheService, ttl time.Duration) *CategoryCache {
	return &CategoryCache{svc: svc, ttl: ttl, log: logger.ForCache()}
}

// CategoryKey returns the cache key of a category label
func CategoryKey(label string) string {
	key := strings.ToLower(helpers.NormalizeSpace(label))
	return categoryKeyPrefix + strings.ReplaceAll(key, " ", "_")
}

// Lookup returns the cached URL of label
func (c *CategoryCache) Lookup(label string) (string, bool) {
	if c == nil || c.svc == nil {
		return "", false
	}
	value, err := c.svc.Get(CategoryKey(label))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Warn().Err(err).Str("label", label).Msg("category cache lookup failed")
		}
		return "", false
	}
	return string(value), len(value) > 0
}

// Store caches url for label
func (c *CategoryCache) Store(label, url string) error {
	if c == nil || c.svc == nil {
		return nil
	}
	if err := c.svc.Set(CategoryKey(label), []byte(url), c.ttl); err != nil {
		c.log.Warn().Err(err).Str("label", label).Msg("category cache store failed")
		return err
	}
	return nil
}

// Forget drops the cached URL of label, used when it stopped leading to a list
func (c *CategoryCache) Forget(label string) error {
	if c == nil || c.svc == nil {
		return nil
	}
	err := c.svc.Delete(CategoryKey(label))
	if err != nil && !errors.Is(err, ErrMiss) {
		return err
	}
	return nil
}
