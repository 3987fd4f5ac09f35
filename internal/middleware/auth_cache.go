package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

const (
	userCacheTTL       = 5 * time.Minute
	negativeCacheTTL   = 30 * time.Second
	maxCacheEntries    = 10000
	cacheCleanupPeriod = 60 * time.Second
)

// errCachedNotFound is returned for negative cache hits.
var errCachedNotFound = errors.New("user not found (cached)")

// cachedUser is one lookup result. An empty userID records a failed lookup.
type cachedUser struct {
	userID    string
	fetchedAt time.Time
}

func (cu cachedUser) negative() bool { return cu.userID == "" }

func (cu cachedUser) ttl() time.Duration {
	if cu.negative() {
		return negativeCacheTTL
	}
	return userCacheTTL
}

func (cu cachedUser) expired(now time.Time) bool {
	return now.Sub(cu.fetchedAt) >= cu.ttl()
}

// hashKey returns a hex-encoded SHA-256 hash of the API key so raw keys
// are never stored in memory.
func hashKey(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:])
}

// CachedUserLookup wraps a UserLookup with a bounded in-memory cache.
type CachedUserLookup struct {
	inner UserLookup
	mu    sync.RWMutex
	cache map[string]cachedUser
	now   func() time.Time
}

// NewCachedUserLookup creates a caching wrapper around inner. ctx controls
// the lifetime of the background eviction goroutine.
func NewCachedUserLookup(ctx context.Context, inner UserLookup) *CachedUserLookup {
	c := &CachedUserLookup{
		inner: inner,
		cache: make(map[string]cachedUser),
		now:   time.Now,
	}
	go c.evictLoop(ctx)
	return c
}

func (c *CachedUserLookup) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpired()
			c.mu.Unlock()
		}
	}
}

// evictExpired drops stale entries. Caller must hold c.mu.
func (c *CachedUserLookup) evictExpired() {
	now := c.now()
	for k, v := range c.cache {
		if v.expired(now) {
			delete(c.cache, k)
		}
	}
}

// GetUserByAPIKey returns a cached user id or delegates to the inner lookup.
// Failed lookups are negatively cached for 30s so repeated bad keys do not
// reach the database.
func (c *CachedUserLookup) GetUserByAPIKey(ctx context.Context, apiKey string) (string, error) {
	hk := hashKey(apiKey)

	c.mu.RLock()
	entry, ok := c.cache[hk]
	c.mu.RUnlock()

	if ok && !entry.expired(c.now()) {
		if entry.negative() {
			return "", errCachedNotFound
		}
		return entry.userID, nil
	}

	userID, err := c.inner.GetUserByAPIKey(ctx, apiKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= maxCacheEntries {
		c.evictExpired()
		for k := range c.cache {
			if len(c.cache) < maxCacheEntries {
				break
			}
			delete(c.cache, k)
		}
	}

	if err != nil {
		c.cache[hk] = cachedUser{fetchedAt: c.now()}
		return "", err
	}

	c.cache[hk] = cachedUser{userID: userID, fetchedAt: c.now()}

	return userID, nil
}

// Forget drops any cached result for apiKey.
func (c *CachedUserLookup) Forget(apiKey string) {
	c.mu.Lock()
	delete(c.cache, hashKey(apiKey))
	c.mu.Unlock()
}
