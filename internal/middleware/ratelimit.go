// Package middleware provides HTTP middleware for the funnelboard API.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxBuckets is the maximum number of tracked keys to prevent memory exhaustion.
const maxBuckets = 100_000

// bucketMaxAge is how long an untouched bucket survives cleanup.
const bucketMaxAge = 10 * time.Minute

// KeyFunc derives the rate-limit key for a request. An empty key skips limiting.
type KeyFunc func(c *gin.Context) string

// ByClientIP keys requests by client address. c.ClientIP() is not spoofable
// through X-Forwarded-For because the router trusts no proxies.
func ByClientIP(c *gin.Context) string { return c.ClientIP() }

// ByUser keys authenticated requests by user id and falls back to the
// client address.
func ByUser(c *gin.Context) string {
	if uid := c.GetString(UserIDKey); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}

// ByParam keys requests by a path parameter, such as a share token.
func ByParam(name string) KeyFunc {
	return func(c *gin.Context) string {
		if v := c.Param(name); v != "" {
			return name + ":" + v
		}
		return ""
	}
}

// bucket is a token bucket refilled continuously.
type bucket struct {
	tokens   float64
	lastFill time.Time
}

// RateLimiter is a keyed token bucket limiter.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
	key     KeyFunc
	now     func() time.Time
}

// NewRateLimiter creates a RateLimiter allowing ratePerSec sustained requests
// with the given burst per client IP. Cleanup of stale buckets stops when ctx
// is cancelled.
func NewRateLimiter(ctx context.Context, ratePerSec, burst int) *RateLimiter {
	return NewKeyedRateLimiter(ctx, ratePerSec, burst, ByClientIP)
}

// NewKeyedRateLimiter is NewRateLimiter with a custom key.
func NewKeyedRateLimiter(ctx context.Context, ratePerSec, burst int, key KeyFunc) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    float64(ratePerSec),
		burst:   float64(burst),
		key:     key,
		now:     time.Now,
	}
	go rl.cleanupLoop(ctx)

	return rl
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for k, b := range rl.buckets {
				if now.Sub(b.lastFill) > bucketMaxAge {
					delete(rl.buckets, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow takes one token for key. ok is false when the bucket table is full.
func (rl *RateLimiter) allow(key string) (allowed, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	b, found := rl.buckets[key]
	if !found {
		if len(rl.buckets) >= maxBuckets {
			return false, false
		}

		b = &bucket{tokens: rl.burst, lastFill: now}
		rl.buckets[key] = b
	}

	b.tokens = min(rl.burst, b.tokens+now.Sub(b.lastFill).Seconds()*rl.rate)
	b.lastFill = now

	if b.tokens < 1 {
		return false, true
	}

	b.tokens--

	return true, true
}

// Handler returns Gin middleware applying the limiter.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.key(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, ok := rl.allow(key)
		if !ok {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many clients")
			return
		}

		if !allowed {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}

		c.Next()
	}
}
