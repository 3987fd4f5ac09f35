package middleware

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/funnelboard/funnelboard/internal/metrics"
)

// Default lockout policy.
const (
	DefaultMaxAttempts  = 5
	DefaultFailWindow   = 15 * time.Minute
	DefaultLockout      = 5 * time.Minute
	bruteForceCleanup   = 60 * time.Second
	bruteForceMaxRecord = 10000
)

// LockoutPolicy decides when an API key is locked out.
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

func (p LockoutPolicy) withDefaults() LockoutPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Window <= 0 {
		p.Window = DefaultFailWindow
	}
	if p.Lockout <= 0 {
		p.Lockout = DefaultLockout
	}
	return p
}

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// BruteForceGuard tracks authentication failures per API key hash and locks
// out keys that fail too often within the policy window.
type BruteForceGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	policy  LockoutPolicy
	log     *logrus.Logger
	now     func() time.Time
}

// NewBruteForceGuard creates a guard with the default policy. Its cleanup
// goroutine stops when ctx is cancelled.
func NewBruteForceGuard(ctx context.Context, log *logrus.Logger) *BruteForceGuard {
	return NewBruteForceGuardWithPolicy(ctx, log, LockoutPolicy{})
}

// NewBruteForceGuardWithPolicy creates a guard with a custom policy; zero
// fields use the defaults.
func NewBruteForceGuardWithPolicy(ctx context.Context, log *logrus.Logger, p LockoutPolicy) *BruteForceGuard {
	g := &BruteForceGuard{
		records: make(map[string]*failureRecord),
		policy:  p.withDefaults(),
		log:     log,
		now:     time.Now,
	}
	go g.cleanupLoop(ctx)
	return g
}

func (g *BruteForceGuard) locked(rec *failureRecord, now time.Time) bool {
	return !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) < g.policy.Lockout
}

// IsBlocked reports whether apiKey is currently locked out.
func (g *BruteForceGuard) IsBlocked(apiKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[hashKey(apiKey)]

	return ok && g.locked(rec, g.now())
}

// RecordFailure counts a failed authentication for apiKey.
func (g *BruteForceGuard) RecordFailure(apiKey string) {
	kh := hashKey(apiKey)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[kh]
	if !ok || now.Sub(rec.firstFail) > g.policy.Window {
		g.records[kh] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	rec.attempts++
	if rec.attempts >= g.policy.MaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		metrics.AuthLockouts.Inc()
		g.log.WithField("key_hash", kh[:16]+"...").Warn("api key locked out after repeated auth failures")
	}
}

// ResetKey clears failure tracking for apiKey after a successful login.
func (g *BruteForceGuard) ResetKey(apiKey string) {
	g.mu.Lock()
	delete(g.records, hashKey(apiKey))
	g.mu.Unlock()
}

func (g *BruteForceGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(bruteForceCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep drops expired lockouts and stale windows, then trims the table to
// its cap by evicting the oldest records.
func (g *BruteForceGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		if !rec.lockedAt.IsZero() && !g.locked(rec, now) || rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= g.policy.Window {
			delete(g.records, k)
		}
	}

	excess := len(g.records) - bruteForceMaxRecord
	if excess <= 0 {
		return
	}

	keys := make([]string, 0, len(g.records))
	for k := range g.records {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		return g.records[keys[i]].firstFail.Before(g.records[keys[j]].firstFail)
	})

	for _, k := range keys[:excess] {
		delete(g.records, k)
	}
}

// BruteForceMiddleware rejects requests carrying a locked-out API key.
func BruteForceMiddleware(guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := ExtractBearerToken(c); apiKey != "" && guard.IsBlocked(apiKey) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")
			return
		}

		c.Next()
	}
}
