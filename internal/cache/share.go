// Package cache keeps resolved share-link views in Redis so anonymous
// viewers do not hit Postgres on every page load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/funnelboard/funnelboard/internal/models"
)

// DefaultTTL bounds how stale a cached shared view can get if an
// invalidation is lost.
const DefaultTTL = 5 * time.Minute

// ShareCache stores models.SharedFunnel values keyed by share token, plus a
// per-funnel index of cached tokens so a save can drop every view of it.
type ShareCache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a ShareCache.
type Option func(*ShareCache)

// WithTTL sets the expiration of cached views.
func WithTTL(ttl time.Duration) Option {
	return func(c *ShareCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *ShareCache) {
		c.prefix = prefix
	}
}

// New connects to the Redis server at url (redis://[:password@]host:port/db).
func New(url string, opts ...Option) (*ShareCache, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a ShareCache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *ShareCache {
	c := &ShareCache{
		client: client,
		prefix: "funnelboard:share:",
		ttl:    DefaultTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *ShareCache) key(token string) string {
	return c.prefix + "token:" + token
}

func (c *ShareCache) funnelKey(funnelID string) string {
	return c.prefix + "funnel:" + funnelID
}

// Get returns the cached view for token. A miss is (nil, false, nil).
func (c *ShareCache) Get(ctx context.Context, token string) (*models.SharedFunnel, bool, error) {
	val, err := c.client.Get(ctx, c.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("reading shared view from redis: %w", err)
	}

	var view models.SharedFunnel
	if err := json.Unmarshal(val, &view); err != nil {
		return nil, false, fmt.Errorf("unmarshalling shared view: %w", err)
	}

	return &view, true, nil
}

// Set caches the view for token and records the token under its funnel.
func (c *ShareCache) Set(ctx context.Context, token string, view *models.SharedFunnel) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshalling shared view: %w", err)
	}

	fk := c.funnelKey(view.FunnelID.String())

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(token), data, c.ttl)
	pipe.SAdd(ctx, fk, token)
	pipe.Expire(ctx, fk, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing shared view to redis: %w", err)
	}

	return nil
}

// Invalidate drops the cached view for one token.
func (c *ShareCache) Invalidate(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, c.key(token)).Err(); err != nil {
		return fmt.Errorf("deleting shared view: %w", err)
	}

	return nil
}

// InvalidateFunnel drops every cached view of a funnel.
func (c *ShareCache) InvalidateFunnel(ctx context.Context, funnelID string) error {
	fk := c.funnelKey(funnelID)

	tokens, err := c.client.SMembers(ctx, fk).Result()
	if err != nil {
		return fmt.Errorf("reading funnel share index: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, c.key(t))
	}

	keys = append(keys, fk)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting funnel shared views: %w", err)
	}

	return nil
}

// Ping checks connectivity.
func (c *ShareCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (c *ShareCache) Close() error {
	return c.client.Close()
}
