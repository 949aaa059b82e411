// Package cache stores successful source results keyed by source and
// normalised company so later steps can reuse them without re-collecting.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/model"
)

const keyPrefix = "prospect:source:"

// Cache reads and writes source results. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, src model.SourceName, q model.CompanyQuery) (*model.RawSourceResult, error)
	Set(ctx context.Context, q model.CompanyQuery, r model.RawSourceResult) error
	Close() error
}

// Key returns the cache key for a source and company.
func Key(src model.SourceName, q model.CompanyQuery) string {
	return keyPrefix + string(src) + ":" + q.CacheKey()
}

// Noop never stores anything.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, model.SourceName, model.CompanyQuery) (*model.RawSourceResult, error) {
	return nil, nil
}

func (Noop) Set(context.Context, model.CompanyQuery, model.RawSourceResult) error { return nil }

func (Noop) Close() error { return nil }

// Redis stores JSON-encoded results with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, opts *redis.Options, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "cache: ping redis")
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Get returns the cached result, or nil when absent or undecodable.
func (c *Redis) Get(ctx context.Context, src model.SourceName, q model.CompanyQuery) (*model.RawSourceResult, error) {
	raw, err := c.client.Get(ctx, Key(src, q)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: get %s", src)
	}

	var r model.RawSourceResult
	if err := json.Unmarshal(raw, &r); err != nil {
		// A stale schema is a miss, not a failure.
		_ = c.client.Del(ctx, Key(src, q)).Err()
		return nil, nil
	}
	return &r, nil
}

// Set stores r. Failed results are ignored.
func (c *Redis) Set(ctx context.Context, q model.CompanyQuery, r model.RawSourceResult) error {
	if !r.Success {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s", r.Source)
	}
	return eris.Wrapf(c.client.Set(ctx, Key(r.Source, q), raw, c.ttl).Err(), "cache: set %s", r.Source)
}

// Close closes the redis connection.
func (c *Redis) Close() error {
	return c.client.Close()
}
