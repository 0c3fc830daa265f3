// Package cache is a best-effort read-through accelerator. A miss or a
// backend failure always falls through to the caller's loader.
package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Cache stores opaque values. Implementations log their own failures and
// never return them: callers treat every problem as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Invalidate drops every key starting with prefix.
	Invalidate(ctx context.Context, prefix string)
	Close() error
}

// Fetch returns the cached value for key or loads, stores and returns it.
// A nil result from load is not cached.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (*T, error)) (*T, error) {
	if raw, ok := c.Get(ctx, key); ok {
		var v T
		if err := sonic.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		c.Invalidate(ctx, key)
	}

	v, err := load(ctx)
	if err != nil || v == nil {
		return v, err
	}
	if raw, err := sonic.Marshal(v); err == nil {
		c.Set(ctx, key, raw, ttl)
	}
	return v, nil
}

// New connects to Redis when url is set and reachable, otherwise it returns
// the in-process memory cache.
func New(ctx context.Context, url string, logger *zap.Logger) Cache {
	if url == "" {
		logger.Info("REDIS_URL not set, using memory cache")
		return NewMemory()
	}
	r, err := NewRedis(ctx, url, logger)
	if err != nil {
		logger.Warn("Redis unavailable, using memory cache", zap.Error(err))
		return NewMemory()
	}
	logger.Info("Redis cache connected")
	return r
}

// Key builds "entity:id" keys.
func Key(entity, id string) string {
	return entity + ":" + id
}
