// Package cache accelerates hot reads. It is never authoritative: every caller must be able to
// rebuild an entry from the store, and every cache failure degrades to a store read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"channel-service/internal/observability"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache is a short-TTL byte store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Fetch is the read-through path used for every hot read: try the cache with its bounded wait,
// return on hit, otherwise load from the store and repopulate the cache opportunistically.
// Cache errors are never returned; only load errors are.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	keyspace := Keyspace(key)
	raw, err := c.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			observability.IncCacheResult(keyspace, "hit")
			return cached, nil
		}
		observability.IncCacheResult(keyspace, "corrupt")
	case errors.Is(err, ErrMiss):
		observability.IncCacheResult(keyspace, "miss")
	case errors.Is(err, context.DeadlineExceeded):
		observability.IncCacheResult(keyspace, "timeout")
	default:
		observability.IncCacheResult(keyspace, "error")
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if encoded, err := json.Marshal(value); err == nil {
		_ = c.Set(ctx, key, encoded, ttl)
	}
	return value, nil
}

// Keyspace returns the key prefix used as a metrics label.
func Keyspace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// Noop is used when redis is disabled. Every read misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) DeletePattern(context.Context, string) error { return nil }
