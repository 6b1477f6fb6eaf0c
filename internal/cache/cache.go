// Package cache provides the key-value cache abstraction used by TajerBot.
//
// A cache entry is always a derived, disposable projection of a persistent
// record: losing it must never cause incorrect results, only a slower
// fallback. Absence of a key is a normal, expected outcome, not an error.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a key-value store with per-key TTL.
type Cache interface {
	// Get returns the value for key. The boolean reports presence; a missing
	// or expired key returns (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for the given TTL. A non-positive TTL is
	// rejected; cache entries are always bounded.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Deleting absent keys is not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Loader fetches the authoritative value when the cache has no usable copy.
// Returning (nil, false, nil) means the record genuinely does not exist.
type Loader func(ctx context.Context) ([]byte, bool, error)

// GetOrLoad implements the read-through pattern: cache first, loader on miss,
// repopulating the cache with the loaded value. Cache failures are logged and
// treated as misses so a broken cache degrades to slower reads, never wrong
// ones.
func GetOrLoad(ctx context.Context, c Cache, key string, ttl time.Duration, load Loader) ([]byte, bool, error) {
	if c != nil {
		val, ok, err := c.Get(ctx, key)
		if err != nil {
			slog.Warn("cache.GetOrLoad: cache read failed, falling back to loader", "error", err, "key", key)
		} else if ok {
			slog.Debug("cache.GetOrLoad: cache hit", "key", key)
			return val, true, nil
		}
	}

	val, ok, err := load(ctx)
	if err != nil || !ok {
		return nil, false, err
	}

	if c != nil {
		if err := c.Set(ctx, key, val, ttl); err != nil {
			slog.Warn("cache.GetOrLoad: cache repopulation failed", "error", err, "key", key)
		}
	}
	return val, true, nil
}
