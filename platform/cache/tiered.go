package cache

import (
	"context"
	"encoding/json"
	"time"

	"enrichment_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Tiered is a TTL cache backed by a shared redis store so one key space is
// shared across process instances. Every operation also maintains the local
// bounded cache; when the backing store fails, reads and writes degrade to
// local-only instead of failing the request.
type Tiered[T any] struct {
	name  string
	rdb   *redis.Client
	local *Cache[T]
	ttl   time.Duration
	log   *logger.Logger
}

// NewTiered creates a named tiered cache. A nil redis client yields a
// local-only cache with the same contract.
func NewTiered[T any](name string, rdb *redis.Client, maxSize int, ttl time.Duration, log *logger.Logger) *Tiered[T] {
	return &Tiered[T]{
		name:  name,
		rdb:   rdb,
		local: New[T](maxSize, ttl),
		ttl:   ttl,
		log:   log,
	}
}

func (t *Tiered[T]) key(key string) string {
	return t.name + ":" + key
}

// Get returns the value for key, preferring the shared store.
func (t *Tiered[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	if t.rdb == nil {
		return t.local.Get(key)
	}

	raw, err := t.rdb.Get(ctx, t.key(key)).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		t.log.CacheFallback(t.name, "get", err)
		return t.local.Get(key)
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		t.log.CacheFallback(t.name, "decode", err)
		return zero, false
	}
	t.local.Set(key, value)
	return value, true
}

// Set stores value under key in both tiers.
func (t *Tiered[T]) Set(ctx context.Context, key string, value T) {
	t.SetWithTTL(ctx, key, value, t.ttl)
}

// SetWithTTL stores value under key with an entry-specific TTL in both tiers.
func (t *Tiered[T]) SetWithTTL(ctx context.Context, key string, value T, ttl time.Duration) {
	t.local.SetWithTTL(key, value, ttl)
	if t.rdb == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		t.log.CacheFallback(t.name, "encode", err)
		return
	}
	if err := t.rdb.Set(ctx, t.key(key), raw, ttl).Err(); err != nil {
		t.log.CacheFallback(t.name, "set", err)
	}
}

// SetNX stores value only if key is absent, returning whether the write won.
// Used as the in-flight concurrency guard; falls back to a local
// check-and-set when the shared store is down.
func (t *Tiered[T]) SetNX(ctx context.Context, key string, value T, ttl time.Duration) bool {
	if t.rdb != nil {
		raw, err := json.Marshal(value)
		if err == nil {
			ok, err := t.rdb.SetNX(ctx, t.key(key), raw, ttl).Result()
			if err == nil {
				if ok {
					t.local.SetWithTTL(key, value, ttl)
				}
				return ok
			}
			t.log.CacheFallback(t.name, "setnx", err)
		}
	}

	return t.local.SetNX(key, value, ttl)
}

// Has reports whether key holds a live entry in either tier.
func (t *Tiered[T]) Has(ctx context.Context, key string) bool {
	_, ok := t.Get(ctx, key)
	return ok
}

// Delete removes key from both tiers.
func (t *Tiered[T]) Delete(ctx context.Context, key string) {
	t.local.Delete(key)
	if t.rdb == nil {
		return
	}
	if err := t.rdb.Del(ctx, t.key(key)).Err(); err != nil {
		t.log.CacheFallback(t.name, "delete", err)
	}
}
