// Package redis provides the shared cache backing store client.
// This is part of the platform layer and contains no business logic.
package redis

import (
	"context"
	"crypto/tls"
	"time"

	"enrichment_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to redis from a URL. Returns nil when no URL is
// configured; callers degrade to local-only caching in that case.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		clone := opt.TLSConfig.Clone()
		clone.InsecureSkipVerify = true
		opt.TLSConfig = clone
	} else if opt.TLSConfig == nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
