// Package retry provides bounded exponential-backoff retry for fallible
// operations. This is part of the platform layer and contains no business
// logic.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"syscall"
	"time"

	"enrichment_backend/platform/apperr"
)

// Config controls the retry loop. Zero values fall back to the defaults
// below.
type Config struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	ShouldRetry func(error) bool
	OnRetry     func(attempt int, err error)
}

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 10 * time.Second
)

// Do runs op, retrying on errors the predicate classifies as transient.
// Backoff is exponential (base * 2^(attempt-1)) with random jitter of up to
// 25% of the computed delay, capped at MaxDelay, so synchronized callers do
// not storm a shared upstream in lockstep. The last error is returned once
// retries are exhausted or the predicate declines.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsTransient
	}

	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries || !cfg.ShouldRetry(err) {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		select {
		case <-time.After(backoff(cfg, attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

func backoff(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay << (attempt - 1)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	delay += jitter
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

// IsTransient reports whether err is worth retrying: network-level failures
// (refused, reset, timed out) and upstream responses already classified as
// unavailable or rate limited. Cancellation and deadline errors are not
// retried; the caller's own timeout/fallback path owns those.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch apperr.GetKind(err) {
	case apperr.KindUnavailable, apperr.KindRateLimited:
		return true
	case apperr.KindUnknown:
		// Fall through to transport-level checks.
	default:
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return false
}
