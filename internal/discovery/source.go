// Package discovery resolves a partial contact (phone and/or email plus an
// unverified name) to a canonical tax identity by querying upstream sources
// in a fixed priority order and gating candidates through the name matcher.
package discovery

import (
	"context"
	"time"

	"enrichment_backend/internal/identity"
	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/cache"
	"enrichment_backend/platform/logger"
	"enrichment_backend/platform/retry"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Candidate is a raw identity candidate returned by one upstream source,
// before CPF validation and name matching.
type Candidate struct {
	TaxID    string `json:"taxId"`
	FullName string `json:"fullName"`
}

// Source is one upstream identity provider (a tier). Lookup must return an
// apperr.KindNotFound error for a definitive miss and KindUnavailable for
// connectivity failure so the resolver can tell them apart.
type Source interface {
	// Name identifies the tier in provenance and logs.
	Name() string
	// NameBased reports whether the source searches by name rather than by
	// exact contact, which lowers its confidence.
	NameBased() bool
	// Supports reports whether the contact carries the input this source
	// needs.
	Supports(contact identity.Contact) bool
	Lookup(ctx context.Context, contact identity.Contact) (Candidate, error)
}

// LookupFunc is a provider client call adapted into a tier.
type LookupFunc func(ctx context.Context, contact identity.Contact) (Candidate, error)

// tierSource wraps a provider client with the shared per-source machinery:
// a hard per-call timeout, local retries, a token-bucket limiter, raw
// response memoization, and collapsing of concurrent identical lookups.
type tierSource struct {
	name      string
	nameBased bool
	supports  func(identity.Contact) bool
	keyFn     func(identity.Contact) string
	lookup    LookupFunc

	timeout  time.Duration
	limiter  *rate.Limiter
	retryCfg retry.Config
	rawCache *cache.Cache[Candidate]
	group    singleflight.Group
	log      *logger.Logger
}

// SourceConfig configures a tier built from a provider client.
type SourceConfig struct {
	Name      string
	NameBased bool
	Supports  func(identity.Contact) bool
	// Key derives the memoization key for a contact. Defaults to the
	// contact's primary key.
	Key    func(identity.Contact) string
	Lookup LookupFunc
	// Retry is the local retry schedule. Its worst-case backoff must fit
	// inside Timeout or later attempts never run; the default schedule
	// assumes the default 20s timeout.
	Retry       retry.Config
	Timeout     time.Duration
	Limiter     *rate.Limiter
	RawCacheTTL time.Duration
	RawCacheLen int
}

// NewSource builds a tier from a provider client call.
func NewSource(cfg SourceConfig, log *logger.Logger) Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RawCacheTTL <= 0 {
		cfg.RawCacheTTL = 10 * time.Minute
	}
	if cfg.RawCacheLen <= 0 {
		cfg.RawCacheLen = 1000
	}
	if cfg.Key == nil {
		cfg.Key = identity.Contact.Key
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = retry.Config{
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		}
	}
	return &tierSource{
		name:      cfg.Name,
		nameBased: cfg.NameBased,
		supports:  cfg.Supports,
		keyFn:     cfg.Key,
		lookup:    cfg.Lookup,
		timeout:   cfg.Timeout,
		limiter:   cfg.Limiter,
		retryCfg:  cfg.Retry,
		rawCache:  cache.New[Candidate](cfg.RawCacheLen, cfg.RawCacheTTL),
		log:       log,
	}
}

func (s *tierSource) Name() string    { return s.name }
func (s *tierSource) NameBased() bool { return s.nameBased }

func (s *tierSource) Supports(contact identity.Contact) bool {
	if s.supports == nil {
		return true
	}
	return s.supports(contact)
}

// Lookup memoizes successful responses so repeat lookups within the TTL do
// not re-bill the upstream, and collapses concurrent lookups for the same
// key into a single in-flight call.
func (s *tierSource) Lookup(ctx context.Context, contact identity.Contact) (Candidate, error) {
	key := s.keyFn(contact)
	if key == "" {
		return Candidate{}, apperr.NotFound("no lookup key for contact").WithOp(s.name)
	}
	if cached, ok := s.rawCache.Get(key); ok {
		return cached, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if s.limiter != nil {
			if err := s.limiter.Wait(callCtx); err != nil {
				return Candidate{}, err
			}
		}

		candidate, err := retry.Do(callCtx, s.withRetryLogging(), func(c context.Context) (Candidate, error) {
			return s.lookup(c, contact)
		})
		if err != nil {
			return Candidate{}, err
		}

		s.rawCache.Set(key, candidate)
		return candidate, nil
	})
	if err != nil {
		return Candidate{}, err
	}
	return result.(Candidate), nil
}

func (s *tierSource) withRetryLogging() retry.Config {
	cfg := s.retryCfg
	cfg.OnRetry = func(attempt int, err error) {
		s.log.Debug("retrying source lookup",
			"source", s.name,
			"attempt", attempt,
			"error", err.Error(),
		)
	}
	return cfg
}
