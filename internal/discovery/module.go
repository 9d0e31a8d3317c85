// Module wiring for identity discovery.
package discovery

import (
	"context"
	"strings"

	"enrichment_backend/internal/discovery/client"
	"enrichment_backend/internal/identity"
	"enrichment_backend/platform/cache"
	"enrichment_backend/platform/config"
	"enrichment_backend/platform/logger"
	"enrichment_backend/platform/phone"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const resultCacheLen = 10000

// Module wires the provider clients into the ordered tier list and the
// resolver. Phone tiers come first, then email, then the name search; the
// order encodes cost and reliability per call, decided upstream of the
// algorithm.
type Module struct {
	resolver *Resolver
	meili    *client.Meili
}

// NewModule creates the discovery module. A nil redis client degrades the
// result cache to local-only.
func NewModule(cfg config.DiscoveryConfig, rdb *goredis.Client, log *logger.Logger) *Module {
	deskdata := client.NewDeskdata(cfg.GetDeskdataBaseURL(), cfg.GetDeskdataAPIKey(), log)
	directd := client.NewDirectd(cfg.GetDirectdBaseURL(), cfg.GetDirectdAPIKey(), log)
	meili := client.NewMeili(cfg.GetMeiliBaseURL(), cfg.GetMeiliAPIKey(), log)

	hasPhone := func(c identity.Contact) bool { return c.PhoneKey() != "" }
	hasEmail := func(c identity.Contact) bool { return c.EmailKey() != "" }
	hasName := func(c identity.Contact) bool { return strings.TrimSpace(c.Name) != "" }
	nameKey := func(c identity.Contact) string {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return ""
		}
		return "name:" + strings.ToLower(name)
	}

	perProvider := func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(cfg.GetSourceRateLimit()), 1)
	}

	sources := []Source{
		NewSource(SourceConfig{
			Name:     "deskdata-phone",
			Supports: hasPhone,
			Key:      identity.Contact.PhoneKey,
			Lookup: func(ctx context.Context, c identity.Contact) (Candidate, error) {
				p, err := deskdata.ByPhone(ctx, phone.Digits(c.Phone))
				return Candidate{TaxID: p.CPF, FullName: p.Name}, err
			},
			Timeout:     cfg.GetSourceTimeout(),
			Limiter:     perProvider(),
			RawCacheTTL: cfg.GetRawResponseCacheTTL(),
		}, log),
		NewSource(SourceConfig{
			Name:     "directd-phone",
			Supports: hasPhone,
			Key:      identity.Contact.PhoneKey,
			Lookup: func(ctx context.Context, c identity.Contact) (Candidate, error) {
				p, err := directd.ByPhone(ctx, phone.Digits(c.Phone))
				return Candidate{TaxID: p.CPF, FullName: p.Name}, err
			},
			Timeout:     cfg.GetSourceTimeout(),
			Limiter:     perProvider(),
			RawCacheTTL: cfg.GetRawResponseCacheTTL(),
		}, log),
		NewSource(SourceConfig{
			Name:     "deskdata-email",
			Supports: hasEmail,
			Key:      identity.Contact.EmailKey,
			Lookup: func(ctx context.Context, c identity.Contact) (Candidate, error) {
				p, err := deskdata.ByEmail(ctx, strings.ToLower(strings.TrimSpace(c.Email)))
				return Candidate{TaxID: p.CPF, FullName: p.Name}, err
			},
			Timeout:     cfg.GetSourceTimeout(),
			Limiter:     perProvider(),
			RawCacheTTL: cfg.GetRawResponseCacheTTL(),
		}, log),
		NewSource(SourceConfig{
			Name:      "meili-name",
			NameBased: true,
			Supports:  hasName,
			Key:       nameKey,
			Lookup: func(ctx context.Context, c identity.Contact) (Candidate, error) {
				p, err := meili.ByName(ctx, strings.TrimSpace(c.Name))
				return Candidate{TaxID: p.CPF, FullName: p.Name}, err
			},
			Timeout:     cfg.GetSourceTimeout(),
			Limiter:     perProvider(),
			RawCacheTTL: cfg.GetRawResponseCacheTTL(),
		}, log),
	}

	results := cache.NewTiered[Result]("discovery", rdb, resultCacheLen, cfg.GetDiscoveryCacheTTL(), log)

	return &Module{
		resolver: NewResolver(sources, results, log),
		meili:    meili,
	}
}

// Resolver returns the identity resolver.
func (m *Module) Resolver() *Resolver {
	return m.resolver
}

// Meili returns the search client, shared with enrichment for the company
// affiliation signal.
func (m *Module) Meili() *client.Meili {
	return m.meili
}
