// Module wiring for enrichment.
package enrichment

import (
	"time"

	"enrichment_backend/internal/enrichment/client"
	"enrichment_backend/platform/cache"
	"enrichment_backend/platform/config"
	"enrichment_backend/platform/events"
	"enrichment_backend/platform/logger"
	"enrichment_backend/platform/validator"

	goredis "github.com/redis/go-redis/v9"
)

const (
	inFlightCacheLen = 10000
	recentCacheLen   = 100000
)

// Module wires the profile client and guard caches into the orchestrator.
type Module struct {
	orchestrator *Orchestrator
}

// NewModule creates the enrichment module. A nil redis client degrades the
// guard caches to per-process; the already-processing and cooldown checks
// then only hold within one instance.
func NewModule(cfg config.EnrichmentConfig, rdb *goredis.Client, resolver Resolver, companies CompanyFinder, bus events.Bus, log *logger.Logger) *Module {
	profiles := client.NewProfile(cfg.GetProfileBaseURL(), cfg.GetProfileAPIKey(), log)

	inFlight := cache.NewTiered[string]("enrichment:inflight", rdb, inFlightCacheLen, cfg.GetInFlightTTL(), log)
	recent := cache.NewTiered[time.Time]("enrichment:recent", rdb, recentCacheLen, cfg.GetEnrichmentCooldown(), log)

	orchestrator := NewOrchestrator(OrchestratorDeps{
		Resolver:       resolver,
		Profiles:       profiles,
		Companies:      companies,
		InFlight:       inFlight,
		Recent:         recent,
		Bus:            bus,
		Validator:      validator.New(),
		Logger:         log,
		ProfileTimeout: cfg.GetProfileTimeout(),
		InFlightTTL:    cfg.GetInFlightTTL(),
		Cooldown:       cfg.GetEnrichmentCooldown(),
	})

	return &Module{orchestrator: orchestrator}
}

// Orchestrator returns the enrichment orchestrator.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}
