// Package enrichment coordinates a full enrichment of one contact: resolve
// the identity through discovery, fetch the paid profile, grade the result,
// and emit a single terminal outcome per request.
package enrichment

import (
	"context"
	"time"

	"enrichment_backend/internal/discovery"
	disccli "enrichment_backend/internal/discovery/client"
	"enrichment_backend/internal/enrichment/client"
	"enrichment_backend/internal/identity"
	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/cache"
	"enrichment_backend/platform/events"
	"enrichment_backend/platform/logger"
	"enrichment_backend/platform/validator"
)

// Status is the terminal state of one enrichment request.
type Status string

const (
	// StatusCompleted means identity and profile were both obtained.
	StatusCompleted Status = "completed"
	// StatusPartial means the identity resolved but the profile fetch did
	// not finish; the identity alone is still worth keeping.
	StatusPartial Status = "partial"
	// StatusFailed means no identity could be produced for the request.
	StatusFailed Status = "failed"
	// StatusSkipped means the request was not processed at all.
	StatusSkipped Status = "skipped"
)

// Reasons recorded on skipped and failed outcomes.
const (
	ReasonNoContact         = "no-contact"
	ReasonInvalidRequest    = "invalid-request"
	ReasonAlreadyProcessing = "already-processing"
	ReasonRecentlyEnriched  = "recently-enriched"
	ReasonIdentityNotFound  = "identity-not-found"
)

// Request is one enrichment job. RequestID is assigned by the enqueuer and
// keys the persisted outcome.
type Request struct {
	RequestID string `json:"requestId" validate:"required"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
	Name      string `json:"name"`
}

// Contact returns the lookup input carried by the request.
func (r Request) Contact() identity.Contact {
	return identity.Contact{Phone: r.Phone, Email: r.Email, Name: r.Name}
}

// Outcome is the terminal record of one enrichment request. Exactly one
// outcome is produced per request; Reason is set for skipped and failed
// statuses and for the degraded half of a partial.
type Outcome struct {
	RequestID  string                       `json:"requestId"`
	ContactKey string                       `json:"contactKey,omitempty"`
	Status     Status                       `json:"status"`
	Reason     string                       `json:"reason,omitempty"`
	Resolution *discovery.Result            `json:"resolution,omitempty"`
	Profile    *client.PersonProfile        `json:"profile,omitempty"`
	Companies  []disccli.CompanyAffiliation `json:"companies,omitempty"`
	Quality    Quality                      `json:"quality"`
	FinishedAt time.Time                    `json:"finishedAt"`
}

// Resolver resolves a contact to an identity. Satisfied by
// *discovery.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, contact identity.Contact) (discovery.Result, error)
}

// ProfileProvider fetches the paid person profile for a CPF.
type ProfileProvider interface {
	FetchProfile(ctx context.Context, cpf string) (*client.PersonProfile, error)
}

// CompanyFinder lists companies where the CPF appears as a partner. The
// lookup is best-effort; failures only cost the quality signal.
type CompanyFinder interface {
	CompaniesByPartnerCPF(ctx context.Context, cpf string) ([]disccli.CompanyAffiliation, error)
}

// Orchestrator runs enrichment requests through their state machine. Safe
// for concurrent use; the in-flight guard serializes work per contact, not
// per orchestrator.
type Orchestrator struct {
	resolver  Resolver
	profiles  ProfileProvider
	companies CompanyFinder
	inFlight  *cache.Tiered[string]
	recent    *cache.Tiered[time.Time]
	bus       events.Bus
	validate  *validator.Validator
	log       *logger.Logger

	profileTimeout time.Duration
	inFlightTTL    time.Duration
	cooldown       time.Duration
}

// OrchestratorDeps carries the orchestrator's collaborators.
type OrchestratorDeps struct {
	Resolver  Resolver
	Profiles  ProfileProvider
	Companies CompanyFinder
	InFlight  *cache.Tiered[string]
	Recent    *cache.Tiered[time.Time]
	Bus       events.Bus
	Validator *validator.Validator
	Logger    *logger.Logger

	ProfileTimeout time.Duration
	InFlightTTL    time.Duration
	Cooldown       time.Duration
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.ProfileTimeout <= 0 {
		deps.ProfileTimeout = 30 * time.Second
	}
	if deps.InFlightTTL <= 0 {
		deps.InFlightTTL = 2 * time.Minute
	}
	if deps.Cooldown <= 0 {
		deps.Cooldown = 24 * time.Hour
	}
	return &Orchestrator{
		resolver:       deps.Resolver,
		profiles:       deps.Profiles,
		companies:      deps.Companies,
		inFlight:       deps.InFlight,
		recent:         deps.Recent,
		bus:            deps.Bus,
		validate:       deps.Validator,
		log:            deps.Logger,
		profileTimeout: deps.ProfileTimeout,
		inFlightTTL:    deps.InFlightTTL,
		cooldown:       deps.Cooldown,
	}
}

// Enrich runs one request to a terminal outcome. It never returns an error:
// every way the pipeline can end is a status on the outcome, so the caller
// always has exactly one record to persist.
func (o *Orchestrator) Enrich(ctx context.Context, req Request) Outcome {
	ctx = context.WithValue(ctx, logger.RequestIDKey, req.RequestID)
	log := o.log.WithRequestID(req.RequestID)

	if err := o.validate.Struct(req); err != nil {
		log.Warn("rejecting malformed request", "error", err.Error())
		return o.finish(ctx, Outcome{RequestID: req.RequestID, Status: StatusSkipped, Reason: ReasonInvalidRequest})
	}

	contact := req.Contact()
	if !contact.HasUsableInput() {
		return o.finish(ctx, Outcome{RequestID: req.RequestID, Status: StatusSkipped, Reason: ReasonNoContact})
	}

	key := contact.Key()
	outcome := Outcome{RequestID: req.RequestID, ContactKey: key}

	if o.recent.Has(ctx, key) {
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonRecentlyEnriched
		return o.finish(ctx, outcome)
	}

	if !o.inFlight.SetNX(ctx, key, req.RequestID, o.inFlightTTL) {
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonAlreadyProcessing
		return o.finish(ctx, outcome)
	}
	defer o.inFlight.Delete(ctx, key)

	resolution, err := o.resolver.Resolve(ctx, contact)
	if err != nil {
		outcome.Status = StatusFailed
		if apperr.GetKind(err) == apperr.KindNotFound {
			outcome.Reason = ReasonIdentityNotFound
		} else {
			outcome.Reason = err.Error()
		}
		return o.finish(ctx, outcome)
	}
	outcome.Resolution = &resolution

	profileCtx, cancel := context.WithTimeout(ctx, o.profileTimeout)
	profile, perr := o.profiles.FetchProfile(profileCtx, resolution.Identity.TaxID)
	cancel()

	switch {
	case perr == nil:
		outcome.Status = StatusCompleted
		outcome.Profile = profile
	case apperr.GetKind(perr) == apperr.KindUnrecoverable:
		outcome.Status = StatusFailed
		outcome.Reason = perr.Error()
		return o.finish(ctx, outcome)
	default:
		// The identity is already paid for; keep it even when the profile
		// fetch times out, misses, or hits a credential problem.
		log.Warn("profile fetch degraded to partial",
			"tax_id", resolution.Identity.TaxID,
			"error", perr.Error(),
		)
		outcome.Status = StatusPartial
		outcome.Reason = perr.Error()
	}

	outcome.Companies = o.lookupCompanies(ctx, log, resolution.Identity.TaxID)
	outcome.Quality = ScoreOutcome(outcome.Resolution, outcome.Profile, outcome.Companies)

	o.recent.SetWithTTL(ctx, key, time.Now(), o.cooldown)
	return o.finish(ctx, outcome)
}

func (o *Orchestrator) lookupCompanies(ctx context.Context, log *logger.Logger, cpf string) []disccli.CompanyAffiliation {
	if o.companies == nil {
		return nil
	}
	companies, err := o.companies.CompaniesByPartnerCPF(ctx, cpf)
	if err != nil {
		log.Warn("company affiliation lookup failed", "error", err.Error())
		return nil
	}
	return companies
}

func (o *Orchestrator) finish(ctx context.Context, outcome Outcome) Outcome {
	outcome.FinishedAt = time.Now()

	log := o.log.WithRequestID(outcome.RequestID)
	log.Info("enrichment finished",
		"status", string(outcome.Status),
		"reason", outcome.Reason,
		"quality_tier", outcome.Quality.Tier,
	)

	if o.bus != nil {
		if err := o.bus.PublishSync(ctx, NewFinished(outcome)); err != nil {
			log.Error("publishing outcome failed", "error", err.Error())
		}
	}
	return outcome
}
