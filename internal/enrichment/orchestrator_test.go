package enrichment

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
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

type stubResolver struct {
	mu     sync.Mutex
	result discovery.Result
	err    error
	calls  int
}

func (s *stubResolver) Resolve(ctx context.Context, c identity.Contact) (discovery.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return discovery.Result{}, s.err
	}
	return s.result, nil
}

func (s *stubResolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubProfiles struct {
	profile *client.PersonProfile
	err     error
	started chan struct{}
	release chan struct{}
	calls   int32
}

func (s *stubProfiles) FetchProfile(ctx context.Context, cpf string) (*client.PersonProfile, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

type stubCompanies struct {
	companies []disccli.CompanyAffiliation
	err       error
}

func (s *stubCompanies) CompaniesByPartnerCPF(ctx context.Context, cpf string) ([]disccli.CompanyAffiliation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.companies, nil
}

func resolvedMaria() discovery.Result {
	return discovery.Result{
		Identity:    identity.Identity{TaxID: "52998224725", DisplayName: "Maria Silva"},
		NameMatches: true,
		MatchScore:  1.0,
		MatchMethod: "exact",
		Source:      "deskdata-phone",
	}
}

func mariaProfile() *client.PersonProfile {
	return &client.PersonProfile{
		CPF:           "52998224725",
		Name:          "Maria Silva",
		MonthlyIncome: 12000,
		Occupation:    "Engenheira",
		Addresses:     []client.Address{{City: "Sao Paulo", State: "SP"}},
		Emails:        []string{"maria@example.com"},
	}
}

func newTestOrchestrator(resolver Resolver, profiles ProfileProvider, companies CompanyFinder, bus events.Bus) *Orchestrator {
	log := logger.New("test")
	return NewOrchestrator(OrchestratorDeps{
		Resolver:       resolver,
		Profiles:       profiles,
		Companies:      companies,
		InFlight:       cache.NewTiered[string]("inflight-test", nil, 100, time.Minute, log),
		Recent:         cache.NewTiered[time.Time]("recent-test", nil, 100, time.Hour, log),
		Bus:            bus,
		Validator:      validator.New(),
		Logger:         log,
		ProfileTimeout: time.Second,
		InFlightTTL:    time.Minute,
		Cooldown:       time.Hour,
	})
}

func TestEnrichCompleted(t *testing.T) {
	o := newTestOrchestrator(
		&stubResolver{result: resolvedMaria()},
		&stubProfiles{profile: mariaProfile()},
		&stubCompanies{},
		nil,
	)

	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000", Name: "Maria Silva"})
	if outcome.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if outcome.Profile == nil || outcome.Profile.MonthlyIncome != 12000 {
		t.Fatalf("expected the fetched profile on the outcome, got %+v", outcome.Profile)
	}
	if outcome.Resolution == nil || outcome.Resolution.Identity.TaxID != "52998224725" {
		t.Fatalf("expected the resolution on the outcome, got %+v", outcome.Resolution)
	}
	if outcome.Quality.Score == 0 || outcome.Quality.Tier == "" {
		t.Fatalf("expected a graded outcome, got %+v", outcome.Quality)
	}
}

func TestEnrichPartialWhenProfileTimesOut(t *testing.T) {
	o := newTestOrchestrator(
		&stubResolver{result: resolvedMaria()},
		&stubProfiles{err: context.DeadlineExceeded},
		&stubCompanies{},
		nil,
	)

	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
	if outcome.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", outcome.Status)
	}
	if outcome.Resolution == nil {
		t.Fatal("the resolved identity must survive a profile timeout")
	}
	if outcome.Profile != nil {
		t.Fatalf("expected no profile on a timeout, got %+v", outcome.Profile)
	}
	if outcome.Reason == "" {
		t.Fatal("a partial outcome must say why")
	}
}

func TestEnrichPartialOnCredentialError(t *testing.T) {
	o := newTestOrchestrator(
		&stubResolver{result: resolvedMaria()},
		&stubProfiles{err: apperr.Credential("credentials rejected")},
		&stubCompanies{},
		nil,
	)

	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
	if outcome.Status != StatusPartial {
		t.Fatalf("expected partial on a credential error, got %s", outcome.Status)
	}
}

func TestEnrichFailedWhenIdentityNotFound(t *testing.T) {
	o := newTestOrchestrator(
		&stubResolver{err: apperr.NotFound("all sources exhausted")},
		&stubProfiles{},
		&stubCompanies{},
		nil,
	)

	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
	if outcome.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if outcome.Reason != ReasonIdentityNotFound {
		t.Fatalf("expected %q, got %q", ReasonIdentityNotFound, outcome.Reason)
	}
}

func TestEnrichSkippedWithoutContact(t *testing.T) {
	o := newTestOrchestrator(&stubResolver{}, &stubProfiles{}, &stubCompanies{}, nil)

	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Name: "Maria Silva"})
	if outcome.Status != StatusSkipped || outcome.Reason != ReasonNoContact {
		t.Fatalf("expected skipped(%s), got %s(%s)", ReasonNoContact, outcome.Status, outcome.Reason)
	}
}

func TestEnrichSkippedOnMalformedRequest(t *testing.T) {
	o := newTestOrchestrator(&stubResolver{}, &stubProfiles{}, &stubCompanies{}, nil)

	outcome := o.Enrich(context.Background(), Request{Phone: "11999990000"})
	if outcome.Status != StatusSkipped || outcome.Reason != ReasonInvalidRequest {
		t.Fatalf("a request without an id must be rejected, got %s(%s)", outcome.Status, outcome.Reason)
	}

	outcome = o.Enrich(context.Background(), Request{RequestID: "req-1", Email: "not-an-email"})
	if outcome.Status != StatusSkipped || outcome.Reason != ReasonInvalidRequest {
		t.Fatalf("a malformed email must be rejected, got %s(%s)", outcome.Status, outcome.Reason)
	}
}

func TestEnrichSkippedDuringCooldown(t *testing.T) {
	resolver := &stubResolver{result: resolvedMaria()}
	o := newTestOrchestrator(resolver, &stubProfiles{profile: mariaProfile()}, &stubCompanies{}, nil)

	first := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
	if first.Status != StatusCompleted {
		t.Fatalf("setup: expected completed, got %s", first.Status)
	}

	second := o.Enrich(context.Background(), Request{RequestID: "req-2", Phone: "11999990000"})
	if second.Status != StatusSkipped || second.Reason != ReasonRecentlyEnriched {
		t.Fatalf("expected skipped(%s), got %s(%s)", ReasonRecentlyEnriched, second.Status, second.Reason)
	}
	if resolver.callCount() != 1 {
		t.Fatalf("the cooldown must prevent re-resolution, got %d calls", resolver.callCount())
	}
}

func TestConcurrentEnrichSingleWinner(t *testing.T) {
	profiles := &stubProfiles{
		profile: mariaProfile(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o := newTestOrchestrator(&stubResolver{result: resolvedMaria()}, profiles, &stubCompanies{}, nil)

	var winner Outcome
	done := make(chan struct{})
	go func() {
		winner = o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
		close(done)
	}()

	// Wait until the first request holds the in-flight guard.
	<-profiles.started

	loser := o.Enrich(context.Background(), Request{RequestID: "req-2", Phone: "11999990000"})
	if loser.Status != StatusSkipped || loser.Reason != ReasonAlreadyProcessing {
		t.Fatalf("expected skipped(%s), got %s(%s)", ReasonAlreadyProcessing, loser.Status, loser.Reason)
	}

	close(profiles.release)
	<-done

	if winner.Status != StatusCompleted {
		t.Fatalf("expected the first request to complete, got %s", winner.Status)
	}
	if atomic.LoadInt32(&profiles.calls) != 1 {
		t.Fatalf("expected a single profile fetch, got %d", profiles.calls)
	}
}

func TestInFlightGuardReleasedAfterFailure(t *testing.T) {
	resolver := &stubResolver{err: apperr.NotFound("all sources exhausted")}
	o := newTestOrchestrator(resolver, &stubProfiles{}, &stubCompanies{}, nil)

	first := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
	if first.Status != StatusFailed {
		t.Fatalf("setup: expected failed, got %s", first.Status)
	}

	// A failure must not poison the contact: the guard is released and no
	// cooldown is recorded, so a later request tries again.
	second := o.Enrich(context.Background(), Request{RequestID: "req-2", Phone: "11999990000"})
	if second.Status != StatusFailed {
		t.Fatalf("expected a fresh attempt, got %s(%s)", second.Status, second.Reason)
	}
	if resolver.callCount() != 2 {
		t.Fatalf("expected the second request to re-resolve, got %d calls", resolver.callCount())
	}
}

func TestEnrichPublishesTerminalEvent(t *testing.T) {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)

	var published []Outcome
	bus.Subscribe(EventCompleted, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		published = append(published, event.(Finished).Outcome)
		return nil
	}))

	o := newTestOrchestrator(
		&stubResolver{result: resolvedMaria()},
		&stubProfiles{profile: mariaProfile()},
		&stubCompanies{},
		bus,
	)
	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})

	if len(published) != 1 {
		t.Fatalf("expected one published outcome, got %d", len(published))
	}
	if published[0].RequestID != outcome.RequestID || published[0].Status != StatusCompleted {
		t.Fatalf("unexpected published outcome %+v", published[0])
	}
}

func TestCompanyLookupIsBestEffort(t *testing.T) {
	o := newTestOrchestrator(
		&stubResolver{result: resolvedMaria()},
		&stubProfiles{profile: mariaProfile()},
		&stubCompanies{err: apperr.Unavailable("search down")},
		nil,
	)

	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
	if outcome.Status != StatusCompleted {
		t.Fatalf("a company lookup failure must not degrade the outcome, got %s", outcome.Status)
	}
	if outcome.Companies != nil {
		t.Fatalf("expected no companies, got %+v", outcome.Companies)
	}
}

func TestCompaniesAttachedToOutcome(t *testing.T) {
	companies := []disccli.CompanyAffiliation{{CNPJ: "11222333000181", RazaoSocial: "Silva Comercio LTDA"}}
	o := newTestOrchestrator(
		&stubResolver{result: resolvedMaria()},
		&stubProfiles{profile: mariaProfile()},
		&stubCompanies{companies: companies},
		nil,
	)

	outcome := o.Enrich(context.Background(), Request{RequestID: "req-1", Phone: "11999990000"})
	if len(outcome.Companies) != 1 {
		t.Fatalf("expected the affiliation on the outcome, got %+v", outcome.Companies)
	}
}
