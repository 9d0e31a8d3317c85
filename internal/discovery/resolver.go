package discovery

import (
	"context"
	"strings"
	"unicode/utf8"

	"enrichment_backend/internal/identity"
	"enrichment_backend/internal/namematch"
	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/cache"
	"enrichment_backend/platform/logger"
)

const (
	// nameTierMinScore is the acceptance bar for name-based tiers. Kept
	// separate from namematch.DefaultThreshold on purpose; the two numbers
	// drifted apart upstream and both are load-bearing.
	nameTierMinScore = 0.70

	// minHintedNameLen is the shortest hinted name worth validating or
	// searching by; anything shorter matches too many people.
	minHintedNameLen = 4
)

// Result is a successful resolution with its provenance: which tier
// produced it and how well the candidate's name matched the hint. A false
// NameMatches is still returned, never swallowed, so callers can decide
// what to do with a low-confidence identity.
type Result struct {
	Identity    identity.Identity `json:"identity"`
	NameMatches bool              `json:"nameMatches"`
	MatchScore  float64           `json:"matchScore"`
	MatchMethod string            `json:"matchMethod"`
	Source      string            `json:"source"`
}

// Resolver tries sources strictly in priority order and short-circuits on
// the first accepted candidate. Tier order is fixed, not score-optimized:
// it encodes cost and reliability trade-offs, so an earlier tier always
// wins even if a later one might score higher.
type Resolver struct {
	sources []Source
	results *cache.Tiered[Result]
	log     *logger.Logger
}

// NewResolver creates a resolver over an ordered tier list. The results
// cache is keyed by normalized contact.
func NewResolver(sources []Source, results *cache.Tiered[Result], log *logger.Logger) *Resolver {
	return &Resolver{
		sources: sources,
		results: results,
		log:     log,
	}
}

// Resolve walks the tiers for the given contact. It returns an
// apperr.KindNotFound error when every tier is exhausted without an
// accepted candidate; source failures never propagate past this boundary.
func (r *Resolver) Resolve(ctx context.Context, contact identity.Contact) (Result, error) {
	if !contact.HasUsableInput() {
		return Result{}, apperr.NotFound("contact has no phone or email")
	}

	key := contact.Key()
	if cached, ok := r.results.Get(ctx, key); ok {
		return cached, nil
	}

	hint := strings.TrimSpace(contact.Name)
	if utf8.RuneCountInString(hint) < minHintedNameLen {
		hint = ""
	}

	for _, source := range r.sources {
		if !source.Supports(contact) {
			continue
		}
		if source.NameBased() && hint == "" {
			continue
		}

		candidate, err := source.Lookup(ctx, contact)
		if err != nil {
			switch apperr.GetKind(err) {
			case apperr.KindNotFound:
				continue
			case apperr.KindUnrecoverable:
				return Result{}, err
			default:
				r.log.ProviderUnavailable(source.Name(), err)
				continue
			}
		}

		if !identity.ValidCPF(candidate.TaxID) {
			// An invalid tax ID must never surface as a valid identity.
			r.log.Info("discarding candidate with invalid tax id",
				"source", source.Name(),
				"tax_id", candidate.TaxID,
			)
			continue
		}

		match := r.validate(hint, candidate)
		if source.NameBased() && match.Score < nameTierMinScore {
			r.log.WeakMatch(source.Name(), hint, candidate.FullName, match.Score)
			continue
		}

		result := Result{
			Identity: identity.Identity{
				TaxID:       identity.NormalizeCPF(candidate.TaxID),
				DisplayName: candidate.FullName,
			},
			NameMatches: match.Matches,
			MatchScore:  match.Score,
			MatchMethod: string(match.Method),
			Source:      source.Name(),
		}
		r.results.Set(ctx, key, result)
		r.log.IdentityResolved(source.Name(), key, result.MatchMethod, result.MatchScore)
		return result, nil
	}

	return Result{}, apperr.NotFound("all sources exhausted")
}

// validate scores the candidate against the hinted name. Without a hint
// there is nothing to validate and the candidate passes with a sentinel
// method.
func (r *Resolver) validate(hint string, candidate Candidate) namematch.MatchResult {
	if hint == "" {
		return namematch.MatchResult{
			Matches: true,
			Score:   1.0,
			Method:  namematch.MethodNoValidation,
		}
	}
	return namematch.MatchNames(hint, candidate.FullName)
}
