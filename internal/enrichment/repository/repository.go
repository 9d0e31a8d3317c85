// Package repository persists enrichment outcomes and feeds the backfill
// with contacts that have never been enriched.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	"enrichment_backend/internal/enrichment"
	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores enrichment outcomes in Postgres.
type Repository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New creates a repository.
func New(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

// SaveOutcome upserts the terminal outcome for a request. Re-delivery of
// the same request overwrites its previous row, so the table holds one row
// per request id.
func (r *Repository) SaveOutcome(ctx context.Context, outcome enrichment.Outcome) error {
	var taxID, displayName, source, matchMethod string
	var matchScore float64
	var nameMatches bool
	if outcome.Resolution != nil {
		taxID = outcome.Resolution.Identity.TaxID
		displayName = outcome.Resolution.Identity.DisplayName
		source = outcome.Resolution.Source
		matchMethod = outcome.Resolution.MatchMethod
		matchScore = outcome.Resolution.MatchScore
		nameMatches = outcome.Resolution.NameMatches
	}

	profile, err := json.Marshal(outcome.Profile)
	if err != nil {
		return apperr.Wrap(apperr.KindUnrecoverable, "encoding profile", err).WithOp("repository.SaveOutcome")
	}
	companies, err := json.Marshal(outcome.Companies)
	if err != nil {
		return apperr.Wrap(apperr.KindUnrecoverable, "encoding companies", err).WithOp("repository.SaveOutcome")
	}

	query := `
		INSERT INTO enrichment_outcomes (
			request_id, contact_key, status, reason,
			tax_id, display_name, source, match_method, match_score, name_matches,
			quality_score, quality_tier, profile, companies, finished_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (request_id) DO UPDATE SET
			contact_key = EXCLUDED.contact_key,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			tax_id = EXCLUDED.tax_id,
			display_name = EXCLUDED.display_name,
			source = EXCLUDED.source,
			match_method = EXCLUDED.match_method,
			match_score = EXCLUDED.match_score,
			name_matches = EXCLUDED.name_matches,
			quality_score = EXCLUDED.quality_score,
			quality_tier = EXCLUDED.quality_tier,
			profile = EXCLUDED.profile,
			companies = EXCLUDED.companies,
			finished_at = EXCLUDED.finished_at,
			updated_at = NOW()`

	_, err = r.pool.Exec(ctx, query,
		outcome.RequestID, outcome.ContactKey, string(outcome.Status), outcome.Reason,
		taxID, displayName, source, matchMethod, matchScore, nameMatches,
		outcome.Quality.Score, outcome.Quality.Tier, profile, companies, outcome.FinishedAt,
	)
	if err != nil {
		r.log.DatabaseError("save_outcome", err)
		return apperr.Wrap(apperr.KindUnavailable, "saving outcome", err).WithOp("repository.SaveOutcome")
	}
	return nil
}

// OutcomeRow is the persisted view of an outcome.
type OutcomeRow struct {
	RequestID    string
	ContactKey   string
	Status       string
	Reason       string
	TaxID        string
	DisplayName  string
	Source       string
	MatchMethod  string
	MatchScore   float64
	NameMatches  bool
	QualityScore int
	QualityTier  string
}

// GetOutcome returns the stored outcome for a request id.
func (r *Repository) GetOutcome(ctx context.Context, requestID string) (OutcomeRow, error) {
	query := `
		SELECT request_id, contact_key, status, reason,
		       tax_id, display_name, source, match_method, match_score, name_matches,
		       quality_score, quality_tier
		FROM enrichment_outcomes
		WHERE request_id = $1`

	var row OutcomeRow
	err := r.pool.QueryRow(ctx, query, requestID).Scan(
		&row.RequestID, &row.ContactKey, &row.Status, &row.Reason,
		&row.TaxID, &row.DisplayName, &row.Source, &row.MatchMethod, &row.MatchScore, &row.NameMatches,
		&row.QualityScore, &row.QualityTier,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return OutcomeRow{}, apperr.NotFound("outcome not found").WithOp("repository.GetOutcome")
	}
	if err != nil {
		r.log.DatabaseError("get_outcome", err)
		return OutcomeRow{}, apperr.Wrap(apperr.KindUnavailable, "loading outcome", err).WithOp("repository.GetOutcome")
	}
	return row, nil
}

// ContactRow is one backfill candidate from the contacts table.
type ContactRow struct {
	ID    int64
	Phone string
	Email string
	Name  string
}

// PendingContacts pages through contacts that have no outcome yet, ordered
// by id so the backfill can resume from a cursor.
func (r *Repository) PendingContacts(ctx context.Context, afterID int64, limit int) ([]ContactRow, error) {
	query := `
		SELECT c.id, COALESCE(c.phone, ''), COALESCE(c.email, ''), COALESCE(c.name, '')
		FROM contacts c
		LEFT JOIN enrichment_outcomes o ON o.contact_key = c.contact_key
		WHERE c.id > $1 AND o.request_id IS NULL
		ORDER BY c.id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		r.log.DatabaseError("pending_contacts", err)
		return nil, apperr.Wrap(apperr.KindUnavailable, "listing contacts", err).WithOp("repository.PendingContacts")
	}
	defer rows.Close()

	var contacts []ContactRow
	for rows.Next() {
		var c ContactRow
		if err := rows.Scan(&c.ID, &c.Phone, &c.Email, &c.Name); err != nil {
			return nil, apperr.Wrap(apperr.KindUnrecoverable, "scanning contact", err).WithOp("repository.PendingContacts")
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "reading contacts", err).WithOp("repository.PendingContacts")
	}
	return contacts, nil
}
