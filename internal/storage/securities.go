package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// SecurityRegistry is the persistent registry of securities trades link to.
type SecurityRegistry interface {
	GetOrCreate(ctx context.Context, ticker string) (models.Security, models.LinkOutcome, error)
	IssuerIndex(ctx context.Context) ([]models.IssuerName, error)
	Enrich(ctx context.Context, ticker, name string) (models.Security, error)
}

type securityRegistry struct {
	db *sql.DB
}

func NewSecurityRegistry(db *sql.DB) SecurityRegistry {
	return &securityRegistry{db: db}
}

const securityColumns = `id, ticker, name, placeholder, enrichment_status, created_at`

func scanSecurity(row interface{ Scan(...any) error }) (models.Security, error) {
	var (
		s      models.Security
		status string
	)
	if err := row.Scan(&s.ID, &s.Ticker, &s.Name, &s.Placeholder, &status, &s.CreatedAt); err != nil {
		return models.Security{}, err
	}
	s.Status = models.EnrichmentStatus(status)
	return s, nil
}

// GetOrCreate inserts a placeholder for ticker unless one exists. Concurrent callers
// race on the unique ticker constraint; the loser re-reads the winner's row.
func (r *securityRegistry) GetOrCreate(ctx context.Context, ticker string) (models.Security, models.LinkOutcome, error) {
	sec, err := scanSecurity(r.db.QueryRowContext(ctx, `
		INSERT INTO securities (ticker, name, placeholder, enrichment_status)
		VALUES ($1, '', TRUE, 'PENDING')
		ON CONFLICT (ticker) DO NOTHING
		RETURNING `+securityColumns, ticker))
	if err == nil {
		return sec, models.LinkCreated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Security{}, "", err
	}

	sec, err = scanSecurity(r.db.QueryRowContext(ctx,
		`SELECT `+securityColumns+` FROM securities WHERE ticker = $1`, ticker))
	if err != nil {
		return models.Security{}, "", err
	}
	return sec, models.LinkExisting, nil
}

// IssuerIndex returns every named security as (ticker, name) for name matching.
func (r *securityRegistry) IssuerIndex(ctx context.Context) ([]models.IssuerName, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticker, name FROM securities WHERE name <> '' ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.IssuerName
	for rows.Next() {
		var in models.IssuerName
		if err := rows.Scan(&in.Ticker, &in.Name); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Enrich names a security, creating it when missing. Confirmed securities keep
// their status.
func (r *securityRegistry) Enrich(ctx context.Context, ticker, name string) (models.Security, error) {
	return scanSecurity(r.db.QueryRowContext(ctx, `
		INSERT INTO securities (ticker, name, placeholder, enrichment_status)
		VALUES ($1, $2, FALSE, 'ENRICHED')
		ON CONFLICT (ticker) DO UPDATE
		SET name = EXCLUDED.name,
			placeholder = FALSE,
			enrichment_status = CASE WHEN securities.enrichment_status = 'CONFIRMED'
				THEN 'CONFIRMED' ELSE 'ENRICHED' END,
			updated_at = NOW()
		RETURNING `+securityColumns, ticker, name))
}
