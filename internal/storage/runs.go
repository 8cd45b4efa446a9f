package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// RunLog records ingestion runs and their data-quality report.
type RunLog interface {
	SaveRun(ctx context.Context, report models.DataQualityReport) error
	LatestRun(ctx context.Context) (*models.DataQualityReport, error)
	GetRun(ctx context.Context, runID string) (*models.DataQualityReport, error)
}

type runLog struct {
	db *sql.DB
}

func NewRunLog(db *sql.DB) RunLog {
	return &runLog{db: db}
}

// SaveRun records (or updates) the run identified by report.RunID.
func (r *runLog) SaveRun(ctx context.Context, report models.DataQualityReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	var finished interface{}
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (run_id, source, state, started_at, finished_at, error, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id)
		DO UPDATE SET state = EXCLUDED.state,
					  finished_at = EXCLUDED.finished_at,
					  error = EXCLUDED.error,
					  report = EXCLUDED.report`,
		report.RunID, report.Source, report.State, report.StartedAt, finished, report.Error, body)
	return err
}

// LatestRun returns the most recently started run, or nil when none exists.
func (r *runLog) LatestRun(ctx context.Context) (*models.DataQualityReport, error) {
	return r.one(ctx, `SELECT report FROM ingestion_runs ORDER BY started_at DESC LIMIT 1`)
}

// GetRun returns one run by id, or nil when unknown.
func (r *runLog) GetRun(ctx context.Context, runID string) (*models.DataQualityReport, error) {
	return r.one(ctx, `SELECT report FROM ingestion_runs WHERE run_id = $1`, runID)
}

func (r *runLog) one(ctx context.Context, query string, args ...interface{}) (*models.DataQualityReport, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report models.DataQualityReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
