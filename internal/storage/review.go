package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guttosm/capitolledger/internal/domain/models"
	pq "github.com/lib/pq"
)

// ReviewQueue stores rows routed to manual review.
type ReviewQueue interface {
	SaveReviewItems(ctx context.Context, items []models.ManualReviewItem) error
	ListReview(ctx context.Context, runID string, limit int) ([]models.ManualReviewItem, error)
}

type reviewQueue struct {
	db *sql.DB
}

func NewReviewQueue(db *sql.DB) ReviewQueue {
	return &reviewQueue{db: db}
}

// SaveReviewItems copies review items into review_queue in a single transaction.
func (r *reviewQueue) SaveReviewItems(ctx context.Context, items []models.ManualReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"review_queue",
		"run_id",
		"doc_id",
		"row_ordinal",
		"source_line",
		"member_name",
		"raw_owner",
		"raw_amount",
		"raw_ticker",
		"asset_description",
		"attempted_methods",
		"ticker_confidence",
		"reasons",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, it := range items {
		methods := make([]string, len(it.AttemptedMethods))
		for i, m := range it.AttemptedMethods {
			methods[i] = string(m)
		}
		if _, err := stmt.ExecContext(ctx,
			it.RunID,
			it.DocID,
			it.RowOrdinal,
			it.SourceLine,
			it.MemberName,
			it.RawOwner,
			it.RawAmount,
			it.RawTicker,
			it.AssetDescription,
			pq.Array(methods),
			it.TickerConfidence,
			pq.Array(it.Reasons),
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// ListReview returns queued items, newest run first. runID is optional.
func (r *reviewQueue) ListReview(ctx context.Context, runID string, limit int) ([]models.ManualReviewItem, error) {
	// $1 is always the limit; the run filter is appended when given.
	conditions := "TRUE"
	args := []interface{}{limit}
	if runID != "" {
		args = append(args, runID)
		conditions = fmt.Sprintf("run_id = $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT run_id, doc_id, row_ordinal, source_line, member_name, raw_owner, raw_amount,
			raw_ticker, asset_description, attempted_methods, ticker_confidence, reasons
		FROM review_queue
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $1`, conditions)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.ManualReviewItem
	for rows.Next() {
		var (
			it      models.ManualReviewItem
			methods []string
		)
		if err := rows.Scan(&it.RunID, &it.DocID, &it.RowOrdinal, &it.SourceLine, &it.MemberName,
			&it.RawOwner, &it.RawAmount, &it.RawTicker, &it.AssetDescription,
			pq.Array(&methods), &it.TickerConfidence, pq.Array(&it.Reasons)); err != nil {
			return nil, err
		}
		for _, m := range methods {
			it.AttemptedMethods = append(it.AttemptedMethods, models.ResolutionMethod(m))
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
