package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/guttosm/capitolledger/internal/domain/models"
	pq "github.com/lib/pq"
)

// ErrDuplicateDocument marks a row whose (doc_id, row_ordinal) is already in the ledger.
// It is reported, never fatal.
var ErrDuplicateDocument = errors.New("duplicate document row")

// TradesRepository defines contract for ledger operations on trades.
type TradesRepository interface {
	UpsertTrade(ctx context.Context, t models.NormalizedTrade) (id int64, inserted bool, err error)
	TradeExists(ctx context.Context, key models.RowKey) (bool, error)
	ListUnresolved(ctx context.Context, afterID int64, limit int) ([]models.NormalizedTrade, error)
	ApplyTickerResolution(ctx context.Context, tradeID int64, ref models.SecurityRef, method models.ResolutionMethod, confidence float64) (bool, error)
	CountUnresolved(ctx context.Context) (int, error)
}

type tradesRepository struct {
	db *sql.DB
}

func NewTradesRepository(db *sql.DB) TradesRepository {
	return &tradesRepository{db: db}
}

const insertTradeSQL = `
	INSERT INTO trades (
		doc_id, row_ordinal, member_id, member_name, owner, owner_confidence, raw_owner,
		asset_description, raw_ticker, ticker, security_id, ticker_method, ticker_confidence,
		transaction_type, transaction_date, notification_date, raw_amount,
		amount_min_cents, amount_max_cents, filing_status, raw_comment, quality_flags
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	ON CONFLICT (doc_id, row_ordinal) DO NOTHING
	RETURNING id`

// UpsertTrade writes the trade once. A conflicting (doc_id, row_ordinal) leaves the
// stored row untouched and returns its id with inserted=false.
func (r *tradesRepository) UpsertTrade(ctx context.Context, t models.NormalizedTrade) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, insertTradeSQL,
		t.DocID,
		t.RowOrdinal,
		nullInt64(t.MemberID),
		t.MemberName,
		string(t.Owner),
		t.OwnerConfidence,
		t.RawOwner,
		t.AssetDescription,
		t.RawTicker,
		nullString(t.Ticker),
		nullInt64Ptr(t.SecurityID),
		string(t.TickerMethod),
		t.TickerConfidence,
		t.TransactionType,
		nullDate(t.TransactionDate),
		nullDate(t.NotificationDate),
		t.RawAmount,
		nullInt64Ptr(t.AmountMinCents),
		nullInt64Ptr(t.AmountMaxCents),
		t.FilingStatus,
		t.RawComment,
		pq.Array(t.QualityFlags.Strings()),
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	// conflict: the row already exists
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM trades WHERE doc_id = $1 AND row_ordinal = $2`,
		t.DocID, t.RowOrdinal,
	).Scan(&id)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

// TradeExists reports whether (doc_id, row_ordinal) is already in the ledger.
func (r *tradesRepository) TradeExists(ctx context.Context, key models.RowKey) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM trades WHERE doc_id = $1 AND row_ordinal = $2)`,
		key.DocID, key.Ordinal,
	).Scan(&ok)
	return ok, err
}

// ListUnresolved pages through trades without a ticker, ordered by id.
func (r *tradesRepository) ListUnresolved(ctx context.Context, afterID int64, limit int) ([]models.NormalizedTrade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, doc_id, row_ordinal, asset_description, raw_ticker, quality_flags
		FROM trades
		WHERE ticker IS NULL AND id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.NormalizedTrade
	for rows.Next() {
		var (
			t     models.NormalizedTrade
			flags []string
		)
		if err := rows.Scan(&t.ID, &t.DocID, &t.RowOrdinal, &t.AssetDescription, &t.RawTicker, pq.Array(&flags)); err != nil {
			return nil, err
		}
		t.TickerMethod = models.MethodNone
		for _, f := range flags {
			t.QualityFlags.Add(models.QualityFlag(f))
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// applyResolutionSQL fills only the link columns; quality_flags keep the ingest-time
// ticker_unresolved mark.
const applyResolutionSQL = `
	UPDATE trades
	SET ticker = $2,
		security_id = $3,
		ticker_method = $4,
		ticker_confidence = $5,
		updated_at = NOW()
	WHERE id = $1 AND ticker IS NULL`

// ApplyTickerResolution attaches a ticker to a still-unresolved trade. It never
// overwrites a resolved ticker: false means another writer got there first.
func (r *tradesRepository) ApplyTickerResolution(ctx context.Context, tradeID int64, ref models.SecurityRef, method models.ResolutionMethod, confidence float64) (bool, error) {
	res, err := r.db.ExecContext(ctx, applyResolutionSQL,
		tradeID, ref.Ticker, ref.ID, string(method), confidence)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountUnresolved returns how many trades still wait for a ticker.
func (r *tradesRepository) CountUnresolved(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE ticker IS NULL`).Scan(&n)
	return n, err
}

// helpers mapping zero values to NULL

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullInt64Ptr(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullDate(d *time.Time) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return *d
}
