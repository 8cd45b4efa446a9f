package models

import "time"

// RawDisclosureRow represents one trade entry as extracted from a disclosure filing,
// either from a delimited export or from page-extracted text.
//
// Owner, AmountText and Ticker are untrusted until normalized. The pair
// (DocID, Ordinal) identifies the row across re-ingestions.
//
// Column order of the delimited export:
//  1. MemberName
//  2. DocID
//  3. Owner
//  4. AssetDescription
//  5. Ticker
//  6. TransactionType
//  7. TransactionDate
//  8. NotificationDate
//  9. AmountText
//  10. FilingStatus
//  11. Comment
type RawDisclosureRow struct {
	MemberName       string
	DocID            string
	Ordinal          int
	Owner            string
	AssetDescription string
	Ticker           string
	TransactionType  string
	TransactionDate  string
	NotificationDate string
	AmountText       string
	FilingStatus     string
	Comment          string
	SourceLine       int
	// RawText is the unsplit source text, kept for rows that could not be parsed.
	RawText          string
}

// Key returns the dedup key of the row.
func (r RawDisclosureRow) Key() RowKey {
	return RowKey{DocID: r.DocID, Ordinal: r.Ordinal}
}

// RowKey is the (doc_id, row ordinal) pair trades are unique on.
type RowKey struct {
	DocID   string `json:"doc_id"`
	Ordinal int    `json:"row_ordinal"`
}

// NormalizedTrade is the ledger record derived once from a RawDisclosureRow.
//
// Only Ticker, SecurityID, TickerMethod and TickerConfidence may change after the
// first write, and only from unresolved to resolved.
type NormalizedTrade struct {
	ID               int64            `json:"id,omitempty"`
	DocID            string           `json:"doc_id"`
	RowOrdinal       int              `json:"row_ordinal"`
	MemberID         int64            `json:"member_id,omitempty"`
	MemberName       string           `json:"member_name"`
	Owner            Owner            `json:"owner"`
	OwnerConfidence  float64          `json:"owner_confidence"`
	RawOwner         string           `json:"raw_owner"`
	AssetDescription string           `json:"asset_description"`
	RawTicker        string           `json:"raw_ticker,omitempty"`
	Ticker           *string          `json:"ticker"`
	SecurityID       *int64           `json:"security_id,omitempty"`
	TickerMethod     ResolutionMethod `json:"ticker_resolution_method"`
	TickerConfidence float64          `json:"ticker_confidence"`
	TransactionType  string           `json:"transaction_type"`
	TransactionDate  *time.Time       `json:"transaction_date"`
	NotificationDate *time.Time       `json:"notification_date"`
	RawAmount        string           `json:"raw_amount"`
	AmountMinCents   *int64           `json:"amount_min_cents"`
	AmountMaxCents   *int64           `json:"amount_max_cents"`
	FilingStatus     string           `json:"filing_status"`
	RawComment       string           `json:"raw_comment"`
	QualityFlags     FlagSet          `json:"quality_flags"`
}

// Key returns the dedup key of the trade.
func (t NormalizedTrade) Key() RowKey {
	return RowKey{DocID: t.DocID, Ordinal: t.RowOrdinal}
}

// TickerResolved reports whether a ticker has been attached to the trade.
func (t NormalizedTrade) TickerResolved() bool {
	return t.Ticker != nil && *t.Ticker != ""
}

// ClearTicker drops any ticker resolution. A positive confidence always comes
// with a ticker.
func (t *NormalizedTrade) ClearTicker() {
	t.Ticker = nil
	t.SecurityID = nil
	t.TickerMethod = MethodNone
	t.TickerConfidence = 0
}
