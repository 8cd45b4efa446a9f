package models

import "time"

// ManualReviewItem carries the identifying fields of a row a human needs to look at.
type ManualReviewItem struct {
	RunID            string             `json:"run_id"`
	DocID            string             `json:"doc_id"`
	RowOrdinal       int                `json:"row_ordinal"`
	SourceLine       int                `json:"source_line,omitempty"`
	MemberName       string             `json:"member_name"`
	RawOwner         string             `json:"raw_owner"`
	RawAmount        string             `json:"raw_amount"`
	RawTicker        string             `json:"raw_ticker"`
	AssetDescription string             `json:"asset_description"`
	AttemptedMethods []ResolutionMethod `json:"attempted_methods"`
	TickerConfidence float64            `json:"ticker_confidence"`
	Reasons          []string           `json:"reasons"`
}

// Sample is one illustrative example kept in a report category.
type Sample struct {
	DocID      string `json:"doc_id"`
	RowOrdinal int    `json:"row_ordinal"`
	Raw        string `json:"raw"`
	Detail     string `json:"detail,omitempty"`
}

// DataQualityReport summarizes one ingestion run.
//
// Counts are exact; Samples are capped per category and only illustrative.
type DataQualityReport struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`

	Total            int `json:"total"`
	Persisted        int `json:"persisted"`
	Duplicates       int `json:"duplicates"`
	MalformedRows    int `json:"malformed_rows"`
	AmountFixes      int `json:"amount_fixes"`
	AmountMalformed  int `json:"amount_malformed"`
	OwnerUnresolved  int `json:"owner_unresolved"`
	OwnerMisaligned  int `json:"owner_misaligned"`
	TickerUnresolved int `json:"ticker_unresolved"`
	SecuritiesNew    int `json:"securities_created"`
	ReviewItems      int `json:"review_items"`

	// Stages maps a pipeline stage to outcome counts (e.g. "amount" → {"canonical": 3}).
	Stages map[string]map[string]int `json:"stages"`
	// TickerMethods counts trades by resolution method.
	TickerMethods map[ResolutionMethod]int `json:"ticker_methods"`
	// Failures is a histogram of normalized failure reasons.
	Failures map[string]int `json:"failures"`
	// Samples holds the first N examples per category.
	Samples map[string][]Sample `json:"samples"`
}
