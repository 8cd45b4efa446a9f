package quality

import (
	"context"
	"fmt"
	"sync"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// DefaultConfidenceCutoff routes resolved tickers below this confidence to review.
const DefaultConfidenceCutoff = 0.5

// ReasonLowConfidence is attached to resolved rows under the cutoff.
const ReasonLowConfidence = "low ticker confidence"

// ReviewPolicy decides which rows need a human.
type ReviewPolicy struct {
	ConfidenceCutoff float64
	UnresolvedOwner  bool
}

// DefaultReviewPolicy reviews unresolved owners and tickers below 0.5 confidence.
func DefaultReviewPolicy() ReviewPolicy {
	return ReviewPolicy{ConfidenceCutoff: DefaultConfidenceCutoff, UnresolvedOwner: true}
}

// NeedsReview reports whether the row goes to the review queue.
func (p ReviewPolicy) NeedsReview(trade models.NormalizedTrade, out models.RowOutcome) bool {
	switch {
	case out.MalformedErr != "":
		return true
	case p.UnresolvedOwner && trade.Owner == models.OwnerUnresolved:
		return true
	case !trade.TickerResolved():
		return true
	case trade.TickerConfidence < p.ConfidenceCutoff:
		return true
	}
	return false
}

// NewReviewItem builds the review record for a row.
func NewReviewItem(runID string, row models.RawDisclosureRow, trade models.NormalizedTrade, out models.RowOutcome, p ReviewPolicy) models.ManualReviewItem {
	item := models.ManualReviewItem{
		RunID:            runID,
		DocID:            row.DocID,
		RowOrdinal:       row.Ordinal,
		SourceLine:       row.SourceLine,
		MemberName:       row.MemberName,
		RawOwner:         row.Owner,
		RawAmount:        row.AmountText,
		RawTicker:        row.Ticker,
		AssetDescription: row.AssetDescription,
		AttemptedMethods: append([]models.ResolutionMethod(nil), out.Attempted...),
		TickerConfidence: trade.TickerConfidence,
		Reasons:          append([]string(nil), out.Reasons...),
	}
	if out.MalformedErr != "" {
		if item.AssetDescription == "" {
			item.AssetDescription = row.RawText
		}
		item.Reasons = append(item.Reasons, out.MalformedErr)
	}
	if trade.TickerResolved() && trade.TickerConfidence < p.ConfidenceCutoff {
		item.Reasons = append(item.Reasons, ReasonLowConfidence)
	}
	return item
}

// ReviewSink receives review items at the end of a run.
type ReviewSink interface {
	Write(ctx context.Context, items []models.ManualReviewItem) error
}

// Exporter collects review items during a run and flushes them to a sink.
// Consider is safe for concurrent use.
type Exporter struct {
	policy ReviewPolicy
	sink   ReviewSink

	mu    sync.Mutex
	items []models.ManualReviewItem
}

// NewExporter builds an exporter. A nil sink collects items without writing them.
func NewExporter(policy ReviewPolicy, sink ReviewSink) *Exporter {
	return &Exporter{policy: policy, sink: sink}
}

// Policy returns the review policy in use.
func (e *Exporter) Policy() ReviewPolicy { return e.policy }

// Consider queues the row when the policy asks for review and reports whether it did.
func (e *Exporter) Consider(runID string, row models.RawDisclosureRow, trade models.NormalizedTrade, out models.RowOutcome) bool {
	if !e.policy.NeedsReview(trade, out) {
		return false
	}
	item := NewReviewItem(runID, row, trade, out, e.policy)
	e.mu.Lock()
	e.items = append(e.items, item)
	e.mu.Unlock()
	return true
}

// Items returns a copy of the queued items.
func (e *Exporter) Items() []models.ManualReviewItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ManualReviewItem(nil), e.items...)
}

// Flush writes the queued items to the sink and clears the queue. On a sink error
// the items stay queued for the next Flush.
func (e *Exporter) Flush(ctx context.Context) (int, error) {
	e.mu.Lock()
	items := e.items
	e.items = nil
	e.mu.Unlock()

	if e.sink == nil || len(items) == 0 {
		return len(items), nil
	}
	if err := e.sink.Write(ctx, items); err != nil {
		e.mu.Lock()
		e.items = append(items, e.items...)
		e.mu.Unlock()
		return 0, fmt.Errorf("write review items: %w", err)
	}
	return len(items), nil
}
