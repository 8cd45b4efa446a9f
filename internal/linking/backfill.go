package linking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/capitolledger/internal/domain/models"
	"github.com/guttosm/capitolledger/internal/logger"
	"github.com/guttosm/capitolledger/internal/normalize"
)

const (
	defaultPageSize = 500
	defaultWorkers  = 4
)

// UnresolvedStore is the part of the trade store the backfill sweep needs.
type UnresolvedStore interface {
	ListUnresolved(ctx context.Context, afterID int64, limit int) ([]models.NormalizedTrade, error)
	ApplyTickerResolution(ctx context.Context, tradeID int64, ref models.SecurityRef, method models.ResolutionMethod, confidence float64) (bool, error)
}

// IssuerSource serves the registry's issuer-name snapshot and accepts enrichments.
type IssuerSource interface {
	IssuerIndex(ctx context.Context) ([]models.IssuerName, error)
	Enrich(ctx context.Context, ticker, name string) (models.Security, error)
}

// BackfillResult summarizes one sweep.
type BackfillResult struct {
	Scanned    int                             `json:"scanned"`
	Resolved   int                             `json:"resolved"`
	Unresolved int                             `json:"unresolved"`
	Raced      int                             `json:"raced"`
	TimedOut   int                             `json:"timed_out"`
	Methods    map[models.ResolutionMethod]int `json:"methods"`
}

func (r *BackfillResult) add(o BackfillResult) {
	r.Scanned += o.Scanned
	r.Resolved += o.Resolved
	r.Unresolved += o.Unresolved
	r.Raced += o.Raced
	r.TimedOut += o.TimedOut
	for m, n := range o.Methods {
		if r.Methods == nil {
			r.Methods = make(map[models.ResolutionMethod]int)
		}
		r.Methods[m] += n
	}
}

// TradeBackfiller resolves trades persisted without a ticker once the registry or
// dictionary knows more. A sweep only ever moves a trade from unresolved to resolved.
type TradeBackfiller struct {
	trades         UnresolvedStore
	issuers        IssuerSource
	linker         *SecurityLinker
	static         map[string]string
	fuzzyThreshold int
	pageSize       int
	workers        int
}

// NewTradeBackfiller wires a backfiller. static is the company dictionary merged with
// registry names on each sweep.
func NewTradeBackfiller(trades UnresolvedStore, issuers IssuerSource, linker *SecurityLinker, static map[string]string, fuzzyThreshold, workers int) *TradeBackfiller {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &TradeBackfiller{
		trades:         trades,
		issuers:        issuers,
		linker:         linker,
		static:         static,
		fuzzyThreshold: fuzzyThreshold,
		pageSize:       defaultPageSize,
		workers:        workers,
	}
}

// Sweep re-resolves every unresolved trade against a fresh registry snapshot.
func (b *TradeBackfiller) Sweep(ctx context.Context) (BackfillResult, error) {
	issuers, err := b.issuers.IssuerIndex(ctx)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("issuer index: %w", err)
	}
	resolver := normalize.NewTickerResolver(normalize.BuildTables(b.static, issuers), b.fuzzyThreshold)
	return b.sweep(ctx, resolver, "")
}

// SweepSecurity re-resolves unresolved trades against a single issuer, attaching only
// trades that resolve to that issuer's ticker.
func (b *TradeBackfiller) SweepSecurity(ctx context.Context, issuer models.IssuerName) (BackfillResult, error) {
	issuer.Ticker = canonicalTicker(issuer.Ticker)
	resolver := normalize.NewTickerResolver(normalize.BuildTables(nil, []models.IssuerName{issuer}), b.fuzzyThreshold)
	return b.sweep(ctx, resolver, issuer.Ticker)
}

// Enrich names a security in the registry and sweeps unresolved trades for it.
// The ticker is stored upper-cased, the form every resolver produces.
func (b *TradeBackfiller) Enrich(ctx context.Context, ticker, name string) (models.Security, BackfillResult, error) {
	ticker = canonicalTicker(ticker)
	if ticker == "" {
		return models.Security{}, BackfillResult{}, errors.New("enrich: empty ticker")
	}
	sec, err := b.issuers.Enrich(ctx, ticker, name)
	if err != nil {
		return models.Security{}, BackfillResult{}, fmt.Errorf("enrich %s: %w", ticker, err)
	}
	res, err := b.SweepSecurity(ctx, models.IssuerName{Ticker: sec.Ticker, Name: sec.Name})
	return sec, res, err
}

func canonicalTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func (b *TradeBackfiller) sweep(ctx context.Context, resolver *normalize.TickerResolver, only string) (BackfillResult, error) {
	var (
		total BackfillResult
		after int64
	)
	for {
		page, err := b.trades.ListUnresolved(ctx, after, b.pageSize)
		if err != nil {
			return total, fmt.Errorf("list unresolved after %d: %w", after, err)
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].ID

		res, err := b.sweepPage(ctx, resolver, only, page)
		total.add(res)
		if err != nil {
			return total, err
		}
		if len(page) < b.pageSize {
			break
		}
	}

	l := logger.Component("backfill")
	l.Info().
		Str("only", only).
		Int("scanned", total.Scanned).
		Int("resolved", total.Resolved).
		Int("unresolved", total.Unresolved).
		Int("timed_out", total.TimedOut).
		Msg("backfill sweep done")
	return total, nil
}

func (b *TradeBackfiller) sweepPage(ctx context.Context, resolver *normalize.TickerResolver, only string, page []models.NormalizedTrade) (BackfillResult, error) {
	var (
		mu  sync.Mutex
		res BackfillResult
	)
	count := func(f func(r *BackfillResult)) {
		mu.Lock()
		f(&res)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, t := range page {
		t := t
		g.Go(func() error {
			count(func(r *BackfillResult) { r.Scanned++ })

			r := resolver.Resolve(normalize.TickerInput{Description: t.AssetDescription, RawTicker: t.RawTicker})
			if !r.Resolved() || (only != "" && r.Ticker != only) {
				count(func(r *BackfillResult) { r.Unresolved++ })
				return nil
			}

			ref, _, err := b.linker.Link(gctx, r.Ticker)
			if errors.Is(err, ErrRegistryTimeout) {
				count(func(r *BackfillResult) { r.TimedOut++ })
				return nil
			}
			if err != nil {
				return fmt.Errorf("trade %d: %w", t.ID, err)
			}

			ok, err := b.trades.ApplyTickerResolution(gctx, t.ID, ref, r.Method, r.Confidence)
			if err != nil {
				return fmt.Errorf("trade %d: apply resolution: %w", t.ID, err)
			}
			count(func(br *BackfillResult) {
				if !ok {
					br.Raced++
					return
				}
				br.Resolved++
				if br.Methods == nil {
					br.Methods = make(map[models.ResolutionMethod]int)
				}
				br.Methods[r.Method]++
			})
			return nil
		})
	}
	err := g.Wait()
	return res, err
}
