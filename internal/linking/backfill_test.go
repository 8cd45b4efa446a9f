package linking

import (
	"context"
	"testing"
	"time"

	"github.com/guttosm/capitolledger/internal/domain/models"
	"github.com/guttosm/capitolledger/internal/normalize"
)

func unresolved(id int64, desc string) models.NormalizedTrade {
	return models.NormalizedTrade{
		ID:               id,
		DocID:            "D1",
		RowOrdinal:       int(id),
		AssetDescription: desc,
		TickerMethod:     models.MethodNone,
		QualityFlags:     models.NewFlagSet(models.FlagTickerUnresolved),
	}
}

func resolved(id int64, desc, ticker string) models.NormalizedTrade {
	t := unresolved(id, desc)
	tk, sec := ticker, int64(99)
	t.Ticker, t.SecurityID, t.TickerMethod, t.TickerConfidence = &tk, &sec, models.MethodDirect, 1
	return t
}

func newTestBackfiller(trades *fakeTrades, reg *fakeRegistry) *TradeBackfiller {
	b := NewTradeBackfiller(trades, reg, newTestLinker(reg, time.Second, 1), nil, normalize.DefaultFuzzyThreshold, 2)
	b.pageSize = 2
	return b
}

func TestSweep_ResolvesAfterRegistryLearnsName(t *testing.T) {
	trades := newFakeTrades(
		unresolved(1, "Acme Rockets Corp"),
		unresolved(2, "Blue Ridge Farmland Partners"),
		unresolved(3, "Acme Rockets - Common Stock"),
	)
	reg := newFakeRegistry()
	b := newTestBackfiller(trades, reg)

	res, err := b.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Resolved != 0 || res.Unresolved != 3 {
		t.Fatalf("nothing should resolve before the registry knows Acme: %+v", res)
	}

	if _, err := reg.Enrich(context.Background(), "ACME", "Acme Rockets Inc."); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	res, err = b.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Scanned != 3 || res.Resolved != 2 || res.Unresolved != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, id := range []int64{1, 3} {
		tr := trades.get(id)
		if tr.Ticker == nil || *tr.Ticker != "ACME" || tr.TickerMethod != models.MethodCompanyDictionary {
			t.Fatalf("trade %d not backfilled: %+v", id, tr)
		}
	}
	if trades.get(2).Ticker != nil {
		t.Fatalf("unrelated trade must stay unresolved")
	}
}

func TestSweep_NeverOverwritesResolved(t *testing.T) {
	trades := newFakeTrades(
		resolved(1, "Acme Rockets Corp", "OLD"),
		unresolved(2, "Acme Rockets Corp"),
	)
	reg := newFakeRegistry()
	_, _ = reg.Enrich(context.Background(), "ACME", "Acme Rockets")
	b := newTestBackfiller(trades, reg)

	for i := 0; i < 2; i++ {
		if _, err := b.Sweep(context.Background()); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}
	if got := *trades.get(1).Ticker; got != "OLD" {
		t.Fatalf("resolved ticker changed to %s", got)
	}
	if got := trades.get(2); got.Ticker == nil || *got.Ticker != "ACME" {
		t.Fatalf("unresolved trade not backfilled: %+v", got)
	}
}

func TestEnrich_SweepsOnlyThatIssuer(t *testing.T) {
	trades := newFakeTrades(
		unresolved(1, "Acme Rockets Corp"),
		unresolved(2, "Zenith Widgets Inc"),
		unresolved(3, "Private Holdings (ZZZ)"),
	)
	reg := newFakeRegistry()
	b := newTestBackfiller(trades, reg)

	sec, res, err := b.Enrich(context.Background(), "ACME", "Acme Rockets")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if sec.Status != models.EnrichmentEnriched {
		t.Fatalf("status: %s", sec.Status)
	}
	if res.Resolved != 1 {
		t.Fatalf("want one resolved trade, got %+v", res)
	}
	if trades.get(3).Ticker != nil {
		t.Fatalf("trade resolving to another ticker must be left for the full sweep")
	}
}

func TestEnrich_CanonicalizesTicker(t *testing.T) {
	cases := []struct {
		name    string
		ticker  string
		wantErr bool
	}{
		{name: "lower case", ticker: "acme"},
		{name: "padded mixed case", ticker: "  AcMe "},
		{name: "blank", ticker: "   ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trades := newFakeTrades(unresolved(1, "Acme Rockets Corp"))
			reg := newFakeRegistry()
			b := newTestBackfiller(trades, reg)

			sec, res, err := b.Enrich(context.Background(), tc.ticker, "Acme Rockets Inc.")
			if tc.wantErr {
				if err == nil || reg.callCount() != 0 || len(reg.byTick) != 0 {
					t.Fatalf("blank ticker must be rejected before the registry: err=%v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("enrich: %v", err)
			}
			if sec.Ticker != "ACME" || len(reg.byTick) != 1 {
				t.Fatalf("security stored as %q (%d entries)", sec.Ticker, len(reg.byTick))
			}
			if res.Resolved != 1 || res.Unresolved != 0 {
				t.Fatalf("trade not attached: %+v", res)
			}
			if tr := trades.get(1); tr.Ticker == nil || *tr.Ticker != "ACME" {
				t.Fatalf("trade: %+v", tr)
			}
		})
	}
}

func TestSweep_TimeoutLeavesRowUnresolved(t *testing.T) {
	trades := newFakeTrades(unresolved(1, "Acme Rockets Corp"))
	reg := newFakeRegistry()
	_, _ = reg.Enrich(context.Background(), "ACME", "Acme Rockets")
	reg.block = true

	b := NewTradeBackfiller(trades, reg, newTestLinker(reg, 10*time.Millisecond, 1), nil, normalize.DefaultFuzzyThreshold, 1)
	res, err := b.Sweep(context.Background())
	if err != nil {
		t.Fatalf("timeouts must not fail the sweep: %v", err)
	}
	if res.TimedOut != 1 || trades.get(1).Ticker != nil {
		t.Fatalf("unexpected: %+v", res)
	}
}
