package linking

import (
	"context"
	"sort"
	"sync"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// fakeRegistry is an in-memory security registry.
type fakeRegistry struct {
	mu      sync.Mutex
	nextID  int64
	byTick  map[string]models.Security
	calls   int
	failN   int   // fail the first failN calls with failErr
	failErr error // error returned while failing
	block   bool  // block until the call context ends
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{byTick: make(map[string]models.Security)}
}

func (f *fakeRegistry) GetOrCreate(ctx context.Context, ticker string) (models.Security, models.LinkOutcome, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	if f.failN > 0 {
		f.failN--
		err := f.failErr
		f.mu.Unlock()
		return models.Security{}, "", err
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return models.Security{}, "", ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byTick[ticker]; ok {
		return s, models.LinkExisting, nil
	}
	f.nextID++
	s := models.Security{ID: f.nextID, Ticker: ticker, Placeholder: true, Status: models.EnrichmentPending}
	f.byTick[ticker] = s
	return s, models.LinkCreated, nil
}

func (f *fakeRegistry) IssuerIndex(ctx context.Context) ([]models.IssuerName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.IssuerName
	for _, s := range f.byTick {
		if s.Name != "" {
			out = append(out, models.IssuerName{Ticker: s.Ticker, Name: s.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (f *fakeRegistry) Enrich(ctx context.Context, ticker, name string) (models.Security, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byTick[ticker]
	if !ok {
		f.nextID++
		s = models.Security{ID: f.nextID, Ticker: ticker}
	}
	s.Name, s.Placeholder, s.Status = name, false, models.EnrichmentEnriched
	f.byTick[ticker] = s
	return s, nil
}

func (f *fakeRegistry) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeTrades keeps trades by id and applies resolutions only to unresolved rows.
type fakeTrades struct {
	mu     sync.Mutex
	trades map[int64]*models.NormalizedTrade
}

func newFakeTrades(ts ...models.NormalizedTrade) *fakeTrades {
	f := &fakeTrades{trades: make(map[int64]*models.NormalizedTrade)}
	for i := range ts {
		t := ts[i]
		f.trades[t.ID] = &t
	}
	return f
}

func (f *fakeTrades) ListUnresolved(ctx context.Context, afterID int64, limit int) ([]models.NormalizedTrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, t := range f.trades {
		if id > afterID && t.Ticker == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.NormalizedTrade, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.trades[id])
	}
	return out, nil
}

func (f *fakeTrades) ApplyTickerResolution(ctx context.Context, tradeID int64, ref models.SecurityRef, method models.ResolutionMethod, confidence float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trades[tradeID]
	if !ok || t.Ticker != nil {
		return false, nil
	}
	tk, sec := ref.Ticker, ref.ID
	t.Ticker, t.SecurityID, t.TickerMethod, t.TickerConfidence = &tk, &sec, method, confidence
	return true, nil
}

func (f *fakeTrades) get(id int64) models.NormalizedTrade {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.trades[id]
}
