package quality

import (
	"sync"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// DefaultSampleSize is how many examples each report category keeps.
const DefaultSampleSize = 5

// Sample categories.
const (
	CategoryAmountFix        = "amount_fix"
	CategoryAmountMalformed  = "amount_malformed"
	CategoryOwnerUnresolved  = "owner_unresolved"
	CategoryOwnerMisaligned  = "owner_misaligned"
	CategoryTickerUnresolved = "ticker_unresolved"
	CategoryMalformedRow     = "malformed_row"
	CategoryRegistryTimeout  = "registry_timeout"
	CategoryDuplicate        = "duplicate"
)

// Accountant aggregates row outcomes for one run. Safe for concurrent use.
type Accountant struct {
	mu         sync.Mutex
	sampleSize int

	total            int
	persisted        int
	duplicates       int
	malformedRows    int
	amountFixes      int
	amountMalformed  int
	ownerUnresolved  int
	ownerMisaligned  int
	tickerUnresolved int
	securitiesNew    int
	reviewItems      int

	stages   map[string]map[string]int
	methods  map[models.ResolutionMethod]int
	failures map[string]int
	samples  map[string][]models.Sample
}

// NewAccountant creates an accountant keeping the first sampleSize examples per
// category. Non-positive sizes use DefaultSampleSize.
func NewAccountant(sampleSize int) *Accountant {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Accountant{
		sampleSize: sampleSize,
		stages:     make(map[string]map[string]int),
		methods:    make(map[models.ResolutionMethod]int),
		failures:   make(map[string]int),
		samples:    make(map[string][]models.Sample),
	}
}

// Record accounts for one processed row. trade is ignored for malformed rows.
func (a *Accountant) Record(row models.RawDisclosureRow, trade models.NormalizedTrade, out models.RowOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	for stage, outcome := range out.Stages {
		m := a.stages[stage]
		if m == nil {
			m = make(map[string]int)
			a.stages[stage] = m
		}
		m[outcome]++
	}
	for _, reason := range out.Reasons {
		a.failures[reason]++
	}
	if out.Review {
		a.reviewItems++
	}

	if out.MalformedErr != "" {
		a.malformedRows++
		a.sample(CategoryMalformedRow, row, row.RawText, out.MalformedErr)
		return
	}

	a.methods[trade.TickerMethod]++
	flags := trade.QualityFlags

	if out.AmountFixed {
		a.amountFixes++
		a.sample(CategoryAmountFix, row, row.AmountText, "")
	}
	if flags.Has(models.FlagMalformedAmount) {
		a.amountMalformed++
		a.sample(CategoryAmountMalformed, row, row.AmountText, "")
	}
	if trade.Owner == models.OwnerUnresolved {
		a.ownerUnresolved++
		a.sample(CategoryOwnerUnresolved, row, row.Owner, "")
	}
	if flags.Has(models.FlagOwnerMisaligned) {
		a.ownerMisaligned++
		a.sample(CategoryOwnerMisaligned, row, row.Owner, "")
	}
	if !trade.TickerResolved() {
		a.tickerUnresolved++
		a.sample(CategoryTickerUnresolved, row, row.AssetDescription, row.Ticker)
	}
	if flags.Has(models.FlagRegistryTimeout) {
		a.sample(CategoryRegistryTimeout, row, row.AssetDescription, "")
	}

	switch out.Stages[models.StagePersist] {
	case models.OutcomeInserted:
		a.persisted++
	case models.OutcomeDuplicate:
		a.duplicates++
		a.sample(CategoryDuplicate, row, "", "")
	}
	if out.Stages[models.StageLink] == models.OutcomeCreated {
		a.securitiesNew++
	}
}

// sample keeps the first sampleSize examples of a category. Caller holds mu.
func (a *Accountant) sample(category string, row models.RawDisclosureRow, raw, detail string) {
	if len(a.samples[category]) >= a.sampleSize {
		return
	}
	a.samples[category] = append(a.samples[category], models.Sample{
		DocID:      row.DocID,
		RowOrdinal: row.Ordinal,
		Raw:        raw,
		Detail:     detail,
	})
}

// Report returns a snapshot of the counters. Run metadata is left to the caller.
func (a *Accountant) Report() models.DataQualityReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := models.DataQualityReport{
		Total:            a.total,
		Persisted:        a.persisted,
		Duplicates:       a.duplicates,
		MalformedRows:    a.malformedRows,
		AmountFixes:      a.amountFixes,
		AmountMalformed:  a.amountMalformed,
		OwnerUnresolved:  a.ownerUnresolved,
		OwnerMisaligned:  a.ownerMisaligned,
		TickerUnresolved: a.tickerUnresolved,
		SecuritiesNew:    a.securitiesNew,
		ReviewItems:      a.reviewItems,
		Stages:           make(map[string]map[string]int, len(a.stages)),
		TickerMethods:    make(map[models.ResolutionMethod]int, len(a.methods)),
		Failures:         make(map[string]int, len(a.failures)),
		Samples:          make(map[string][]models.Sample, len(a.samples)),
	}
	for stage, m := range a.stages {
		c := make(map[string]int, len(m))
		for k, v := range m {
			c[k] = v
		}
		r.Stages[stage] = c
	}
	for k, v := range a.methods {
		r.TickerMethods[k] = v
	}
	for k, v := range a.failures {
		r.Failures[k] = v
	}
	for k, v := range a.samples {
		r.Samples[k] = append([]models.Sample(nil), v...)
	}
	return r
}
