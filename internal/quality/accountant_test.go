package quality

import (
	"fmt"
	"sync"
	"testing"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

func okTrade(ticker string) models.NormalizedTrade {
	tk := ticker
	return models.NormalizedTrade{
		Owner:            models.OwnerSelf,
		Ticker:           &tk,
		TickerMethod:     models.MethodDirect,
		TickerConfidence: 1,
	}
}

func okOutcome() models.RowOutcome {
	var out models.RowOutcome
	out.Set(models.StageAmount, "canonical")
	out.Set(models.StageLink, models.OutcomeExisting)
	out.Set(models.StagePersist, models.OutcomeInserted)
	return out
}

func TestAccountant_Counts(t *testing.T) {
	a := NewAccountant(2)

	a.Record(models.RawDisclosureRow{DocID: "D", Ordinal: 1}, okTrade("AAPL"), okOutcome())

	fixed := okOutcome()
	fixed.AmountFixed = true
	a.Record(models.RawDisclosureRow{DocID: "D", Ordinal: 2, AmountText: "$1,001 - $15,000 gfedc"}, okTrade("MSFT"), fixed)

	unres := models.NormalizedTrade{
		Owner:        models.OwnerUnresolved,
		TickerMethod: models.MethodNone,
		QualityFlags: models.NewFlagSet(models.FlagOwnerUnresolved, models.FlagOwnerMisaligned, models.FlagTickerUnresolved),
	}
	uo := okOutcome()
	uo.Set(models.StageLink, models.OutcomeSkipped)
	uo.AddReason("unresolved owner")
	uo.AddReason("unresolved ticker")
	uo.Review = true
	a.Record(models.RawDisclosureRow{DocID: "D", Ordinal: 3, Owner: "Oracle Corp"}, unres, uo)

	dup := okOutcome()
	dup.Set(models.StagePersist, models.OutcomeDuplicate)
	a.Record(models.RawDisclosureRow{DocID: "D", Ordinal: 4}, okTrade("AAPL"), dup)

	created := okOutcome()
	created.Set(models.StageLink, models.OutcomeCreated)
	a.Record(models.RawDisclosureRow{DocID: "D", Ordinal: 5}, okTrade("NEWCO"), created)

	var bad models.RowOutcome
	bad.Set(models.StageSource, models.OutcomeMalformed)
	bad.MalformedErr = "expected 11 columns, got 4"
	bad.Review = true
	a.Record(models.RawDisclosureRow{SourceLine: 9, RawText: "a,b,c,d"}, models.NormalizedTrade{}, bad)

	r := a.Report()
	checks := []struct {
		name      string
		got, want int
	}{
		{"total", r.Total, 6},
		{"persisted", r.Persisted, 4},
		{"duplicates", r.Duplicates, 1},
		{"amount fixes", r.AmountFixes, 1},
		{"owner unresolved", r.OwnerUnresolved, 1},
		{"owner misaligned", r.OwnerMisaligned, 1},
		{"ticker unresolved", r.TickerUnresolved, 1},
		{"malformed rows", r.MalformedRows, 1},
		{"securities created", r.SecuritiesNew, 1},
		{"review items", r.ReviewItems, 2},
		{"direct method", r.TickerMethods[models.MethodDirect], 4},
		{"none method", r.TickerMethods[models.MethodNone], 1},
		{"owner failures", r.Failures["unresolved owner"], 1},
		{"persist inserted stage", r.Stages[models.StagePersist][models.OutcomeInserted], 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s: want %d got %d", c.name, c.want, c.got)
		}
	}
	if s := r.Samples[CategoryAmountFix]; len(s) != 1 || s[0].RowOrdinal != 2 {
		t.Fatalf("amount fix sample: %+v", s)
	}
	if s := r.Samples[CategoryMalformedRow]; len(s) != 1 || s[0].Raw != "a,b,c,d" {
		t.Fatalf("malformed sample: %+v", s)
	}
}

func TestAccountant_SamplesAreCappedAndCountsExact(t *testing.T) {
	a := NewAccountant(3)
	fixed := okOutcome()
	fixed.AmountFixed = true

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Record(models.RawDisclosureRow{DocID: fmt.Sprintf("D%d", i), Ordinal: 1}, okTrade("AAPL"), fixed)
		}(i)
	}
	wg.Wait()

	r := a.Report()
	if r.AmountFixes != 50 || r.Total != 50 {
		t.Fatalf("counts must be exact: %+v", r)
	}
	if len(r.Samples[CategoryAmountFix]) != 3 {
		t.Fatalf("samples must be capped at 3, got %d", len(r.Samples[CategoryAmountFix]))
	}
}

func TestAccountant_ReportIsSnapshot(t *testing.T) {
	a := NewAccountant(0)
	a.Record(models.RawDisclosureRow{}, okTrade("AAPL"), okOutcome())
	r := a.Report()
	r.Stages[models.StagePersist][models.OutcomeInserted] = 100

	if got := a.Report().Stages[models.StagePersist][models.OutcomeInserted]; got != 1 {
		t.Fatalf("report must not alias accountant state, got %d", got)
	}
}
