package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

var transactionTypes = map[string]string{
	"P":              "PURCHASE",
	"PURCHASE":       "PURCHASE",
	"BUY":            "PURCHASE",
	"S":              "SALE",
	"SALE":           "SALE",
	"SELL":           "SALE",
	"SOLD":           "SALE",
	"S (PARTIAL)":    "SALE_PARTIAL",
	"SALE (PARTIAL)": "SALE_PARTIAL",
	"PARTIAL SALE":   "SALE_PARTIAL",
	"S (FULL)":       "SALE_FULL",
	"SALE (FULL)":    "SALE_FULL",
	"FULL SALE":      "SALE_FULL",
	"E":              "EXCHANGE",
	"EXCHANGE":       "EXCHANGE",
}

// assetTypeCode is the bracketed asset class printed after descriptions ("[ST]").
var assetTypeCode = regexp.MustCompile(`\s*\[[A-Z]{2,3}\]\s*$`)

// RowNormalizer turns one raw row into a NormalizedTrade. It is pure: all of its
// state is immutable and it performs no I/O, so workers can share one instance.
type RowNormalizer struct {
	owners  *OwnerNormalizer
	tickers *TickerResolver
}

// NewRowNormalizer wires the owner normalizer and ticker resolver.
func NewRowNormalizer(owners *OwnerNormalizer, tickers *TickerResolver) *RowNormalizer {
	return &RowNormalizer{owners: owners, tickers: tickers}
}

// Normalize derives the trade for row and records what each stage did. Problems never
// fail the row: they become quality flags and failure reasons.
func (n *RowNormalizer) Normalize(row models.RawDisclosureRow) (models.NormalizedTrade, models.RowOutcome) {
	var out models.RowOutcome
	t := models.NormalizedTrade{
		DocID:            strings.TrimSpace(row.DocID),
		RowOrdinal:       row.Ordinal,
		MemberName:       collapseSpace(row.MemberName),
		RawOwner:         row.Owner,
		AssetDescription: CleanDescription(row.AssetDescription),
		RawTicker:        strings.TrimSpace(row.Ticker),
		TransactionType:  NormalizeTransactionType(row.TransactionType),
		RawAmount:        row.AmountText,
		FilingStatus:     collapseSpace(row.FilingStatus),
		RawComment:       strings.TrimSpace(row.Comment),
		TickerMethod:     models.MethodNone,
	}

	amt := ParseAmount(row.AmountText)
	t.AmountMinCents, t.AmountMaxCents = amt.MinCents, amt.MaxCents
	t.QualityFlags.Add(amt.Flags...)
	out.Set(models.StageAmount, amt.Stage)
	out.AmountFixed = amt.Fixed()
	if !amt.Matched {
		out.AddReason(ErrMalformedAmount.Error())
	}

	own := n.owners.Normalize(row.Owner)
	t.Owner, t.OwnerConfidence = own.Owner, own.Confidence
	t.QualityFlags.Add(own.Flags...)
	out.Set(models.StageOwner, own.Stage)
	if own.Owner == models.OwnerUnresolved {
		out.AddReason(ErrUnresolvedOwner.Error())
	}

	res := n.tickers.Resolve(tickerInput(row))
	t.QualityFlags.Add(res.Flags...)
	out.Attempted = res.Attempted
	out.Set(models.StageTicker, string(res.Method))
	if res.Resolved() {
		tk := res.Ticker
		t.Ticker = &tk
		t.TickerMethod = res.Method
		t.TickerConfidence = res.Confidence
	} else {
		out.AddReason(ErrUnresolvedTicker.Error())
	}

	dateOK := true
	if d, ok := ParseDate(row.TransactionDate); ok {
		t.TransactionDate = d
	} else {
		dateOK = false
	}
	if d, ok := ParseDate(row.NotificationDate); ok {
		t.NotificationDate = d
	} else {
		dateOK = false
	}
	if dateOK {
		out.Set(models.StageDates, models.OutcomeOK)
	} else {
		t.QualityFlags.Add(models.FlagInvalidDate)
		out.Set(models.StageDates, models.OutcomeInvalid)
	}

	return t, out
}

func tickerInput(row models.RawDisclosureRow) TickerInput {
	return TickerInput{Description: row.AssetDescription, RawTicker: row.Ticker}
}

// ParseDate accepts the date layouts seen in filings. A blank value is valid and
// yields nil; an unparseable value yields nil and false.
func ParseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return &d, true
		}
	}
	return nil, false
}

// NormalizeTransactionType maps filing codes to PURCHASE, SALE, SALE_PARTIAL,
// SALE_FULL or EXCHANGE; unknown values are kept uppercased.
func NormalizeTransactionType(s string) string {
	key := strings.ToUpper(collapseSpace(s))
	if v, ok := transactionTypes[key]; ok {
		return v
	}
	return key
}

// CleanDescription collapses whitespace and drops a trailing asset-type code.
func CleanDescription(s string) string {
	return collapseSpace(assetTypeCode.ReplaceAllString(s, ""))
}
