package normalize

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// ErrMalformedAmount is reported for amount strings with no usable digits.
var ErrMalformedAmount = errors.New("malformed amount")

// errAmountOverflow marks a digit group whose cents do not fit in int64.
var errAmountOverflow = errors.New("amount exceeds int64 cents")

var maxCents = decimal.NewFromInt(math.MaxInt64)

// AmountStage values recorded in the quality report.
const (
	AmountCanonical = "canonical"
	AmountParsed    = "parsed"
	AmountFixed     = "fixed"
	AmountZero      = "zero"
	AmountAmbiguous = "ambiguous"
	AmountMalformed = "malformed"
)

// band is one of the value ranges printed on periodic transaction reports.
type band struct {
	min int64
	max int64 // -1 means open-ended
}

// canonicalBands is keyed by the compacted, uppercased band label.
var canonicalBands = map[string]band{
	"$1,001-$15,000":           {100100, 1500000},
	"$15,001-$50,000":          {1500100, 5000000},
	"$50,001-$100,000":         {5000100, 10000000},
	"$100,001-$250,000":        {10000100, 25000000},
	"$250,001-$500,000":        {25000100, 50000000},
	"$500,001-$1,000,000":      {50000100, 100000000},
	"$1,000,001-$5,000,000":    {100000100, 500000000},
	"$5,000,001-$25,000,000":   {500000100, 2500000000},
	"$25,000,001-$50,000,000":  {2500000100, 5000000000},
	"$50,000,000+":             {5000000000, -1},
	"OVER$50,000,000":          {5000000000, -1},
	"$1,000,000+":              {100000000, -1},
	"OVER$1,000,000":           {100000000, -1},
	"SPOUSE/DCOVER$1,000,000":  {100000000, -1},
	"SPOUSE/DCOVER$1,000,000+": {100000000, -1},
}

// digitGroup matches "1,234,567.89", "1234" or "12.5" style numbers.
var digitGroup = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)

// AmountRange is the result of parsing a disclosure amount string.
//
// MaxCents is nil for open-ended bands ("$50,000,000+"); both are nil when the
// string could not be parsed.
type AmountRange struct {
	MinCents *int64
	MaxCents *int64
	Matched  bool
	Stage    string
	Flags    []models.QualityFlag
}

// Fixed reports whether the amount needed a repair before it parsed.
func (a AmountRange) Fixed() bool {
	for _, f := range a.Flags {
		if f == models.FlagAmountSuffixStripped || f == models.FlagAmountRangeReversed {
			return true
		}
	}
	return false
}

// ParseAmount converts a disclosure amount string into integer cents.
//
// Steps:
//  1. Strip a trailing alphabetic run left by text extraction ("$1,001 - $15,000 gfedc").
//  2. Match the canonical disclosure bands exactly.
//  3. Otherwise scan digit groups: one group is an exact value (or an open lower bound
//     when followed by "+" or preceded by "over"), two or more give the extremes.
//
// Only trailing garbage is removed; leading or embedded letters are left alone.
func ParseAmount(raw string) AmountRange {
	var out AmountRange
	s := strings.TrimSpace(raw)

	if stripped, ok := stripTrailingAlpha(s); ok {
		s = stripped
		out.Flags = append(out.Flags, models.FlagAmountSuffixStripped)
	}

	if b, ok := canonicalBands[compactAmount(s)]; ok {
		out.Matched = true
		out.Stage = AmountCanonical
		out.MinCents = int64Ptr(b.min)
		if b.max >= 0 {
			out.MaxCents = int64Ptr(b.max)
		}
		if out.Fixed() {
			out.Stage = AmountFixed
		}
		return out
	}

	groups := digitGroup.FindAllString(s, -1)
	if len(groups) == 0 {
		out.Stage = AmountMalformed
		out.Flags = append(out.Flags, models.FlagMalformedAmount)
		return out
	}

	values := make([]int64, 0, len(groups))
	for _, g := range groups {
		c, err := toCents(g)
		if errors.Is(err, errAmountOverflow) {
			// a partial range would misstate the bounds
			out.Stage = AmountMalformed
			out.Flags = append(out.Flags, models.FlagMalformedAmount)
			return out
		}
		if err != nil {
			continue
		}
		values = append(values, c)
	}
	if len(values) == 0 {
		out.Stage = AmountMalformed
		out.Flags = append(out.Flags, models.FlagMalformedAmount)
		return out
	}

	out.Matched = true
	out.Stage = AmountParsed

	if allZero(values) {
		out.MinCents = int64Ptr(0)
		out.MaxCents = int64Ptr(0)
		out.Stage = AmountZero
		out.Flags = append(out.Flags, models.FlagZeroAmount)
		return out
	}

	switch {
	case len(values) == 1 && isOpenEnded(s):
		out.MinCents = int64Ptr(values[0])
	case len(values) == 1:
		out.MinCents = int64Ptr(values[0])
		out.MaxCents = int64Ptr(values[0])
	default:
		lo, hi := values[0], values[0]
		for _, v := range values[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		out.MinCents = int64Ptr(lo)
		out.MaxCents = int64Ptr(hi)
		if len(values) == 2 && values[0] > values[1] {
			out.Flags = append(out.Flags, models.FlagAmountRangeReversed)
		}
		if len(values) > 2 {
			out.Stage = AmountAmbiguous
			out.Flags = append(out.Flags, models.FlagAmbiguousAmount)
		}
	}

	if out.Stage == AmountParsed && out.Fixed() {
		out.Stage = AmountFixed
	}
	return out
}

// stripTrailingAlpha removes a trailing run of letters (and the spaces inside it) when
// what remains still holds a number; the second result is false when nothing was removed.
func stripTrailingAlpha(s string) (string, bool) {
	rs := []rune(s)
	i := len(rs)
	letters := 0
	for i > 0 && (unicode.IsLetter(rs[i-1]) || unicode.IsSpace(rs[i-1])) {
		if unicode.IsLetter(rs[i-1]) {
			letters++
		}
		i--
	}
	if letters == 0 {
		return s, false
	}
	rest := strings.TrimRightFunc(string(rs[:i]), unicode.IsSpace)
	if !strings.ContainsAny(rest, "0123456789") {
		return s, false
	}
	return rest, true
}

func compactAmount(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isOpenEnded(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasSuffix(t, "+") || strings.HasPrefix(strings.ToUpper(t), "OVER")
}

func toCents(group string) (int64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(group, ",", ""))
	if err != nil {
		return 0, err
	}
	cents := d.Mul(decimal.NewFromInt(100)).Round(0)
	if cents.GreaterThan(maxCents) {
		return 0, errAmountOverflow
	}
	return cents.IntPart(), nil
}

func allZero(values []int64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

func int64Ptr(v int64) *int64 { return &v }
