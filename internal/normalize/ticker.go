package normalize

import (
	"errors"
	"regexp"
	"strings"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// ErrUnresolvedTicker is reported when no strategy produced a ticker.
var ErrUnresolvedTicker = errors.New("unresolved ticker")

// Strategy confidences. Fuzzy confidence is scaled by the match score.
const (
	ConfidenceDirect     = 1.0
	ConfidencePattern    = 0.9
	ConfidenceDictionary = 0.8
	fuzzyConfidenceScale = 0.75
)

// tickerBlacklist holds short uppercase words that look like tickers but are not.
var tickerBlacklist = map[string]struct{}{
	"INC": {}, "CORP": {}, "CO": {}, "LLC": {}, "LTD": {}, "PLC": {}, "LP": {}, "NA": {},
	"FUND": {}, "ETF": {}, "ETN": {}, "REIT": {}, "TRUST": {}, "BOND": {}, "NOTE": {},
	"NOTES": {}, "CLASS": {}, "CL": {}, "COM": {}, "SHS": {}, "ADR": {}, "ADS": {}, "NEW": {},
	"USD": {}, "THE": {}, "AND": {}, "CALL": {}, "PUT": {}, "INDEX": {}, "STOCK": {},
	"ST": {}, "OP": {}, "OT": {}, "SP": {}, "DC": {}, "JT": {},
	"N": {}, "NONE": {}, "NULL": {}, "TBD": {}, "UNK": {},
}

const maxDirectTickerLen = 5

var (
	directTicker   = regexp.MustCompile(`^[A-Z]{1,5}(?:[.\-][A-Z]{1,2})?$`)
	parenTicker    = regexp.MustCompile(`\(([A-Z]{1,5}(?:[.\-][A-Z]{1,2})?)\)`)
	exchangeTicker = regexp.MustCompile(`\b(?:NYSE ARCA|NYSEARCA|NYSE|NASDAQ|AMEX|BATS|CBOE|OTCMKTS|OTC)\s*:\s*([A-Z]{1,5}(?:[.\-][A-Z]{1,2})?)\b`)
)

// TickerInput is what the resolver sees for one row.
type TickerInput struct {
	Description string
	RawTicker   string
}

// Resolution is the outcome of ticker resolution for one row.
type Resolution struct {
	Ticker     string
	Method     models.ResolutionMethod
	Confidence float64
	Score      int
	Matched    string
	Attempted  []models.ResolutionMethod
	Flags      []models.QualityFlag
}

// Resolved reports whether a ticker was found.
func (r Resolution) Resolved() bool {
	return r.Method != models.MethodNone && r.Ticker != ""
}

// Strategy is one step of the resolution chain: a pure function that either produces
// a resolution or declines. A declining strategy may still return flags.
type Strategy struct {
	Method  models.ResolutionMethod
	Resolve func(TickerInput) (Resolution, bool)
}

// TickerResolver evaluates strategies in priority order and stops at the first hit.
// It holds only immutable tables and is safe for concurrent use.
type TickerResolver struct {
	strategies []Strategy
}

// NewTickerResolver builds the standard chain: direct field, description pattern,
// company dictionary, fuzzy issuer match.
func NewTickerResolver(tables *Tables, fuzzyThreshold int) *TickerResolver {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 100 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	var dict *CompanyDictionary
	var index *IssuerIndex
	if tables != nil {
		dict, index = tables.Dictionary, tables.Index
	}
	return NewTickerResolverWith(
		DirectStrategy(),
		PatternStrategy(),
		DictionaryStrategy(dict),
		FuzzyStrategy(index, fuzzyThreshold),
	)
}

// NewTickerResolverWith builds a resolver from an explicit chain.
func NewTickerResolverWith(strategies ...Strategy) *TickerResolver {
	return &TickerResolver{strategies: strategies}
}

// Resolve runs the chain for in. Unresolved results carry MethodNone, zero confidence
// and the ticker_unresolved flag.
func (t *TickerResolver) Resolve(in TickerInput) Resolution {
	attempted := make([]models.ResolutionMethod, 0, len(t.strategies))
	var flags []models.QualityFlag
	for _, s := range t.strategies {
		attempted = append(attempted, s.Method)
		res, ok := s.Resolve(in)
		flags = append(flags, res.Flags...)
		if ok {
			res.Method = s.Method
			res.Attempted = attempted
			res.Flags = flags
			return res
		}
	}
	return Resolution{
		Method:    models.MethodNone,
		Attempted: attempted,
		Flags:     append(flags, models.FlagTickerUnresolved),
	}
}

// DirectStrategy trusts the ticker column when it is a short uppercase symbol.
func DirectStrategy() Strategy {
	return Strategy{
		Method: models.MethodDirect,
		Resolve: func(in TickerInput) (Resolution, bool) {
			tk, ok := DirectTicker(in.RawTicker)
			if !ok {
				return Resolution{}, false
			}
			return Resolution{Ticker: tk, Confidence: ConfidenceDirect}, true
		},
	}
}

// DirectTicker validates a raw ticker field. Lowercase input is rejected: the column
// is unreliable and lowercase values are usually words that slid into it.
func DirectTicker(raw string) (string, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if s == "" || len(s) > maxDirectTickerLen || s != strings.ToUpper(s) {
		return "", false
	}
	if !directTicker.MatchString(s) || blacklisted(s) {
		return "", false
	}
	return s, true
}

// PatternStrategy finds "(XYZ)" or "NASDAQ: XYZ" tokens inside the description.
func PatternStrategy() Strategy {
	return Strategy{
		Method: models.MethodDescriptionPattern,
		Resolve: func(in TickerInput) (Resolution, bool) {
			tk, ok := EmbeddedTicker(in.Description)
			if !ok {
				return Resolution{}, false
			}
			return Resolution{Ticker: tk, Confidence: ConfidencePattern}, true
		},
	}
}

// EmbeddedTicker returns the first non-blacklisted parenthesized or exchange-prefixed
// symbol in description.
func EmbeddedTicker(description string) (string, bool) {
	for _, re := range []*regexp.Regexp{parenTicker, exchangeTicker} {
		for _, m := range re.FindAllStringSubmatch(description, -1) {
			if !blacklisted(m[1]) {
				return m[1], true
			}
		}
	}
	return "", false
}

// DictionaryStrategy looks the description up in the company-name dictionary.
func DictionaryStrategy(dict *CompanyDictionary) Strategy {
	return Strategy{
		Method: models.MethodCompanyDictionary,
		Resolve: func(in TickerInput) (Resolution, bool) {
			tk, name, ok := dict.Lookup(in.Description)
			if !ok {
				return Resolution{}, false
			}
			return Resolution{Ticker: tk, Confidence: ConfidenceDictionary, Matched: name}, true
		},
	}
}

// FuzzyStrategy scores the description against every indexed issuer and accepts only
// matches at or above cutoff.
func FuzzyStrategy(index *IssuerIndex, cutoff int) Strategy {
	return Strategy{
		Method: models.MethodFuzzyMatch,
		Resolve: func(in TickerInput) (Resolution, bool) {
			m, ok := index.Best(in.Description, cutoff)
			if !ok {
				if m.Ambiguous {
					return Resolution{Flags: []models.QualityFlag{models.FlagTickerFuzzyAmbiguous}}, false
				}
				return Resolution{}, false
			}
			return Resolution{
				Ticker:     m.Ticker,
				Confidence: fuzzyConfidenceScale * float64(m.Score) / 100,
				Score:      m.Score,
				Matched:    m.Name,
			}, true
		},
	}
}

func blacklisted(s string) bool {
	_, ok := tickerBlacklist[s]
	return ok
}
