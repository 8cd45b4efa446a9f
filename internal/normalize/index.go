package normalize

import (
	"sort"
	"strings"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// DefaultFuzzyThreshold is the minimum token-sort score for a fuzzy issuer match.
const DefaultFuzzyThreshold = 85

type indexEntry struct {
	ticker string
	name   string
	sorted string
	length int
}

// IssuerIndex is a read-only snapshot of the registry's issuer names, prepared once so
// that every worker in a batch scores against the same precomputed keys.
type IssuerIndex struct {
	entries []indexEntry
	names   map[string]string
}

// NewIssuerIndex normalizes and sorts the given issuers. Entries with a blank name or
// ticker are skipped.
func NewIssuerIndex(issuers []models.IssuerName) *IssuerIndex {
	idx := &IssuerIndex{names: make(map[string]string, len(issuers))}
	for _, is := range issuers {
		ticker := strings.ToUpper(strings.TrimSpace(is.Ticker))
		n := NormalizeIssuerName(is.Name)
		if ticker == "" || n == "" {
			continue
		}
		sorted := sortTokens(n)
		idx.entries = append(idx.entries, indexEntry{
			ticker: ticker,
			name:   n,
			sorted: sorted,
			length: len([]rune(sorted)),
		})
		if _, ok := idx.names[is.Name]; !ok {
			idx.names[is.Name] = ticker
		}
	}
	sort.Slice(idx.entries, func(i, j int) bool {
		if idx.entries[i].name != idx.entries[j].name {
			return idx.entries[i].name < idx.entries[j].name
		}
		return idx.entries[i].ticker < idx.entries[j].ticker
	})
	return idx
}

// Len returns the number of indexed issuers.
func (x *IssuerIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// NameTable returns the raw issuer name → ticker pairs for dictionary building.
func (x *IssuerIndex) NameTable() map[string]string {
	if x == nil {
		return nil
	}
	out := make(map[string]string, len(x.names))
	for k, v := range x.names {
		out[k] = v
	}
	return out
}

// FuzzyMatch is the best-scoring issuer for a description.
type FuzzyMatch struct {
	Ticker    string
	Name      string
	Score     int
	Ambiguous bool
}

// Best scores description against every issuer and returns the top match at or above
// cutoff. When two different tickers share the top score the match is marked
// Ambiguous and ok is false, since picking either could mislink the trade.
func (x *IssuerIndex) Best(description string, cutoff int) (FuzzyMatch, bool) {
	if x == nil || len(x.entries) == 0 {
		return FuzzyMatch{}, false
	}
	n := NormalizeIssuerName(description)
	if n == "" {
		return FuzzyMatch{}, false
	}
	key := sortTokens(n)
	keyLen := len([]rune(key))

	var best FuzzyMatch
	for _, e := range x.entries {
		if ratioCeiling(keyLen, e.length) < cutoff {
			continue
		}
		s := ratio(key, e.sorted)
		switch {
		case s > best.Score:
			best = FuzzyMatch{Ticker: e.ticker, Name: e.name, Score: s}
		case s == best.Score && s > 0 && e.ticker != best.Ticker:
			best.Ambiguous = true
		}
	}
	if best.Score < cutoff {
		return FuzzyMatch{}, false
	}
	return best, !best.Ambiguous
}
