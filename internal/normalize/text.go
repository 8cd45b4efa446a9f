package normalize

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are corporate-form tokens that carry no identifying value.
var legalSuffixes = map[string]struct{}{
	"INC": {}, "INCORPORATED": {}, "CORP": {}, "CORPORATION": {}, "CO": {}, "COMPANY": {},
	"LLC": {}, "LTD": {}, "LIMITED": {}, "PLC": {}, "LP": {}, "LLP": {}, "NV": {}, "SA": {},
	"AG": {}, "SE": {}, "THE": {},
}

// securityNoise are share-class and instrument words found in asset descriptions.
var securityNoise = map[string]struct{}{
	"COMMON": {}, "STOCK": {}, "SHARES": {}, "SHS": {}, "ORD": {}, "ORDINARY": {},
	"ADR": {}, "ADS": {}, "SPONSORED": {}, "COM": {}, "CLASS": {}, "CL": {},
}

// foldAccents removes diacritics so "Nestlé" and "Nestle" compare equal.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// canonicalText uppercases, folds accents, deletes dots and apostrophes, and turns any
// other punctuation into a single space.
func canonicalText(s string) string {
	s = strings.ToUpper(foldAccents(s))
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		switch {
		case r == '.' || r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeIssuerName reduces an issuer name or asset description to the form used by
// dictionary and fuzzy lookups: canonical text without legal suffixes, share-class
// words or the single-letter class designator that follows them.
func NormalizeIssuerName(s string) string {
	tokens := strings.Fields(canonicalText(s))
	out := tokens[:0]
	skipClassLetter := false
	for _, tok := range tokens {
		if skipClassLetter {
			skipClassLetter = false
			if len(tok) == 1 {
				continue
			}
		}
		if tok == "CLASS" || tok == "CL" {
			skipClassLetter = true
			continue
		}
		if _, ok := legalSuffixes[tok]; ok {
			continue
		}
		if _, ok := securityNoise[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// ratio returns a 0..100 similarity score based on Levenshtein distance.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(float64(longest-d)*100/float64(longest) + 0.5)
}

// sortTokens joins the whitespace-separated tokens of s in lexical order.
func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// ratioCeiling is the best score two strings of these lengths could reach.
func ratioCeiling(la, lb int) int {
	if la == 0 && lb == 0 {
		return 100
	}
	shortest, longest := la, lb
	if shortest > longest {
		shortest, longest = longest, shortest
	}
	return int(float64(shortest)*100/float64(longest) + 0.5)
}

// collapseSpace trims s and squeezes inner whitespace runs to a single space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
