package normalize

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// ErrUnresolvedOwner is reported when no synonym is close enough to the raw owner.
var ErrUnresolvedOwner = errors.New("unresolved owner")

// DefaultOwnerThreshold is the minimum fuzzy score accepted for an owner synonym.
const DefaultOwnerThreshold = 70

// Owner stage values recorded in the quality report.
const (
	OwnerExact      = "exact"
	OwnerFuzzy      = "fuzzy"
	OwnerDefaulted  = "defaulted"
	OwnerUnresolved = "unresolved"
)

var ownerSynonyms = map[string]models.Owner{
	"C":               models.OwnerSelf,
	"SELF":            models.OwnerSelf,
	"FILER":           models.OwnerSelf,
	"MEMBER":          models.OwnerSelf,
	"CONGRESSMAN":     models.OwnerSelf,
	"CONGRESSWOMAN":   models.OwnerSelf,
	"REPRESENTATIVE":  models.OwnerSelf,
	"SENATOR":         models.OwnerSelf,
	"SP":              models.OwnerSpouse,
	"SPOUSE":          models.OwnerSpouse,
	"HUSBAND":         models.OwnerSpouse,
	"WIFE":            models.OwnerSpouse,
	"JT":              models.OwnerJoint,
	"JOINT":           models.OwnerJoint,
	"JOINT ACCOUNT":   models.OwnerJoint,
	"JOINTLY HELD":    models.OwnerJoint,
	"DC":              models.OwnerDependentChild,
	"DEPENDENT":       models.OwnerDependentChild,
	"DEPENDENT CHILD": models.OwnerDependentChild,
	"CHILD":           models.OwnerDependentChild,
}

// ownerKeywords mark a string as owner-ish even when it is long.
var ownerKeywords = []string{"SELF", "SPOUSE", "JOINT", "DEPENDENT", "CHILD", "HUSBAND", "WIFE"}

// companyTokens mark a string as a shifted company column.
var companyTokens = map[string]struct{}{
	"INC": {}, "CORP": {}, "CORPORATION": {}, "LLC": {}, "LTD": {}, "PLC": {}, "CO": {},
	"COMPANY": {}, "LP": {}, "HOLDINGS": {}, "GROUP": {}, "FUND": {}, "ETF": {}, "TRUST": {},
}

// OwnerResult is the canonical owner for a raw owner string.
type OwnerResult struct {
	Owner      models.Owner
	Confidence float64
	Stage      string
	Score      int
	Flags      []models.QualityFlag
}

// OwnerNormalizer maps raw owner strings to owner codes. It is immutable after
// construction and safe for concurrent use.
type OwnerNormalizer struct {
	threshold int
	keys      []string
}

// NewOwnerNormalizer builds a normalizer accepting fuzzy matches scoring at least threshold.
func NewOwnerNormalizer(threshold int) *OwnerNormalizer {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultOwnerThreshold
	}
	keys := make([]string, 0, len(ownerSynonyms))
	for k := range ownerSynonyms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &OwnerNormalizer{threshold: threshold, keys: keys}
}

// Normalize resolves raw to an owner code: exact synonym, then fuzzy synonym, then
// UNRESOLVED. Unresolved strings that look like a company name are flagged as
// misaligned, a known column-shift corruption in upstream extracts.
func (n *OwnerNormalizer) Normalize(raw string) OwnerResult {
	key := ownerKey(raw)
	if key == "" {
		return OwnerResult{
			Owner:      models.OwnerSelf,
			Confidence: 0.5,
			Stage:      OwnerDefaulted,
			Flags:      []models.QualityFlag{models.FlagOwnerDefaulted},
		}
	}

	if o, ok := ownerSynonyms[key]; ok {
		return OwnerResult{Owner: o, Confidence: 1.0, Stage: OwnerExact, Score: 100}
	}

	best, bestScore := "", 0
	for _, k := range n.keys {
		if s := ratio(key, k); s > bestScore {
			best, bestScore = k, s
		}
	}
	if bestScore >= n.threshold {
		return OwnerResult{
			Owner:      ownerSynonyms[best],
			Confidence: float64(bestScore) / 100,
			Stage:      OwnerFuzzy,
			Score:      bestScore,
			Flags:      []models.QualityFlag{models.FlagOwnerFuzzy},
		}
	}

	res := OwnerResult{
		Owner: models.OwnerUnresolved,
		Stage: OwnerUnresolved,
		Score: bestScore,
		Flags: []models.QualityFlag{models.FlagOwnerUnresolved},
	}
	if looksLikeCompany(raw, key) {
		res.Flags = append(res.Flags, models.FlagOwnerMisaligned)
	}
	return res
}

func ownerKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return collapseSpace(b.String())
}

// looksLikeCompany reports whether raw reads like an issuer name rather than an owner:
// a legal-form token, two or more capitalized words, or a long string without any
// owner keyword.
func looksLikeCompany(raw, key string) bool {
	for _, tok := range strings.Fields(key) {
		if _, ok := companyTokens[tok]; ok {
			return true
		}
	}

	capitalized := 0
	for _, w := range strings.Fields(raw) {
		rs := []rune(w)
		if len(rs) >= 2 && unicode.IsUpper(rs[0]) && unicode.IsLetter(rs[1]) {
			capitalized++
		}
	}
	if capitalized >= 2 {
		return true
	}

	if len(key) > 12 {
		for _, kw := range ownerKeywords {
			if strings.Contains(key, kw) {
				return false
			}
		}
		return true
	}
	return false
}
