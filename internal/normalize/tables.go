package normalize

import "github.com/guttosm/capitolledger/internal/domain/models"

// Tables are the reference tables a batch resolves against. They are built once per
// batch and shared read-only by every worker.
type Tables struct {
	Dictionary *CompanyDictionary
	Index      *IssuerIndex
}

// BuildTables prepares the dictionary (static names first, then registry issuer names)
// and the fuzzy issuer index from one registry snapshot.
func BuildTables(static map[string]string, issuers []models.IssuerName) *Tables {
	index := NewIssuerIndex(issuers)
	return &Tables{
		Dictionary: NewCompanyDictionary(static, index.NameTable()),
		Index:      index,
	}
}
