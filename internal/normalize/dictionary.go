package normalize

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// defaultCompanies seeds the company-name dictionary with issuers that show up often
// in disclosure filings without a ticker column.
var defaultCompanies = map[string]string{
	"Apple":                  "AAPL",
	"Microsoft":              "MSFT",
	"Amazon":                 "AMZN",
	"Amazon.com":             "AMZN",
	"Alphabet":               "GOOGL",
	"Google":                 "GOOGL",
	"Meta Platforms":         "META",
	"Facebook":               "META",
	"NVIDIA":                 "NVDA",
	"Tesla":                  "TSLA",
	"Netflix":                "NFLX",
	"Berkshire Hathaway":     "BRK.B",
	"JPMorgan Chase":         "JPM",
	"Bank of America":        "BAC",
	"Wells Fargo":            "WFC",
	"Goldman Sachs":          "GS",
	"Morgan Stanley":         "MS",
	"Visa":                   "V",
	"Mastercard":             "MA",
	"Walt Disney":            "DIS",
	"Johnson & Johnson":      "JNJ",
	"Pfizer":                 "PFE",
	"Merck":                  "MRK",
	"AbbVie":                 "ABBV",
	"UnitedHealth":           "UNH",
	"Exxon Mobil":            "XOM",
	"Chevron":                "CVX",
	"Procter & Gamble":       "PG",
	"Coca-Cola":              "KO",
	"PepsiCo":                "PEP",
	"Walmart":                "WMT",
	"Home Depot":             "HD",
	"Costco Wholesale":       "COST",
	"Intel":                  "INTC",
	"Advanced Micro Devices": "AMD",
	"Cisco Systems":          "CSCO",
	"Oracle":                 "ORCL",
	"Salesforce":             "CRM",
	"Adobe":                  "ADBE",
	"Qualcomm":               "QCOM",
	"Broadcom":               "AVGO",
	"Texas Instruments":      "TXN",
	"IBM":                    "IBM",
	"AT&T":                   "T",
	"Verizon Communications": "VZ",
	"Comcast":                "CMCSA",
	"Boeing":                 "BA",
	"Lockheed Martin":        "LMT",
	"Raytheon Technologies":  "RTX",
	"General Electric":       "GE",
	"Caterpillar":            "CAT",
	"3M":                     "MMM",
	"Nike":                   "NKE",
	"McDonald's":             "MCD",
	"Starbucks":              "SBUX",
	"PayPal":                 "PYPL",
	"Micron Technology":      "MU",
	"Palantir Technologies":  "PLTR",
	"CrowdStrike":            "CRWD",
	"ServiceNow":             "NOW",
}

// dictEntry is one normalized issuer name with its ticker.
type dictEntry struct {
	name   string
	ticker string
}

// CompanyDictionary maps normalized issuer names to tickers. It is immutable and safe
// for concurrent use.
type CompanyDictionary struct {
	entries []dictEntry
}

// minDictionaryName keeps one- and two-letter names from matching inside everything.
const minDictionaryName = 3

// usableName reports whether a normalized name is specific enough to match on. Names
// under minDictionaryName pass only when they mix letters and digits, like "3M".
func usableName(n string) bool {
	if len(n) >= minDictionaryName {
		return true
	}
	return strings.IndexFunc(n, unicode.IsDigit) >= 0 && strings.IndexFunc(n, unicode.IsLetter) >= 0
}

// NewCompanyDictionary builds a dictionary from name→ticker pairs. Names are
// normalized with NormalizeIssuerName; the first ticker seen for a name wins.
func NewCompanyDictionary(tables ...map[string]string) *CompanyDictionary {
	seen := make(map[string]struct{})
	d := &CompanyDictionary{}
	for _, t := range tables {
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			n := NormalizeIssuerName(name)
			ticker := strings.ToUpper(strings.TrimSpace(t[name]))
			if !usableName(n) || ticker == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			d.entries = append(d.entries, dictEntry{name: n, ticker: ticker})
		}
	}
	sort.SliceStable(d.entries, func(i, j int) bool {
		return len(d.entries[i].name) > len(d.entries[j].name)
	})
	return d
}

// DefaultCompanies returns a copy of the built-in name→ticker table.
func DefaultCompanies() map[string]string {
	out := make(map[string]string, len(defaultCompanies))
	for k, v := range defaultCompanies {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct names.
func (d *CompanyDictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Lookup finds the ticker for a description by word-boundary containment in both
// directions. A name found inside the description is preferred, longest name first,
// so "AMAZONCOM" beats "AMAZON". Otherwise the shortest name that contains the whole
// description is used.
func (d *CompanyDictionary) Lookup(description string) (ticker, name string, ok bool) {
	if d == nil {
		return "", "", false
	}
	desc := NormalizeIssuerName(description)
	if !usableName(desc) {
		return "", "", false
	}
	padded := " " + desc + " "

	var reverse *dictEntry
	for i := range d.entries {
		e := &d.entries[i]
		if strings.Contains(padded, " "+e.name+" ") {
			// entries are sorted longest first
			return e.ticker, e.name, true
		}
		if strings.Contains(" "+e.name+" ", padded) {
			if reverse == nil || len(e.name) < len(reverse.name) {
				reverse = e
			}
		}
	}
	if reverse != nil {
		return reverse.ticker, reverse.name, true
	}
	return "", "", false
}

// dictionaryFile is the on-disk layout accepted by LoadDictionaryFile.
//
//	companies:
//	  - name: Apple
//	    ticker: AAPL
type dictionaryFile struct {
	Companies []struct {
		Name   string `yaml:"name"`
		Ticker string `yaml:"ticker"`
	} `yaml:"companies"`
}

// LoadDictionaryFile reads extra name→ticker pairs from a YAML file.
func LoadDictionaryFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	var f dictionaryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	out := make(map[string]string, len(f.Companies))
	for i, c := range f.Companies {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Ticker) == "" {
			return nil, fmt.Errorf("dictionary %s: entry %d needs name and ticker", path, i+1)
		}
		out[c.Name] = c.Ticker
	}
	return out, nil
}
