package models

import (
	"encoding/json"
	"sort"
)

// Owner designates whose holding a trade affects.
type Owner string

const (
	OwnerSelf           Owner = "SELF"
	OwnerSpouse         Owner = "SPOUSE"
	OwnerJoint          Owner = "JOINT"
	OwnerDependentChild Owner = "DEPENDENT_CHILD"
	OwnerUnresolved     Owner = "UNRESOLVED"
)

// ResolutionMethod names the strategy that produced a ticker.
type ResolutionMethod string

const (
	MethodDirect             ResolutionMethod = "DIRECT"
	MethodDescriptionPattern ResolutionMethod = "DESCRIPTION_PATTERN"
	MethodCompanyDictionary  ResolutionMethod = "COMPANY_DICTIONARY"
	MethodFuzzyMatch         ResolutionMethod = "FUZZY_MATCH"
	MethodNone               ResolutionMethod = "NONE"
)

// QualityFlag is a normalized reason attached to a trade during ingestion.
type QualityFlag string

const (
	FlagAmountSuffixStripped QualityFlag = "amount_suffix_stripped"
	FlagAmountRangeReversed  QualityFlag = "amount_range_reversed"
	FlagAmbiguousAmount      QualityFlag = "ambiguous_amount"
	FlagZeroAmount           QualityFlag = "zero_amount"
	FlagMalformedAmount      QualityFlag = "malformed_amount"
	FlagOwnerFuzzy           QualityFlag = "owner_fuzzy"
	FlagOwnerDefaulted       QualityFlag = "owner_defaulted"
	FlagOwnerUnresolved      QualityFlag = "owner_unresolved"
	FlagOwnerMisaligned      QualityFlag = "owner_misaligned"
	FlagTickerUnresolved     QualityFlag = "ticker_unresolved"
	FlagTickerFuzzyAmbiguous QualityFlag = "fuzzy_ambiguous"
	FlagRegistryTimeout      QualityFlag = "registry_timeout"
	FlagInvalidDate          QualityFlag = "invalid_date"
	FlagMalformedRow         QualityFlag = "malformed_row"
)

// FlagSet is an unordered set of quality flags.
type FlagSet map[QualityFlag]struct{}

// NewFlagSet builds a set from the given flags.
func NewFlagSet(flags ...QualityFlag) FlagSet {
	s := make(FlagSet, len(flags))
	for _, f := range flags {
		s[f] = struct{}{}
	}
	return s
}

// Add inserts flags into the set, allocating it when nil.
func (s *FlagSet) Add(flags ...QualityFlag) {
	if *s == nil {
		*s = make(FlagSet, len(flags))
	}
	for _, f := range flags {
		(*s)[f] = struct{}{}
	}
}

// Has reports whether f is in the set.
func (s FlagSet) Has(f QualityFlag) bool {
	_, ok := s[f]
	return ok
}

// Sorted returns the flags in lexical order.
func (s FlagSet) Sorted() []QualityFlag {
	out := make([]QualityFlag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted flags as plain strings (used for text[] columns).
func (s FlagSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, f := range sorted {
		out[i] = string(f)
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s FlagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}
