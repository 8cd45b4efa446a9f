package models

import "time"

// EnrichmentStatus tracks how much reference data a security carries.
type EnrichmentStatus string

const (
	EnrichmentPending   EnrichmentStatus = "PENDING"
	EnrichmentEnriched  EnrichmentStatus = "ENRICHED"
	EnrichmentConfirmed EnrichmentStatus = "CONFIRMED"
)

// Security is a view into the security registry.
//
// A placeholder is created the first time a plausible ticker is seen without
// registry data; it is later named (enriched) or confirmed.
type Security struct {
	ID          int64            `json:"id"`
	Ticker      string           `json:"ticker"`
	Name        string           `json:"name"`
	Placeholder bool             `json:"placeholder"`
	Status      EnrichmentStatus `json:"enrichment_status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Ref returns the identity part of the security.
func (s Security) Ref() SecurityRef {
	return SecurityRef{ID: s.ID, Ticker: s.Ticker, Placeholder: s.Placeholder}
}

// SecurityRef identifies a registry entry a trade links to.
type SecurityRef struct {
	ID          int64  `json:"id"`
	Ticker      string `json:"ticker"`
	Placeholder bool   `json:"placeholder"`
}

// LinkOutcome tags the result of an insert-or-fetch against the registry.
type LinkOutcome string

const (
	LinkCreated  LinkOutcome = "CREATED"
	LinkExisting LinkOutcome = "EXISTING"
)

// IssuerName is one entry of the registry's issuer-name index.
type IssuerName struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// MemberRef identifies a filer in the member registry.
type MemberRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Stub bool   `json:"stub"`
}
