package dto

import "github.com/guttosm/capitolledger/internal/domain/models"

// RunResponse represents the JSON structure returned by the run report endpoints.
//
// UnresolvedBacklog is the number of stored trades still waiting for a ticker across
// all runs, so reporting tools can tell whether backfill is keeping up.
type RunResponse struct {
	Report            models.DataQualityReport `json:"report"`
	UnresolvedBacklog int                      `json:"unresolved_backlog" example:"42"`
}

// ReviewListResponse represents the JSON structure returned by GET /api/v1/review.
type ReviewListResponse struct {
	RunID string                    `json:"run_id,omitempty" example:"6f1c7c8e-8d0a-4a53-9d0e-3f0c1b2a4d5e"`
	Count int                       `json:"count" example:"2"`
	Items []models.ManualReviewItem `json:"items"`
}
