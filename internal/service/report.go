package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/guttosm/capitolledger/internal/domain/models"
	"github.com/guttosm/capitolledger/internal/storage"
)

// ErrRunNotFound is returned when no run matches the lookup.
var ErrRunNotFound = errors.New("run not found")

const (
	DefaultReviewLimit = 100
	MaxReviewLimit     = 1000
)

// ReportService serves stored run reports and the manual review queue to
// reporting tools. It never mutates the ledger.
type ReportService interface {
	LatestRun(ctx context.Context) (*models.DataQualityReport, error)
	GetRun(ctx context.Context, runID string) (*models.DataQualityReport, error)
	ListReview(ctx context.Context, runID string, limit int) ([]models.ManualReviewItem, error)
	UnresolvedBacklog(ctx context.Context) (int, error)
}

// BacklogCounter counts trades still waiting for a ticker.
type BacklogCounter interface {
	CountUnresolved(ctx context.Context) (int, error)
}

type reportService struct {
	runs    storage.RunLog
	review  storage.ReviewQueue
	backlog BacklogCounter
}

func NewReportService(runs storage.RunLog, review storage.ReviewQueue, backlog BacklogCounter) ReportService {
	return &reportService{runs: runs, review: review, backlog: backlog}
}

func (s *reportService) LatestRun(ctx context.Context) (*models.DataQualityReport, error) {
	rep, err := s.runs.LatestRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	if rep == nil {
		return nil, ErrRunNotFound
	}
	return rep, nil
}

func (s *reportService) GetRun(ctx context.Context, runID string) (*models.DataQualityReport, error) {
	rep, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if rep == nil {
		return nil, ErrRunNotFound
	}
	return rep, nil
}

// ListReview clamps limit to 1..MaxReviewLimit; zero means DefaultReviewLimit.
func (s *reportService) ListReview(ctx context.Context, runID string, limit int) ([]models.ManualReviewItem, error) {
	switch {
	case limit <= 0:
		limit = DefaultReviewLimit
	case limit > MaxReviewLimit:
		limit = MaxReviewLimit
	}
	items, err := s.review.ListReview(ctx, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list review: %w", err)
	}
	return items, nil
}

func (s *reportService) UnresolvedBacklog(ctx context.Context) (int, error) {
	return s.backlog.CountUnresolved(ctx)
}
