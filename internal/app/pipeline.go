package app

import (
	"context"
	"database/sql"
	"fmt"

	goose "github.com/pressly/goose/v3"

	"github.com/guttosm/capitolledger/config"
	"github.com/guttosm/capitolledger/internal/domain/models"
	"github.com/guttosm/capitolledger/internal/ingestion"
	"github.com/guttosm/capitolledger/internal/linking"
	"github.com/guttosm/capitolledger/internal/normalize"
	"github.com/guttosm/capitolledger/internal/quality"
	"github.com/guttosm/capitolledger/internal/storage"
)

// Pipeline bundles the stores, orchestrator and backfiller used by the batch modes.
type Pipeline struct {
	Trades       storage.TradesRepository
	Securities   storage.SecurityRegistry
	Runs         storage.RunLog
	Review       storage.ReviewQueue
	Orchestrator *ingestion.Orchestrator
	Backfiller   *linking.TradeBackfiller

	comma   rune
	closers []func() error
}

// loadDictionary merges the optional YAML file over the built-in company table.
func loadDictionary(path string) (map[string]string, error) {
	dict := normalize.DefaultCompanies()
	if path == "" {
		return dict, nil
	}
	extra, err := normalize.LoadDictionaryFile(path)
	if err != nil {
		return nil, err
	}
	for name, ticker := range extra {
		dict[name] = ticker
	}
	return dict, nil
}

// NewPipeline wires the ingestion pipeline on top of db.
//
// Parameters:
//   - db (*sql.DB): an open, migrated database.
//   - cfg (config.PipelineConfig): tuning loaded from the environment.
//   - reviewOut (string): optional .csv/.jsonl path; review items are written there
//     in addition to the review_queue table.
//
// Returns:
//   - *Pipeline: ready to ingest; Close must be called to flush the export file.
//   - error: when the dictionary or the export file cannot be opened.
func NewPipeline(db *sql.DB, cfg config.PipelineConfig, reviewOut string) (*Pipeline, error) {
	dict, err := loadDictionary(cfg.CompanyDictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("company dictionary: %w", err)
	}

	p := &Pipeline{
		Trades:     storage.NewTradesRepository(db),
		Securities: storage.NewSecurityRegistry(db),
		Runs:       storage.NewRunLog(db),
		Review:     storage.NewReviewQueue(db),
		comma:      cfg.Comma(),
	}

	sink := quality.MultiSink{quality.NewStoreSink(p.Review)}
	if reviewOut != "" {
		fileSink, closeFn, err := quality.OpenFileSink(reviewOut)
		if err != nil {
			return nil, err
		}
		sink = append(sink, fileSink)
		p.closers = append(p.closers, closeFn)
	}

	linker := linking.NewSecurityLinker(p.Securities, cfg.RegistryTimeout, cfg.RegistryRetries)
	p.Orchestrator = ingestion.NewOrchestrator(
		p.Trades,
		storage.NewMemberRegistry(db),
		p.Securities,
		linker,
		p.Runs,
		ingestion.Options{
			Workers:        cfg.Workers,
			BatchSize:      cfg.BatchSize,
			FuzzyThreshold: cfg.FuzzyThreshold,
			OwnerThreshold: cfg.OwnerFuzzyThreshold,
			SampleSize:     cfg.SampleSize,
			Dictionary:     dict,
			Review: quality.ReviewPolicy{
				ConfidenceCutoff: cfg.ReviewConfidenceCutoff,
				UnresolvedOwner:  cfg.ReviewUnresolvedOwner,
			},
			ReviewSink:     sink,
			MemberCacheTTL: cfg.MemberCacheTTL,
		},
	)
	p.Backfiller = linking.NewTradeBackfiller(p.Trades, p.Securities, linker, dict, cfg.FuzzyThreshold, cfg.Workers)
	return p, nil
}

// Ingest runs every path through the orchestrator in order and stops at the first
// failed run.
func (p *Pipeline) Ingest(ctx context.Context, paths []string) ([]models.DataQualityReport, error) {
	sources := make([]ingestion.Source, 0, len(paths))
	for _, path := range paths {
		sources = append(sources, ingestion.OpenSource(path, p.comma))
	}
	return p.Orchestrator.RunAll(ctx, sources)
}

// Close releases the review export file, if any.
func (p *Pipeline) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}

// Migrate applies every pending goose migration found in dir.
func Migrate(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
