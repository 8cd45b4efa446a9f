package quality

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

var csvHeader = []string{
	"run_id", "doc_id", "row_ordinal", "source_line", "member_name", "raw_owner", "raw_amount",
	"raw_ticker", "asset_description", "attempted_methods", "ticker_confidence", "reasons",
}

// CSVSink writes review items as CSV with a header row.
type CSVSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	header bool
}

func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

func (s *CSVSink) Write(_ context.Context, items []models.ManualReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.header {
		if err := s.w.Write(csvHeader); err != nil {
			return err
		}
		s.header = true
	}
	for _, it := range items {
		methods := make([]string, len(it.AttemptedMethods))
		for i, m := range it.AttemptedMethods {
			methods[i] = string(m)
		}
		rec := []string{
			it.RunID,
			it.DocID,
			strconv.Itoa(it.RowOrdinal),
			strconv.Itoa(it.SourceLine),
			it.MemberName,
			it.RawOwner,
			it.RawAmount,
			it.RawTicker,
			it.AssetDescription,
			strings.Join(methods, "|"),
			strconv.FormatFloat(it.TickerConfidence, 'f', -1, 64),
			strings.Join(it.Reasons, "|"),
		}
		if err := s.w.Write(rec); err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// JSONLinesSink writes one JSON object per review item.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Write(_ context.Context, items []models.ManualReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if err := s.enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// ReviewStore is the persistent review queue.
type ReviewStore interface {
	SaveReviewItems(ctx context.Context, items []models.ManualReviewItem) error
}

// StoreSink writes review items to the review queue table.
type StoreSink struct {
	store ReviewStore
}

func NewStoreSink(store ReviewStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Write(ctx context.Context, items []models.ManualReviewItem) error {
	return s.store.SaveReviewItems(ctx, items)
}

// MultiSink fans items out to every sink, stopping at the first error.
type MultiSink []ReviewSink

func (m MultiSink) Write(ctx context.Context, items []models.ManualReviewItem) error {
	for _, s := range m {
		if err := s.Write(ctx, items); err != nil {
			return err
		}
	}
	return nil
}

// OpenFileSink creates path and returns a sink chosen by extension: ".csv" for CSV,
// ".jsonl" or ".json" for JSON lines. The returned close func must be called.
func OpenFileSink(path string) (ReviewSink, func() error, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".jsonl" && ext != ".json" {
		return nil, nil, fmt.Errorf("review export %s: unsupported extension %q", path, ext)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("review export: %w", err)
	}
	if ext == ".csv" {
		return NewCSVSink(f), f.Close, nil
	}
	return NewJSONLinesSink(f), f.Close, nil
}
