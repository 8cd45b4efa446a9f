package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/capitolledger/config"
	"github.com/guttosm/capitolledger/internal/ingestion"
	"github.com/guttosm/capitolledger/internal/normalize"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Workers:                2,
		BatchSize:              10,
		FuzzyThreshold:         85,
		OwnerFuzzyThreshold:    70,
		ReviewConfidenceCutoff: 0.5,
		ReviewUnresolvedOwner:  true,
		SampleSize:             3,
		RegistryTimeout:        time.Second,
		RegistryRetries:        1,
		MemberCacheTTL:         time.Minute,
		CSVDelimiter:           ",",
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDictionary(t *testing.T) {
	builtin, err := loadDictionary("")
	if err != nil || len(builtin) != len(normalize.DefaultCompanies()) {
		t.Fatalf("built-in table: %d %v", len(builtin), err)
	}

	path := writeFile(t, "companies.yaml", "companies:\n  - name: Acme Widgets Holdings\n    ticker: ACME\n")
	merged, err := loadDictionary(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if merged["Acme Widgets Holdings"] != "ACME" || len(merged) != len(builtin)+1 {
		t.Fatalf("file entries not merged: %d", len(merged))
	}

	if _, err := loadDictionary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing dictionary file")
	}
}

func TestNewPipeline_ReviewExport(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	if _, err := NewPipeline(db, testPipelineConfig(), filepath.Join(t.TempDir(), "review.xlsx")); err == nil {
		t.Fatalf("expected error for unsupported export extension")
	}

	out := filepath.Join(t.TempDir(), "review.jsonl")
	p, err := NewPipeline(db, testPipelineConfig(), out)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if p.Orchestrator == nil || p.Backfiller == nil {
		t.Fatalf("pipeline not wired: %+v", p)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("export file not created: %v", err)
	}
}

func TestPipeline_Ingest(t *testing.T) {
	header := "MemberName,DocID,Owner,AssetDescription,Ticker,TransactionType,TransactionDate,NotificationDate,Amount,FilingStatus,Comment\n"

	cases := []struct {
		name      string
		path      func(t *testing.T) string
		wantState string
		wantErr   error
	}{
		{
			name:      "header only",
			path:      func(t *testing.T) string { return writeFile(t, "empty.csv", header) },
			wantState: string(ingestion.StateDone),
		},
		{
			name:      "missing file",
			path:      func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.csv") },
			wantState: string(ingestion.StateError),
			wantErr:   ingestion.ErrSourceUnreadable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock new: %v", err)
			}
			defer db.Close()
			mock.ExpectExec(`INSERT INTO ingestion_runs`).WillReturnResult(sqlmock.NewResult(0, 1))

			p, err := NewPipeline(db, testPipelineConfig(), "")
			if err != nil {
				t.Fatalf("NewPipeline: %v", err)
			}
			reports, err := p.Ingest(context.Background(), []string{tc.path(t)})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want err %v, got %v", tc.wantErr, err)
			}
			if len(reports) != 1 || reports[0].State != tc.wantState || reports[0].Total != 0 {
				t.Fatalf("unexpected reports: %+v", reports)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}
