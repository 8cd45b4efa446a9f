//go:build integration
// +build integration

package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/capitolledger/internal/linking"
	"github.com/guttosm/capitolledger/internal/quality"
	"github.com/guttosm/capitolledger/internal/storage"
)

// startPostgres spins up a Postgres container and returns a DSN and terminate func.
func startPostgres(t *testing.T) (dsn string, terminate func()) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "capitolledger",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=capitolledger sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", host, port.Port(), "capitolledger")
	terminate = func() { _ = container.Terminate(context.Background()) }
	return dsn, terminate
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return db
}

func runMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("dialect: %v", err)
	}
	// migrations path relative to this test file (internal/ingestion → ../../db/migrations)
	path := filepath.Join("..", "..", "db", "migrations")
	if err := goose.Up(db, path); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
}

func TestIngestion_EndToEnd_Postgres(t *testing.T) {
	dsn, terminate := startPostgres(t)
	defer terminate()
	db := openDB(t, dsn)
	defer db.Close()
	runMigrations(t, db)

	trades := storage.NewTradesRepository(db)
	securities := storage.NewSecurityRegistry(db)
	review := storage.NewReviewQueue(db)
	runs := storage.NewRunLog(db)
	orch := NewOrchestrator(
		trades,
		storage.NewMemberRegistry(db),
		securities,
		linking.NewSecurityLinker(securities, 5*time.Second, 2),
		runs,
		Options{Workers: 2, ReviewSink: quality.NewStoreSink(review), Review: quality.DefaultReviewPolicy()},
	)

	path := writeTempFile(t, t.TempDir(), "ptr.csv", csvHeader+
		`Jane Doe,D1,SP,Apple Inc. - Common Stock (AAPL) [ST],,P,01/15/2024,01/20/2024,"$1,001 - $15,000",New,`+"\n"+
		`Jane Doe,D1,Oracle Corp,Oracle Corporation,ORCL,P,01/17/2024,01/20/2024,"$1,001 - $15,000 abc",New,`+"\n"+
		`Jane Doe,D1,SP,Acme Widgets Holdings,,P,01/18/2024,01/20/2024,"$15,001 - $50,000",New,`+"\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rep, err := orch.Run(ctx, NewCSVSource(path, ','))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Persisted != 3 || rep.AmountFixes != 1 || rep.OwnerUnresolved != 1 || rep.TickerUnresolved != 1 || rep.ReviewItems != 2 {
		t.Fatalf("report: %+v", rep)
	}

	var stored, placeholders int
	if err := db.QueryRow("SELECT COUNT(*) FROM trades WHERE doc_id='D1'").Scan(&stored); err != nil {
		t.Fatalf("count trades: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM securities WHERE placeholder").Scan(&placeholders); err != nil {
		t.Fatalf("count securities: %v", err)
	}
	if stored != 3 || placeholders != 2 {
		t.Fatalf("want 3 trades and 2 placeholders, got %d and %d", stored, placeholders)
	}

	items, err := review.ListReview(ctx, rep.RunID, 10)
	if err != nil || len(items) != 2 {
		t.Fatalf("review queue: %v %d", err, len(items))
	}
	latest, err := runs.LatestRun(ctx)
	if err != nil || latest == nil || latest.RunID != rep.RunID || latest.State != string(StateDone) {
		t.Fatalf("run log: %+v %v", latest, err)
	}

	// second pass only finds duplicates
	again, err := orch.Run(ctx, NewCSVSource(path, ','))
	if err != nil || again.Duplicates != 3 || again.Persisted != 0 {
		t.Fatalf("re-ingestion: %+v %v", again, err)
	}

	// naming the issuer lets the backfill attach the unresolved trade
	bf := linking.NewTradeBackfiller(trades, securities, linking.NewSecurityLinker(securities, 5*time.Second, 2), nil, 85, 2)
	if _, res, err := bf.Enrich(ctx, "ACME", "Acme Widgets Holdings"); err != nil || res.Resolved != 1 {
		t.Fatalf("enrich: %+v %v", res, err)
	}
	left, err := trades.CountUnresolved(ctx)
	if err != nil || left != 0 {
		t.Fatalf("unresolved after backfill: %d %v", left, err)
	}
}
