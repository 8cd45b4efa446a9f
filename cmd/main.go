package main

//
//  @title           capitolledger API
//  @version         1.0
//  @description     Congressional financial-disclosure ingestion: run reports and manual review queue.
//  @termsOfService  https://github.com/guttosm/capitolledger
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/capitolledger
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        runs
//  @tag.description Ingestion run reports
//
//  @tag.name        review
//  @tag.description Manual review queue
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guttosm/capitolledger/config"
	_ "github.com/guttosm/capitolledger/docs" // swagger docs
	"github.com/guttosm/capitolledger/internal/app"
	"github.com/guttosm/capitolledger/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// splitSources turns a comma-separated --source value plus positional args into a path list.
func splitSources(flagValue string, args []string) []string {
	var out []string
	for _, p := range append(strings.Split(flagValue, ","), args...) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// main is the entry point of the capitolledger application.
//
// Modes (selected via --mode flag):
//   - ingest:   Loads disclosure files (.csv/.tsv exports or .txt page text) into the ledger.
//   - backfill: Re-resolves trades stored without a ticker.
//   - enrich:   Names a placeholder security (--ticker, --name) and backfills its trades.
//   - migrate:  Applies database migrations.
//   - api:      Starts the ops API serving run reports and the review queue.
//
// Flags:
//   - --mode:       Execution mode. Default: "ingest".
//   - --source:     Comma-separated input files; extra positional args are added.
//   - --review-out: Optional .csv/.jsonl file receiving review items.
//   - --ticker:     Ticker to enrich (enrich mode).
//   - --name:       Issuer name to attach (enrich mode).
//   - --migrations: Migrations directory. Default: "./db/migrations".
//   - --port:       Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "ingest", "Mode: ingest, backfill, enrich, migrate or api")
	source := flag.String("source", "", "Comma-separated disclosure files to ingest")
	reviewOut := flag.String("review-out", "", "Also write review items to this .csv or .jsonl file")
	ticker := flag.String("ticker", "", "Ticker to enrich (enrich mode)")
	name := flag.String("name", "", "Issuer name for the ticker (enrich mode)")
	migrations := flag.String("migrations", "./db/migrations", "Directory with goose migrations")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	if *mode == "api" {
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(context.Background(), server, cleanup)
		return
	}

	// batch modes stop on the first signal; committed rows stay committed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.InitPostgres(config.AppConfig)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("db connect error")
	}
	defer func() { _ = db.Close() }()

	if *mode == "migrate" {
		if err := app.Migrate(db, *migrations); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Str("dir", *migrations).Msg("migrations applied")
		return
	}

	pipeline, err := app.NewPipeline(db, config.AppConfig.Pipeline, *reviewOut)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("pipeline init error")
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.L().Error().Err(err).Msg("close review export")
		}
	}()

	switch *mode {
	case "ingest":
		paths := splitSources(*source, flag.Args())
		if len(paths) == 0 {
			logger.L().Fatal().Msg("ingest needs --source or file arguments")
		}
		logger.L().Info().Strs("sources", paths).Msg("running ingestion")

		reports, err := pipeline.Ingest(ctx, paths)
		for _, rep := range reports {
			logger.L().Info().
				Str("run_id", rep.RunID).
				Str("source", rep.Source).
				Str("state", rep.State).
				Int("total", rep.Total).
				Int("persisted", rep.Persisted).
				Int("duplicates", rep.Duplicates).
				Int("ticker_unresolved", rep.TickerUnresolved).
				Int("review_items", rep.ReviewItems).
				Msg("run report")
		}
		if err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}
		logger.L().Info().Msg("ingestion completed successfully")

	case "backfill":
		res, err := pipeline.Backfiller.Sweep(ctx)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("backfill failed")
		}
		logger.L().Info().Int("scanned", res.Scanned).Int("resolved", res.Resolved).
			Int("unresolved", res.Unresolved).Int("timed_out", res.TimedOut).Msg("backfill completed")

	case "enrich":
		if strings.TrimSpace(*ticker) == "" || strings.TrimSpace(*name) == "" {
			logger.L().Fatal().Msg("enrich needs --ticker and --name")
		}
		sec, res, err := pipeline.Backfiller.Enrich(ctx, *ticker, *name)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("enrich failed")
		}
		logger.L().Info().Str("ticker", sec.Ticker).Str("name", sec.Name).
			Int("resolved", res.Resolved).Msg("security enriched")

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
