// Command analytics runs the query analytics aggregator on its own.
//
// It consumes QueryEvents from Kafka, keeps running totals in memory
// (latency percentiles, cache hit rate, zero-match questions, unknown
// terms, top files) and serves them at GET /api/v1/analytics. Snapshots are
// written to the configured SQL store when analytics.snapshotInterval is set.
//
// Usage:
//
//	analytics [-config configs/development.yaml]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	topic := cfg.Kafka.Topics.QueryEvents
	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, topic, analytics.HandleEvent(aggregator))
	go func() {
		if err := aggregator.Run(ctx, consumer); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", topic)

	checker := health.NewChecker()
	if cfg.Analytics.SnapshotInterval > 0 {
		db, driver, err := openSnapshotDB(ctx, cfg)
		if err != nil {
			slog.Error("failed to open snapshot store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := analytics.NewStore(db, driver)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare snapshot store", "error", err)
			os.Exit(1)
		}
		if latest, err := store.LatestSnapshot(ctx); err == nil && latest != nil {
			slog.Info("previous snapshot found", "total_queries", latest.TotalQueries)
		}
		done := store.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		defer func() { <-done }()
		checker.Register("snapshot_store", health.PingCheck(db.PingContext, false))
	}

	analyticsHandler := analytics.NewHandler(aggregator)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("analytics service stopped")
}

// openSnapshotDB uses PostgreSQL when the corpus does, SQLite otherwise.
func openSnapshotDB(ctx context.Context, cfg *config.Config) (*sql.DB, string, error) {
	if cfg.Corpus.Source == config.SourcePostgres {
		client, err := bootstrap.ConnectPostgres(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return client.DB, postgres.DriverName, nil
	}
	db, err := bootstrap.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		return nil, "", err
	}
	return db, "sqlite", nil
}
