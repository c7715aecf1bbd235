// Command qaserver serves corpus question answering over HTTP.
//
// Usage:
//
//	qaserver [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/handler"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/resilience"
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
	slog.Info("starting qa server", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	src, err := bootstrap.OpenSource(ctx, cfg, "")
	if err != nil {
		slog.Error("failed to open corpus source", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	p := bootstrap.NewPipeline(cfg, m)
	holder := pipeline.NewHolder(p, src)
	prep, err := holder.Reload(ctx)
	if err != nil {
		slog.Error("initial corpus load failed", "error", err)
		os.Exit(1)
	}
	m.CorpusDocuments.Set(float64(prep.Files.Len()))

	var answerCache *cache.AnswerCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = bootstrap.ConnectRedis(ctx, cfg)
		if err != nil {
			slog.Warn("redis unavailable, answer caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			store := cache.NewBreakerStore(redisClient, resilience.BreakerConfig{
				FailureThreshold: cfg.Redis.BreakerThreshold,
				ResetTimeout:     cfg.Redis.BreakerReset,
			})
			answerCache = cache.New(store, cfg.Redis.CacheTTL)
			slog.Info("answer cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var collector *analytics.Collector
	var aggregator *analytics.Aggregator
	if cfg.Analytics.Enabled {
		topic := cfg.Kafka.Topics.QueryEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize, m)
		collector.Start(ctx)
		defer collector.Close()

		aggregator = analytics.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, topic, analytics.HandleEvent(aggregator))
		go func() {
			if err := aggregator.Run(ctx, consumer); err != nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
		snapshotsDone, closeSnapshots := startSnapshots(ctx, cfg, src, aggregator)
		defer closeSnapshots()
		defer func() { <-snapshotsDone }()
		slog.Info("analytics enabled", "topic", topic)
	}

	checker := health.NewChecker()
	checker.Register("corpus", health.PingCheck(holder.Ping, true))
	if src.DB != nil {
		checker.Register("corpus_db", health.PingCheck(src.DB.PingContext, false))
	}
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
	}

	h := handler.New(p, holder, answerCache, collector, m, handler.Limits{
		MaxFileMatches:     cfg.Ranking.MaxFileMatches,
		MaxSentenceMatches: cfg.Ranking.MaxSentenceMatches,
	})
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/answer", h.Answer)
	mux.HandleFunc("POST /api/v1/corpus/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		go sweepLimiter(ctx, limiter)
		chain = middleware.RateLimit(limiter, m)(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	}
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

	slog.Info("qa server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// Shutdown returns once in-flight requests finish; only then is it safe
	// to run the deferred collector and cache cleanup.
	<-shutdownDone
	slog.Info("qa server stopped")
}

// startSnapshots persists aggregated stats next to the corpus: in its
// database for SQL sources, otherwise in the configured SQLite file. The
// returned channel closes once the final snapshot is written.
func startSnapshots(ctx context.Context, cfg *config.Config, src *bootstrap.Source, agg *analytics.Aggregator) (<-chan struct{}, func()) {
	disabled := make(chan struct{})
	close(disabled)
	noop := func() {}
	if cfg.Analytics.SnapshotInterval <= 0 {
		return disabled, noop
	}
	db, driver, closeDB := src.DB, src.Driver, noop
	if db == nil {
		sqlite, err := bootstrap.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
			return disabled, noop
		}
		db, driver = sqlite, "sqlite"
		closeDB = func() { _ = sqlite.Close() }
	}
	store := analytics.NewStore(db, driver)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("analytics snapshots disabled", "error", err)
		closeDB()
		return disabled, noop
	}
	return store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval), closeDB
}

func sweepLimiter(ctx context.Context, l *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				slog.Debug("rate limiter swept idle clients", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
