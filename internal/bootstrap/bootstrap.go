// Package bootstrap turns configuration into the corpus source, normaliser
// and pipeline shared by the binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/resilience"
)

const sqliteDriver = "sqlite"

// Source is an opened corpus source. DB and Driver are set for SQL sources.
type Source struct {
	corpus.Source
	DB     *sql.DB
	Driver string
}

// Close releases the database connection, if any.
func (s *Source) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenSource builds the configured source. A non-empty dir forces a
// directory source regardless of corpus.source.
func OpenSource(ctx context.Context, cfg *config.Config, dir string) (*Source, error) {
	if dir != "" {
		return &Source{Source: corpus.NewDirSource(dir)}, nil
	}
	switch cfg.Corpus.Source {
	case config.SourceDir:
		return &Source{Source: corpus.NewDirSource(cfg.Corpus.Dir)}, nil
	case config.SourcePostgres:
		client, err := ConnectPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sqlSource(client.DB, postgres.DriverName, cfg.Corpus.Table)
	case config.SourceSQLite:
		db, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return sqlSource(db, sqliteDriver, cfg.Corpus.Table)
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}

// ConnectPostgres dials PostgreSQL, backing off between attempts as
// configured under connect.
func ConnectPostgres(ctx context.Context, cfg *config.Config) (*postgres.Client, error) {
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres connect", retryConfig(cfg.Connect), func(ctx context.Context) error {
		var err error
		client, err = postgres.New(ctx, cfg.Postgres)
		return err
	})
	return client, err
}

// ConnectRedis dials Redis with the same backoff as ConnectPostgres.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*pkgredis.Client, error) {
	var client *pkgredis.Client
	err := resilience.Retry(ctx, "redis connect", retryConfig(cfg.Connect), func(ctx context.Context) error {
		var err error
		client, err = pkgredis.NewClient(ctx, cfg.Redis)
		return err
	})
	return client, err
}

func retryConfig(c config.ConnectConfig) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  c.Attempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
	}
}

// OpenSQLite opens the SQLite database at path. It is also where analytics
// snapshots go when the corpus lives in a directory.
func OpenSQLite(path string) (*sql.DB, error) {
	return corpus.OpenSQLite(path)
}

func sqlSource(db *sql.DB, driver, table string) (*Source, error) {
	src, err := corpus.NewSQLSource(db, driver, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Source{Source: src, DB: db, Driver: driver}, nil
}

func NewNormalizer(cfg config.NormalizerConfig) *normalizer.Normalizer {
	return normalizer.New(normalizer.Options{
		Stem:           cfg.Stem,
		ExtraStopwords: cfg.ExtraStopwords,
	})
}

// NewPipeline builds a pipeline from the ranking settings. m may be nil.
func NewPipeline(cfg *config.Config, m *metrics.Metrics) *pipeline.Pipeline {
	return pipeline.New(NewNormalizer(cfg.Normalizer), pipeline.Config{
		FileMatches:     cfg.Ranking.FileMatches,
		SentenceMatches: cfg.Ranking.SentenceMatches,
		Workers:         cfg.Ranking.Workers,
	}, m)
}
