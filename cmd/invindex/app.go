package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/resilience"
)

// loadConfig reads the config file, applies command-line overrides and sets
// up the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if sourcePath != "" {
		cfg.Index.SourcePath = sourcePath
	}
	if dumpPath != "" {
		cfg.Index.DumpPath = dumpPath
	}
	if order != 0 {
		cfg.Index.Order = order
	}
	if verify {
		cfg.Index.VerifyOnSeal = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// newMetrics registers collectors on the default registry when metrics are
// enabled and returns nil otherwise.
func newMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// openCatalog returns the Postgres catalog when a database host is
// configured and an in-memory one otherwise. The cleanup func is never nil.
func openCatalog(ctx context.Context, cfg *config.Config, checker *health.Checker) (catalog.Catalog, func(), error) {
	if cfg.Postgres.Host == "" {
		return catalog.NewMemory(), func() {}, nil
	}
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond},
		func(ctx context.Context) error {
			c, err := postgres.New(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			client = c
			return nil
		})
	if err != nil {
		return nil, nil, fmt.Errorf("opening document catalog: %w", err)
	}
	docs, err := catalog.NewPostgres(ctx, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	if checker != nil {
		checker.Register("postgres", health.PingCheck(client.Ping))
	}
	slog.Info("document catalog in postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	return docs, func() { client.Close() }, nil
}

// buildIndex walks the configured corpus into engine and seals it.
func buildIndex(ctx context.Context, cfg *config.Config, engine *indexer.Engine, docs catalog.Catalog) error {
	if cfg.Index.SourcePath == "" {
		return fmt.Errorf("no corpus path: set index.sourcePath or pass --source")
	}
	start := time.Now()
	slog.Info("document scanning", "source", cfg.Index.SourcePath)

	err := ingestion.Walk(cfg.Index.SourcePath, cfg.Index.SkipPatterns, func(doc ingestion.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(doc.Path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", doc.Path, err)
		}
		defer f.Close()
		if _, err := engine.IngestText(doc.ID, f); err != nil {
			return err
		}
		return docs.Put(ctx, doc.ID, doc.Name)
	})
	if err != nil {
		return fmt.Errorf("indexing corpus: %w", err)
	}
	if err := engine.Seal(); err != nil {
		return err
	}

	stats := engine.Stats()
	slog.Info("inverted indexing complete",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"tokens", stats.Tokens,
		"height", stats.Height,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// newSearchService wires the executor, the optional two-tier cache and the
// catalog. Redis being unreachable only disables the shared tier.
func newSearchService(
	ctx context.Context,
	cfg *config.Config,
	engine *indexer.Engine,
	docs catalog.Catalog,
	m *metrics.Metrics,
	checker *health.Checker,
) (*searcher.Service, func(), error) {
	exec := executor.New(engine, cfg.Query.SortPostings)
	if !cfg.Query.CacheEnabled {
		return searcher.New(exec, nil, docs, m), func() {}, nil
	}

	var remote *pkgredis.Client
	if cfg.Redis.Addr != "" {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using local query cache only", "error", err)
		} else {
			remote = client
			if checker != nil {
				checker.Register("redis", health.PingCheck(client.Ping))
			}
		}
	}
	generation := cache.Generation(engine.Fingerprint(), cfg.Query.SortPostings)
	qc, err := cache.New(remote, generation, cfg.Redis.CacheTTL, cfg.Query.LocalCacheCost, m)
	if err != nil {
		if remote != nil {
			remote.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		qc.Close()
		if remote != nil {
			remote.Close()
		}
	}
	return searcher.New(exec, qc, docs, m), cleanup, nil
}
