// Package searcher answers boolean term queries against a sealed index,
// going through the query cache and resolving document names from the
// catalog.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/tracing"
)

// Document is one entry of a result list.
type Document struct {
	ID   uint64 `json:"doc_id"`
	Name string `json:"name,omitempty"`
}

// Response is what callers of Search receive.
type Response struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	DocIDs    []uint64       `json:"doc_ids"`
	Documents []Document     `json:"documents"`
	TermStats map[string]int `json:"term_stats,omitempty"`
	CacheHit  bool           `json:"cache_hit"`
	LatencyMs float64        `json:"latency_ms"`
}

// Service wires the executor to the cache and the catalog. cache, docs and
// metrics may be nil.
type Service struct {
	exec    *executor.Executor
	cache   *cache.QueryCache
	docs    catalog.Catalog
	metrics *metrics.Metrics
}

func New(exec *executor.Executor, queryCache *cache.QueryCache, docs catalog.Catalog, m *metrics.Metrics) *Service {
	return &Service{exec: exec, cache: queryCache, docs: docs, metrics: m}
}

// Search parses and evaluates query. A query with no terms yields an empty
// response, not an error.
func (s *Service) Search(ctx context.Context, query string) (*Response, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "searcher")
	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	span.SetAttr("query", query)
	defer func() {
		span.End()
		span.Log(log)
	}()

	_, parseSpan := tracing.StartSpan(ctx, "parse", "")
	plan := parser.Parse(query)
	parseSpan.SetAttr("steps", len(plan.Steps))
	parseSpan.End()
	if len(plan.Steps) == 0 {
		s.record("zero_result", "skipped", 0, start)
		return &Response{Query: query, DocIDs: []uint64{}, Documents: []Document{}}, nil
	}

	var (
		result   *executor.SearchResult
		cacheHit bool
		err      error
	)
	cacheStatus := "disabled"
	_, evalSpan := tracing.StartSpan(ctx, "evaluate", "")
	if s.cache != nil {
		result, cacheHit, err = s.cache.GetOrCompute(ctx, query, func() (*executor.SearchResult, error) {
			return s.exec.Execute(ctx, plan)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = s.exec.Execute(ctx, plan)
	}
	evalSpan.SetAttr("cache_status", cacheStatus)
	evalSpan.End()
	if err != nil {
		s.record("error", cacheStatus, 0, start)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("searching %q: %w", query, apperrors.ErrTimeout)
		}
		return nil, err
	}

	_, namesSpan := tracing.StartSpan(ctx, "resolve_names", "")
	docs, err := s.documents(ctx, result.DocIDs)
	namesSpan.End()
	if err != nil {
		log.Warn("resolving document names failed", "error", err)
	}

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	latency := s.record(resultType, cacheStatus, result.TotalHits, start)
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"cache_hit", cacheHit,
		"latency_ms", latency,
	)

	return &Response{
		Query:     query,
		TotalHits: result.TotalHits,
		DocIDs:    append([]uint64{}, result.DocIDs...),
		Documents: docs,
		TermStats: result.TermStats,
		CacheHit:  cacheHit,
		LatencyMs: latency,
	}, nil
}

// Cache returns the query cache, or nil when caching is disabled.
func (s *Service) Cache() *cache.QueryCache {
	return s.cache
}

func (s *Service) documents(ctx context.Context, ids []uint64) ([]Document, error) {
	out := make([]Document, len(ids))
	for i, id := range ids {
		out[i].ID = id
	}
	if s.docs == nil || len(ids) == 0 {
		return out, nil
	}
	names, err := s.docs.Names(ctx, ids)
	if err != nil {
		return out, err
	}
	for i := range out {
		out[i].Name = names[out[i].ID]
	}
	return out, nil
}

func (s *Service) record(resultType, cacheStatus string, hits int, start time.Time) float64 {
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
		s.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
		s.metrics.QueryResultsCount.Observe(float64(hits))
	}
	return float64(elapsed.Microseconds()) / 1000
}
