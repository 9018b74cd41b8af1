// Package cache memoizes query results in two tiers: an in-process ristretto
// cache and, when configured, a shared Redis cache. Concurrent misses for the
// same query are collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/resilience"
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "invindex:query:"

type QueryCache struct {
	keyspace string
	local    *ristretto.Cache[string, *executor.SearchResult]
	remote   *pkgredis.Client
	breaker  *resilience.CircuitBreaker
	ttl      time.Duration
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

// New creates a cache holding up to maxCost bytes of results locally. remote
// and m may be nil. generation names the index the results were computed
// against; caches with different generations never share Redis entries.
func New(remote *pkgredis.Client, generation string, ttl time.Duration, maxCost int64, m *metrics.Metrics) (*QueryCache, error) {
	if maxCost <= 0 {
		maxCost = 1 << 20
	}
	local, err := ristretto.NewCache(&ristretto.Config[string, *executor.SearchResult]{
		NumCounters:        maxCost / 8,
		MaxCost:            maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating local query cache: %w", err)
	}
	breaker := resilience.NewCircuitBreaker("redis-query-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		IsFailure:        func(err error) bool { return !pkgredis.IsNilError(err) },
	})
	return &QueryCache{
		keyspace: keyspace(generation),
		local:    local,
		remote:   remote,
		breaker:  breaker,
		ttl:      ttl,
		metrics:  m,
		logger:   slog.Default().With("component", "query-cache"),
	}, nil
}

func (c *QueryCache) Get(ctx context.Context, query string) (*executor.SearchResult, bool) {
	key := c.key(query)
	if result, ok := c.local.Get(key); ok {
		c.hit(query, "local")
		return result, true
	}
	if c.remote != nil {
		var result executor.SearchResult
		err := c.breaker.Execute(func() error {
			return c.remote.GetJSON(ctx, key, &result)
		})
		switch {
		case err == nil:
			c.storeLocal(key, &result)
			c.hit(query, "redis")
			return &result, true
		case errors.Is(err, resilience.ErrCircuitOpen):
		case !pkgredis.IsNilError(err):
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return nil, false
}

func (c *QueryCache) Set(ctx context.Context, query string, result *executor.SearchResult) {
	key := c.key(query)
	c.storeLocal(key, result)
	if c.remote == nil {
		return
	}
	err := c.breaker.Execute(func() error {
		return c.remote.SetJSON(ctx, key, result, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for query or computes, stores and
// returns it. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(c.key(query), func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result of this generation in both tiers.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.local.Clear()
	if c.remote == nil {
		c.logger.Info("cache invalidate", "tier", "local")
		return nil
	}
	deleted, err := c.remote.FlushByPattern(ctx, c.keyspace+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "tier", "redis", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) Close() {
	c.local.Close()
}

func (c *QueryCache) hit(query, tier string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", query, "tier", tier)
}

func (c *QueryCache) storeLocal(key string, result *executor.SearchResult) {
	cost := int64(64 + len(result.Query) + 8*len(result.DocIDs))
	if c.local.SetWithTTL(key, result, cost, c.ttl) {
		c.local.Wait()
	}
}

// Generation builds a cache generation from the index fingerprint and the
// evaluation settings that change results.
func Generation(fingerprint string, sortPostings bool) string {
	if sortPostings {
		return fingerprint + "-sorted"
	}
	return fingerprint + "-stored"
}

func keyspace(generation string) string {
	if generation == "" {
		return keyPrefix
	}
	return keyPrefix + generation + ":"
}

func (c *QueryCache) key(query string) string {
	return buildKey(c.keyspace, query)
}

// buildKey hashes the query with whitespace collapsed. Term order and case
// are kept: both change the result.
func buildKey(keyspace, query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s%x", keyspace, hash[:16])
}
