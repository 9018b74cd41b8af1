package searcher

import (
	"context"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, withCache bool) (*Service, *metrics.Metrics) {
	t.Helper()
	engine, err := indexer.NewEngine(config.IndexConfig{Order: 3}, nil)
	require.NoError(t, err)
	docs := catalog.NewMemory()
	ctx := context.Background()
	for id, text := range map[uint64]string{1: "hello world", 2: "hello again"} {
		_, err := engine.Ingest(id, strings.Fields(text))
		require.NoError(t, err)
	}
	require.NoError(t, docs.Put(ctx, 1, "1.txt"))
	require.NoError(t, docs.Put(ctx, 2, "2.txt"))
	require.NoError(t, engine.Seal())

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	var qc *cache.QueryCache
	if withCache {
		qc, err = cache.New(nil, "", 0, 1<<16, m)
		require.NoError(t, err)
		t.Cleanup(qc.Close)
	}
	return New(executor.New(engine, true), qc, docs, m), m
}

func TestSearchResolvesNames(t *testing.T) {
	svc, m := newService(t, false)
	resp, err := svc.Search(context.Background(), "hello AND world")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalHits)
	assert.Equal(t, []uint64{1}, resp.DocIDs)
	assert.Equal(t, []Document{{ID: 1, Name: "1.txt"}}, resp.Documents)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("hit")))
}

func TestSearchEmptyAndZeroResult(t *testing.T) {
	svc, m := newService(t, false)
	resp, err := svc.Search(context.Background(), "AND ( )")
	require.NoError(t, err)
	assert.Zero(t, resp.TotalHits)
	assert.Empty(t, resp.Documents)

	resp, err = svc.Search(context.Background(), "world AND again")
	require.NoError(t, err)
	assert.Zero(t, resp.TotalHits)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("zero_result")))
}

func TestSearchUsesCache(t *testing.T) {
	svc, m := newService(t, true)
	ctx := context.Background()
	first, err := svc.Search(ctx, "hello")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.Search(ctx, "hello")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.DocIDs, second.DocIDs)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	require.NotNil(t, svc.Cache())
}

func TestSearchCancelled(t *testing.T) {
	svc, m := newService(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Search(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("error")))
}
