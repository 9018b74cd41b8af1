package indexer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, order int) (*Engine, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	e, err := NewEngine(config.IndexConfig{Order: order, VerifyOnSeal: true}, m)
	require.NoError(t, err)
	return e, m
}

func TestIngestRoundTripOfCounts(t *testing.T) {
	e, _ := newTestEngine(t, 71)
	n, err := e.Ingest(1, []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	a, ok := e.Search("a")
	require.True(t, ok)
	assert.Equal(t, index.PostingList{{DocID: 1, Frequency: 2, Positions: []int{1, 3}}}, a.Postings())
	b, ok := e.Search("b")
	require.True(t, ok)
	assert.Equal(t, index.PostingList{{DocID: 1, Frequency: 1, Positions: []int{2}}}, b.Postings())
}

func TestIngestCaseFolding(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	_, err := e.Ingest(1, []string{"Hello", "hello"})
	require.NoError(t, err)
	_, err = e.Ingest(2, []string{"HELLO"})
	require.NoError(t, err)

	assert.Equal(t, 1, e.Stats().Terms)
	v, ok := e.Search("hello")
	require.True(t, ok)
	assert.Equal(t, []uint64{1, 2}, v.DocIDs())
	_, ok = e.Search("Hello")
	assert.False(t, ok)
}

func TestIngestContinuesPositionsForSameDocument(t *testing.T) {
	e, _ := newTestEngine(t, 5)
	_, err := e.Ingest(4, []string{"x", "y"})
	require.NoError(t, err)
	_, err = e.Ingest(4, []string{"x"})
	require.NoError(t, err)

	v, _ := e.Search("x")
	p, ok := v.Posting(4)
	require.True(t, ok)
	assert.Equal(t, []int{1, 3}, p.Positions)
	assert.Equal(t, 3, e.DocLength(4))
	assert.Equal(t, 1, e.DocCount())
	require.NoError(t, e.Seal())
}

func TestIngestSkipsMalformedTokens(t *testing.T) {
	e, m := newTestEngine(t, 5)
	n, err := e.Ingest(1, []string{"", "\x00\x01", "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, _ := e.Search("ok")
	p, _ := v.Posting(1)
	assert.Equal(t, []int{1}, p.Positions)
	assert.Equal(t, int64(2), e.Stats().SkippedTokens)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensSkippedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIngestedTotal))
}

func TestIngestTextAndMetrics(t *testing.T) {
	e, m := newTestEngine(t, 3)
	text := "one two three four five six seven eight nine ten"
	n, err := e.IngestText(1, strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	stats := e.Stats()
	assert.Equal(t, 10, stats.Terms)
	assert.Greater(t, stats.Height, 1)
	assert.Equal(t, float64(stats.Splits), testutil.ToFloat64(m.NodeSplitsTotal))
	assert.Equal(t, float64(stats.Height), testutil.ToFloat64(m.TreeHeight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsIngestedTotal))
}

func TestSealRejectsWrites(t *testing.T) {
	e, _ := newTestEngine(t, 5)
	_, err := e.Ingest(1, []string{"hello"})
	require.NoError(t, err)
	require.NoError(t, e.Seal())
	require.NoError(t, e.Seal())
	assert.True(t, e.Sealed())

	_, err = e.Ingest(2, []string{"world"})
	assert.ErrorIs(t, err, apperrors.ErrIndexSealed)
	_, ok := e.Search("world")
	assert.False(t, ok)
}

func TestWriteDump(t *testing.T) {
	e, m := newTestEngine(t, 3)
	_, err := e.Ingest(1, strings.Fields("hello world"))
	require.NoError(t, err)
	_, err = e.Ingest(2, strings.Fields("hello again"))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := e.WriteDump(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t,
		"again               <2, 1, 2>\n"+
			"hello               <1, 1, 1><2, 1, 1>\n"+
			"world               <1, 1, 2>\n",
		buf.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DumpsTotal.WithLabelValues("success")))
}

func TestFingerprintFollowsContent(t *testing.T) {
	a, _ := newTestEngine(t, 3)
	b, _ := newTestEngine(t, 5)
	for _, e := range []*Engine{a, b} {
		_, err := e.Ingest(1, strings.Fields("hello world"))
		require.NoError(t, err)
	}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)

	_, err := b.Ingest(2, strings.Fields("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestIngestTextAcceptsLongWord(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	long := strings.Repeat("a", 2<<20)
	n, err := e.IngestText(1, strings.NewReader("x "+long+" y"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, ok := e.Search(long)
	assert.True(t, ok)
}

func TestNewEngineRejectsEvenOrder(t *testing.T) {
	_, err := NewEngine(config.IndexConfig{Order: 8}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)
}

func BenchmarkEngineIngestDefaultOrder(b *testing.B) {
	words := strings.Fields("this is a benchmark document with several terms for testing the indexing performance of the b-tree index")
	e, _ := NewEngine(config.IndexConfig{}, nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Ingest(uint64(i), words)
	}
}
