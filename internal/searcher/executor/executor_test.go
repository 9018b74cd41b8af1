package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	id   uint64
	text string
}

func newEngine(t *testing.T, docs ...doc) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(config.IndexConfig{Order: 3}, nil)
	require.NoError(t, err)
	for _, d := range docs {
		_, err := e.Ingest(d.id, strings.Fields(d.text))
		require.NoError(t, err)
	}
	require.NoError(t, e.Seal())
	return e
}

func TestBooleanScenarios(t *testing.T) {
	e := newEngine(t, doc{1, "hello world"}, doc{2, "hello again"})
	for _, sorted := range []bool{true, false} {
		ex := New(e, sorted)
		tests := []struct {
			query string
			want  []uint64
		}{
			{"hello AND world", []uint64{1}},
			{"hello", []uint64{1, 2}},
			{"hello OR missingterm", []uint64{1, 2}},
			{"missingterm", []uint64{}},
			{"hello AND missingterm", []uint64{1, 2}},
			{"world OR again", []uint64{1, 2}},
			{"hello hello", []uint64{1, 2, 1, 2}},
			{"hello OR world", []uint64{1, 2}},
			{"( hello AND again )", []uint64{2}},
			{"Hello AND World", []uint64{1}},
			{"world AND again", []uint64{}},
			{"AND hello", []uint64{}},
			{"", []uint64{}},
		}
		for _, tt := range tests {
			got := ex.Evaluate(parser.Parse(tt.query))
			assert.Equal(t, tt.want, got, "sorted=%v query=%q", sorted, tt.query)
		}
	}
}

func TestOutOfOrderIngestion(t *testing.T) {
	// "x" is first seen in doc 3, "y" in doc 1.
	e, err := indexer.NewEngine(config.IndexConfig{Order: 3}, nil)
	require.NoError(t, err)
	_, err = e.Ingest(3, []string{"x"})
	require.NoError(t, err)
	_, err = e.Ingest(1, []string{"x", "y"})
	require.NoError(t, err)
	_, err = e.Ingest(3, []string{"y"})
	require.NoError(t, err)

	plan := parser.Parse("x AND y")
	assert.Equal(t, []uint64{1, 3}, New(e, true).Evaluate(plan))
	assert.Equal(t, []uint64{3}, New(e, false).Evaluate(plan))

	assert.Equal(t, []uint64{1, 3}, New(e, true).Evaluate(parser.Parse("x")))
	assert.Equal(t, []uint64{3, 1}, New(e, false).Evaluate(parser.Parse("x")))
}

func TestConcatenationIsSortedBeforeMerge(t *testing.T) {
	e := newEngine(t, doc{1, "hello world"}, doc{2, "hello again"})
	plan := parser.Parse("again world AND hello")
	assert.Equal(t, []uint64{1, 2}, New(e, true).Evaluate(plan))
	assert.Equal(t, []uint64{2}, New(e, false).Evaluate(plan))
}

func TestExecute(t *testing.T) {
	e := newEngine(t, doc{1, "hello world"}, doc{2, "hello again"})
	res, err := New(e, true).Execute(context.Background(), parser.Parse("hello AND world OR nothing"))
	require.NoError(t, err)
	assert.Equal(t, "hello AND world OR nothing", res.Query)
	assert.Equal(t, []uint64{1}, res.DocIDs)
	assert.Equal(t, 1, res.TotalHits)
	assert.Equal(t, map[string]int{"hello": 2, "world": 1}, res.TermStats)
}

func TestExecuteCancelled(t *testing.T) {
	e := newEngine(t, doc{1, "hello"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(e, true).Execute(ctx, parser.Parse("hello"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMerges(t *testing.T) {
	assert.Equal(t, []uint64{2, 2, 5}, intersectSorted([]uint64{1, 2, 2, 2, 5}, []uint64{2, 2, 3, 5}))
	assert.Equal(t, []uint64{1, 2, 2, 2, 3, 5}, unionSorted([]uint64{1, 2, 2, 2, 5}, []uint64{2, 2, 3, 5}))
	assert.Empty(t, intersectSorted(nil, []uint64{1}))
	assert.Equal(t, []uint64{1}, unionSorted(nil, []uint64{1}))
}
