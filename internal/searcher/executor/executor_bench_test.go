package executor

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
)

// BenchmarkQueryParse measures query parsing latency for queries of varying
// complexity.
func BenchmarkQueryParse(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"simple", "distributed systems"},
		{"boolean_and", "search AND analytics AND platform"},
		{"boolean_or", "indexing OR caching OR ranking"},
		{"parens", "( search AND ranking ) OR analytics"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = parser.Parse(q.query)
			}
		})
	}
}

// BenchmarkEvaluate measures AND/OR evaluation over posting lists of
// growing size, sorted and in ingestion order.
func BenchmarkEvaluate(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		e, err := indexer.NewEngine(config.IndexConfig{}, nil)
		if err != nil {
			b.Fatal(err)
		}
		for i := 0; i < numDocs; i++ {
			words := []string{"search"}
			if i%2 == 0 {
				words = append(words, "even")
			}
			if i%3 == 0 {
				words = append(words, "third")
			}
			if _, err := e.Ingest(uint64(numDocs-i), words); err != nil {
				b.Fatal(err)
			}
		}
		if err := e.Seal(); err != nil {
			b.Fatal(err)
		}
		plan := parser.Parse("search AND even OR third")
		for _, sorted := range []bool{true, false} {
			ex := New(e, sorted)
			b.Run(fmt.Sprintf("docs_%d_sorted_%t", numDocs, sorted), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = ex.Evaluate(plan)
				}
			})
		}
	}
}
