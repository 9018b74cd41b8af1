package executor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/parser"
)

type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	DocIDs    []uint64       `json:"doc_ids"`
	TermStats map[string]int `json:"term_stats"`
}

// Lookup finds the postings of a normalized term. *indexer.Engine and
// *btree.Tree satisfy it.
type Lookup interface {
	Search(term string) (index.View, bool)
}

// Executor evaluates query plans strictly left to right against a Lookup.
//
// AND and OR are merges over ascending document ids. With sortPostings set,
// candidate lists and the running result are sorted before merging, so the
// outcome does not depend on ingestion order. Without it, posting-store order
// is used as is and results are only exact when documents were ingested in
// ascending id order.
type Executor struct {
	lookup       Lookup
	sortPostings bool
	logger       *slog.Logger
}

func New(lookup Lookup, sortPostings bool) *Executor {
	return &Executor{
		lookup:       lookup,
		sortPostings: sortPostings,
		logger:       slog.Default().With("component", "query-executor"),
	}
}

// Evaluate returns the matching document ids. The result may hold
// duplicates when terms are combined without an operator.
func (e *Executor) Evaluate(plan *parser.QueryPlan) []uint64 {
	result, _ := e.evaluate(context.Background(), plan, nil)
	return result
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan) (*SearchResult, error) {
	termStats := make(map[string]int, len(plan.Steps))
	result, err := e.evaluate(ctx, plan, termStats)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms(),
		"results", len(result),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: len(result),
		DocIDs:    result,
		TermStats: termStats,
	}, nil
}

func (e *Executor) evaluate(ctx context.Context, plan *parser.QueryPlan, termStats map[string]int) ([]uint64, error) {
	result := make([]uint64, 0)
	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", plan.RawQuery, err)
		}
		postings, ok := e.lookup.Search(step.Term)
		if !ok {
			continue
		}
		candidates := postings.DocIDs()
		if termStats != nil {
			termStats[step.Term] = len(candidates)
		}
		if e.sortPostings {
			slices.Sort(candidates)
		}

		switch step.Combine {
		case parser.CombineAND:
			result = intersectSorted(e.ordered(result), candidates)
		case parser.CombineOR:
			result = unionSorted(e.ordered(result), candidates)
		default:
			result = append(result, candidates...)
		}
	}
	return result, nil
}

// ordered returns the running result ready for a merge. Concatenation may
// have left it unsorted.
func (e *Executor) ordered(result []uint64) []uint64 {
	if !e.sortPostings || slices.IsSorted(result) {
		return result
	}
	sorted := slices.Clone(result)
	slices.Sort(sorted)
	return sorted
}

// intersectSorted keeps each id as many times as it occurs in both inputs.
func intersectSorted(a, b []uint64) []uint64 {
	out := make([]uint64, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case b[j] < a[i]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// unionSorted keeps each id as many times as it occurs in the larger input.
func unionSorted(a, b []uint64) []uint64 {
	out := make([]uint64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
