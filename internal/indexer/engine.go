package indexer

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/btree"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/dump"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/metrics"
)

// Engine owns the index tree for one ingestion run. A single writer calls
// Ingest until Seal; after that the engine is read-only and safe for
// concurrent readers.
type Engine struct {
	tree        *btree.Tree
	cfg         config.IndexConfig
	metrics     *metrics.Metrics
	logger      *slog.Logger
	docLengths  map[uint64]int
	totalTokens int64
	skipped     int64
	sealed      atomic.Bool
}

// EngineStats describes the index after (or during) ingestion.
type EngineStats struct {
	btree.Stats
	Documents     int   `json:"documents"`
	Tokens        int64 `json:"tokens"`
	SkippedTokens int64 `json:"skipped_tokens"`
	Sealed        bool  `json:"sealed"`
}

// NewEngine creates an empty engine. m may be nil.
func NewEngine(cfg config.IndexConfig, m *metrics.Metrics) (*Engine, error) {
	if cfg.Order == 0 {
		cfg.Order = btree.DefaultOrder
	}
	if cfg.TermWidth == 0 {
		cfg.TermWidth = dump.DefaultTermWidth
	}
	tree, err := btree.New(cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("creating index tree: %w", err)
	}
	return &Engine{
		tree:       tree,
		cfg:        cfg,
		metrics:    m,
		logger:     slog.Default().With("component", "indexer"),
		docLengths: make(map[uint64]int),
	}, nil
}

// Ingest inserts the words of one document in order. Words are case-folded
// and numbered from the document's next free position, so a document fed in
// several batches keeps ascending positions. Malformed words are skipped.
// It returns the number of tokens inserted.
func (e *Engine) Ingest(docID uint64, words []string) (int, error) {
	if e.sealed.Load() {
		return 0, fmt.Errorf("ingesting document %d: %w", docID, apperrors.ErrIndexSealed)
	}
	tokens := tokenizer.Tokenize(words)
	offset, seen := e.docLengths[docID]
	splitsBefore := e.tree.Stats().Splits

	for _, tok := range tokens {
		e.tree.Insert(tok.Term, docID, offset+tok.Position)
	}

	e.docLengths[docID] = offset + len(tokens)
	e.totalTokens += int64(len(tokens))
	skipped := len(words) - len(tokens)
	e.skipped += int64(skipped)

	stats := e.tree.Stats()
	if e.metrics != nil {
		if !seen {
			e.metrics.DocsIngestedTotal.Inc()
		}
		e.metrics.TokensIngestedTotal.Add(float64(len(tokens)))
		e.metrics.TokensSkippedTotal.Add(float64(skipped))
		e.metrics.NodeSplitsTotal.Add(float64(stats.Splits - splitsBefore))
		e.metrics.IndexTerms.Set(float64(stats.Terms))
		e.metrics.TreeHeight.Set(float64(stats.Height))
	}
	e.logger.Debug("document ingested",
		"doc_id", docID,
		"token_count", len(tokens),
		"skipped", skipped,
		"terms", stats.Terms,
		"height", stats.Height,
	)
	return len(tokens), nil
}

// MaxWordBytes is the longest single word IngestText accepts. It equals the
// largest document body an ingest event may carry.
const MaxWordBytes = 16 << 20

// IngestText reads whitespace-separated words from r and ingests them as
// document docID. A word longer than MaxWordBytes fails the document.
func (e *Engine) IngestText(docID uint64, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxWordBytes)
	scanner.Split(bufio.ScanWords)
	words := make([]string, 0, 256)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading document %d: %w", docID, err)
	}
	return e.Ingest(docID, words)
}

// Seal ends the write phase. When VerifyOnSeal is set the tree invariants
// are checked first and a violation is returned without sealing.
func (e *Engine) Seal() error {
	if e.cfg.VerifyOnSeal {
		start := time.Now()
		if err := e.tree.Validate(); err != nil {
			e.logger.Error("index validation failed", "error", err)
			return fmt.Errorf("validating index: %w", err)
		}
		e.logger.Info("index validated", "duration", time.Since(start))
	}
	if e.sealed.Swap(true) {
		return nil
	}
	stats := e.tree.Stats()
	e.logger.Info("index sealed",
		"documents", len(e.docLengths),
		"terms", stats.Terms,
		"height", stats.Height,
		"nodes", stats.Nodes,
		"splits", stats.Splits,
	)
	return nil
}

func (e *Engine) Sealed() bool {
	return e.sealed.Load()
}

// Search returns the postings of an already normalized term.
func (e *Engine) Search(term string) (index.View, bool) {
	return e.tree.Search(term)
}

// Walk visits every term in ascending order.
func (e *Engine) Walk(fn func(term string, postings index.View) bool) {
	e.tree.Walk(fn)
}

// WriteDump writes the text dump of the index to w.
func (e *Engine) WriteDump(w io.Writer) (int, error) {
	n, err := dump.Write(w, e.tree, e.cfg.TermWidth)
	e.recordDump(err)
	return n, err
}

// WriteDumpFile atomically writes the text dump to path.
func (e *Engine) WriteDumpFile(path string) (int, error) {
	n, err := dump.WriteFile(path, e.tree, e.cfg.TermWidth)
	e.recordDump(err)
	if err == nil {
		e.logger.Info("index dump written", "path", path, "lines", n)
	}
	return n, err
}

// Fingerprint hashes the index content in dump form. Two engines built from
// the same corpus have the same fingerprint.
func (e *Engine) Fingerprint() string {
	h := sha256.New()
	// hash.Hash writes never fail
	_, _ = dump.Write(h, e.tree, e.cfg.TermWidth)
	return hex.EncodeToString(h.Sum(nil)[:8])
}

func (e *Engine) recordDump(err error) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.DumpsTotal.WithLabelValues(status).Inc()
}

func (e *Engine) DocCount() int {
	return len(e.docLengths)
}

// DocLength returns the number of tokens ingested for docID.
func (e *Engine) DocLength(docID uint64) int {
	return e.docLengths[docID]
}

func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Stats:         e.tree.Stats(),
		Documents:     len(e.docLengths),
		Tokens:        e.totalTokens,
		SkippedTokens: e.skipped,
		Sealed:        e.sealed.Load(),
	}
}
