// Package handler exposes the query service, term lookups and the index
// dump over HTTP.
package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/logger"
)

type Handler struct {
	search  *searcher.Service
	index   *indexer.Engine
	checker *health.Checker
	logger  *slog.Logger
}

// New creates a Handler. checker may be nil, in which case readiness only
// reflects whether the index is sealed.
func New(svc *searcher.Service, engine *indexer.Engine, checker *health.Checker) *Handler {
	if checker == nil {
		checker = health.NewChecker()
	}
	checker.Register("index", health.IndexCheck(engine.Sealed))
	return &Handler{
		search:  svc,
		index:   engine,
		checker: checker,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/terms/{term}", h.Term)
	mux.HandleFunc("GET /api/v1/index", h.Dump)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", h.checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", h.checker.ReadyHandler())
	return mux
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if !h.index.Sealed() {
		h.writeError(w, http.StatusServiceUnavailable, "index is still being built")
		return
	}

	resp, err := h.search.Search(r.Context(), query)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "query", query, "error", err, "status_code", status)
		h.writeError(w, status, "search failed")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type termResponse struct {
	Term           string          `json:"term"`
	DocumentCount  int             `json:"document_count"`
	TotalFrequency int             `json:"total_frequency"`
	Postings       []index.Posting `json:"postings"`
}

// Term returns the postings of a single term after case folding.
func (h *Handler) Term(w http.ResponseWriter, r *http.Request) {
	term := tokenizer.Normalize(r.PathValue("term"))
	view, ok := h.index.Search(term)
	if !ok {
		err := fmt.Errorf("term %q: %w", term, apperrors.ErrTermNotFound)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, termResponse{
		Term:           term,
		DocumentCount:  view.Len(),
		TotalFrequency: view.TotalFrequency(),
		Postings:       view.Postings(),
	})
}

// Dump streams the text dump of the sealed index.
func (h *Handler) Dump(w http.ResponseWriter, r *http.Request) {
	if !h.index.Sealed() {
		h.writeError(w, http.StatusServiceUnavailable, "index is still being built")
		return
	}
	var buf bytes.Buffer
	if _, err := h.index.WriteDump(&buf); err != nil {
		h.logger.Error("dump failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "dump failed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("failed to write dump", "error", err)
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	qc := h.search.Cache()
	if qc == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := qc.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	qc := h.search.Cache()
	if qc == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := qc.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
