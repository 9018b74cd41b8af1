// Package consumer reads ingest events from Kafka and feeds them to the
// index engine, recording each document name in the catalog.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/kafka"
)

// Runner is the part of kafka.Consumer the index consumer drives.
type Runner interface {
	Start(ctx context.Context) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	runner Runner
	engine *indexer.Engine
	logger *slog.Logger
}

// New creates an IndexConsumer. engine is sealed once consumption ends.
func New(runner Runner, engine *indexer.Engine) *IndexConsumer {
	return &IndexConsumer{
		runner: runner,
		engine: engine,
		logger: slog.Default().With("component", "index-consumer"),
	}
}

// Run consumes until the runner stops, then seals the engine so it can be
// queried and dumped.
func (ic *IndexConsumer) Run(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	if err := ic.runner.Start(ctx); err != nil {
		return fmt.Errorf("consuming ingest events: %w", err)
	}
	if err := ic.engine.Seal(); err != nil {
		return fmt.Errorf("sealing index: %w", err)
	}
	stats := ic.engine.Stats()
	ic.logger.Info("index consumer finished",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"height", stats.Height,
	)
	return nil
}

// HandleMessage returns a Kafka MessageHandler that ingests each event body
// into engine. Undecodable or invalid events are logged and dropped so they
// do not block the partition; a sealed engine is reported as an error.
//
// Every event carries a whole document, so a document id is ingested at most
// once. A redelivery (same idempotency key) is skipped, and a different body
// for an id already indexed is dropped as an idempotency conflict.
func HandleMessage(engine *indexer.Engine, docs catalog.Catalog) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	var (
		mu       sync.Mutex
		ingested = make(map[uint64]string)
	)
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event", "error", err, "key", string(key))
			return nil
		}
		if err := validator.ValidateEvent(&event); err != nil {
			logger.Warn("dropping invalid ingest event",
				"doc_id", event.DocumentID,
				"name", event.Name,
				"error", err,
			)
			return nil
		}

		idemKey := event.Key()
		mu.Lock()
		defer mu.Unlock()
		prev, seen := ingested[event.DocumentID]
		if !seen && engine.DocLength(event.DocumentID) > 0 {
			seen = true
		}
		if seen {
			if prev == idemKey {
				logger.Info("duplicate ingest event skipped",
					"doc_id", event.DocumentID,
					"idempotency_key", idemKey,
				)
				// the first delivery may have failed after indexing
				return docs.Put(ctx, event.DocumentID, event.Name)
			}
			logger.Warn("dropping ingest event for an indexed document",
				"doc_id", event.DocumentID,
				"idempotency_key", idemKey,
				"indexed_key", prev,
				"error", apperrors.ErrIdempotencyConflict,
			)
			return nil
		}

		n, err := engine.IngestText(event.DocumentID, strings.NewReader(event.Body))
		if err != nil {
			if errors.Is(err, apperrors.ErrIndexSealed) {
				return err
			}
			return fmt.Errorf("indexing document %d: %w", event.DocumentID, err)
		}
		ingested[event.DocumentID] = idemKey
		if err := docs.Put(ctx, event.DocumentID, event.Name); err != nil {
			return fmt.Errorf("recording document %d: %w", event.DocumentID, err)
		}

		logger.Info("document indexed",
			"doc_id", event.DocumentID,
			"name", event.Name,
			"tokens", n,
		)
		return nil
	}
}
