// Package publisher walks a corpus on disk and publishes one ingest event
// per document to Kafka for a remote indexer.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/resilience"
)

const defaultBatchSize = 50

// EventWriter is the subset of kafka.Producer the publisher needs.
type EventWriter interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher turns corpus files into ingest events.
type Publisher struct {
	writer    EventWriter
	batchSize int
	retry     resilience.RetryConfig
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Publisher that writes through w in batches of batchSize
// events. A batchSize of 0 uses the default.
func New(w EventWriter, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Publisher{
		writer:    w,
		batchSize: batchSize,
		retry:     resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond},
		now:       time.Now,
		logger:    slog.Default().With("component", "publisher"),
	}
}

// PublishCorpus publishes every document found under root, skipping names
// that contain any of skip. Events are keyed by document id so all batches
// of one document land on the same partition in order. It returns the
// number of events published.
func (p *Publisher) PublishCorpus(ctx context.Context, root string, skip []string) (int, error) {
	batch := make([]kafka.Event, 0, p.batchSize)
	published := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := resilience.Retry(ctx, "publish-batch", p.retry, func(ctx context.Context) error {
			return p.writer.PublishBatch(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("publishing %d events: %w", len(batch), err)
		}
		published += len(batch)
		batch = batch[:0]
		return nil
	}

	err := ingestion.Walk(root, skip, func(doc ingestion.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := os.ReadFile(doc.Path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", doc.Path, err)
		}
		event := ingestion.IngestEvent{
			DocumentID:     doc.ID,
			Name:           doc.Name,
			Body:           string(body),
			IdempotencyKey: ingestion.ContentKey(doc.ID, string(body)),
			IngestedAt:     p.now().UTC(),
		}
		if err := validator.ValidateEvent(&event); err != nil {
			return fmt.Errorf("document %s: %w", doc.Name, err)
		}
		batch = append(batch, kafka.Event{Key: strconv.FormatUint(doc.ID, 10), Value: event})
		if len(batch) >= p.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return published, err
	}
	if err := flush(); err != nil {
		return published, err
	}
	p.logger.Info("corpus published", "root", root, "documents", published)
	return published, nil
}
