// Package ingestion discovers corpus documents on disk and defines the Kafka
// event schema used to feed documents to a remote indexer.
package ingestion

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Document is a corpus file with its numeric id.
type Document struct {
	ID   uint64
	Name string
	Path string
}

// IngestEvent is the Kafka message payload carrying one whole document.
// IdempotencyKey identifies the content; a redelivered event carries the
// same key.
type IngestEvent struct {
	DocumentID     uint64    `json:"document_id"`
	Name           string    `json:"name"`
	Body           string    `json:"body"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	IngestedAt     time.Time `json:"ingested_at"`
}

// ContentKey derives the idempotency key of a document from its id and
// body.
func ContentKey(docID uint64, body string) string {
	sum := sha256.Sum256([]byte(body))
	return fmt.Sprintf("%d-%x", docID, sum[:12])
}

// Key returns the event's idempotency key, deriving it from the content
// when the producer did not set one.
func (e *IngestEvent) Key() string {
	if e.IdempotencyKey != "" {
		return e.IdempotencyKey
	}
	return ContentKey(e.DocumentID, e.Body)
}
