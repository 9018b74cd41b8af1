// Package validator checks ingest events before they reach the index and
// reports per-field failures.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
)

const (
	maxNameLength = 255
	maxBodyLength = 16 << 20
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateEvent checks that the event names a document whose numeric prefix
// matches its id and that the body fits the size limit. An empty body is
// allowed; it indexes nothing.
func ValidateEvent(ev *ingestion.IngestEvent) error {
	errs := make(map[string]string)

	name := strings.TrimSpace(ev.Name)
	switch {
	case name == "":
		errs["name"] = "name is required"
	case len(name) > maxNameLength:
		errs["name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
	default:
		id, err := ingestion.DocIDFromName(name)
		if err != nil {
			errs["name"] = "name must start with the numeric document id"
		} else if id != ev.DocumentID {
			errs["document_id"] = fmt.Sprintf("document_id %d does not match name %q", ev.DocumentID, name)
		}
	}
	if len(ev.IdempotencyKey) > maxNameLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency_key must be at most %d characters", maxNameLength)
	}
	if len(ev.Body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", maxBodyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
