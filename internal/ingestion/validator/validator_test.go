package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  ingestion.IngestEvent
		fields []string
	}{
		{"valid", ingestion.IngestEvent{DocumentID: 3, Name: "3.txt", Body: "hello"}, nil},
		{"empty body ok", ingestion.IngestEvent{DocumentID: 3, Name: "3.txt"}, nil},
		{"missing name", ingestion.IngestEvent{DocumentID: 3, Body: "x"}, []string{"name"}},
		{"non numeric name", ingestion.IngestEvent{DocumentID: 3, Name: "notes.txt"}, []string{"name"}},
		{"id mismatch", ingestion.IngestEvent{DocumentID: 4, Name: "3.txt"}, []string{"document_id"}},
		{"long name", ingestion.IngestEvent{DocumentID: 1, Name: "1." + strings.Repeat("a", 300)}, []string{"name"}},
		{"long idempotency key", ingestion.IngestEvent{DocumentID: 1, Name: "1.txt", IdempotencyKey: strings.Repeat("k", 256)}, []string{"idempotency_key"}},
		{"huge body", ingestion.IngestEvent{DocumentID: 1, Name: "1.txt", Body: strings.Repeat("a", maxBodyLength+1)}, []string{"body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEvent(&tt.event)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}
