package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"term not found", ErrTermNotFound, http.StatusNotFound},
		{"wrapped document not found", fmt.Errorf("lookup 7: %w", ErrDocumentNotFound), http.StatusNotFound},
		{"bad order", fmt.Errorf("config: %w", ErrInvalidOrder), http.StatusBadRequest},
		{"sealed", ErrIndexSealed, http.StatusConflict},
		{"idempotency conflict", ErrIdempotencyConflict, http.StatusConflict},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"invariant", ErrStructuralInvariant, http.StatusInternalServerError},
		{"app error wins", New(ErrInvalidInput, http.StatusTeapot, "short and stout"), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "query %q is empty", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, `invalid input: query "" is empty`, err.Error())
}
