package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventKey(t *testing.T) {
	ev := IngestEvent{DocumentID: 7, Name: "7.txt", Body: "a b"}
	assert.Equal(t, ContentKey(7, "a b"), ev.Key())
	assert.NotEqual(t, ContentKey(7, "a b"), ContentKey(8, "a b"))
	assert.NotEqual(t, ContentKey(7, "a b"), ContentKey(7, "a c"))

	ev.IdempotencyKey = "custom"
	assert.Equal(t, "custom", ev.Key())
}
