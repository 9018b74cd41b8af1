package publisher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	batches [][]kafka.Event
	calls   int
	err     error
}

func (r *recordingWriter) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, append([]kafka.Event(nil), events...))
	return nil
}

func corpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
	return root
}

func TestPublishCorpusBatches(t *testing.T) {
	root := corpus(t, map[string]string{
		"1.txt":     "red fish",
		"2.txt":     "blue fish",
		"3.txt":     "one fish",
		"index.txt": "ignored",
	})
	w := &recordingWriter{}
	p := New(w, 2)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	n, err := p.PublishCorpus(context.Background(), root, []string{"index.txt"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, w.batches, 2)
	assert.Len(t, w.batches[0], 2)
	assert.Len(t, w.batches[1], 1)

	first := w.batches[0][0]
	assert.Equal(t, "1", first.Key)
	ev, ok := first.Value.(ingestion.IngestEvent)
	require.True(t, ok)
	assert.Equal(t, ingestion.IngestEvent{
		DocumentID:     1,
		Name:           "1.txt",
		Body:           "red fish",
		IdempotencyKey: ingestion.ContentKey(1, "red fish"),
		IngestedAt:     fixed,
	}, ev)
}

func TestPublishCorpusWriterError(t *testing.T) {
	root := corpus(t, map[string]string{"1.txt": "a"})
	boom := errors.New("broker down")
	w := &recordingWriter{err: boom}
	p := New(w, 0)
	p.retry.InitialDelay = time.Millisecond
	n, err := p.PublishCorpus(context.Background(), root, nil)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Equal(t, 3, w.calls)
}

func TestPublishCorpusCancelled(t *testing.T) {
	root := corpus(t, map[string]string{"1.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&recordingWriter{}, 0).PublishCorpus(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
