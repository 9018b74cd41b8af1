package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "req-1")
	cctx, parse := StartSpan(ctx, "parse", "ignored")
	parse.SetAttr("steps", 3)
	parse.End()
	_, eval := StartSpan(ctx, "evaluate", "")
	eval.End()
	root.End()

	assert.Same(t, parse, SpanFromContext(cctx))
	require.Len(t, root.Children, 2)
	assert.Equal(t, "req-1", root.Children[0].TraceID)
	assert.Equal(t, "evaluate", root.Children[1].Name)
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestSpanLogRespectsLevel(t *testing.T) {
	_, root := StartSpan(context.Background(), "search", "req-2")
	root.SetAttr("query", "a AND b")
	root.End()

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	assert.Empty(t, buf.String())

	root.Log(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "req-2", rec["trace_id"])
	assert.Equal(t, "a AND b", rec["query"])
}
