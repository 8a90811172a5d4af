package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "mine", "run-1")
	levelCtx, level := StartChildSpan(ctx, "level")
	level.SetAttr("level", 1)
	level.End(nil)
	_, inner := StartChildSpan(levelCtx, "count")
	inner.End(errors.New("deadline"))
	root.End(nil)

	require.Len(t, root.Children, 1)
	assert.Equal(t, "run-1", root.Children[0].TraceID)
	require.Len(t, level.Children, 1)
	assert.EqualError(t, inner.Err, "deadline")
	assert.Same(t, level, SpanFromContext(levelCtx))

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	assert.Equal(t, 3, strings.Count(buf.String(), "msg=span"))
	assert.Contains(t, buf.String(), "error=deadline")
}

func TestChildWithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	span.End(nil)
}
