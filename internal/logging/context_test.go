package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", WorkflowID(ctx))
	assert.Equal(t, "", SessionID(ctx))
	assert.Equal(t, "", NodeID(ctx))

	ctx = WithWorkflowID(ctx, "wf-123")
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithNodeID(ctx, "node-9")

	assert.Equal(t, "wf-123", WorkflowID(ctx))
	assert.Equal(t, "sess-1", SessionID(ctx))
	assert.Equal(t, "node-9", NodeID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithSessionID(WithWorkflowID(context.Background(), "wf-abc"), "sess-x")
	LogWith(ctx, logger).Info("test message")

	out := buf.String()
	assert.Contains(t, out, "workflow_id=wf-abc")
	assert.Contains(t, out, "session_id=sess-x")
	assert.NotContains(t, out, "node_id")
	assert.Contains(t, out, "test message")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelDebug)

	ctx := WithNodeID(context.Background(), "n-1")
	logger.With(slog.String("component", "session")).InfoContext(ctx, "node moved", slog.Any("error", errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "node_id=n-1")
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "err=boom")
}

func TestCorrelationHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelWarn)
	logger.InfoContext(WithNodeID(context.Background(), "n-1"), "hidden")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
