package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	got := FromContext(ctx)
	require.Same(t, logger, got)

	got.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestFromContext_MissingLoggerDiscards(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)
	assert.False(t, got.Enabled(context.Background(), slog.LevelError))
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	ctx = With(ctx, "script", "a.hcl")
	FromContext(ctx).Info("run")
	assert.Contains(t, buf.String(), "script=a.hcl")

	// Without a logger the result still discards.
	assert.False(t, FromContext(With(context.Background(), "k", "v")).Enabled(context.Background(), slog.LevelError))
}
