package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		logger := zap.NewNop()
		ctx := WithContext(context.Background(), logger)

		assert.Same(t, logger, FromContext(ctx))
	})

	t.Run("falls back to no-op", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx, logger := WithRequestID(context.Background(), zap.New(core), "req-42")

	assert.Equal(t, "req-42", GetRequestID(ctx))

	logger.Info("quote converted")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
}

func TestWithUserID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx, logger := WithUserID(context.Background(), zap.New(core), "clerk-7")

	assert.Equal(t, "clerk-7", GetUserID(ctx))

	// The enriched logger is also what FromContext now hands out
	FromContext(ctx).Info("payment recorded")
	logger.Info("payment confirmed")

	require.Equal(t, 2, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "clerk-7", entry.ContextMap()["user_id"])
	}
}

func TestGetRequestID_Unset(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetUserID(context.Background()))
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	logger := zap.NewNop()

	// Without a recording span the logger passes through untouched
	assert.Same(t, logger, WithTraceContext(context.Background(), logger))
}
