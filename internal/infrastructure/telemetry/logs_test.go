package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{
		Enabled:     false,
		ServiceName: "billing-backend",
	}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(context.Background()))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestNewZapOTELCore_NopWhenDisabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "billing-backend",
		LoggerProvider: lp,
		Level:          zapcore.InfoLevel,
	})

	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	nilCore := NewZapOTELCore(ZapBridgeConfig{ServiceName: "billing-backend"})
	assert.False(t, nilCore.Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore_DropsBelowMinimum(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	log := zap.New(filtered)
	log.Debug("recomputing invoice coverage")
	log.Info("payment confirmed")
	log.Warn("payment amount exceeds invoice balance")
	log.Error("quote conversion failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "payment amount exceeds invoice balance", entries[0].Message)
	assert.Equal(t, "quote conversion failed", entries[1].Message)
}

func TestLevelFilterCore_WithKeepsThreshold(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: inner, minLevel: zapcore.InfoLevel}

	log := zap.New(filtered).With(zap.String("invoice_id", "inv-42"))
	log.Debug("skipped")
	log.Info("invoice settled")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "invoice settled", entries[0].Message)
	require.Len(t, entries[0].Context, 1)
	assert.Equal(t, "invoice_id", entries[0].Context[0].Key)
}

func TestNewBridgedLogger_WritesBothCores(t *testing.T) {
	consoleCore, consoleLogs := observer.New(zapcore.InfoLevel)
	exportCore, exportLogs := observer.New(zapcore.InfoLevel)

	log := NewBridgedLogger(consoleCore, exportCore)
	log.Info("quote accepted", zap.String("quote_id", "q-7"))

	require.Equal(t, 1, consoleLogs.Len())
	require.Equal(t, 1, exportLogs.Len())
	assert.Equal(t, "quote accepted", consoleLogs.All()[0].Message)
	assert.Equal(t, "quote accepted", exportLogs.All()[0].Message)
}
