package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) {
		return `SELECT * FROM "invoices" WHERE quote_id = $1`, 1
	}

	t.Run("logs query with rows and latency", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), query, nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "SQL Query", entry.Message)
		fields := entry.ContextMap()
		assert.Equal(t, int64(1), fields["rows"])
		assert.Contains(t, fields["sql"], "invoices")
	})

	t.Run("tags query with request id", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")

		gl.Trace(ctx, time.Now(), query, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "req-9", logs.All()[0].ContextMap()["request_id"])
	})

	t.Run("suppresses record not found", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("logs other errors", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "SQL Error", logs.All()[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})

	t.Run("flags slow queries", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Contains(t, logs.All()[0].Message, "SLOW SQL")
	})

	t.Run("silent drops everything", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), query, errors.New("boom"))

		assert.Equal(t, 0, logs.Len())
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Silent)

	raised := gl.LogMode(gormlogger.Info)
	raised.Info(context.Background(), "migrating %s", "payments")

	// Original logger keeps its level
	gl.Info(context.Background(), "should be dropped")

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "payments")
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"bogus", gormlogger.Warn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.level), "level %q", tt.level)
	}
}
