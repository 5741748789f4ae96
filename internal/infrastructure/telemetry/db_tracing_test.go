package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type invoiceRow struct {
	ID     uint   `gorm:"primaryKey"`
	Number string `gorm:"size:32"`
	Status string `gorm:"size:16"`
}

func (invoiceRow) TableName() string { return "invoices" }

func newTracedLedgerDB(t *testing.T, cfg DBTracingConfig) (*gorm.DB, *tracetest.SpanRecorder) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoiceRow{}))

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "confirm payment")
	t.Cleanup(func() { span.End() })

	return db.WithContext(ctx), recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables)
}

func TestRegisterOtelGorm_DisabledIsNoOp(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	// No callbacks registered, writes proceed untraced
	require.NoError(t, db.AutoMigrate(&invoiceRow{}))
	assert.NoError(t, db.Create(&invoiceRow{Number: "INV-2026-0001", Status: "issued"}).Error)
}

func TestRegisterOtelGorm_AnnotatesLedgerSpans(t *testing.T) {
	cfg := DBTracingConfig{
		Enabled:          true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}
	db, recorder := newTracedLedgerDB(t, cfg)

	require.NoError(t, db.Create(&invoiceRow{Number: "INV-2026-0001", Status: "issued"}).Error)

	var loaded invoiceRow
	require.NoError(t, db.First(&loaded, "number = ?", "INV-2026-0001").Error)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	var sawInvoiceTable bool
	for _, span := range spans {
		attrs := spanAttributes(span)
		if v, ok := attrs["db.sql.table"]; ok && v.AsString() == "invoices" {
			sawInvoiceTable = true
			assert.NotEqual(t, codes.Error, span.Status().Code)
		}
	}
	assert.True(t, sawInvoiceTable, "expected a span annotated with the invoices table")
}

func TestRegisterOtelGorm_RecordNotFoundIsNotAnError(t *testing.T) {
	cfg := DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}
	db, recorder := newTracedLedgerDB(t, cfg)

	var loaded invoiceRow
	err := db.First(&loaded, "number = ?", "INV-MISSING").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	for _, span := range recorder.Ended() {
		assert.NotEqual(t, codes.Error, span.Status().Code,
			"a miss on an idempotency lookup must not fail the span")
	}
}

func TestRegisterOtelGorm_FlagsSlowQueries(t *testing.T) {
	cfg := DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond, // everything is slow
		DBSystem:        "sqlite",
	}
	db, recorder := newTracedLedgerDB(t, cfg)

	require.NoError(t, db.Create(&invoiceRow{Number: "INV-2026-0002", Status: "issued"}).Error)

	var sawSlowFlag bool
	for _, span := range recorder.Ended() {
		attrs := spanAttributes(span)
		if v, ok := attrs["db.slow_query"]; ok && v.AsBool() {
			sawSlowFlag = true
		}
	}
	assert.True(t, sawSlowFlag, "expected a span flagged as slow")
}
