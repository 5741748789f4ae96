package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestStartServiceSpan_NamesByConvention(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, span := StartServiceSpan(context.Background(), "payment", "apply")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "payment.apply", spans[0].Name())
}

func TestStartSpan_ChildInheritsTrace(t *testing.T) {
	recorder := newSpanRecorder(t)

	ctx, parent := StartSpan(context.Background(), "quote.convert")
	_, child := StartSpan(ctx, "invoice.issue")
	child.End()
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestSetAttributes_PairsAndMixedTypes(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, span := StartSpan(context.Background(), "payment.apply")
	SetAttributes(span,
		SpanAttrInvoiceID, "inv-42",
		SpanAttrAmount, 150.75,
		"retries", 2,
		42, "dropped because the key is not a string",
	)
	span.End()

	attrs := spanAttrs(recorder.Ended()[0])
	assert.Equal(t, "inv-42", attrs[attribute.Key(SpanAttrInvoiceID)].AsString())
	assert.Equal(t, 150.75, attrs[attribute.Key(SpanAttrAmount)].AsFloat64())
	assert.Equal(t, int64(2), attrs["retries"].AsInt64())
	assert.NotContains(t, attrs, attribute.Key("42"))
}

func TestSetAttribute_StringerFallsBackToString(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, span := StartSpan(context.Background(), "summary.compute")
	SetAttribute(span, SpanAttrPeriod, [2]int{2026, 8})
	span.End()

	attrs := spanAttrs(recorder.Ended()[0])
	assert.Equal(t, "[2026 8]", attrs[attribute.Key(SpanAttrPeriod)].AsString())
}

func TestRecordError_MarksSpanFailed(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, span := StartSpan(context.Background(), "quote.convert")
	RecordError(span, errors.New("quote already converted"))
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "quote already converted", got.Status().Description)
	require.Len(t, got.Events(), 1)
}

func TestRecordError_NilErrorIsNoop(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, span := StartSpan(context.Background(), "payment.create")
	RecordError(span, nil)
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Unset, got.Status().Code)
	assert.Empty(t, got.Events())
}

func TestAddEvent_AttachesAttributes(t *testing.T) {
	recorder := newSpanRecorder(t)

	_, span := StartSpan(context.Background(), "payment.apply")
	AddEvent(span, "invoice_settled",
		SpanAttrInvoiceID, "inv-42",
		SpanAttrStatus, "paid",
	)
	span.End()

	events := recorder.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "invoice_settled", events[0].Name)
	assert.Len(t, events[0].Attributes, 2)
}

func TestSpanHelpers_NilSpanSafe(t *testing.T) {
	SetAttributes(nil, SpanAttrQuoteID, "q-1")
	SetAttribute(nil, SpanAttrQuoteID, "q-1")
	RecordError(nil, errors.New("boom"))
	AddEvent(nil, "ignored")
}
