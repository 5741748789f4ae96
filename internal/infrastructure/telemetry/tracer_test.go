package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{
		Enabled:     false,
		ServiceName: "billing-backend",
	}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("billing"))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracerProvider_GetConfig(t *testing.T) {
	cfg := Config{
		Enabled:           false,
		CollectorEndpoint: "collector:4317",
		SamplingRatio:     0.25,
		ServiceName:       "billing-backend",
		Insecure:          true,
	}

	tp, err := NewTracerProvider(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, cfg, tp.GetConfig())
}

func TestTracerProvider_DisabledTracerStartsNonRecordingSpans(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	_, span := tp.Tracer("billing").Start(context.Background(), "payment.apply")
	defer span.End()

	assert.False(t, span.IsRecording())
}
