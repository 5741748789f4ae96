package telemetry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/billing/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestMeter(t *testing.T) *telemetry.MeterProvider {
	t.Helper()
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "billing-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return mp
}

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meter cannot be nil")
}

func TestBillingMetrics_RecordCounters(t *testing.T) {
	mp := newTestMeter(t)
	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:  mp.Meter("billing"),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Recording against a no-op meter must not panic
	bm.RecordQuoteCreated(ctx)
	bm.RecordQuoteConverted(ctx)
	bm.RecordInvoiceIssued(ctx, decimal.NewFromInt(1500))
	bm.RecordPayment(ctx, "bank_transfer", telemetry.PaymentOutcomeCompleted, decimal.NewFromInt(400))
	bm.RecordPayment(ctx, "cash", telemetry.PaymentOutcomeFailed, decimal.Zero)
}

// stubReceivablesProvider counts how often it is polled
type stubReceivablesProvider struct {
	calls atomic.Int64
}

func (p *stubReceivablesProvider) GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	p.calls.Add(1)
	return decimal.NewFromInt(600), nil
}

func (p *stubReceivablesProvider) GetOverdueCount(ctx context.Context) (int64, error) {
	return 2, nil
}

func TestBillingMetrics_PeriodicCollection(t *testing.T) {
	mp := newTestMeter(t)
	provider := &stubReceivablesProvider{}

	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:               mp.Meter("billing"),
		Logger:              zaptest.NewLogger(t),
		ReceivablesProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bm.StartPeriodicCollection(ctx, 10*time.Millisecond)
	defer bm.Stop()

	assert.Eventually(t, func() bool {
		return provider.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestBillingMetrics_StopIsIdempotent(t *testing.T) {
	mp := newTestMeter(t)
	bm, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter: mp.Meter("billing"),
	})
	require.NoError(t, err)

	bm.Stop()
	bm.Stop()
}
