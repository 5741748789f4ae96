package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BillingMetrics tracks document and payment activity plus receivables health.
type BillingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	quoteCreatedTotal   *Counter
	quoteConvertedTotal *Counter
	invoiceIssuedTotal  *Counter
	invoiceAmountTotal  *Counter
	paymentTotal        *Counter
	paymentAmountTotal  *Counter

	// Gauge metrics (point-in-time values)
	outstandingReceivables *Gauge
	overdueInvoiceCount    *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	receivablesProvider ReceivablesProvider
}

// ReceivablesProvider supplies receivables data for periodic gauge collection.
// The interface keeps the telemetry layer free of a direct dependency on the
// billing repositories.
type ReceivablesProvider interface {
	// GetOutstandingTotal returns the sum of unpaid amounts on undue invoices
	GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error)

	// GetOverdueCount returns the number of invoices currently overdue
	GetOverdueCount(ctx context.Context) (int64, error)
}

// BillingMetricsConfig holds configuration for billing metrics.
type BillingMetricsConfig struct {
	Meter               metric.Meter
	Logger              *zap.Logger
	CollectInterval     time.Duration // Default: 5 minutes
	ReceivablesProvider ReceivablesProvider
}

// NewBillingMetrics creates a new BillingMetrics instance.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{
		meter:               cfg.Meter,
		logger:              logger,
		stopChan:            make(chan struct{}),
		receivablesProvider: cfg.ReceivablesProvider,
	}

	var err error

	bm.quoteCreatedTotal, err = NewCounter(
		cfg.Meter,
		"billing_quote_created_total",
		"Total number of quotes created",
		"{quotes}",
	)
	if err != nil {
		return nil, err
	}

	bm.quoteConvertedTotal, err = NewCounter(
		cfg.Meter,
		"billing_quote_converted_total",
		"Total number of quotes converted into invoices",
		"{quotes}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceIssuedTotal, err = NewCounter(
		cfg.Meter,
		"billing_invoice_issued_total",
		"Total number of invoices issued",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	bm.invoiceAmountTotal, err = NewCounter(
		cfg.Meter,
		"billing_invoice_amount_total",
		"Total invoiced amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentTotal, err = NewCounter(
		cfg.Meter,
		"billing_payment_total",
		"Total number of payment transactions",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"billing_payment_amount_total",
		"Total confirmed payment amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.outstandingReceivables, err = NewGauge(
		cfg.Meter,
		"billing_outstanding_receivables",
		"Unpaid amount across undue invoices in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.overdueInvoiceCount, err = NewGauge(
		cfg.Meter,
		"billing_overdue_invoice_count",
		"Number of invoices past their due date and not settled",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Document Metrics
// =============================================================================

// RecordQuoteCreated records a quote creation event.
func (bm *BillingMetrics) RecordQuoteCreated(ctx context.Context) {
	bm.quoteCreatedTotal.Inc(ctx)
}

// RecordQuoteConverted records a quote to invoice conversion.
func (bm *BillingMetrics) RecordQuoteConverted(ctx context.Context) {
	bm.quoteConvertedTotal.Inc(ctx)
}

// RecordInvoiceIssued records an invoice creation along with its amount.
// Amount is converted to the smallest currency unit (cents).
func (bm *BillingMetrics) RecordInvoiceIssued(ctx context.Context, amount decimal.Decimal) {
	bm.invoiceIssuedTotal.Inc(ctx)
	bm.invoiceAmountTotal.Add(ctx, toCents(amount))
}

// =============================================================================
// Payment Metrics
// =============================================================================

// PaymentOutcome represents the outcome of a payment for metrics labeling.
type PaymentOutcome string

const (
	PaymentOutcomeCompleted PaymentOutcome = "completed"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
	PaymentOutcomeCancelled PaymentOutcome = "cancelled"
)

// RecordPayment records a payment transition outcome.
func (bm *BillingMetrics) RecordPayment(ctx context.Context, paymentMethod string, outcome PaymentOutcome, amount decimal.Decimal) {
	bm.paymentTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrPaymentStatus.String(string(outcome)),
	)
	if outcome == PaymentOutcomeCompleted {
		bm.paymentAmountTotal.Add(ctx, toCents(amount),
			AttrPaymentMethod.String(paymentMethod),
		)
	}
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of receivables gauges.
// This is non-blocking - use Stop() to stop collection.
func (bm *BillingMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BillingMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectReceivablesMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic billing metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic billing metrics collection")
			return
		case <-ticker.C:
			bm.collectReceivablesMetrics(ctx)
		}
	}
}

func (bm *BillingMetrics) collectReceivablesMetrics(ctx context.Context) {
	if bm.receivablesProvider == nil {
		bm.logger.Debug("No receivables provider configured, skipping gauge collection")
		return
	}

	outstanding, err := bm.receivablesProvider.GetOutstandingTotal(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get outstanding receivables", zap.Error(err))
	} else {
		bm.outstandingReceivables.Record(ctx, toCents(outstanding))
	}

	overdue, err := bm.receivablesProvider.GetOverdueCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get overdue invoice count", zap.Error(err))
	} else {
		bm.overdueInvoiceCount.Record(ctx, overdue)
	}
}

// Stop stops the periodic collection.
func (bm *BillingMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBillingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
