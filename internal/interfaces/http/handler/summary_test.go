package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	appbilling "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/persistence/memory"
	"github.com/billing/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSummaryHandler_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	createQuoteViaAPI(t, env, customer.ID.String(), 300)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 1000)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:        400,
		PaymentMethod: "bank_transfer",
	})
	requireStatus(t, w, http.StatusCreated)
	result := decodeData[PaymentResultResponse](t, w)
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/confirm", result.Payment.ID), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodGet, "/api/v1/billing/summary/dashboard?period=month", nil)
	requireStatus(t, w, http.StatusOK)
	dashboard := decodeData[appbilling.DashboardSummary](t, w)

	assert.Equal(t, "month", dashboard.Period)
	assert.Equal(t, "300", dashboard.Quotes.Total.String())
	assert.Equal(t, "1000", dashboard.Invoices.Total.String())
	require.NotNil(t, dashboard.Invoices.TotalUndue)
	assert.Equal(t, "600", dashboard.Invoices.TotalUndue.String())
	assert.Equal(t, int64(1), dashboard.Payments.Count)
	assert.Equal(t, "400", dashboard.Payments.Total.String())

	// Every known status appears in the performance breakdown, zeros included
	assert.Len(t, dashboard.Quotes.Performance, len(billing.AllQuoteStatuses()))
	assert.Len(t, dashboard.Invoices.Performance, len(billing.AllInvoiceStatuses()))
}

func TestSummaryHandler_DefaultPeriod(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/billing/summary/dashboard", nil)
	requireStatus(t, w, http.StatusOK)
	dashboard := decodeData[appbilling.DashboardSummary](t, w)
	assert.Equal(t, "month", dashboard.Period)
}

func TestSummaryHandler_InvalidPeriod(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/billing/summary/dashboard?period=quarter", nil)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "ERR_VALIDATION", errorCode(t, w))
}

func TestSummaryHandler_QuoteSummary(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	quote := createQuoteViaAPI(t, env, customer.ID.String(), 200)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/quotes/%s/send", quote.ID), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodGet, "/api/v1/billing/summary/quotes?period=week", nil)
	requireStatus(t, w, http.StatusOK)
	summary := decodeData[appbilling.DocumentSummary](t, w)
	assert.Equal(t, "quotes", summary.Type)
	assert.Equal(t, "200", summary.Total.String())

	for _, entry := range summary.Performance {
		if entry.Status == "sent" {
			assert.Equal(t, int64(1), entry.Count)
			assert.Equal(t, 100.0, entry.Percentage)
		}
	}
}

// failingQuoteRepo makes window aggregation fail to exercise the degrade path
type failingQuoteRepo struct {
	*memory.QuoteRepository
}

func (r *failingQuoteRepo) SummarizeWindow(ctx context.Context, from, to time.Time) (*billing.QuoteWindowStats, error) {
	return nil, errors.New("storage unavailable")
}

func TestSummaryHandler_DegradesToZeroValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	quotes := &failingQuoteRepo{memory.NewQuoteRepository()}
	invoices := memory.NewInvoiceRepository()
	payments := memory.NewPaymentRepository()
	summaryService := appbilling.NewSummaryService(quotes, invoices, payments, nil, logger)

	engine := gin.New()
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(NewSummaryHandler(summaryService, logger)).
		Setup()

	env := &testEnv{engine: engine}

	w := env.request(t, http.MethodGet, "/api/v1/billing/summary/quotes?period=month", nil)
	requireStatus(t, w, http.StatusOK)
	summary := decodeData[appbilling.DocumentSummary](t, w)
	assert.Equal(t, "0", summary.Total.String())
	assert.Len(t, summary.Performance, len(billing.AllQuoteStatuses()))
	for _, entry := range summary.Performance {
		assert.Zero(t, entry.Count)
		assert.Zero(t, entry.Percentage)
	}

	w = env.request(t, http.MethodGet, "/api/v1/billing/summary/dashboard?period=month", nil)
	requireStatus(t, w, http.StatusOK)
	dashboard := decodeData[appbilling.DashboardSummary](t, w)
	assert.Equal(t, "month", dashboard.Period)
	assert.Equal(t, "0", dashboard.Quotes.Total.String())
}
