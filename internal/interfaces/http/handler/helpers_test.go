package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	appbilling "github.com/billing/backend/internal/application/billing"
	apppartner "github.com/billing/backend/internal/application/partner"
	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/infrastructure/event"
	"github.com/billing/backend/internal/infrastructure/persistence/memory"
	"github.com/billing/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires real services over in-memory repositories so handler tests
// exercise the full request path
type testEnv struct {
	engine    *gin.Engine
	quotes    *memory.QuoteRepository
	invoices  *memory.InvoiceRepository
	payments  *memory.PaymentRepository
	customers *memory.CustomerRepository

	quoteService   *appbilling.QuoteService
	invoiceService *appbilling.InvoiceService
	paymentService *appbilling.PaymentService
	summaryService *appbilling.SummaryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	quotes := memory.NewQuoteRepository()
	invoices := memory.NewInvoiceRepository()
	payments := memory.NewPaymentRepository()
	customers := memory.NewCustomerRepository()
	bus := event.NewInMemoryEventBus(logger)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	quoteService := appbilling.NewQuoteService(quotes, invoices, customers, bus, logger)
	invoiceService := appbilling.NewInvoiceService(invoices, customers, bus, logger)
	paymentService := appbilling.NewPaymentService(payments, invoices, customers, bus, logger)
	summaryService := appbilling.NewSummaryService(quotes, invoices, payments, nil, logger)
	customerService := apppartner.NewCustomerService(customers, logger)

	engine := gin.New()
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(NewQuoteHandler(quoteService)).
		Register(NewInvoiceHandler(invoiceService, paymentService)).
		Register(NewPaymentHandler(paymentService)).
		Register(NewSummaryHandler(summaryService, logger)).
		Register(NewCustomerHandler(customerService)).
		Register(NewSystemHandler(nil, "test")).
		Setup()

	return &testEnv{
		engine:         engine,
		quotes:         quotes,
		invoices:       invoices,
		payments:       payments,
		customers:      customers,
		quoteService:   quoteService,
		invoiceService: invoiceService,
		paymentService: paymentService,
		summaryService: summaryService,
	}
}

// seedCustomer saves a customer directly through the repository
func (e *testEnv) seedCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	customer, err := partner.NewCustomer("Acme Corp", "billing@acme.test")
	require.NoError(t, err)
	require.NoError(t, e.customers.Save(context.Background(), customer))
	return customer
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// envelope mirrors the standard response wrapper for decoding in tests
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, "expected success envelope, got %s", w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error, "expected error envelope, got %s", w.Body.String())
	return env.Error.Code
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
}
