package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createInvoiceViaAPI(t *testing.T, env *testEnv, customerID string, total float64) InvoiceResponse {
	t.Helper()
	w := env.request(t, http.MethodPost, "/api/v1/billing/invoices", CreateInvoiceRequest{
		CustomerID:  customerID,
		TotalAmount: total,
		LineItems: []LineItemRequest{
			{Name: "Consulting hours", Quantity: 10, UnitPrice: total / 10},
		},
	})
	requireStatus(t, w, http.StatusCreated)
	return decodeData[InvoiceResponse](t, w)
}

func TestInvoiceHandler_Create(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 1000)
	assert.Equal(t, "draft", invoice.Status)
	assert.Equal(t, 0.0, invoice.PaidAmount)
	assert.Nil(t, invoice.QuoteID)
	assert.NotEmpty(t, invoice.InvoiceNumber)
}

func TestInvoiceHandler_Create_DuplicateNumber(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	w := env.request(t, http.MethodPost, "/api/v1/billing/invoices", CreateInvoiceRequest{
		InvoiceNumber: "INV-001",
		CustomerID:    customer.ID.String(),
		TotalAmount:   100,
	})
	requireStatus(t, w, http.StatusCreated)

	w = env.request(t, http.MethodPost, "/api/v1/billing/invoices", CreateInvoiceRequest{
		InvoiceNumber: "INV-001",
		CustomerID:    customer.ID.String(),
		TotalAmount:   200,
	})
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "ERR_ALREADY_EXISTS", errorCode(t, w))
}

func TestInvoiceHandler_List_OverdueFilter(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	createInvoiceViaAPI(t, env, customer.ID.String(), 100)

	w := env.request(t, http.MethodGet, "/api/v1/billing/invoices?overdue=true", nil)
	requireStatus(t, w, http.StatusOK)
	invoices := decodeData[[]InvoiceResponse](t, w)
	assert.Empty(t, invoices)
}

func TestInvoiceHandler_Update_TotalBelowCoverageRejected(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 1000)

	// Cover 400 of the invoice
	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:        400,
		PaymentMethod: "bank_transfer",
	})
	requireStatus(t, w, http.StatusCreated)
	result := decodeData[PaymentResultResponse](t, w)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/confirm", result.Payment.ID), nil)
	requireStatus(t, w, http.StatusOK)

	// Lowering the total below the covered amount must fail
	lower := 300.0
	w = env.request(t, http.MethodPut, "/api/v1/billing/invoices/"+invoice.ID, UpdateInvoiceRequest{
		TotalAmount: &lower,
	})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "ERR_VALIDATION", errorCode(t, w))
}

func TestInvoiceHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 100)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/send", invoice.ID), nil)
	requireStatus(t, w, http.StatusOK)
	sent := decodeData[InvoiceResponse](t, w)
	assert.Equal(t, "sent", sent.Status)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/pending", invoice.ID), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/cancel", invoice.ID), CancelInvoiceRequest{Reason: "Duplicate"})
	requireStatus(t, w, http.StatusOK)
	cancelled := decodeData[InvoiceResponse](t, w)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "Duplicate", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	// Cancelled is sticky
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/send", invoice.ID), nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestInvoiceHandler_Delete_OnlyDraft(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 100)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/send", invoice.ID), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodDelete, "/api/v1/billing/invoices/"+invoice.ID, nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)

	draft := createInvoiceViaAPI(t, env, customer.ID.String(), 100)
	w = env.request(t, http.MethodDelete, "/api/v1/billing/invoices/"+draft.ID, nil)
	requireStatus(t, w, http.StatusNoContent)
}

func TestInvoiceHandler_ApplyPayment(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 1000)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:          400,
		PaymentMethod:   "bank_transfer",
		ReferenceNumber: "TRX-001",
	})
	requireStatus(t, w, http.StatusCreated)
	result := decodeData[PaymentResultResponse](t, w)
	assert.Equal(t, "pending", result.Payment.Status)
	require.NotNil(t, result.Payment.InvoiceID)
	assert.Equal(t, invoice.ID, *result.Payment.InvoiceID)

	// Pending payments never touch the invoice
	require.NotNil(t, result.Invoice)
	assert.Equal(t, 0.0, result.Invoice.PaidAmount)
	assert.Equal(t, "draft", result.Invoice.Status)
}

func TestInvoiceHandler_ApplyPayment_CancelledInvoice(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 1000)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/cancel", invoice.ID), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:        100,
		PaymentMethod: "cash",
	})
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "ERR_CONFLICT", errorCode(t, w))
}

func TestInvoiceHandler_ApplyPayment_UnknownInvoice(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", uuid.New()), ApplyInvoicePaymentRequest{
		Amount:        100,
		PaymentMethod: "cash",
	})
	requireStatus(t, w, http.StatusNotFound)
}
