package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentHandler_Create_Unattached(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	w := env.request(t, http.MethodPost, "/api/v1/billing/payments", CreatePaymentRequest{
		CustomerID:    customer.ID.String(),
		Amount:        250,
		PaymentMethod: "cash",
	})

	requireStatus(t, w, http.StatusCreated)
	payment := decodeData[PaymentResponse](t, w)
	assert.Equal(t, "pending", payment.Status)
	assert.Nil(t, payment.InvoiceID)
	assert.Equal(t, 250.0, payment.Amount)
}

func TestPaymentHandler_Create_RejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	w := env.request(t, http.MethodPost, "/api/v1/billing/payments", CreatePaymentRequest{
		CustomerID:    customer.ID.String(),
		Amount:        0,
		PaymentMethod: "cash",
	})

	requireStatus(t, w, http.StatusBadRequest)
}

func TestPaymentHandler_Create_UnknownCustomer(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/billing/payments", CreatePaymentRequest{
		CustomerID:    uuid.New().String(),
		Amount:        100,
		PaymentMethod: "cash",
	})

	requireStatus(t, w, http.StatusNotFound)
}

func TestPaymentHandler_Confirm_PartialThenFull(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 1000)

	// First payment covers 400: partially paid
	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:        400,
		PaymentMethod: "bank_transfer",
	})
	requireStatus(t, w, http.StatusCreated)
	first := decodeData[PaymentResultResponse](t, w)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/confirm", first.Payment.ID), nil)
	requireStatus(t, w, http.StatusOK)
	confirmed := decodeData[PaymentResultResponse](t, w)
	assert.Equal(t, "completed", confirmed.Payment.Status)
	require.NotNil(t, confirmed.Invoice)
	assert.Equal(t, "partially_paid", confirmed.Invoice.Status)
	assert.Equal(t, 400.0, confirmed.Invoice.PaidAmount)

	// Second payment covers the rest: paid
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:        600,
		PaymentMethod: "bank_transfer",
	})
	requireStatus(t, w, http.StatusCreated)
	second := decodeData[PaymentResultResponse](t, w)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/confirm", second.Payment.ID), nil)
	requireStatus(t, w, http.StatusOK)
	confirmed = decodeData[PaymentResultResponse](t, w)
	require.NotNil(t, confirmed.Invoice)
	assert.Equal(t, "paid", confirmed.Invoice.Status)
	assert.Equal(t, 1000.0, confirmed.Invoice.PaidAmount)
}

func TestPaymentHandler_Confirm_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 500)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:        500,
		PaymentMethod: "card",
	})
	requireStatus(t, w, http.StatusCreated)
	result := decodeData[PaymentResultResponse](t, w)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/confirm", result.Payment.ID), nil)
	requireStatus(t, w, http.StatusOK)
	first := decodeData[PaymentResultResponse](t, w)
	assert.Equal(t, "paid", first.Invoice.Status)

	// Confirming again returns the same state without re-applying
	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/confirm", result.Payment.ID), nil)
	requireStatus(t, w, http.StatusOK)
	second := decodeData[PaymentResultResponse](t, w)
	assert.Equal(t, "completed", second.Payment.Status)
	assert.Equal(t, "paid", second.Invoice.Status)
	assert.Equal(t, 500.0, second.Invoice.PaidAmount)
}

func TestPaymentHandler_Confirm_FailedRejected(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	w := env.request(t, http.MethodPost, "/api/v1/billing/payments", CreatePaymentRequest{
		CustomerID:    customer.ID.String(),
		Amount:        100,
		PaymentMethod: "cash",
	})
	requireStatus(t, w, http.StatusCreated)
	payment := decodeData[PaymentResponse](t, w)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/fail", payment.ID), FailPaymentRequest{Reason: "Insufficient funds"})
	requireStatus(t, w, http.StatusOK)
	failed := decodeData[PaymentResponse](t, w)
	assert.Equal(t, "failed", failed.Status)
	assert.Equal(t, "Insufficient funds", failed.FailureReason)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/confirm", payment.ID), nil)
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "ERR_CONFLICT", errorCode(t, w))
}

func TestPaymentHandler_Cancel(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	w := env.request(t, http.MethodPost, "/api/v1/billing/payments", CreatePaymentRequest{
		CustomerID:    customer.ID.String(),
		Amount:        100,
		PaymentMethod: "cash",
	})
	requireStatus(t, w, http.StatusCreated)
	payment := decodeData[PaymentResponse](t, w)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/cancel", payment.ID), nil)
	requireStatus(t, w, http.StatusOK)
	cancelled := decodeData[PaymentResponse](t, w)
	assert.Equal(t, "cancelled", cancelled.Status)
}

func TestPaymentHandler_Update_PendingOnly(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)

	w := env.request(t, http.MethodPost, "/api/v1/billing/payments", CreatePaymentRequest{
		CustomerID:    customer.ID.String(),
		Amount:        100,
		PaymentMethod: "cash",
	})
	requireStatus(t, w, http.StatusCreated)
	payment := decodeData[PaymentResponse](t, w)

	reference := "TRX-42"
	w = env.request(t, http.MethodPut, "/api/v1/billing/payments/"+payment.ID, UpdatePaymentRequest{
		ReferenceNumber: &reference,
	})
	requireStatus(t, w, http.StatusOK)
	updated := decodeData[PaymentResponse](t, w)
	assert.Equal(t, "TRX-42", updated.ReferenceNumber)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/payments/%s/cancel", payment.ID), nil)
	requireStatus(t, w, http.StatusOK)

	w = env.request(t, http.MethodPut, "/api/v1/billing/payments/"+payment.ID, UpdatePaymentRequest{
		ReferenceNumber: &reference,
	})
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestPaymentHandler_List_FilterByInvoice(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t)
	invoice := createInvoiceViaAPI(t, env, customer.ID.String(), 1000)

	w := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/billing/invoices/%s/payments", invoice.ID), ApplyInvoicePaymentRequest{
		Amount:        100,
		PaymentMethod: "cash",
	})
	requireStatus(t, w, http.StatusCreated)

	w = env.request(t, http.MethodPost, "/api/v1/billing/payments", CreatePaymentRequest{
		CustomerID:    customer.ID.String(),
		Amount:        50,
		PaymentMethod: "cash",
	})
	requireStatus(t, w, http.StatusCreated)

	w = env.request(t, http.MethodGet, "/api/v1/billing/payments?invoice_id="+invoice.ID, nil)
	requireStatus(t, w, http.StatusOK)
	payments := decodeData[[]PaymentResponse](t, w)
	require.Len(t, payments, 1)
	assert.Equal(t, 100.0, payments[0].Amount)
}

func TestPaymentHandler_Get_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/billing/payments/"+uuid.New().String(), nil)
	requireStatus(t, w, http.StatusNotFound)
	assert.Equal(t, "ERR_NOT_FOUND", errorCode(t, w))
}
