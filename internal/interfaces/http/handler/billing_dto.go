package handler

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// LineItemRequest represents a billable line in create/update requests
// @Description Line item on a quote or invoice
type LineItemRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=200" example:"Consulting hours"`
	Description string  `json:"description" binding:"max=500" example:"June engagement"`
	Quantity    float64 `json:"quantity" binding:"gte=0" example:"10"`
	UnitPrice   float64 `json:"unit_price" binding:"gte=0" example:"150.00"`
}

// LineItemResponse represents a billable line in API responses
// @Description Line item details
type LineItemResponse struct {
	Name        string  `json:"name" example:"Consulting hours"`
	Description string  `json:"description,omitempty" example:"June engagement"`
	Quantity    float64 `json:"quantity" example:"10"`
	UnitPrice   float64 `json:"unit_price" example:"150.00"`
	LineTotal   float64 `json:"line_total" example:"1500.00"`
}

// QuoteResponse represents a quote in API responses
// @Description Quote details returned by the API
type QuoteResponse struct {
	ID             string             `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	QuoteNumber    string             `json:"quote_number" example:"QUO-20260830-4F9A21C3"`
	CustomerID     string             `json:"customer_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	IssueDate      string             `json:"issue_date" example:"2026-08-30T12:00:00Z"`
	ExpiryDate     *string            `json:"expiry_date,omitempty" example:"2026-09-30T12:00:00Z"`
	TotalAmount    float64            `json:"total_amount" example:"1500.00"`
	TaxAmount      float64            `json:"tax_amount" example:"150.00"`
	DiscountAmount float64            `json:"discount_amount" example:"0.00"`
	LineItems      []LineItemResponse `json:"line_items"`
	Notes          string             `json:"notes" example:"Net 30"`
	Terms          string             `json:"terms" example:"Payment due within 30 days"`
	Status         string             `json:"status" example:"draft" enums:"draft,sent,pending,accepted,declined,expired,converted"`
	CreatedAt      string             `json:"created_at" example:"2026-08-30T12:00:00Z"`
	UpdatedAt      string             `json:"updated_at" example:"2026-08-30T12:00:00Z"`
	Version        int                `json:"version" example:"1"`
}

// InvoiceResponse represents an invoice in API responses
// @Description Invoice details returned by the API
type InvoiceResponse struct {
	ID             string             `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	InvoiceNumber  string             `json:"invoice_number" example:"INV-20260830-9C27B1E4"`
	CustomerID     string             `json:"customer_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	QuoteID        *string            `json:"quote_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440002"`
	IssueDate      string             `json:"issue_date" example:"2026-08-30T12:00:00Z"`
	DueDate        *string            `json:"due_date,omitempty" example:"2026-09-30T12:00:00Z"`
	TotalAmount    float64            `json:"total_amount" example:"1500.00"`
	TaxAmount      float64            `json:"tax_amount" example:"150.00"`
	DiscountAmount float64            `json:"discount_amount" example:"0.00"`
	PaidAmount     float64            `json:"paid_amount" example:"500.00"`
	LineItems      []LineItemResponse `json:"line_items"`
	Notes          string             `json:"notes" example:"Net 30"`
	Terms          string             `json:"terms" example:"Payment due within 30 days"`
	Status         string             `json:"status" example:"sent" enums:"draft,sent,pending,partially_paid,paid,overdue,cancelled"`
	CancelledAt    *string            `json:"cancelled_at,omitempty" example:"2026-09-01T12:00:00Z"`
	CancelReason   string             `json:"cancel_reason,omitempty" example:"Duplicate"`
	CreatedAt      string             `json:"created_at" example:"2026-08-30T12:00:00Z"`
	UpdatedAt      string             `json:"updated_at" example:"2026-08-30T12:00:00Z"`
	Version        int                `json:"version" example:"1"`
}

// PaymentResponse represents a payment in API responses
// @Description Payment details returned by the API
type PaymentResponse struct {
	ID              string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	CustomerID      string  `json:"customer_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	InvoiceID       *string `json:"invoice_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440002"`
	Amount          float64 `json:"amount" example:"500.00"`
	PaymentMethod   string  `json:"payment_method" example:"bank_transfer"`
	PaymentDate     string  `json:"payment_date" example:"2026-08-30T12:00:00Z"`
	ReferenceNumber string  `json:"reference_number" example:"TRX-20260830-001"`
	Notes           string  `json:"notes" example:"Wire received"`
	Status          string  `json:"status" example:"pending" enums:"pending,completed,failed,cancelled"`
	CompletedAt     *string `json:"completed_at,omitempty" example:"2026-08-30T12:05:00Z"`
	FailureReason   string  `json:"failure_reason,omitempty" example:"Insufficient funds"`
	CreatedAt       string  `json:"created_at" example:"2026-08-30T12:00:00Z"`
	UpdatedAt       string  `json:"updated_at" example:"2026-08-30T12:00:00Z"`
	Version         int     `json:"version" example:"1"`
}

// ConversionResponse represents the outcome of a quote conversion
// @Description Converted quote with the resulting invoice
type ConversionResponse struct {
	Quote   QuoteResponse   `json:"quote"`
	Invoice InvoiceResponse `json:"invoice"`
}

// PaymentResultResponse carries a payment together with the invoice it affects, if any
// @Description Payment with its attached invoice, when there is one
type PaymentResultResponse struct {
	Payment PaymentResponse  `json:"payment"`
	Invoice *InvoiceResponse `json:"invoice,omitempty"`
}

func toLineItems(reqs []LineItemRequest) (billing.LineItems, error) {
	items := make(billing.LineItems, 0, len(reqs))
	for _, r := range reqs {
		item, err := billing.NewLineItem(
			r.Name,
			r.Description,
			decimal.NewFromFloat(r.Quantity),
			decimal.NewFromFloat(r.UnitPrice),
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func fromLineItems(items billing.LineItems) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, LineItemResponse{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity.InexactFloat64(),
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			LineTotal:   item.LineTotal.InexactFloat64(),
		})
	}
	return out
}

func toQuoteResponse(q *billing.Quote) QuoteResponse {
	return QuoteResponse{
		ID:             q.ID.String(),
		QuoteNumber:    q.QuoteNumber,
		CustomerID:     q.CustomerID.String(),
		IssueDate:      formatTime(q.IssueDate),
		ExpiryDate:     formatTimePtr(q.ExpiryDate),
		TotalAmount:    q.TotalAmount.InexactFloat64(),
		TaxAmount:      q.TaxAmount.InexactFloat64(),
		DiscountAmount: q.DiscountAmount.InexactFloat64(),
		LineItems:      fromLineItems(q.LineItems),
		Notes:          q.Notes,
		Terms:          q.Terms,
		Status:         q.Status.String(),
		CreatedAt:      formatTime(q.CreatedAt),
		UpdatedAt:      formatTime(q.UpdatedAt),
		Version:        q.Version,
	}
}

func toQuoteListResponse(quotes []billing.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for i := range quotes {
		out = append(out, toQuoteResponse(&quotes[i]))
	}
	return out
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID.String(),
		InvoiceNumber:  inv.InvoiceNumber,
		CustomerID:     inv.CustomerID.String(),
		IssueDate:      formatTime(inv.IssueDate),
		DueDate:        formatTimePtr(inv.DueDate),
		TotalAmount:    inv.TotalAmount.InexactFloat64(),
		TaxAmount:      inv.TaxAmount.InexactFloat64(),
		DiscountAmount: inv.DiscountAmount.InexactFloat64(),
		PaidAmount:     inv.PaidAmount.InexactFloat64(),
		LineItems:      fromLineItems(inv.LineItems),
		Notes:          inv.Notes,
		Terms:          inv.Terms,
		Status:         inv.Status.String(),
		CancelledAt:    formatTimePtr(inv.CancelledAt),
		CancelReason:   inv.CancelReason,
		CreatedAt:      formatTime(inv.CreatedAt),
		UpdatedAt:      formatTime(inv.UpdatedAt),
		Version:        inv.Version,
	}
	if inv.QuoteID != nil {
		s := inv.QuoteID.String()
		resp.QuoteID = &s
	}
	return resp
}

func toInvoiceListResponse(invoices []billing.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toInvoiceResponse(&invoices[i]))
	}
	return out
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID.String(),
		CustomerID:      p.CustomerID.String(),
		Amount:          p.Amount.InexactFloat64(),
		PaymentMethod:   p.PaymentMethod,
		PaymentDate:     formatTime(p.PaymentDate),
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		Status:          p.Status.String(),
		CompletedAt:     formatTimePtr(p.CompletedAt),
		FailureReason:   p.FailureReason,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
		Version:         p.Version,
	}
	if p.InvoiceID != nil {
		s := p.InvoiceID.String()
		resp.InvoiceID = &s
	}
	return resp
}

func toPaymentListResponse(payments []billing.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	return out
}

// parseDateRange parses optional RFC3339 range bounds from query parameters
func parseDateRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromRaw != "" {
		t, err := time.Parse(time.RFC3339, fromRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from_date: %w", err)
		}
		from = &t
	}
	if toRaw != "" {
		t, err := time.Parse(time.RFC3339, toRaw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to_date: %w", err)
		}
		to = &t
	}
	return from, to, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
