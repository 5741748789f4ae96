package handler

import (
	"context"
	"time"

	appbilling "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice endpoints, including payment application
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appbilling.InvoiceService
	paymentService *appbilling.PaymentService
	adminGuard     gin.HandlerFunc
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appbilling.InvoiceService, paymentService *appbilling.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
		adminGuard:     passthroughGuard,
	}
}

// WithAdminGuard protects cancel and delete with the given middleware
func (h *InvoiceHandler) WithAdminGuard(guard gin.HandlerFunc) *InvoiceHandler {
	if guard != nil {
		h.adminGuard = guard
	}
	return h
}

// RegisterRoutes registers invoice routes on the API group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/billing/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.Get)
		invoices.PUT("/:id", h.Update)
		invoices.DELETE("/:id", h.adminGuard, h.Delete)
		invoices.POST("/:id/send", h.Send)
		invoices.POST("/:id/pending", h.MarkPending)
		invoices.POST("/:id/cancel", h.adminGuard, h.Cancel)
		invoices.POST("/:id/payments", h.ApplyPayment)
	}
}

// CreateInvoiceRequest represents the request body for creating an invoice
// @Description Create invoice request
type CreateInvoiceRequest struct {
	InvoiceNumber  string            `json:"invoice_number" binding:"max=50" example:"INV-20260830-9C27B1E4"`
	CustomerID     string            `json:"customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	IssueDate      *time.Time        `json:"issue_date" example:"2026-08-30T12:00:00Z"`
	DueDate        *time.Time        `json:"due_date" example:"2026-09-30T12:00:00Z"`
	TotalAmount    float64           `json:"total_amount" binding:"gte=0" example:"1500.00"`
	TaxAmount      float64           `json:"tax_amount" binding:"gte=0" example:"150.00"`
	DiscountAmount float64           `json:"discount_amount" binding:"gte=0" example:"0.00"`
	LineItems      []LineItemRequest `json:"line_items" binding:"dive"`
	Notes          string            `json:"notes" binding:"max=2000" example:"Net 30"`
	Terms          string            `json:"terms" binding:"max=2000"`
}

// UpdateInvoiceRequest represents the request body for updating an invoice
// @Description Update invoice request; absent fields are left unchanged
type UpdateInvoiceRequest struct {
	IssueDate      *time.Time         `json:"issue_date"`
	DueDate        *time.Time         `json:"due_date"`
	TotalAmount    *float64           `json:"total_amount" binding:"omitempty,gte=0"`
	TaxAmount      *float64           `json:"tax_amount" binding:"omitempty,gte=0"`
	DiscountAmount *float64           `json:"discount_amount" binding:"omitempty,gte=0"`
	LineItems      *[]LineItemRequest `json:"line_items" binding:"omitempty,dive"`
	Notes          *string            `json:"notes" binding:"omitempty,max=2000"`
	Terms          *string            `json:"terms" binding:"omitempty,max=2000"`
}

// CancelInvoiceRequest represents the request body for cancelling an invoice
// @Description Cancel invoice request
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Duplicate"`
}

// ApplyInvoicePaymentRequest represents the request body for applying a payment
// against an invoice
// @Description Apply payment request; the payment starts pending and only
// affects the invoice once confirmed
type ApplyInvoicePaymentRequest struct {
	Amount          float64    `json:"amount" binding:"required,gt=0" example:"500.00"`
	PaymentMethod   string     `json:"payment_method" binding:"required,max=50" example:"bank_transfer"`
	PaymentDate     *time.Time `json:"payment_date" example:"2026-08-30T12:00:00Z"`
	ReferenceNumber string     `json:"reference_number" binding:"max=100" example:"TRX-20260830-001"`
	Notes           string     `json:"notes" binding:"max=2000"`
}

// InvoiceListQuery represents query parameters for listing invoices
type InvoiceListQuery struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	QuoteID    string `form:"quote_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	Overdue    *bool  `form:"overdue"`
}

// Create godoc
// @Summary Create an invoice
// @Description Creates a new draft invoice directly, not via quote conversion
// @Tags invoices
// @Accept json
// @Produce json
// @Param request body CreateInvoiceRequest true "Invoice to create"
// @Success 201 {object} APIResponse[InvoiceResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /billing/invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}
	items, err := toLineItems(req.LineItems)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	createReq := appbilling.CreateInvoiceRequest{
		InvoiceNumber:  req.InvoiceNumber,
		CustomerID:     customerID,
		IssueDate:      req.IssueDate,
		DueDate:        req.DueDate,
		TotalAmount:    decimal.NewFromFloat(req.TotalAmount),
		TaxAmount:      decimal.NewFromFloat(req.TaxAmount),
		DiscountAmount: decimal.NewFromFloat(req.DiscountAmount),
		LineItems:      items,
		Notes:          req.Notes,
		Terms:          req.Terms,
	}
	if userID, err := getUserID(c); err == nil {
		createReq.CreatedBy = &userID
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), createReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// Get godoc
// @Summary Get an invoice
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse[InvoiceResponse]
// @Failure 404 {object} ErrorResponse
// @Router /billing/invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// List godoc
// @Summary List invoices
// @Description Lists invoices with pagination and optional filters
// @Tags invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param customer_id query string false "Filter by customer"
// @Param quote_id query string false "Filter by source quote"
// @Param status query string false "Filter by status"
// @Param overdue query bool false "Only past-due invoices"
// @Success 200 {object} APIResponse[[]InvoiceResponse]
// @Failure 400 {object} ErrorResponse
// @Router /billing/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var query InvoiceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.InvoiceFilter{Filter: query.ToFilter(), Overdue: query.Overdue}
	if query.CustomerID != "" {
		customerID, err := uuid.Parse(query.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID")
			return
		}
		filter.CustomerID = &customerID
	}
	if query.QuoteID != "" {
		quoteID, err := uuid.Parse(query.QuoteID)
		if err != nil {
			h.BadRequest(c, "Invalid quote ID")
			return
		}
		filter.QuoteID = &quoteID
	}
	if query.Status != "" {
		status, ok := parseInvoiceStatus(query.Status)
		if !ok {
			h.BadRequest(c, "Unknown invoice status: "+query.Status)
			return
		}
		filter.Status = &status
	}
	fromDate, toDate, err := parseDateRange(query.FromDate, query.ToDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter.FromDate = fromDate
	filter.ToDate = toDate

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toInvoiceListResponse(invoices), total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary Update an invoice
// @Description Applies a partial update to a non-terminal invoice. The total cannot be lowered below the amount already covered by confirmed payments.
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body UpdateInvoiceRequest true "Fields to update"
// @Success 200 {object} APIResponse[InvoiceResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	update := billing.InvoiceUpdate{
		IssueDate: req.IssueDate,
		DueDate:   req.DueDate,
		Notes:     req.Notes,
		Terms:     req.Terms,
	}
	if req.TotalAmount != nil {
		total := decimal.NewFromFloat(*req.TotalAmount)
		update.TotalAmount = &total
	}
	if req.TaxAmount != nil {
		tax := decimal.NewFromFloat(*req.TaxAmount)
		update.TaxAmount = &tax
	}
	if req.DiscountAmount != nil {
		discount := decimal.NewFromFloat(*req.DiscountAmount)
		update.DiscountAmount = &discount
	}
	if req.LineItems != nil {
		items, err := toLineItems(*req.LineItems)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		update.LineItems = &items
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, update)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// Delete godoc
// @Summary Delete a draft invoice
// @Description Deletes a draft invoice. Invoices past draft are cancelled instead.
// @Tags invoices
// @Param id path string true "Invoice ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Send godoc
// @Summary Send an invoice
// @Description Transitions a draft invoice to sent
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse[InvoiceResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
	h.transition(c, h.invoiceService.SendInvoice)
}

// MarkPending godoc
// @Summary Mark an invoice pending
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} APIResponse[InvoiceResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/invoices/{id}/pending [post]
func (h *InvoiceHandler) MarkPending(c *gin.Context) {
	h.transition(c, h.invoiceService.MarkInvoicePending)
}

// Cancel godoc
// @Summary Cancel an invoice
// @Description Cancels an invoice. Cancellation is terminal; the invoice never leaves the cancelled status afterwards.
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body CancelInvoiceRequest false "Cancellation reason"
// @Success 200 {object} APIResponse[InvoiceResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req CancelInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// ApplyPayment godoc
// @Summary Apply a payment against an invoice
// @Description Records a pending payment attached to the invoice. The invoice's status is untouched until the payment is confirmed.
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body ApplyInvoicePaymentRequest true "Payment to apply"
// @Success 201 {object} APIResponse[PaymentResultResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /billing/invoices/{id}/payments [post]
func (h *InvoiceHandler) ApplyPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req ApplyInvoicePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	applyReq := appbilling.ApplyPaymentRequest{
		InvoiceID:       id,
		Amount:          decimal.NewFromFloat(req.Amount),
		PaymentMethod:   req.PaymentMethod,
		PaymentDate:     req.PaymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if userID, err := getUserID(c); err == nil {
		applyReq.CreatedBy = &userID
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), applyReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toPaymentResultResponse(result))
}

func (h *InvoiceHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

func parseInvoiceStatus(raw string) (billing.InvoiceStatus, bool) {
	for _, status := range billing.AllInvoiceStatuses() {
		if status.String() == raw {
			return status, true
		}
	}
	return "", false
}

func toPaymentResultResponse(result *appbilling.PaymentResult) PaymentResultResponse {
	resp := PaymentResultResponse{Payment: toPaymentResponse(result.Payment)}
	if result.Invoice != nil {
		invoice := toInvoiceResponse(result.Invoice)
		resp.Invoice = &invoice
	}
	return resp
}
