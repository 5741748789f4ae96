package handler

import (
	"time"

	appbilling "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RegisterRoutes registers payment routes on the API group
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/billing/payments")
	{
		payments.POST("", h.Create)
		payments.GET("", h.List)
		payments.GET("/:id", h.Get)
		payments.PUT("/:id", h.Update)
		payments.POST("/:id/confirm", h.Confirm)
		payments.POST("/:id/fail", h.Fail)
		payments.POST("/:id/cancel", h.Cancel)
	}
}

// CreatePaymentRequest represents the request body for recording a payment
// @Description Create payment request; invoice_id is optional for unattached payments
type CreatePaymentRequest struct {
	CustomerID      string     `json:"customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	InvoiceID       *string    `json:"invoice_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440002"`
	Amount          float64    `json:"amount" binding:"required,gt=0" example:"500.00"`
	PaymentMethod   string     `json:"payment_method" binding:"required,max=50" example:"bank_transfer"`
	PaymentDate     *time.Time `json:"payment_date" example:"2026-08-30T12:00:00Z"`
	ReferenceNumber string     `json:"reference_number" binding:"max=100" example:"TRX-20260830-001"`
	Notes           string     `json:"notes" binding:"max=2000"`
}

// UpdatePaymentRequest represents the request body for updating a pending payment
// @Description Update payment request; only descriptive fields of pending payments may change
type UpdatePaymentRequest struct {
	PaymentMethod   *string    `json:"payment_method" binding:"omitempty,max=50"`
	PaymentDate     *time.Time `json:"payment_date"`
	ReferenceNumber *string    `json:"reference_number" binding:"omitempty,max=100"`
	Notes           *string    `json:"notes" binding:"omitempty,max=2000"`
}

// FailPaymentRequest represents the request body for failing a payment
// @Description Fail payment request
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Insufficient funds"`
}

// PaymentListQuery represents query parameters for listing payments
type PaymentListQuery struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	InvoiceID  string `form:"invoice_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
}

// Create godoc
// @Summary Record a payment
// @Description Records a new pending payment, attached to an invoice or standalone
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CreatePaymentRequest true "Payment to record"
// @Success 201 {object} APIResponse[PaymentResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /billing/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	createReq := appbilling.CreatePaymentRequest{
		CustomerID:      customerID,
		Amount:          decimal.NewFromFloat(req.Amount),
		PaymentMethod:   req.PaymentMethod,
		PaymentDate:     req.PaymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if req.InvoiceID != nil {
		invoiceID, err := uuid.Parse(*req.InvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID")
			return
		}
		createReq.InvoiceID = &invoiceID
	}
	if userID, err := getUserID(c); err == nil {
		createReq.CreatedBy = &userID
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), createReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(payment))
}

// Get godoc
// @Summary Get a payment
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} APIResponse[PaymentResponse]
// @Failure 404 {object} ErrorResponse
// @Router /billing/payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// List godoc
// @Summary List payments
// @Description Lists payments with pagination and optional filters
// @Tags payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param customer_id query string false "Filter by customer"
// @Param invoice_id query string false "Filter by invoice"
// @Param status query string false "Filter by status"
// @Success 200 {object} APIResponse[[]PaymentResponse]
// @Failure 400 {object} ErrorResponse
// @Router /billing/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var query PaymentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.PaymentFilter{Filter: query.ToFilter()}
	if query.CustomerID != "" {
		customerID, err := uuid.Parse(query.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID")
			return
		}
		filter.CustomerID = &customerID
	}
	if query.InvoiceID != "" {
		invoiceID, err := uuid.Parse(query.InvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID")
			return
		}
		filter.InvoiceID = &invoiceID
	}
	if query.Status != "" {
		status, ok := parsePaymentStatus(query.Status)
		if !ok {
			h.BadRequest(c, "Unknown payment status: "+query.Status)
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

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPaymentListResponse(payments), total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary Update a pending payment
// @Description Updates descriptive fields of a pending payment. Amount and customer are immutable.
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body UpdatePaymentRequest true "Fields to update"
// @Success 200 {object} APIResponse[PaymentResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.UpdatePayment(c.Request.Context(), id, billing.PaymentUpdate{
		PaymentMethod:   req.PaymentMethod,
		PaymentDate:     req.PaymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// Confirm godoc
// @Summary Confirm a payment
// @Description Completes a pending payment and rederives the attached invoice's status. Confirming an already-completed payment is idempotent.
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} APIResponse[PaymentResultResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/payments/{id}/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	result, err := h.paymentService.ConfirmPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResultResponse(result))
}

// Fail godoc
// @Summary Fail a payment
// @Description Marks a pending payment as failed
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body FailPaymentRequest false "Failure reason"
// @Success 200 {object} APIResponse[PaymentResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/payments/{id}/fail [post]
func (h *PaymentHandler) Fail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	var req FailPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	payment, err := h.paymentService.FailPayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// Cancel godoc
// @Summary Cancel a payment
// @Description Cancels a pending payment
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} APIResponse[PaymentResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	payment, err := h.paymentService.CancelPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

func parsePaymentStatus(raw string) (billing.PaymentStatus, bool) {
	for _, status := range billing.AllPaymentStatuses() {
		if status.String() == raw {
			return status, true
		}
	}
	return "", false
}
