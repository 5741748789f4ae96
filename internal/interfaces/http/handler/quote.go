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

// QuoteHandler handles quote endpoints
type QuoteHandler struct {
	BaseHandler
	quoteService *appbilling.QuoteService
	adminGuard   gin.HandlerFunc
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quoteService *appbilling.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, adminGuard: passthroughGuard}
}

// WithAdminGuard protects quote deletion with the given middleware
func (h *QuoteHandler) WithAdminGuard(guard gin.HandlerFunc) *QuoteHandler {
	if guard != nil {
		h.adminGuard = guard
	}
	return h
}

// RegisterRoutes registers quote routes on the API group
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/billing/quotes")
	{
		quotes.POST("", h.Create)
		quotes.GET("", h.List)
		quotes.GET("/:id", h.Get)
		quotes.PUT("/:id", h.Update)
		quotes.DELETE("/:id", h.adminGuard, h.Delete)
		quotes.POST("/:id/send", h.Send)
		quotes.POST("/:id/pending", h.MarkPending)
		quotes.POST("/:id/accept", h.Accept)
		quotes.POST("/:id/decline", h.Decline)
		quotes.POST("/:id/expire", h.Expire)
		quotes.POST("/:id/convert", h.Convert)
	}
}

// CreateQuoteRequest represents the request body for creating a quote
// @Description Create quote request
type CreateQuoteRequest struct {
	QuoteNumber    string            `json:"quote_number" binding:"max=50" example:"QUO-20260830-4F9A21C3"`
	CustomerID     string            `json:"customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	IssueDate      *time.Time        `json:"issue_date" example:"2026-08-30T12:00:00Z"`
	ExpiryDate     *time.Time        `json:"expiry_date" example:"2026-09-30T12:00:00Z"`
	TotalAmount    float64           `json:"total_amount" binding:"gte=0" example:"1500.00"`
	TaxAmount      float64           `json:"tax_amount" binding:"gte=0" example:"150.00"`
	DiscountAmount float64           `json:"discount_amount" binding:"gte=0" example:"0.00"`
	LineItems      []LineItemRequest `json:"line_items" binding:"dive"`
	Notes          string            `json:"notes" binding:"max=2000" example:"Net 30"`
	Terms          string            `json:"terms" binding:"max=2000"`
}

// UpdateQuoteRequest represents the request body for updating a quote
// @Description Update quote request; absent fields are left unchanged
type UpdateQuoteRequest struct {
	IssueDate      *time.Time         `json:"issue_date"`
	ExpiryDate     *time.Time         `json:"expiry_date"`
	TotalAmount    *float64           `json:"total_amount" binding:"omitempty,gte=0"`
	TaxAmount      *float64           `json:"tax_amount" binding:"omitempty,gte=0"`
	DiscountAmount *float64           `json:"discount_amount" binding:"omitempty,gte=0"`
	LineItems      *[]LineItemRequest `json:"line_items" binding:"omitempty,dive"`
	Notes          *string            `json:"notes" binding:"omitempty,max=2000"`
	Terms          *string            `json:"terms" binding:"omitempty,max=2000"`
}

// ConvertQuoteRequest represents the request body for converting a quote
// @Description Convert quote request; notes and terms default to the quote's
type ConvertQuoteRequest struct {
	DueDate *time.Time `json:"due_date" example:"2026-09-30T12:00:00Z"`
	Notes   string     `json:"notes" binding:"max=2000"`
	Terms   string     `json:"terms" binding:"max=2000"`
}

// QuoteListQuery represents query parameters for listing quotes
type QuoteListQuery struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
}

// Create godoc
// @Summary Create a quote
// @Description Creates a new draft quote for a customer
// @Tags quotes
// @Accept json
// @Produce json
// @Param request body CreateQuoteRequest true "Quote to create"
// @Success 201 {object} APIResponse[QuoteResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /billing/quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	var req CreateQuoteRequest
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

	createReq := appbilling.CreateQuoteRequest{
		QuoteNumber:    req.QuoteNumber,
		CustomerID:     customerID,
		IssueDate:      req.IssueDate,
		ExpiryDate:     req.ExpiryDate,
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

	quote, err := h.quoteService.CreateQuote(c.Request.Context(), createReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toQuoteResponse(quote))
}

// Get godoc
// @Summary Get a quote
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} APIResponse[QuoteResponse]
// @Failure 404 {object} ErrorResponse
// @Router /billing/quotes/{id} [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid quote ID")
		return
	}

	quote, err := h.quoteService.GetQuote(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toQuoteResponse(quote))
}

// List godoc
// @Summary List quotes
// @Description Lists quotes with pagination and optional filters
// @Tags quotes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param customer_id query string false "Filter by customer"
// @Param status query string false "Filter by status"
// @Param from_date query string false "Issue date range start (RFC3339)"
// @Param to_date query string false "Issue date range end (RFC3339)"
// @Success 200 {object} APIResponse[[]QuoteResponse]
// @Failure 400 {object} ErrorResponse
// @Router /billing/quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	var query QuoteListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.QuoteFilter{Filter: query.ToFilter()}
	if query.CustomerID != "" {
		customerID, err := uuid.Parse(query.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID")
			return
		}
		filter.CustomerID = &customerID
	}
	if query.Status != "" {
		status, ok := parseQuoteStatus(query.Status)
		if !ok {
			h.BadRequest(c, "Unknown quote status: "+query.Status)
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

	quotes, total, err := h.quoteService.ListQuotes(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toQuoteListResponse(quotes), total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary Update a quote
// @Description Applies a partial update to a non-terminal quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body UpdateQuoteRequest true "Fields to update"
// @Success 200 {object} APIResponse[QuoteResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/quotes/{id} [put]
func (h *QuoteHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid quote ID")
		return
	}

	var req UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	update := billing.QuoteUpdate{
		IssueDate:  req.IssueDate,
		ExpiryDate: req.ExpiryDate,
		Notes:      req.Notes,
		Terms:      req.Terms,
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

	quote, err := h.quoteService.UpdateQuote(c.Request.Context(), id, update)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toQuoteResponse(quote))
}

// Delete godoc
// @Summary Delete a quote
// @Description Deletes a quote. Converted quotes cannot be deleted.
// @Tags quotes
// @Param id path string true "Quote ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/quotes/{id} [delete]
func (h *QuoteHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid quote ID")
		return
	}

	if err := h.quoteService.DeleteQuote(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Send godoc
// @Summary Send a quote
// @Description Transitions a draft quote to sent
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} APIResponse[QuoteResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/quotes/{id}/send [post]
func (h *QuoteHandler) Send(c *gin.Context) {
	h.transition(c, h.quoteService.SendQuote)
}

// MarkPending godoc
// @Summary Mark a quote pending
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} APIResponse[QuoteResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/quotes/{id}/pending [post]
func (h *QuoteHandler) MarkPending(c *gin.Context) {
	h.transition(c, h.quoteService.MarkQuotePending)
}

// Accept godoc
// @Summary Accept a quote
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} APIResponse[QuoteResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/quotes/{id}/accept [post]
func (h *QuoteHandler) Accept(c *gin.Context) {
	h.transition(c, h.quoteService.AcceptQuote)
}

// Decline godoc
// @Summary Decline a quote
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} APIResponse[QuoteResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/quotes/{id}/decline [post]
func (h *QuoteHandler) Decline(c *gin.Context) {
	h.transition(c, h.quoteService.DeclineQuote)
}

// Expire godoc
// @Summary Expire a quote
// @Tags quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} APIResponse[QuoteResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /billing/quotes/{id}/expire [post]
func (h *QuoteHandler) Expire(c *gin.Context) {
	h.transition(c, h.quoteService.ExpireQuote)
}

// Convert godoc
// @Summary Convert a quote into an invoice
// @Description Converts an accepted quote into a draft invoice. A quote converts at most once; a repeated conversion returns the existing invoice with a conflict error.
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body ConvertQuoteRequest false "Conversion options"
// @Success 200 {object} APIResponse[ConversionResponse]
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /billing/quotes/{id}/convert [post]
func (h *QuoteHandler) Convert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid quote ID")
		return
	}

	var req ConvertQuoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	convertReq := appbilling.ConvertQuoteRequest{
		QuoteID: id,
		DueDate: req.DueDate,
		Notes:   req.Notes,
		Terms:   req.Terms,
	}
	if userID, err := getUserID(c); err == nil {
		convertReq.CreatedBy = &userID
	}

	result, err := h.quoteService.ConvertQuote(c.Request.Context(), convertReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, ConversionResponse{
		Quote:   toQuoteResponse(result.Quote),
		Invoice: toInvoiceResponse(result.Invoice),
	})
}

func (h *QuoteHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*billing.Quote, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid quote ID")
		return
	}

	quote, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toQuoteResponse(quote))
}

func parseQuoteStatus(raw string) (billing.QuoteStatus, bool) {
	for _, status := range billing.AllQuoteStatuses() {
		if status.String() == raw {
			return status, true
		}
	}
	return "", false
}
