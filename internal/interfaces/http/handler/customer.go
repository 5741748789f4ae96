package handler

import (
	apppartner "github.com/billing/backend/internal/application/partner"
	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerHandler handles customer endpoints
type CustomerHandler struct {
	BaseHandler
	customerService *apppartner.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService *apppartner.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// RegisterRoutes registers customer routes on the API group
func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/partner/customers")
	{
		customers.POST("", h.Create)
		customers.GET("", h.List)
		customers.GET("/:id", h.Get)
		customers.PUT("/:id", h.Update)
		customers.DELETE("/:id", h.Delete)
	}
}

// CreateCustomerRequest represents the request body for creating a customer
// @Description Create customer request
type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200" example:"Acme Corp"`
	Email   string `json:"email" binding:"omitempty,email,max=200" example:"billing@acme.test"`
	Phone   string `json:"phone" binding:"max=50" example:"+1-555-0100"`
	Address string `json:"address" binding:"max=500" example:"1 Main St"`
}

// UpdateCustomerRequest represents the request body for updating a customer
// @Description Update customer request; absent fields are left unchanged
type UpdateCustomerRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=200"`
	Email   *string `json:"email" binding:"omitempty,email,max=200"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	Status  *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// CustomerResponse represents a customer in API responses
// @Description Customer details returned by the API
type CustomerResponse struct {
	ID        string `json:"id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Name      string `json:"name" example:"Acme Corp"`
	Email     string `json:"email,omitempty" example:"billing@acme.test"`
	Phone     string `json:"phone,omitempty" example:"+1-555-0100"`
	Address   string `json:"address,omitempty" example:"1 Main St"`
	Status    string `json:"status" example:"active" enums:"active,inactive"`
	CreatedAt string `json:"created_at" example:"2026-08-30T12:00:00Z"`
	UpdatedAt string `json:"updated_at" example:"2026-08-30T12:00:00Z"`
}

func toCustomerResponse(c *partner.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Status:    string(c.Status),
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

// Create godoc
// @Summary Create a customer
// @Tags customers
// @Accept json
// @Produce json
// @Param request body CreateCustomerRequest true "Customer to create"
// @Success 201 {object} APIResponse[CustomerResponse]
// @Failure 400 {object} ErrorResponse
// @Router /partner/customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), apppartner.CreateCustomerRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toCustomerResponse(customer))
}

// Get godoc
// @Summary Get a customer
// @Tags customers
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} APIResponse[CustomerResponse]
// @Failure 404 {object} ErrorResponse
// @Router /partner/customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	customer, err := h.customerService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toCustomerResponse(customer))
}

// List godoc
// @Summary List customers
// @Tags customers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param search query string false "Search term"
// @Success 200 {object} APIResponse[[]CustomerResponse]
// @Failure 400 {object} ErrorResponse
// @Router /partner/customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	var query dto.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := query.ToFilter()
	customers, total, err := h.customerService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		responses = append(responses, toCustomerResponse(&customers[i]))
	}

	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary Update a customer
// @Tags customers
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param request body UpdateCustomerRequest true "Fields to update"
// @Success 200 {object} APIResponse[CustomerResponse]
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /partner/customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updateReq := apppartner.UpdateCustomerRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if req.Status != nil {
		status := partner.CustomerStatus(*req.Status)
		updateReq.Status = &status
	}

	customer, err := h.customerService.Update(c.Request.Context(), id, updateReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toCustomerResponse(customer))
}

// Delete godoc
// @Summary Delete a customer
// @Tags customers
// @Param id path string true "Customer ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /partner/customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	if err := h.customerService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
