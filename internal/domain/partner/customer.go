package partner

import (
	"strings"

	"github.com/billing/backend/internal/domain/shared"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer represents a customer record in the partner context
// The billing core only references customers by ID; record management is
// owned by the directory collaborator
type Customer struct {
	shared.BaseEntity
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone"`
	Address string         `json:"address"`
	Status  CustomerStatus `json:"status"`
}

// NewCustomer creates a new active customer
func NewCustomer(name, email string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 200 characters")
	}

	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Email:      email,
		Status:     CustomerStatusActive,
	}, nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}
