package partner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerService handles customer record management. The billing core only
// reads customers through the directory; all mutation goes through here.
type CustomerService struct {
	customerRepo partner.CustomerRepository
	logger       *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// CreateCustomerRequest represents a request to create a customer
type CreateCustomerRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// UpdateCustomerRequest represents a partial customer update
type UpdateCustomerRequest struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Status  *partner.CustomerStatus
}

// Create creates a new customer
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*partner.Customer, error) {
	customer, err := partner.NewCustomer(req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	customer.Phone = req.Phone
	customer.Address = req.Address

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to save customer: %w", err)
	}

	s.logger.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("name", customer.Name),
	)

	return customer, nil
}

// Get returns a customer by ID
func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	return s.loadCustomer(ctx, id)
}

// List returns customers matching the filter plus the total count
func (s *CustomerService) List(ctx context.Context, filter shared.Filter) ([]partner.Customer, int64, error) {
	customers, err := s.customerRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	total, err := s.customerRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return customers, total, nil
}

// Update applies a partial update to a customer
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*partner.Customer, error) {
	customer, err := s.loadCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
		}
		if len(name) > 200 {
			return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 200 characters")
		}
		customer.Name = name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.Status != nil {
		switch *req.Status {
		case partner.CustomerStatusActive, partner.CustomerStatusInactive:
			customer.Status = *req.Status
		default:
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown customer status: %s", *req.Status))
		}
	}
	customer.UpdatedAt = time.Now()

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to save customer: %w", err)
	}

	return customer, nil
}

// Delete removes a customer record
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadCustomer(ctx, id); err != nil {
		return err
	}
	if err := s.customerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

func (s *CustomerService) loadCustomer(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	}
	return customer, nil
}
