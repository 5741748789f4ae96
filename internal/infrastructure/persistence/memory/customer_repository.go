package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerRepository is an in-memory implementation of partner.CustomerRepository
type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]partner.Customer
}

// NewCustomerRepository creates a new in-memory customer repository
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{customers: make(map[uuid.UUID]partner.Customer)}
}

// FindByID finds a customer by ID. Returns (nil, nil) when no customer exists.
func (r *CustomerRepository) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.customers[id]
	if !exists {
		return nil, nil
	}
	return &c, nil
}

// Exists reports whether a customer with the given ID is on record
func (r *CustomerRepository) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.customers[id]
	return exists, nil
}

// FindAll finds customers matching the filter
func (r *CustomerRepository) FindAll(_ context.Context, filter shared.Filter) ([]partner.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]partner.Customer, 0)
	for _, c := range r.customers {
		if matchCustomer(c, filter) {
			matched = append(matched, c)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	return paginate(matched, filter.Page, filter.PageSize), nil
}

// Count counts customers matching the filter
func (r *CustomerRepository) Count(_ context.Context, filter shared.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, c := range r.customers {
		if matchCustomer(c, filter) {
			count++
		}
	}
	return count, nil
}

// Save creates or updates a customer
func (r *CustomerRepository) Save(_ context.Context, customer *partner.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.customers[customer.ID] = *customer
	return nil
}

// Delete deletes a customer
func (r *CustomerRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.customers[id]; !exists {
		return shared.ErrNotFound
	}
	delete(r.customers, id)
	return nil
}

func matchCustomer(c partner.Customer, filter shared.Filter) bool {
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Email), needle) &&
			!strings.Contains(c.Phone, filter.Search) {
			return false
		}
	}
	if status, ok := filter.Filters["status"]; ok {
		if value, isString := status.(string); isString && string(c.Status) != value {
			return false
		}
	}
	return true
}

// Ensure CustomerRepository implements partner.CustomerRepository
var _ partner.CustomerRepository = (*CustomerRepository)(nil)
