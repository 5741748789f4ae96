package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRepository is an in-memory implementation of billing.PaymentRepository
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]billing.Payment
}

// NewPaymentRepository creates a new in-memory payment repository
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[uuid.UUID]billing.Payment)}
}

func clonePayment(p billing.Payment) billing.Payment {
	c := p
	c.ClearDomainEvents()
	return c
}

// FindByID finds a payment by ID. Returns (nil, nil) when no payment exists.
func (r *PaymentRepository) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.payments[id]
	if !exists {
		return nil, nil
	}
	c := clonePayment(p)
	return &c, nil
}

// FindAll finds payments matching the filter
func (r *PaymentRepository) FindAll(_ context.Context, filter billing.PaymentFilter) ([]billing.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]billing.Payment, 0)
	for _, p := range r.payments {
		if matchPayment(p, filter) {
			matched = append(matched, clonePayment(p))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	return paginate(matched, filter.Page, filter.PageSize), nil
}

// Count counts payments matching the filter
func (r *PaymentRepository) Count(_ context.Context, filter billing.PaymentFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, p := range r.payments {
		if matchPayment(p, filter) {
			count++
		}
	}
	return count, nil
}

// Save creates or updates a payment
func (r *PaymentRepository) Save(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments[payment.ID] = clonePayment(*payment)
	return nil
}

// SaveWithLock saves a payment with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if the stored version has moved on.
func (r *PaymentRepository) SaveWithLock(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.payments[payment.ID]
	if exists && stored.Version != payment.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.payments[payment.ID] = clonePayment(*payment)
	return nil
}

// Delete deletes a payment
func (r *PaymentRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[id]; !exists {
		return shared.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

// SumCompletedForInvoice computes the invoice's coverage: the sum of all
// completed payment amounts attached to it
func (r *PaymentRepository) SumCompletedForInvoice(_ context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, p := range r.payments {
		if p.Status == billing.PaymentStatusCompleted && p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

// SummarizeWindow aggregates completed payments dated in the half-open window [from, to)
func (r *PaymentRepository) SummarizeWindow(_ context.Context, from, to time.Time) (*billing.PaymentWindowStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &billing.PaymentWindowStats{Total: decimal.Zero}
	for _, p := range r.payments {
		if p.Status != billing.PaymentStatusCompleted {
			continue
		}
		if !inWindow(p.PaymentDate, from, to) {
			continue
		}
		stats.Count++
		stats.Total = stats.Total.Add(p.Amount)
	}
	return stats, nil
}

func matchPayment(p billing.Payment, filter billing.PaymentFilter) bool {
	if filter.CustomerID != nil && p.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.InvoiceID != nil && (p.InvoiceID == nil || *p.InvoiceID != *filter.InvoiceID) {
		return false
	}
	if filter.Status != nil && p.Status != *filter.Status {
		return false
	}
	if filter.FromDate != nil && p.PaymentDate.Before(*filter.FromDate) {
		return false
	}
	if filter.ToDate != nil && !p.PaymentDate.Before(*filter.ToDate) {
		return false
	}
	return true
}

// Ensure PaymentRepository implements billing.PaymentRepository
var _ billing.PaymentRepository = (*PaymentRepository)(nil)
