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

// InvoiceRepository is an in-memory implementation of billing.InvoiceRepository
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]billing.Invoice
}

// NewInvoiceRepository creates a new in-memory invoice repository
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{invoices: make(map[uuid.UUID]billing.Invoice)}
}

func cloneInvoice(inv billing.Invoice) billing.Invoice {
	c := inv
	c.LineItems = append(billing.LineItems(nil), inv.LineItems...)
	c.ClearDomainEvents()
	return c
}

// FindByID finds an invoice by ID. Returns (nil, nil) when no invoice exists.
func (r *InvoiceRepository) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, exists := r.invoices[id]
	if !exists {
		return nil, nil
	}
	c := cloneInvoice(inv)
	return &c, nil
}

// FindByNumber finds an invoice by invoice number. Returns (nil, nil) when no invoice exists.
func (r *InvoiceRepository) FindByNumber(_ context.Context, invoiceNumber string) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invoices {
		if inv.InvoiceNumber == invoiceNumber {
			c := cloneInvoice(inv)
			return &c, nil
		}
	}
	return nil, nil
}

// FindByQuoteID finds the invoice produced from a quote, if any.
// Returns (nil, nil) when the quote has not produced an invoice.
func (r *InvoiceRepository) FindByQuoteID(_ context.Context, quoteID uuid.UUID) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invoices {
		if inv.QuoteID != nil && *inv.QuoteID == quoteID {
			c := cloneInvoice(inv)
			return &c, nil
		}
	}
	return nil, nil
}

// FindAll finds invoices matching the filter
func (r *InvoiceRepository) FindAll(_ context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	matched := make([]billing.Invoice, 0)
	for _, inv := range r.invoices {
		if matchInvoice(inv, filter, now) {
			matched = append(matched, cloneInvoice(inv))
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

// Count counts invoices matching the filter
func (r *InvoiceRepository) Count(_ context.Context, filter billing.InvoiceFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var count int64
	for _, inv := range r.invoices {
		if matchInvoice(inv, filter, now) {
			count++
		}
	}
	return count, nil
}

// Save creates or updates an invoice
func (r *InvoiceRepository) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirror the SQL backend's unique quote_id back-reference: a second
	// invoice for the same quote is a conflict, not a silent duplicate.
	if invoice.QuoteID != nil {
		for _, stored := range r.invoices {
			if stored.ID != invoice.ID && stored.QuoteID != nil && *stored.QuoteID == *invoice.QuoteID {
				return shared.ErrAlreadyExists
			}
		}
	}

	r.invoices[invoice.ID] = cloneInvoice(*invoice)
	return nil
}

// SaveWithLock saves an invoice with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if the stored version has moved on.
func (r *InvoiceRepository) SaveWithLock(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.invoices[invoice.ID]
	if exists && stored.Version != invoice.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.invoices[invoice.ID] = cloneInvoice(*invoice)
	return nil
}

// Delete deletes an invoice
func (r *InvoiceRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[id]; !exists {
		return shared.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

// ExistsByNumber checks if an invoice number is already taken
func (r *InvoiceRepository) ExistsByNumber(_ context.Context, invoiceNumber string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inv := range r.invoices {
		if inv.InvoiceNumber == invoiceNumber {
			return true, nil
		}
	}
	return false, nil
}

// SummarizeWindow aggregates invoices issued in the half-open window [from, to)
func (r *InvoiceRepository) SummarizeWindow(_ context.Context, from, to time.Time) (*billing.InvoiceWindowStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	undue := make(map[billing.InvoiceStatus]bool)
	for _, s := range billing.UndueInvoiceStatuses() {
		undue[s] = true
	}

	stats := &billing.InvoiceWindowStats{Total: decimal.Zero, TotalUndue: decimal.Zero}
	byStatus := make(map[string]int64)
	for _, inv := range r.invoices {
		if !inWindow(inv.IssueDate, from, to) {
			continue
		}
		stats.Total = stats.Total.Add(inv.TotalAmount)
		stats.TotalCount++
		byStatus[inv.Status.String()]++
		if undue[inv.Status] {
			stats.TotalUndue = stats.TotalUndue.Add(inv.TotalAmount.Sub(inv.PaidAmount))
		}
	}
	stats.StatusCounts = statusCounts(byStatus)

	return stats, nil
}

func matchInvoice(inv billing.Invoice, filter billing.InvoiceFilter, now time.Time) bool {
	if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.Status != nil && inv.Status != *filter.Status {
		return false
	}
	if filter.QuoteID != nil && (inv.QuoteID == nil || *inv.QuoteID != *filter.QuoteID) {
		return false
	}
	if filter.FromDate != nil && inv.IssueDate.Before(*filter.FromDate) {
		return false
	}
	if filter.ToDate != nil && !inv.IssueDate.Before(*filter.ToDate) {
		return false
	}
	if filter.Overdue != nil && *filter.Overdue {
		if inv.DueDate == nil || !inv.DueDate.Before(now) {
			return false
		}
		undue := false
		for _, s := range billing.UndueInvoiceStatuses() {
			if inv.Status == s {
				undue = true
				break
			}
		}
		if !undue {
			return false
		}
	}
	return true
}

// Ensure InvoiceRepository implements billing.InvoiceRepository
var _ billing.InvoiceRepository = (*InvoiceRepository)(nil)
