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

// QuoteRepository is an in-memory implementation of billing.QuoteRepository
type QuoteRepository struct {
	mu     sync.RWMutex
	quotes map[uuid.UUID]billing.Quote
}

// NewQuoteRepository creates a new in-memory quote repository
func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{quotes: make(map[uuid.UUID]billing.Quote)}
}

func cloneQuote(q billing.Quote) billing.Quote {
	c := q
	c.LineItems = append(billing.LineItems(nil), q.LineItems...)
	c.ClearDomainEvents()
	return c
}

// FindByID finds a quote by ID. Returns (nil, nil) when no quote exists.
func (r *QuoteRepository) FindByID(_ context.Context, id uuid.UUID) (*billing.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, exists := r.quotes[id]
	if !exists {
		return nil, nil
	}
	c := cloneQuote(q)
	return &c, nil
}

// FindByNumber finds a quote by quote number. Returns (nil, nil) when no quote exists.
func (r *QuoteRepository) FindByNumber(_ context.Context, quoteNumber string) (*billing.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.quotes {
		if q.QuoteNumber == quoteNumber {
			c := cloneQuote(q)
			return &c, nil
		}
	}
	return nil, nil
}

// FindAll finds quotes matching the filter
func (r *QuoteRepository) FindAll(_ context.Context, filter billing.QuoteFilter) ([]billing.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]billing.Quote, 0)
	for _, q := range r.quotes {
		if matchQuote(q, filter) {
			matched = append(matched, cloneQuote(q))
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

// Count counts quotes matching the filter
func (r *QuoteRepository) Count(_ context.Context, filter billing.QuoteFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, q := range r.quotes {
		if matchQuote(q, filter) {
			count++
		}
	}
	return count, nil
}

// Save creates or updates a quote
func (r *QuoteRepository) Save(_ context.Context, quote *billing.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.quotes[quote.ID] = cloneQuote(*quote)
	return nil
}

// SaveWithLock saves a quote with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if the stored version has moved on.
func (r *QuoteRepository) SaveWithLock(_ context.Context, quote *billing.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.quotes[quote.ID]
	if exists && stored.Version != quote.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.quotes[quote.ID] = cloneQuote(*quote)
	return nil
}

// Delete deletes a quote
func (r *QuoteRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.quotes[id]; !exists {
		return shared.ErrNotFound
	}
	delete(r.quotes, id)
	return nil
}

// ExistsByNumber checks if a quote number is already taken
func (r *QuoteRepository) ExistsByNumber(_ context.Context, quoteNumber string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.quotes {
		if q.QuoteNumber == quoteNumber {
			return true, nil
		}
	}
	return false, nil
}

// SummarizeWindow aggregates quotes issued in the half-open window [from, to)
func (r *QuoteRepository) SummarizeWindow(_ context.Context, from, to time.Time) (*billing.QuoteWindowStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &billing.QuoteWindowStats{Total: decimal.Zero}
	byStatus := make(map[string]int64)
	for _, q := range r.quotes {
		if !inWindow(q.IssueDate, from, to) {
			continue
		}
		stats.Total = stats.Total.Add(q.TotalAmount)
		stats.TotalCount++
		byStatus[q.Status.String()]++
	}
	stats.StatusCounts = statusCounts(byStatus)

	return stats, nil
}

func matchQuote(q billing.Quote, filter billing.QuoteFilter) bool {
	if filter.CustomerID != nil && q.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.Status != nil && q.Status != *filter.Status {
		return false
	}
	if filter.FromDate != nil && q.IssueDate.Before(*filter.FromDate) {
		return false
	}
	if filter.ToDate != nil && !q.IssueDate.Before(*filter.ToDate) {
		return false
	}
	return true
}

// Ensure QuoteRepository implements billing.QuoteRepository
var _ billing.QuoteRepository = (*QuoteRepository)(nil)
