package billing

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteFilter defines filtering options for quote queries
type QuoteFilter struct {
	shared.Filter
	CustomerID *uuid.UUID   // Filter by customer
	Status     *QuoteStatus // Filter by status
	FromDate   *time.Time   // Filter by issue date range start
	ToDate     *time.Time   // Filter by issue date range end
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID *uuid.UUID     // Filter by customer
	Status     *InvoiceStatus // Filter by status
	QuoteID    *uuid.UUID     // Filter by source quote
	FromDate   *time.Time     // Filter by issue date range start
	ToDate     *time.Time     // Filter by issue date range end
	Overdue    *bool          // Filter only past-due invoices
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	CustomerID *uuid.UUID     // Filter by customer
	InvoiceID  *uuid.UUID     // Filter by invoice
	Status     *PaymentStatus // Filter by status
	FromDate   *time.Time     // Filter by payment date range start
	ToDate     *time.Time     // Filter by payment date range end
}

// StatusCount pairs a status value with the number of documents carrying it
type StatusCount struct {
	Status string
	Count  int64
}

// QuoteWindowStats holds the aggregates for quotes created in a time window
type QuoteWindowStats struct {
	Total        decimal.Decimal
	TotalCount   int64
	StatusCounts []StatusCount
}

// InvoiceWindowStats holds the aggregates for invoices created in a time window
type InvoiceWindowStats struct {
	Total        decimal.Decimal
	TotalUndue   decimal.Decimal // Sum of (total_amount - paid_amount) over undue statuses
	TotalCount   int64
	StatusCounts []StatusCount
}

// PaymentWindowStats holds the aggregates for completed payments in a time window
type PaymentWindowStats struct {
	Count int64
	Total decimal.Decimal
}

// QuoteRepository defines the interface for quote persistence
type QuoteRepository interface {
	// FindByID finds a quote by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)

	// FindByNumber finds a quote by quote number
	FindByNumber(ctx context.Context, quoteNumber string) (*Quote, error)

	// FindAll finds quotes with filtering, ordered by creation unless the filter says otherwise
	FindAll(ctx context.Context, filter QuoteFilter) ([]Quote, error)

	// Count counts quotes matching the filter
	Count(ctx context.Context, filter QuoteFilter) (int64, error)

	// Save creates or updates a quote
	Save(ctx context.Context, quote *Quote) error

	// SaveWithLock saves with optimistic locking (version check)
	// Returns CONCURRENCY_CONFLICT if the stored version has moved on
	SaveWithLock(ctx context.Context, quote *Quote) error

	// Delete deletes a quote
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByNumber checks if a quote number is already taken
	ExistsByNumber(ctx context.Context, quoteNumber string) (bool, error)

	// SummarizeWindow aggregates quotes issued in the half-open window [from, to)
	SummarizeWindow(ctx context.Context, from, to time.Time) (*QuoteWindowStats, error)
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by invoice number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindByQuoteID finds the invoice produced from a quote, if any
	FindByQuoteID(ctx context.Context, quoteID uuid.UUID) (*Invoice, error)

	// FindAll finds invoices with filtering
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	// Returns CONCURRENCY_CONFLICT if the stored version has moved on
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete deletes an invoice
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByNumber checks if an invoice number is already taken
	ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error)

	// SummarizeWindow aggregates invoices issued in the half-open window [from, to)
	SummarizeWindow(ctx context.Context, from, to time.Time) (*InvoiceWindowStats, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindAll finds payments with filtering
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)

	// Count counts payments matching the filter
	Count(ctx context.Context, filter PaymentFilter) (int64, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	// Returns CONCURRENCY_CONFLICT if the stored version has moved on
	SaveWithLock(ctx context.Context, payment *Payment) error

	// Delete deletes a payment
	Delete(ctx context.Context, id uuid.UUID) error

	// SumCompletedForInvoice computes the invoice's coverage: the sum of all
	// completed payment amounts attached to it
	SumCompletedForInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)

	// SummarizeWindow aggregates completed payments dated in the half-open window [from, to)
	SummarizeWindow(ctx context.Context, from, to time.Time) (*PaymentWindowStats, error)
}
