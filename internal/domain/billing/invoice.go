package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusPending       InvoiceStatus = "pending"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further automatic transition occurs from this status
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// AllInvoiceStatuses returns every known invoice status, in lifecycle order
func AllInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled,
	}
}

// UndueInvoiceStatuses returns the statuses whose invoices still carry an
// outstanding balance, used for total_undue aggregation
func UndueInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusSent, InvoiceStatusPending, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue,
	}
}

// Invoice represents an invoice aggregate root
// It tracks money owed by a customer; its status is always a pure function of
// total_amount and the coverage recorded in paid_amount (see DeriveInvoiceStatus),
// except for the initial draft and the terminal cancelled
type Invoice struct {
	shared.AuditedAggregateRoot
	InvoiceNumber  string          `json:"invoice_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	QuoteID        *uuid.UUID      `json:"quote_id"` // Back-reference to the source quote, never an ownership link
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        *time.Time      `json:"due_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"` // Sum of completed payments, maintained by the payment workflow
	LineItems      LineItems       `json:"line_items"`
	Notes          string          `json:"notes"`
	Terms          string          `json:"terms"`
	Status         InvoiceStatus   `json:"status"`
	CancelledAt    *time.Time      `json:"cancelled_at"`
	CancelReason   string          `json:"cancel_reason"`
}

// NewInvoice creates a new invoice in draft status
// Unlike quotes, an invoice must carry a positive total
func NewInvoice(
	invoiceNumber string,
	customerID uuid.UUID,
	quoteID *uuid.UUID,
	issueDate time.Time,
	dueDate *time.Time,
	totalAmount, taxAmount, discountAmount decimal.Decimal,
	lineItems LineItems,
	notes, terms string,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice total amount must be positive")
	}
	if err := validateDocumentAmounts(totalAmount, taxAmount, discountAmount); err != nil {
		return nil, err
	}
	if err := lineItems.Validate(); err != nil {
		return nil, err
	}
	if lineItems == nil {
		lineItems = LineItems{}
	}

	inv := &Invoice{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		InvoiceNumber:        invoiceNumber,
		CustomerID:           customerID,
		QuoteID:              quoteID,
		IssueDate:            issueDate,
		DueDate:              dueDate,
		TotalAmount:          totalAmount,
		TaxAmount:            taxAmount,
		DiscountAmount:       discountAmount,
		PaidAmount:           decimal.Zero,
		LineItems:            lineItems,
		Notes:                notes,
		Terms:                terms,
		Status:               InvoiceStatusDraft,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// Send transitions the invoice from draft to sent
func (inv *Invoice) Send() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send invoice in %s status", inv.Status))
	}
	previous := inv.Status
	inv.Status = InvoiceStatusSent
	inv.touch()
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, previous))
	return nil
}

// MarkPending transitions the invoice to pending
func (inv *Invoice) MarkPending() error {
	if inv.Status != InvoiceStatusDraft && inv.Status != InvoiceStatusSent {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice pending in %s status", inv.Status))
	}
	previous := inv.Status
	inv.Status = InvoiceStatusPending
	inv.touch()
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, previous))
	return nil
}

// RefreshCoverage records the current coverage (sum of completed payments) and
// rederives the invoice status from it. The caller recomputes the coverage from
// the payment ledger; this method never reads storage.
func (inv *Invoice) RefreshCoverage(paid decimal.Decimal, now time.Time) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVOICE_CANCELLED", "Cannot apply payments to a cancelled invoice")
	}
	if paid.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Coverage cannot be negative")
	}

	newStatus, err := DeriveInvoiceStatus(inv.Status, inv.TotalAmount, paid, inv.DueDate, now)
	if err != nil {
		return err
	}

	previous := inv.Status
	inv.PaidAmount = paid
	inv.Status = newStatus
	inv.touch()

	if newStatus != previous {
		switch newStatus {
		case InvoiceStatusPaid:
			inv.AddDomainEvent(NewInvoicePaidEvent(inv))
		case InvoiceStatusPartiallyPaid:
			inv.AddDomainEvent(NewInvoicePartiallyPaidEvent(inv))
		default:
			inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, previous))
		}
	}

	return nil
}

// Cancel cancels the invoice (terminal, sticky)
// A fully paid invoice cannot be cancelled
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already cancelled")
	}
	if inv.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a paid invoice")
	}

	now := time.Now()
	previous := inv.Status
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.touch()
	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv, previous))

	return nil
}

// InvoiceUpdate carries the fields of a partial invoice update
// Nil fields are left unchanged
type InvoiceUpdate struct {
	IssueDate      *time.Time
	DueDate        *time.Time
	TotalAmount    *decimal.Decimal
	TaxAmount      *decimal.Decimal
	DiscountAmount *decimal.Decimal
	LineItems      *LineItems
	Notes          *string
	Terms          *string
}

// Apply applies a partial update to the invoice
// Terminal invoices are immutable; the total cannot be lowered below coverage
func (inv *Invoice) Apply(update InvoiceUpdate) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify invoice in %s status", inv.Status))
	}

	total := inv.TotalAmount
	tax := inv.TaxAmount
	discount := inv.DiscountAmount
	if update.TotalAmount != nil {
		total = *update.TotalAmount
	}
	if update.TaxAmount != nil {
		tax = *update.TaxAmount
	}
	if update.DiscountAmount != nil {
		discount = *update.DiscountAmount
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Invoice total amount must be positive")
	}
	if total.LessThan(inv.PaidAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Invoice total cannot be lowered below the amount already paid")
	}
	if err := validateDocumentAmounts(total, tax, discount); err != nil {
		return err
	}
	if update.LineItems != nil {
		if err := update.LineItems.Validate(); err != nil {
			return err
		}
		inv.LineItems = *update.LineItems
	}

	inv.TotalAmount = total
	inv.TaxAmount = tax
	inv.DiscountAmount = discount
	if update.IssueDate != nil {
		inv.IssueDate = *update.IssueDate
	}
	if update.DueDate != nil {
		inv.DueDate = update.DueDate
	}
	if update.Notes != nil {
		inv.Notes = *update.Notes
	}
	if update.Terms != nil {
		inv.Terms = *update.Terms
	}

	inv.touch()

	return nil
}

// OutstandingAmount returns the amount still owed (never negative)
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	outstanding := inv.TotalAmount.Sub(inv.PaidAmount)
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding
}

// IsCancelled returns true if the invoice is cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

func (inv *Invoice) touch() {
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}
