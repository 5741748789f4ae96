package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the lifecycle status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusDeclined  QuoteStatus = "declined"
	QuoteStatusExpired   QuoteStatus = "expired"
	QuoteStatusConverted QuoteStatus = "converted"
)

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusPending, QuoteStatusAccepted,
		QuoteStatusDeclined, QuoteStatusExpired, QuoteStatusConverted:
		return true
	}
	return false
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed from this status
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusDeclined || s == QuoteStatusExpired || s == QuoteStatusConverted
}

// IsConvertible returns true if a quote in this status may be converted to an invoice
func (s QuoteStatus) IsConvertible() bool {
	return !s.IsTerminal()
}

// AllQuoteStatuses returns every known quote status, in lifecycle order
func AllQuoteStatuses() []QuoteStatus {
	return []QuoteStatus{
		QuoteStatusDraft, QuoteStatusSent, QuoteStatusPending, QuoteStatusAccepted,
		QuoteStatusDeclined, QuoteStatusExpired, QuoteStatusConverted,
	}
}

// Quote represents a quote aggregate root
// A quote offers goods/services to a customer; once accepted it may be
// converted into exactly one invoice
type Quote struct {
	shared.AuditedAggregateRoot
	QuoteNumber    string          `json:"quote_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	IssueDate      time.Time       `json:"issue_date"`
	ExpiryDate     *time.Time      `json:"expiry_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LineItems      LineItems       `json:"line_items"`
	Notes          string          `json:"notes"`
	Terms          string          `json:"terms"`
	Status         QuoteStatus     `json:"status"`
}

// NewQuote creates a new quote in draft status
func NewQuote(
	quoteNumber string,
	customerID uuid.UUID,
	issueDate time.Time,
	expiryDate *time.Time,
	totalAmount, taxAmount, discountAmount decimal.Decimal,
	lineItems LineItems,
	notes, terms string,
) (*Quote, error) {
	if quoteNumber == "" {
		return nil, shared.NewDomainError("INVALID_QUOTE_NUMBER", "Quote number cannot be empty")
	}
	if len(quoteNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_QUOTE_NUMBER", "Quote number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
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

	q := &Quote{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		QuoteNumber:          quoteNumber,
		CustomerID:           customerID,
		IssueDate:            issueDate,
		ExpiryDate:           expiryDate,
		TotalAmount:          totalAmount,
		TaxAmount:            taxAmount,
		DiscountAmount:       discountAmount,
		LineItems:            lineItems,
		Notes:                notes,
		Terms:                terms,
		Status:               QuoteStatusDraft,
	}

	q.AddDomainEvent(NewQuoteCreatedEvent(q))

	return q, nil
}

// validateDocumentAmounts validates the shared monetary constraints of quotes and invoices
func validateDocumentAmounts(totalAmount, taxAmount, discountAmount decimal.Decimal) error {
	if totalAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Total amount cannot be negative")
	}
	if taxAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Tax amount cannot be negative")
	}
	if taxAmount.GreaterThan(totalAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Tax amount cannot exceed total amount")
	}
	if discountAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Discount amount cannot be negative")
	}
	return nil
}

// Send transitions the quote from draft to sent
func (q *Quote) Send() error {
	if q.Status != QuoteStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send quote in %s status", q.Status))
	}
	q.transition(QuoteStatusSent)
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, QuoteStatusDraft))
	return nil
}

// MarkPending transitions the quote to pending (sent, awaiting customer decision)
func (q *Quote) MarkPending() error {
	if q.Status != QuoteStatusDraft && q.Status != QuoteStatusSent {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark quote pending in %s status", q.Status))
	}
	previous := q.Status
	q.transition(QuoteStatusPending)
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, previous))
	return nil
}

// Accept marks the quote accepted by the customer
func (q *Quote) Accept() error {
	if q.Status.IsTerminal() || q.Status == QuoteStatusAccepted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot accept quote in %s status", q.Status))
	}
	previous := q.Status
	q.transition(QuoteStatusAccepted)
	q.AddDomainEvent(NewQuoteAcceptedEvent(q, previous))
	return nil
}

// Decline marks the quote declined by the customer (terminal)
func (q *Quote) Decline() error {
	if q.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot decline quote in %s status", q.Status))
	}
	previous := q.Status
	q.transition(QuoteStatusDeclined)
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, previous))
	return nil
}

// Expire marks the quote expired (terminal)
func (q *Quote) Expire() error {
	if q.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot expire quote in %s status", q.Status))
	}
	previous := q.Status
	q.transition(QuoteStatusExpired)
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, previous))
	return nil
}

// MarkConverted records that this quote has produced an invoice (terminal, immutable)
func (q *Quote) MarkConverted(invoiceID uuid.UUID) error {
	if !q.Status.IsConvertible() {
		return shared.NewDomainError("ALREADY_CONVERTED", fmt.Sprintf("Cannot convert quote in %s status", q.Status))
	}
	previous := q.Status
	q.transition(QuoteStatusConverted)
	q.AddDomainEvent(NewQuoteConvertedEvent(q, previous, invoiceID))
	return nil
}

// QuoteUpdate carries the fields of a partial quote update
// Nil fields are left unchanged
type QuoteUpdate struct {
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	TotalAmount    *decimal.Decimal
	TaxAmount      *decimal.Decimal
	DiscountAmount *decimal.Decimal
	LineItems      *LineItems
	Notes          *string
	Terms          *string
}

// Apply applies a partial update to the quote
// Terminal quotes are immutable
func (q *Quote) Apply(update QuoteUpdate) error {
	if q.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify quote in %s status", q.Status))
	}

	total := q.TotalAmount
	tax := q.TaxAmount
	discount := q.DiscountAmount
	if update.TotalAmount != nil {
		total = *update.TotalAmount
	}
	if update.TaxAmount != nil {
		tax = *update.TaxAmount
	}
	if update.DiscountAmount != nil {
		discount = *update.DiscountAmount
	}
	if err := validateDocumentAmounts(total, tax, discount); err != nil {
		return err
	}
	if update.LineItems != nil {
		if err := update.LineItems.Validate(); err != nil {
			return err
		}
		q.LineItems = *update.LineItems
	}

	q.TotalAmount = total
	q.TaxAmount = tax
	q.DiscountAmount = discount
	if update.IssueDate != nil {
		q.IssueDate = *update.IssueDate
	}
	if update.ExpiryDate != nil {
		q.ExpiryDate = update.ExpiryDate
	}
	if update.Notes != nil {
		q.Notes = *update.Notes
	}
	if update.Terms != nil {
		q.Terms = *update.Terms
	}

	q.UpdatedAt = time.Now()
	q.IncrementVersion()

	return nil
}

// IsExpired returns true if the quote is past its expiry date and not in a terminal state
func (q *Quote) IsExpired(now time.Time) bool {
	if q.Status.IsTerminal() {
		return q.Status == QuoteStatusExpired
	}
	return q.ExpiryDate != nil && now.After(*q.ExpiryDate)
}

func (q *Quote) transition(to QuoteStatus) {
	q.Status = to
	q.UpdatedAt = time.Now()
	q.IncrementVersion()
}
