package billing

import (
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteCreatedEvent is raised when a new quote is created
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	QuoteID     uuid.UUID       `json:"quote_id"`
	QuoteNumber string          `json:"quote_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	IssueDate   time.Time       `json:"issue_date"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// EventType returns the event type name
func (e *QuoteCreatedEvent) EventType() string {
	return "QuoteCreated"
}

// NewQuoteCreatedEvent creates a new QuoteCreatedEvent
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("QuoteCreated", "Quote", q.ID),
		QuoteID:         q.ID,
		QuoteNumber:     q.QuoteNumber,
		CustomerID:      q.CustomerID,
		TotalAmount:     q.TotalAmount,
		IssueDate:       q.IssueDate,
		ExpiryDate:      q.ExpiryDate,
	}
}

// QuoteStatusChangedEvent is raised on quote lifecycle transitions
type QuoteStatusChangedEvent struct {
	shared.BaseDomainEvent
	QuoteID        uuid.UUID   `json:"quote_id"`
	QuoteNumber    string      `json:"quote_number"`
	PreviousStatus QuoteStatus `json:"previous_status"`
	NewStatus      QuoteStatus `json:"new_status"`
}

// EventType returns the event type name
func (e *QuoteStatusChangedEvent) EventType() string {
	return "QuoteStatusChanged"
}

// NewQuoteStatusChangedEvent creates a new QuoteStatusChangedEvent
func NewQuoteStatusChangedEvent(q *Quote, previous QuoteStatus) *QuoteStatusChangedEvent {
	return &QuoteStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("QuoteStatusChanged", "Quote", q.ID),
		QuoteID:         q.ID,
		QuoteNumber:     q.QuoteNumber,
		PreviousStatus:  previous,
		NewStatus:       q.Status,
	}
}

// QuoteAcceptedEvent is raised when a customer accepts a quote
type QuoteAcceptedEvent struct {
	shared.BaseDomainEvent
	QuoteID        uuid.UUID       `json:"quote_id"`
	QuoteNumber    string          `json:"quote_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PreviousStatus QuoteStatus     `json:"previous_status"`
}

// EventType returns the event type name
func (e *QuoteAcceptedEvent) EventType() string {
	return "QuoteAccepted"
}

// NewQuoteAcceptedEvent creates a new QuoteAcceptedEvent
func NewQuoteAcceptedEvent(q *Quote, previous QuoteStatus) *QuoteAcceptedEvent {
	return &QuoteAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("QuoteAccepted", "Quote", q.ID),
		QuoteID:         q.ID,
		QuoteNumber:     q.QuoteNumber,
		CustomerID:      q.CustomerID,
		TotalAmount:     q.TotalAmount,
		PreviousStatus:  previous,
	}
}

// QuoteConvertedEvent is raised when a quote is converted into an invoice
type QuoteConvertedEvent struct {
	shared.BaseDomainEvent
	QuoteID        uuid.UUID   `json:"quote_id"`
	QuoteNumber    string      `json:"quote_number"`
	InvoiceID      uuid.UUID   `json:"invoice_id"`
	PreviousStatus QuoteStatus `json:"previous_status"`
}

// EventType returns the event type name
func (e *QuoteConvertedEvent) EventType() string {
	return "QuoteConverted"
}

// NewQuoteConvertedEvent creates a new QuoteConvertedEvent
func NewQuoteConvertedEvent(q *Quote, previous QuoteStatus, invoiceID uuid.UUID) *QuoteConvertedEvent {
	return &QuoteConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("QuoteConverted", "Quote", q.ID),
		QuoteID:         q.ID,
		QuoteNumber:     q.QuoteNumber,
		InvoiceID:       invoiceID,
		PreviousStatus:  previous,
	}
}
