package billing

import (
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentCreatedEvent is raised when a new payment is recorded
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentDate   time.Time       `json:"payment_date"`
}

// EventType returns the event type name
func (e *PaymentCreatedEvent) EventType() string {
	return "PaymentCreated"
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentCreated", "Payment", p.ID),
		PaymentID:       p.ID,
		CustomerID:      p.CustomerID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod,
		PaymentDate:     p.PaymentDate,
	}
}

// PaymentCompletedEvent is raised when a payment is confirmed
// This is the only event that triggers invoice coverage recomputation
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	InvoiceID   *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	CompletedAt time.Time       `json:"completed_at"`
}

// EventType returns the event type name
func (e *PaymentCompletedEvent) EventType() string {
	return "PaymentCompleted"
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	completedAt := time.Now()
	if p.CompletedAt != nil {
		completedAt = *p.CompletedAt
	}
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentCompleted", "Payment", p.ID),
		PaymentID:       p.ID,
		CustomerID:      p.CustomerID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		CompletedAt:     completedAt,
	}
}

// PaymentStatusChangedEvent is raised on payment lifecycle transitions
type PaymentStatusChangedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID     `json:"payment_id"`
	PreviousStatus PaymentStatus `json:"previous_status"`
	NewStatus      PaymentStatus `json:"new_status"`
	FailureReason  string        `json:"failure_reason,omitempty"`
}

// EventType returns the event type name
func (e *PaymentStatusChangedEvent) EventType() string {
	return "PaymentStatusChanged"
}

// NewPaymentStatusChangedEvent creates a new PaymentStatusChangedEvent
func NewPaymentStatusChangedEvent(p *Payment, previous PaymentStatus) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentStatusChanged", "Payment", p.ID),
		PaymentID:       p.ID,
		PreviousStatus:  previous,
		NewStatus:       p.Status,
		FailureReason:   p.FailureReason,
	}
}
