package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed from this status
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// AllPaymentStatuses returns every known payment status
func AllPaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled,
	}
}

// Payment represents a payment aggregate root
// A payment may be attached to an invoice; only completed payments count
// toward that invoice's coverage, and all invoice mutation flows through the
// payment workflow, never through the payment itself
type Payment struct {
	shared.AuditedAggregateRoot
	CustomerID      uuid.UUID       `json:"customer_id"`
	InvoiceID       *uuid.UUID      `json:"invoice_id"` // Optional back-reference; a payment may be unattached
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	Status          PaymentStatus   `json:"status"`
	CompletedAt     *time.Time      `json:"completed_at"`
	FailureReason   string          `json:"failure_reason,omitempty"`
}

// NewPayment creates a new payment in pending status
func NewPayment(
	customerID uuid.UUID,
	invoiceID *uuid.UUID,
	amount decimal.Decimal,
	paymentMethod string,
	paymentDate time.Time,
	referenceNumber, notes string,
) (*Payment, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paymentMethod == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method cannot be empty")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	p := &Payment{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(),
		CustomerID:           customerID,
		InvoiceID:            invoiceID,
		Amount:               amount,
		PaymentMethod:        paymentMethod,
		PaymentDate:          paymentDate,
		ReferenceNumber:      referenceNumber,
		Notes:                notes,
		Status:               PaymentStatusPending,
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// Complete confirms the payment
// Only a pending payment can be completed; completed-payment confirmation is
// handled idempotently by the caller
func (p *Payment) Complete() error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete payment in %s status", p.Status))
	}

	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.CompletedAt = &now
	p.touch()
	p.AddDomainEvent(NewPaymentCompletedEvent(p))

	return nil
}

// Fail marks the payment as failed (terminal)
func (p *Payment) Fail(reason string) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}

	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.touch()
	p.AddDomainEvent(NewPaymentStatusChangedEvent(p, PaymentStatusPending))

	return nil
}

// Cancel cancels the payment before confirmation (terminal)
func (p *Payment) Cancel() error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel payment in %s status", p.Status))
	}

	p.Status = PaymentStatusCancelled
	p.touch()
	p.AddDomainEvent(NewPaymentStatusChangedEvent(p, PaymentStatusPending))

	return nil
}

// PaymentUpdate carries the descriptive fields of a partial payment update
// Nil fields are left unchanged; monetary and reference state is immutable
// once the payment leaves pending
type PaymentUpdate struct {
	PaymentMethod   *string
	PaymentDate     *time.Time
	ReferenceNumber *string
	Notes           *string
}

// Apply applies a partial update to the payment
// Only pending payments may be updated
func (p *Payment) Apply(update PaymentUpdate) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot modify payment in %s status", p.Status))
	}

	if update.PaymentMethod != nil {
		if *update.PaymentMethod == "" {
			return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method cannot be empty")
		}
		p.PaymentMethod = *update.PaymentMethod
	}
	if update.PaymentDate != nil {
		p.PaymentDate = *update.PaymentDate
	}
	if update.ReferenceNumber != nil {
		p.ReferenceNumber = *update.ReferenceNumber
	}
	if update.Notes != nil {
		p.Notes = *update.Notes
	}

	p.touch()

	return nil
}

// IsCompleted returns true if the payment has been confirmed
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// IsAttached returns true if the payment references an invoice
func (p *Payment) IsAttached() bool {
	return p.InvoiceID != nil && *p.InvoiceID != uuid.Nil
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
