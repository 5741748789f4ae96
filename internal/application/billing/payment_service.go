package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxRecomputeAttempts bounds the optimistic read-recompute-write loop on the
// invoice during payment confirmation. Exhaustion surfaces as a conflict.
const maxRecomputeAttempts = 3

// PaymentService orchestrates payment application and confirmation.
// It is the only code path allowed to change an invoice's coverage.
type PaymentService struct {
	paymentRepo billing.PaymentRepository
	invoiceRepo billing.InvoiceRepository
	customers   partner.CustomerDirectory
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo billing.PaymentRepository,
	invoiceRepo billing.InvoiceRepository,
	customers partner.CustomerDirectory,
	events shared.EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		customers:   customers,
		events:      events,
		logger:      logger,
	}
}

// CreatePaymentRequest represents a request to record a payment
type CreatePaymentRequest struct {
	CustomerID      uuid.UUID
	InvoiceID       *uuid.UUID
	Amount          decimal.Decimal
	PaymentMethod   string
	PaymentDate     *time.Time
	ReferenceNumber string
	Notes           string
	CreatedBy       *uuid.UUID
}

// ApplyPaymentRequest represents a request to apply a payment against an invoice
type ApplyPaymentRequest struct {
	InvoiceID       uuid.UUID
	Amount          decimal.Decimal
	PaymentMethod   string
	PaymentDate     *time.Time
	ReferenceNumber string
	Notes           string
	CreatedBy       *uuid.UUID
}

// PaymentResult carries a payment together with the invoice it affects, if any
type PaymentResult struct {
	Payment *billing.Payment
	Invoice *billing.Invoice
}

// CreatePayment records a new pending payment, attached to an invoice or not
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*billing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer span.End()

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		err := shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
		telemetry.RecordError(span, err)
		return nil, err
	}

	exists, err := s.customers.Exists(ctx, req.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check customer: %w", err)
	}
	if !exists {
		err := shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.InvoiceID != nil {
		invoice, err := s.invoiceRepo.FindByID(ctx, *req.InvoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get invoice: %w", err)
		}
		if invoice == nil {
			err := shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
			telemetry.RecordError(span, err)
			return nil, err
		}
		if invoice.IsCancelled() {
			err := shared.NewDomainError("INVOICE_CANCELLED", "Cannot apply payments to a cancelled invoice")
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	payment, err := billing.NewPayment(req.CustomerID, req.InvoiceID, req.Amount,
		req.PaymentMethod, paymentDate, req.ReferenceNumber, req.Notes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != nil {
		payment.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	publishEvents(ctx, s.events, s.logger, payment)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrAmount, payment.Amount.String(),
	)

	return payment, nil
}

// ApplyPayment records a pending payment against an invoice.
// The invoice's status is untouched until the payment is confirmed.
func (s *PaymentService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, req.InvoiceID.String())

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		err := shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice == nil {
		err := shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if invoice.IsCancelled() {
		err := shared.NewDomainError("INVOICE_CANCELLED", "Cannot apply payments to a cancelled invoice")
		telemetry.RecordError(span, err)
		return nil, err
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	payment, err := billing.NewPayment(invoice.CustomerID, &invoice.ID, req.Amount,
		req.PaymentMethod, paymentDate, req.ReferenceNumber, req.Notes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != nil {
		payment.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	publishEvents(ctx, s.events, s.logger, payment)

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, payment.ID.String())

	return &PaymentResult{Payment: payment, Invoice: invoice}, nil
}

// ConfirmPayment completes a pending payment and rederives the attached
// invoice's status from its new coverage.
//
// Confirming an already-completed payment is idempotent and returns the
// current state. A failed or cancelled payment cannot be confirmed.
//
// The recomputation runs as a bounded optimistic loop: read the invoice,
// sum completed payments, derive the status, write back keyed on the stored
// version. Losing the version race retries; exhaustion surfaces a conflict.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "confirm")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		err := shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	switch payment.Status {
	case billing.PaymentStatusCompleted:
		// Idempotent, but still recompute the invoice's coverage: if a prior
		// confirmation completed the payment and then lost every write attempt
		// on the invoice, retrying the confirm is what repairs it.
		result := &PaymentResult{Payment: payment}
		if payment.IsAttached() {
			invoice, err := s.recomputeInvoiceCoverage(ctx, *payment.InvoiceID)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			result.Invoice = invoice
		}
		return result, nil
	case billing.PaymentStatusFailed, billing.PaymentStatusCancelled:
		err := shared.NewDomainError("PAYMENT_NOT_CONFIRMABLE",
			fmt.Sprintf("Cannot confirm payment in %s status", payment.Status))
		telemetry.RecordError(span, err)
		return nil, err
	}

	if payment.IsAttached() {
		invoice, err := s.invoiceRepo.FindByID(ctx, *payment.InvoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get invoice: %w", err)
		}
		if invoice == nil {
			err := shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
			telemetry.RecordError(span, err)
			return nil, err
		}
		if invoice.IsCancelled() {
			err := shared.NewDomainError("INVOICE_CANCELLED", "Cannot apply payments to a cancelled invoice")
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := payment.Complete(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	// Conditional pending -> completed: losing the version race means another
	// confirmation or transition got there first
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	publishEvents(ctx, s.events, s.logger, payment)

	result := &PaymentResult{Payment: payment}
	if payment.IsAttached() {
		invoice, err := s.recomputeInvoiceCoverage(ctx, *payment.InvoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		result.Invoice = invoice
		telemetry.AddEvent(span, "invoice_coverage_recomputed",
			telemetry.SpanAttrInvoiceID, invoice.ID.String(),
			telemetry.SpanAttrStatus, invoice.Status.String(),
		)
	}

	return result, nil
}

// recomputeInvoiceCoverage reruns the read-recompute-write cycle until the
// conditional write lands or the attempt bound is hit
func (s *PaymentService) recomputeInvoiceCoverage(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, error) {
	var lastErr error
	for attempt := 0; attempt < maxRecomputeAttempts; attempt++ {
		invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to get invoice: %w", err)
		}
		if invoice == nil {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
		}

		paid, err := s.paymentRepo.SumCompletedForInvoice(ctx, invoiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum completed payments: %w", err)
		}

		if err := invoice.RefreshCoverage(paid, time.Now()); err != nil {
			return nil, err
		}

		err = s.invoiceRepo.SaveWithLock(ctx, invoice)
		if err == nil {
			publishEvents(ctx, s.events, s.logger, invoice)
			return invoice, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, fmt.Errorf("failed to save invoice: %w", err)
		}
		lastErr = err
		s.logger.Debug("invoice coverage write lost version race, retrying",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("invoice coverage recomputation exhausted %d attempts: %w", maxRecomputeAttempts, lastErr)
}

// FailPayment marks a pending payment as failed
func (s *PaymentService) FailPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*billing.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.Fail(reason); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	publishEvents(ctx, s.events, s.logger, payment)
	return payment, nil
}

// CancelPayment cancels a pending payment
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID uuid.UUID) (*billing.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.Cancel(); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	publishEvents(ctx, s.events, s.logger, payment)
	return payment, nil
}

// UpdatePayment applies a partial update to a pending payment's descriptive fields
func (s *PaymentService) UpdatePayment(ctx context.Context, paymentID uuid.UUID, update billing.PaymentUpdate) (*billing.Payment, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.Apply(update); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// GetPayment returns a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*billing.Payment, error) {
	return s.loadPayment(ctx, paymentID)
}

// ListPayments returns payments matching the filter plus the total count
func (s *PaymentService) ListPayments(ctx context.Context, filter billing.PaymentFilter) ([]billing.Payment, int64, error) {
	payments, err := s.paymentRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	total, err := s.paymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return payments, total, nil
}

func (s *PaymentService) loadPayment(ctx context.Context, paymentID uuid.UUID) (*billing.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	}
	return payment, nil
}
