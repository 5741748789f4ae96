package billing

import (
	"context"
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

// InvoiceService orchestrates invoice lifecycle operations.
// Payment application lives in PaymentService; this service never touches
// an invoice's coverage.
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	customers   partner.CustomerDirectory
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	customers partner.CustomerDirectory,
	events shared.EventPublisher,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		customers:   customers,
		events:      events,
		logger:      logger,
	}
}

// CreateInvoiceRequest represents a request to create an invoice directly
// (not via quote conversion)
type CreateInvoiceRequest struct {
	InvoiceNumber  string // Optional; generated when empty
	CustomerID     uuid.UUID
	IssueDate      *time.Time
	DueDate        *time.Time
	TotalAmount    decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	LineItems      billing.LineItems
	Notes          string
	Terms          string
	CreatedBy      *uuid.UUID
}

// CreateInvoice creates a new draft invoice
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

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

	number := req.InvoiceNumber
	if number == "" {
		number = generateDocumentNumber(invoiceNumberPrefix, time.Now())
	} else {
		taken, err := s.invoiceRepo.ExistsByNumber(ctx, number)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to check invoice number: %w", err)
		}
		if taken {
			err := shared.NewDomainError("DUPLICATE_INVOICE_NUMBER", "Invoice number already exists")
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	issueDate := time.Now()
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}

	invoice, err := billing.NewInvoice(number, req.CustomerID, nil, issueDate, req.DueDate,
		req.TotalAmount, req.TaxAmount, req.DiscountAmount, req.LineItems, req.Notes, req.Terms)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != nil {
		invoice.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	publishEvents(ctx, s.events, s.logger, invoice)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber,
	)

	return invoice, nil
}

// GetInvoice returns an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.loadInvoice(ctx, invoiceID)
}

// ListInvoices returns invoices matching the filter plus the total count
func (s *InvoiceService) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, int64, error) {
	invoices, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	total, err := s.invoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return invoices, total, nil
}

// UpdateInvoice applies a partial update to an invoice
func (s *InvoiceService) UpdateInvoice(ctx context.Context, invoiceID uuid.UUID, update billing.InvoiceUpdate) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update")
	defer span.End()

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := invoice.Apply(update); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return invoice, nil
}

// DeleteInvoice removes a draft invoice. Invoices past draft are cancelled, not deleted.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete")
	defer span.End()

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if invoice.Status != billing.InvoiceStatusDraft {
		err := shared.NewDomainError("INVALID_STATE", "Only draft invoices can be deleted")
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.invoiceRepo.Delete(ctx, invoiceID); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}

// SendInvoice transitions an invoice from draft to sent
func (s *InvoiceService) SendInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.transitionInvoice(ctx, "send", invoiceID, (*billing.Invoice).Send)
}

// MarkInvoicePending transitions an invoice to pending
func (s *InvoiceService) MarkInvoicePending(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.transitionInvoice(ctx, "mark_pending", invoiceID, (*billing.Invoice).MarkPending)
}

// CancelInvoice cancels an invoice. Cancelled is terminal and sticky: later
// due-date passes or payment confirmations never resurrect the invoice.
func (s *InvoiceService) CancelInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) (*billing.Invoice, error) {
	return s.transitionInvoice(ctx, "cancel", invoiceID, func(inv *billing.Invoice) error {
		return inv.Cancel(reason)
	})
}

// RefreshInvoiceStatuses rederives the status of every invoice in an undue
// status against the current clock, promoting past-due invoices to overdue.
// Intended for a periodic sweep; each write is version-conditional and a lost
// race is skipped rather than retried.
func (s *InvoiceService) RefreshInvoiceStatuses(ctx context.Context, now time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "refresh_statuses")
	defer span.End()

	refreshed := 0
	for _, status := range billing.UndueInvoiceStatuses() {
		status := status
		filter := billing.InvoiceFilter{Status: &status}
		filter.Page = 1
		filter.PageSize = 500

		invoices, err := s.invoiceRepo.FindAll(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return refreshed, fmt.Errorf("failed to list %s invoices: %w", status, err)
		}

		for i := range invoices {
			invoice := &invoices[i]
			previous := invoice.Status
			if err := invoice.RefreshCoverage(invoice.PaidAmount, now); err != nil {
				continue
			}
			if invoice.Status == previous {
				continue
			}
			if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
				s.logger.Debug("skipping invoice status refresh after version conflict",
					zap.String("invoice_id", invoice.ID.String()),
					zap.Error(err),
				)
				continue
			}
			publishEvents(ctx, s.events, s.logger, invoice)
			refreshed++
		}
	}

	telemetry.SetAttribute(span, "refreshed_count", refreshed)
	return refreshed, nil
}

func (s *InvoiceService) transitionInvoice(ctx context.Context, method string, invoiceID uuid.UUID, transition func(*billing.Invoice) error) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", method)
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := transition(invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	publishEvents(ctx, s.events, s.logger, invoice)

	telemetry.SetAttribute(span, telemetry.SpanAttrStatus, invoice.Status.String())

	return invoice, nil
}

func (s *InvoiceService) loadInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}
	return invoice, nil
}
