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

// QuoteService orchestrates quote lifecycle operations, including the
// quote-to-invoice conversion workflow.
type QuoteService struct {
	quoteRepo   billing.QuoteRepository
	invoiceRepo billing.InvoiceRepository
	customers   partner.CustomerDirectory
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	quoteRepo billing.QuoteRepository,
	invoiceRepo billing.InvoiceRepository,
	customers partner.CustomerDirectory,
	events shared.EventPublisher,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		customers:   customers,
		events:      events,
		logger:      logger,
	}
}

// CreateQuoteRequest represents a request to create a quote
type CreateQuoteRequest struct {
	QuoteNumber    string // Optional; generated when empty
	CustomerID     uuid.UUID
	IssueDate      *time.Time
	ExpiryDate     *time.Time
	TotalAmount    decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	LineItems      billing.LineItems
	Notes          string
	Terms          string
	CreatedBy      *uuid.UUID
}

// ConvertQuoteResult carries the outcome of a quote conversion
type ConvertQuoteResult struct {
	Quote   *billing.Quote
	Invoice *billing.Invoice
}

// CreateQuote creates a new draft quote
func (s *QuoteService) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*billing.Quote, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "create")
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

	number := req.QuoteNumber
	if number == "" {
		number = generateDocumentNumber(quoteNumberPrefix, time.Now())
	} else {
		taken, err := s.quoteRepo.ExistsByNumber(ctx, number)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to check quote number: %w", err)
		}
		if taken {
			err := shared.NewDomainError("DUPLICATE_QUOTE_NUMBER", "Quote number already exists")
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	issueDate := time.Now()
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}

	quote, err := billing.NewQuote(number, req.CustomerID, issueDate, req.ExpiryDate,
		req.TotalAmount, req.TaxAmount, req.DiscountAmount, req.LineItems, req.Notes, req.Terms)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != nil {
		quote.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.quoteRepo.Save(ctx, quote); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save quote: %w", err)
	}

	publishEvents(ctx, s.events, s.logger, quote)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, quote.ID.String(),
		telemetry.SpanAttrCustomerID, quote.CustomerID.String(),
	)

	return quote, nil
}

// GetQuote returns a quote by ID
func (s *QuoteService) GetQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Quote, error) {
	return s.loadQuote(ctx, quoteID)
}

// ListQuotes returns quotes matching the filter plus the total count
func (s *QuoteService) ListQuotes(ctx context.Context, filter billing.QuoteFilter) ([]billing.Quote, int64, error) {
	quotes, err := s.quoteRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}
	total, err := s.quoteRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return quotes, total, nil
}

// UpdateQuote applies a partial update to a quote
func (s *QuoteService) UpdateQuote(ctx context.Context, quoteID uuid.UUID, update billing.QuoteUpdate) (*billing.Quote, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "update")
	defer span.End()

	quote, err := s.loadQuote(ctx, quoteID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := quote.Apply(update); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.quoteRepo.SaveWithLock(ctx, quote); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return quote, nil
}

// DeleteQuote removes a quote. Converted quotes are kept for the invoice back-reference.
func (s *QuoteService) DeleteQuote(ctx context.Context, quoteID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "delete")
	defer span.End()

	quote, err := s.loadQuote(ctx, quoteID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if quote.Status == billing.QuoteStatusConverted {
		err := shared.NewDomainError("INVALID_STATE", "Cannot delete a converted quote")
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.quoteRepo.Delete(ctx, quoteID); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	return nil
}

// SendQuote transitions a quote from draft to sent
func (s *QuoteService) SendQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Quote, error) {
	return s.transitionQuote(ctx, "send", quoteID, (*billing.Quote).Send)
}

// MarkQuotePending transitions a quote to pending
func (s *QuoteService) MarkQuotePending(ctx context.Context, quoteID uuid.UUID) (*billing.Quote, error) {
	return s.transitionQuote(ctx, "mark_pending", quoteID, (*billing.Quote).MarkPending)
}

// AcceptQuote marks a quote accepted by the customer
func (s *QuoteService) AcceptQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Quote, error) {
	return s.transitionQuote(ctx, "accept", quoteID, (*billing.Quote).Accept)
}

// DeclineQuote marks a quote declined by the customer
func (s *QuoteService) DeclineQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Quote, error) {
	return s.transitionQuote(ctx, "decline", quoteID, (*billing.Quote).Decline)
}

// ExpireQuote marks a quote expired
func (s *QuoteService) ExpireQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Quote, error) {
	return s.transitionQuote(ctx, "expire", quoteID, (*billing.Quote).Expire)
}

func (s *QuoteService) transitionQuote(ctx context.Context, method string, quoteID uuid.UUID, transition func(*billing.Quote) error) (*billing.Quote, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", method)
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrQuoteID, quoteID.String())

	quote, err := s.loadQuote(ctx, quoteID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := transition(quote); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.quoteRepo.SaveWithLock(ctx, quote); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	publishEvents(ctx, s.events, s.logger, quote)

	telemetry.SetAttribute(span, telemetry.SpanAttrStatus, quote.Status.String())

	return quote, nil
}

// ConvertQuoteRequest represents a request to convert a quote into an invoice
type ConvertQuoteRequest struct {
	QuoteID   uuid.UUID
	DueDate   *time.Time
	Notes     string // Optional; defaults to the quote's notes
	Terms     string // Optional; defaults to the quote's terms
	CreatedBy *uuid.UUID
}

// ConvertQuote converts a quote into a draft invoice.
//
// A quote converts at most once. The invoice is created first with a
// back-reference to the quote; the quote's transition to converted is the
// commit point, written conditionally on its version. Losing that write means
// a concurrent conversion won, so the invoice just created is deleted again
// and the winner's invoice is returned.
func (s *QuoteService) ConvertQuote(ctx context.Context, req ConvertQuoteRequest) (*ConvertQuoteResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "convert")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrQuoteID, req.QuoteID.String())

	quote, err := s.loadQuote(ctx, req.QuoteID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !quote.Status.IsConvertible() {
		err := shared.NewDomainError("ALREADY_CONVERTED", fmt.Sprintf("Cannot convert quote in %s status", quote.Status))
		telemetry.RecordError(span, err)
		return nil, err
	}

	notes := req.Notes
	if notes == "" {
		notes = quote.Notes
	}
	terms := req.Terms
	if terms == "" {
		terms = quote.Terms
	}

	invoice, err := billing.NewInvoice(
		generateDocumentNumber(invoiceNumberPrefix, time.Now()),
		quote.CustomerID,
		&quote.ID,
		time.Now(),
		req.DueDate,
		quote.TotalAmount,
		quote.TaxAmount,
		quote.DiscountAmount,
		quote.LineItems,
		notes,
		terms,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != nil {
		invoice.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		// The unique quote_id back-reference caught a concurrent conversion
		// that already committed its invoice; hand the winner back.
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.convertedElsewhere(ctx, req.QuoteID)
		}
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	if err := quote.MarkConverted(invoice.ID); err != nil {
		s.compensateConversion(ctx, invoice.ID)
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.quoteRepo.SaveWithLock(ctx, quote); err != nil {
		// Another writer moved the quote first. Roll back our invoice and
		// report the conflict; if the winner was a conversion, hand back its
		// invoice so the caller still sees the converted state.
		s.compensateConversion(ctx, invoice.ID)
		telemetry.RecordError(span, err)

		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return s.convertedElsewhere(ctx, req.QuoteID)
		}
		return nil, fmt.Errorf("failed to save quote: %w", err)
	}

	publishEvents(ctx, s.events, s.logger, quote)
	publishEvents(ctx, s.events, s.logger, invoice)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber,
	)

	return &ConvertQuoteResult{Quote: quote, Invoice: invoice}, nil
}

// convertedElsewhere reports the conversion-race loss as a conflict. When the
// winner's invoice can be found it is attached to the result so the caller
// still sees the converted state.
func (s *QuoteService) convertedElsewhere(ctx context.Context, quoteID uuid.UUID) (*ConvertQuoteResult, error) {
	convErr := shared.NewDomainError("ALREADY_CONVERTED", "Quote was already converted")

	current, loadErr := s.quoteRepo.FindByID(ctx, quoteID)
	if loadErr != nil || current == nil {
		return nil, convErr
	}
	winner, findErr := s.invoiceRepo.FindByQuoteID(ctx, quoteID)
	if findErr != nil || winner == nil {
		return nil, convErr
	}
	return &ConvertQuoteResult{Quote: current, Invoice: winner}, convErr
}

// compensateConversion deletes the invoice created by a conversion attempt that
// lost the commit race. Best effort: a leftover draft invoice is harmless but noisy.
func (s *QuoteService) compensateConversion(ctx context.Context, invoiceID uuid.UUID) {
	if err := s.invoiceRepo.Delete(ctx, invoiceID); err != nil {
		s.logger.Warn("failed to delete invoice after losing conversion race",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
	}
}

func (s *QuoteService) loadQuote(ctx context.Context, quoteID uuid.UUID) (*billing.Quote, error) {
	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote == nil {
		return nil, shared.NewDomainError("QUOTE_NOT_FOUND", "Quote not found")
	}
	return quote, nil
}
