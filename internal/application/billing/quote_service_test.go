package billing

import (
	"context"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQuote(t *testing.T, total float64) *billing.Quote {
	t.Helper()
	quote, err := billing.NewQuote("QUO-TEST-0001", uuid.New(), time.Now(), nil,
		decimal.NewFromFloat(total), decimal.Zero, decimal.Zero, nil, "net 30", "payable on receipt")
	require.NoError(t, err)
	quote.ClearDomainEvents()
	return quote
}

func TestCreateQuote_GeneratesNumberWhenEmpty(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	customers := new(MockCustomerDirectory)
	service := NewQuoteService(quoteRepo, new(MockInvoiceRepository), customers, nil, zap.NewNop())

	customerID := uuid.New()
	customers.On("Exists", mock.Anything, customerID).Return(true, nil)
	quoteRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Quote")).Return(nil)

	quote, err := service.CreateQuote(context.Background(), CreateQuoteRequest{
		CustomerID:  customerID,
		TotalAmount: decimal.NewFromFloat(150.00),
		TaxAmount:   decimal.NewFromFloat(12.00),
	})

	require.NoError(t, err)
	assert.Regexp(t, `^QUO-\d{8}-[0-9A-F]{8}$`, quote.QuoteNumber)
	assert.Equal(t, billing.QuoteStatusDraft, quote.Status)
	quoteRepo.AssertNotCalled(t, "ExistsByNumber", mock.Anything, mock.Anything)
}

func TestCreateQuote_RejectsDuplicateNumber(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	customers := new(MockCustomerDirectory)
	service := NewQuoteService(quoteRepo, new(MockInvoiceRepository), customers, nil, zap.NewNop())

	customerID := uuid.New()
	customers.On("Exists", mock.Anything, customerID).Return(true, nil)
	quoteRepo.On("ExistsByNumber", mock.Anything, "QUO-DUP").Return(true, nil)

	_, err := service.CreateQuote(context.Background(), CreateQuoteRequest{
		QuoteNumber: "QUO-DUP",
		CustomerID:  customerID,
		TotalAmount: decimal.NewFromFloat(10.00),
	})

	assertDomainCode(t, err, "DUPLICATE_QUOTE_NUMBER")
}

func TestConvertQuote_CreatesInvoiceAndMarksConverted(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	invoiceRepo := new(MockInvoiceRepository)
	service := NewQuoteService(quoteRepo, invoiceRepo, new(MockCustomerDirectory), nil, zap.NewNop())

	quote := newTestQuote(t, 300.00)
	require.NoError(t, quote.Accept())
	quote.ClearDomainEvents()

	quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil)
	invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)
	quoteRepo.On("SaveWithLock", mock.Anything, quote).Return(nil)

	due := time.Now().Add(30 * 24 * time.Hour)
	result, err := service.ConvertQuote(context.Background(), ConvertQuoteRequest{
		QuoteID: quote.ID,
		DueDate: &due,
	})

	require.NoError(t, err)
	assert.Equal(t, billing.QuoteStatusConverted, result.Quote.Status)
	assert.Equal(t, billing.InvoiceStatusDraft, result.Invoice.Status)
	require.NotNil(t, result.Invoice.QuoteID)
	assert.Equal(t, quote.ID, *result.Invoice.QuoteID)
	assert.True(t, result.Invoice.TotalAmount.Equal(quote.TotalAmount))
	assert.Equal(t, quote.Notes, result.Invoice.Notes)
	assert.Equal(t, quote.Terms, result.Invoice.Terms)
	invoiceRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestConvertQuote_RejectsTerminalQuote(t *testing.T) {
	for _, terminate := range []func(*billing.Quote) error{
		func(q *billing.Quote) error { return q.Decline() },
		func(q *billing.Quote) error { return q.Expire() },
		func(q *billing.Quote) error { return q.MarkConverted(uuid.New()) },
	} {
		quoteRepo := new(MockQuoteRepository)
		invoiceRepo := new(MockInvoiceRepository)
		service := NewQuoteService(quoteRepo, invoiceRepo, new(MockCustomerDirectory), nil, zap.NewNop())

		quote := newTestQuote(t, 300.00)
		require.NoError(t, terminate(quote))

		quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil)

		_, err := service.ConvertQuote(context.Background(), ConvertQuoteRequest{QuoteID: quote.ID})

		assertDomainCode(t, err, "ALREADY_CONVERTED")
		invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	}
}

func TestConvertQuote_CompensatesOnLostRace(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	invoiceRepo := new(MockInvoiceRepository)
	service := NewQuoteService(quoteRepo, invoiceRepo, new(MockCustomerDirectory), nil, zap.NewNop())

	quote := newTestQuote(t, 300.00)

	// The winner's state as a later read would see it
	winnerInvoiceID := uuid.New()
	winnerQuote := newTestQuote(t, 300.00)
	winnerQuote.ID = quote.ID
	require.NoError(t, winnerQuote.MarkConverted(winnerInvoiceID))
	winnerQuote.ClearDomainEvents()
	winnerInvoice := newTestInvoice(t, 300.00)
	winnerInvoice.ID = winnerInvoiceID

	quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil).Once()
	invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)
	quoteRepo.On("SaveWithLock", mock.Anything, quote).Return(shared.ErrConcurrencyConflict)
	invoiceRepo.On("Delete", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil)
	quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(winnerQuote, nil)
	invoiceRepo.On("FindByQuoteID", mock.Anything, quote.ID).Return(winnerInvoice, nil)

	result, err := service.ConvertQuote(context.Background(), ConvertQuoteRequest{QuoteID: quote.ID})

	assertDomainCode(t, err, "ALREADY_CONVERTED")
	// The loser's invoice is rolled back and the winner's is surfaced
	invoiceRepo.AssertCalled(t, "Delete", mock.Anything, mock.AnythingOfType("uuid.UUID"))
	require.NotNil(t, result)
	assert.Equal(t, winnerInvoiceID, result.Invoice.ID)
}

func TestConvertQuote_DuplicateBackReferenceIsConflict(t *testing.T) {
	// The winner committed its invoice between our read and our write, so the
	// unique quote_id back-reference rejects the save. That must surface as
	// the same conflict as losing the version race, never as an internal error.
	quoteRepo := new(MockQuoteRepository)
	invoiceRepo := new(MockInvoiceRepository)
	service := NewQuoteService(quoteRepo, invoiceRepo, new(MockCustomerDirectory), nil, zap.NewNop())

	quote := newTestQuote(t, 300.00)

	winnerQuote := newTestQuote(t, 300.00)
	winnerQuote.ID = quote.ID
	winnerInvoice := newTestInvoice(t, 300.00)
	require.NoError(t, winnerQuote.MarkConverted(winnerInvoice.ID))
	winnerQuote.ClearDomainEvents()

	quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil).Once()
	invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(shared.ErrAlreadyExists)
	quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(winnerQuote, nil)
	invoiceRepo.On("FindByQuoteID", mock.Anything, quote.ID).Return(winnerInvoice, nil)

	result, err := service.ConvertQuote(context.Background(), ConvertQuoteRequest{QuoteID: quote.ID})

	assertDomainCode(t, err, "ALREADY_CONVERTED")
	require.NotNil(t, result)
	assert.Equal(t, winnerInvoice.ID, result.Invoice.ID)
	quoteRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestDeleteQuote_RejectsConverted(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	service := NewQuoteService(quoteRepo, new(MockInvoiceRepository), new(MockCustomerDirectory), nil, zap.NewNop())

	quote := newTestQuote(t, 10.00)
	require.NoError(t, quote.MarkConverted(uuid.New()))

	quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil)

	err := service.DeleteQuote(context.Background(), quote.ID)

	assertDomainCode(t, err, "INVALID_STATE")
	quoteRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestQuoteTransitions(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	service := NewQuoteService(quoteRepo, new(MockInvoiceRepository), new(MockCustomerDirectory), nil, zap.NewNop())

	quote := newTestQuote(t, 10.00)
	quoteRepo.On("FindByID", mock.Anything, quote.ID).Return(quote, nil)
	quoteRepo.On("SaveWithLock", mock.Anything, quote).Return(nil)

	sent, err := service.SendQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.QuoteStatusSent, sent.Status)

	accepted, err := service.AcceptQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.QuoteStatusAccepted, accepted.Status)

	// Accepted is not terminal; declining afterwards is still allowed
	declined, err := service.DeclineQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.QuoteStatusDeclined, declined.Status)

	_, err = service.ExpireQuote(context.Background(), quote.ID)
	assertDomainCode(t, err, "INVALID_STATE")
}
