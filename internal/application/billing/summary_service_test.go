package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSummaryCache is a map-backed SummaryCache for tests
type fakeSummaryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	gets    int
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{entries: make(map[string][]byte)}
}

func (c *fakeSummaryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.entries[key], nil
}

func (c *fakeSummaryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
	return nil
}

func (c *fakeSummaryCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		raw     string
		want    Period
		wantErr bool
	}{
		{"week", PeriodWeek, false},
		{"month", PeriodMonth, false},
		{"year", PeriodYear, false},
		{"", PeriodMonth, false},
		{"quarter", "", true},
		{"WEEK", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePeriod(tt.raw)
		if tt.wantErr {
			assertDomainCode(t, err, "INVALID_PERIOD")
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPeriodWindow_HalfOpenFixedSpans(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	from, to := PeriodWeek.Window(now)
	assert.Equal(t, now, to)
	assert.Equal(t, now.Add(-7*24*time.Hour), from)

	from, _ = PeriodMonth.Window(now)
	assert.Equal(t, now.Add(-30*24*time.Hour), from)

	from, _ = PeriodYear.Window(now)
	assert.Equal(t, now.Add(-365*24*time.Hour), from)
}

func TestInvoiceSummary_IncludesAllStatusesWithZeros(t *testing.T) {
	invoiceRepo := new(MockInvoiceRepository)
	service := NewSummaryService(new(MockQuoteRepository), invoiceRepo, new(MockPaymentRepository), nil, zap.NewNop())

	undue := decimal.NewFromFloat(450.00)
	invoiceRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.InvoiceWindowStats{
		Total:      decimal.NewFromFloat(1000.00),
		TotalUndue: undue,
		TotalCount: 4,
		StatusCounts: []billing.StatusCount{
			{Status: "paid", Count: 2},
			{Status: "sent", Count: 1},
			{Status: "overdue", Count: 1},
		},
	}, nil)

	summary, err := service.InvoiceSummary(context.Background(), PeriodMonth)

	require.NoError(t, err)
	require.NotNil(t, summary.TotalUndue)
	assert.True(t, summary.TotalUndue.Equal(undue))
	assert.Equal(t, "invoices", summary.Type)

	byStatus := make(map[string]StatusPercentage)
	for _, p := range summary.Performance {
		byStatus[p.Status] = p
	}
	// All seven statuses present, zeros included
	assert.Len(t, summary.Performance, 7)
	assert.Equal(t, int64(2), byStatus["paid"].Count)
	assert.Equal(t, float64(50), byStatus["paid"].Percentage)
	assert.Equal(t, float64(25), byStatus["sent"].Percentage)
	assert.Equal(t, int64(0), byStatus["draft"].Count)
	assert.Equal(t, float64(0), byStatus["draft"].Percentage)
	assert.Equal(t, int64(0), byStatus["cancelled"].Count)
}

func TestQuoteSummary_EmptyWindowYieldsZeroShares(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	service := NewSummaryService(quoteRepo, new(MockInvoiceRepository), new(MockPaymentRepository), nil, zap.NewNop())

	quoteRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.QuoteWindowStats{
		Total:      decimal.Zero,
		TotalCount: 0,
	}, nil)

	summary, err := service.QuoteSummary(context.Background(), PeriodWeek)

	require.NoError(t, err)
	assert.Equal(t, "quotes", summary.Type)
	assert.Len(t, summary.Performance, 7)
	for _, p := range summary.Performance {
		assert.Equal(t, int64(0), p.Count)
		assert.Equal(t, float64(0), p.Percentage)
	}
}

func TestPercentageRounding(t *testing.T) {
	// 1/3 and 2/3 round to 33 and 67
	performance := buildPerformance([]string{"a", "b"}, []billing.StatusCount{
		{Status: "a", Count: 1},
		{Status: "b", Count: 2},
	}, 3)

	assert.Equal(t, float64(33), performance[0].Percentage)
	assert.Equal(t, float64(67), performance[1].Percentage)
}

func TestDashboard_CachesByPeriod(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	invoiceRepo := new(MockInvoiceRepository)
	paymentRepo := new(MockPaymentRepository)
	cache := newFakeSummaryCache()
	service := NewSummaryService(quoteRepo, invoiceRepo, paymentRepo, cache, zap.NewNop())

	quoteRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.QuoteWindowStats{
		Total: decimal.NewFromFloat(100.00), TotalCount: 1,
		StatusCounts: []billing.StatusCount{{Status: "draft", Count: 1}},
	}, nil).Once()
	invoiceRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.InvoiceWindowStats{
		Total: decimal.NewFromFloat(200.00), TotalUndue: decimal.NewFromFloat(50.00), TotalCount: 1,
		StatusCounts: []billing.StatusCount{{Status: "sent", Count: 1}},
	}, nil).Once()
	paymentRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.PaymentWindowStats{
		Count: 3, Total: decimal.NewFromFloat(150.00),
	}, nil).Once()

	first, err := service.Dashboard(context.Background(), PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, "month", first.Period)
	assert.Equal(t, int64(3), first.Payments.Count)

	// Second call is served from cache; the Once() expectations would fail otherwise
	second, err := service.Dashboard(context.Background(), PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, first.Payments.Count, second.Payments.Count)
	assert.True(t, first.Invoices.Total.Equal(second.Invoices.Total))
	assert.Equal(t, 1, cache.sets)

	quoteRepo.AssertExpectations(t)
	invoiceRepo.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

func TestInvalidateCache_DropsAllPeriods(t *testing.T) {
	quoteRepo := new(MockQuoteRepository)
	invoiceRepo := new(MockInvoiceRepository)
	paymentRepo := new(MockPaymentRepository)
	cache := newFakeSummaryCache()
	service := NewSummaryService(quoteRepo, invoiceRepo, paymentRepo, cache, zap.NewNop())

	quoteRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.QuoteWindowStats{Total: decimal.Zero}, nil)
	invoiceRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.InvoiceWindowStats{Total: decimal.Zero, TotalUndue: decimal.Zero}, nil)
	paymentRepo.On("SummarizeWindow", mock.Anything, mock.Anything, mock.Anything).Return(&billing.PaymentWindowStats{Total: decimal.Zero}, nil)

	_, err := service.Dashboard(context.Background(), PeriodWeek)
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	service.InvalidateCache(context.Background())
	assert.Empty(t, cache.entries)
}
