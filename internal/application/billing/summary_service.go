package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Period is a rolling summary window anchored at the current instant
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates a period string, defaulting to month when empty
func ParsePeriod(raw string) (Period, error) {
	switch Period(raw) {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return Period(raw), nil
	case "":
		return PeriodMonth, nil
	}
	return "", shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Unknown summary period %q", raw))
}

// String returns the string representation of Period
func (p Period) String() string {
	return string(p)
}

// Duration returns the fixed length of the rolling window.
// Months and years use fixed 30- and 365-day spans, not calendar arithmetic.
func (p Period) Duration() time.Duration {
	switch p {
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodYear:
		return 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// Window returns the half-open interval [now-period, now)
func (p Period) Window(now time.Time) (from, to time.Time) {
	return now.Add(-p.Duration()), now
}

// StatusPercentage reports the share of documents in one status within a window
type StatusPercentage struct {
	Status     string  `json:"status"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DocumentSummary summarizes quotes or invoices created in a window
type DocumentSummary struct {
	Total       decimal.Decimal    `json:"total"`
	TotalUndue  *decimal.Decimal   `json:"total_undue,omitempty"` // Invoices only
	Performance []StatusPercentage `json:"performance"`
	Type        string             `json:"type"`
}

// PaymentSummary summarizes completed payments dated in a window
type PaymentSummary struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
	Type  string          `json:"type"`
}

// DashboardSummary combines all three summaries for one period
type DashboardSummary struct {
	Quotes   DocumentSummary `json:"quotes"`
	Invoices DocumentSummary `json:"invoices"`
	Payments PaymentSummary  `json:"payments"`
	Period   string          `json:"period"`
}

// SummaryCache caches serialized summaries keyed by period.
// A miss is (nil, nil); failures degrade to recomputation, never to an error.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// summaryCacheTTL keeps summaries fresh enough for a dashboard without
// hammering the aggregate queries
const summaryCacheTTL = 60 * time.Second

// SummaryService computes time-windowed dashboard summaries
type SummaryService struct {
	quoteRepo   billing.QuoteRepository
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	cache       SummaryCache // Optional
	logger      *zap.Logger
	now         func() time.Time
}

// NewSummaryService creates a new SummaryService. The cache may be nil.
func NewSummaryService(
	quoteRepo billing.QuoteRepository,
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	cache SummaryCache,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// QuoteSummary summarizes quotes issued in the period's window
func (s *SummaryService) QuoteSummary(ctx context.Context, period Period) (*DocumentSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "summary", "quotes")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPeriod, period.String())

	from, to := period.Window(s.now())
	stats, err := s.quoteRepo.SummarizeWindow(ctx, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to summarize quotes: %w", err)
	}

	known := make([]string, 0, len(billing.AllQuoteStatuses()))
	for _, st := range billing.AllQuoteStatuses() {
		known = append(known, st.String())
	}

	return &DocumentSummary{
		Total:       stats.Total,
		Performance: buildPerformance(known, stats.StatusCounts, stats.TotalCount),
		Type:        "quotes",
	}, nil
}

// InvoiceSummary summarizes invoices issued in the period's window,
// including the outstanding balance across undue invoices
func (s *SummaryService) InvoiceSummary(ctx context.Context, period Period) (*DocumentSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "summary", "invoices")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPeriod, period.String())

	from, to := period.Window(s.now())
	stats, err := s.invoiceRepo.SummarizeWindow(ctx, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to summarize invoices: %w", err)
	}

	known := make([]string, 0, len(billing.AllInvoiceStatuses()))
	for _, st := range billing.AllInvoiceStatuses() {
		known = append(known, st.String())
	}

	undue := stats.TotalUndue
	return &DocumentSummary{
		Total:       stats.Total,
		TotalUndue:  &undue,
		Performance: buildPerformance(known, stats.StatusCounts, stats.TotalCount),
		Type:        "invoices",
	}, nil
}

// PaymentSummary summarizes completed payments dated in the period's window
func (s *SummaryService) PaymentSummary(ctx context.Context, period Period) (*PaymentSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "summary", "payments")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPeriod, period.String())

	from, to := period.Window(s.now())
	stats, err := s.paymentRepo.SummarizeWindow(ctx, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to summarize payments: %w", err)
	}

	return &PaymentSummary{
		Count: stats.Count,
		Total: stats.Total,
		Type:  "payments",
	}, nil
}

// Dashboard computes the combined summary for a period, served from cache
// when a recent copy exists
func (s *SummaryService) Dashboard(ctx context.Context, period Period) (*DashboardSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "summary", "dashboard")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPeriod, period.String())

	cacheKey := dashboardCacheKey(period)
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		telemetry.AddEvent(span, "cache_hit")
		return cached, nil
	}

	quotes, err := s.QuoteSummary(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	invoices, err := s.InvoiceSummary(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payments, err := s.PaymentSummary(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	summary := &DashboardSummary{
		Quotes:   *quotes,
		Invoices: *invoices,
		Payments: *payments,
		Period:   period.String(),
	}

	s.cacheSet(ctx, cacheKey, summary)

	return summary, nil
}

// InvalidateCache drops cached dashboards for every period.
// Called by the event subscriber when ledger writes land.
func (s *SummaryService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := []string{
		dashboardCacheKey(PeriodWeek),
		dashboardCacheKey(PeriodMonth),
		dashboardCacheKey(PeriodYear),
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
}

func (s *SummaryService) cacheGet(ctx context.Context, key string) *DashboardSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("summary cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if raw == nil {
		return nil
	}
	var summary DashboardSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn("summary cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &summary
}

func (s *SummaryService) cacheSet(ctx context.Context, key string, summary *DashboardSummary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, summaryCacheTTL); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func dashboardCacheKey(period Period) string {
	return fmt.Sprintf("summary:dashboard:%s", period)
}

// buildPerformance expands window status counts into the full known-status
// list, zeros included, with each share rounded to the nearest whole percent.
// The divisor is clamped at one so an empty window yields all-zero shares.
func buildPerformance(known []string, counts []billing.StatusCount, total int64) []StatusPercentage {
	byStatus := make(map[string]int64, len(counts))
	for _, sc := range counts {
		byStatus[sc.Status] = sc.Count
	}

	divisor := total
	if divisor < 1 {
		divisor = 1
	}

	performance := make([]StatusPercentage, 0, len(known))
	for _, status := range known {
		count := byStatus[status]
		performance = append(performance, StatusPercentage{
			Status:     status,
			Count:      count,
			Percentage: math.Round(100 * float64(count) / float64(divisor)),
		})
	}
	return performance
}
