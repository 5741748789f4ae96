package handler

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appbilling "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// SummaryHandler handles dashboard summary endpoints.
// Summary reads are best effort: a storage failure degrades to a zero-valued
// summary instead of a 5xx, so a dashboard widget never takes down the page.
type SummaryHandler struct {
	BaseHandler
	summaryService *appbilling.SummaryService
	logger         *zap.Logger
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(summaryService *appbilling.SummaryService, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{
		summaryService: summaryService,
		logger:         logger,
	}
}

// RegisterRoutes registers summary routes on the API group
func (h *SummaryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	summary := rg.Group("/billing/summary")
	{
		summary.GET("/dashboard", h.Dashboard)
		summary.GET("/quotes", h.Quotes)
		summary.GET("/invoices", h.Invoices)
		summary.GET("/payments", h.Payments)
	}
}

// Dashboard godoc
// @Summary Dashboard summary
// @Description Returns quote, invoice, and payment summaries for the rolling period window
// @Tags summary
// @Produce json
// @Param period query string false "Summary period" Enums(week, month, year) default(month)
// @Success 200 {object} APIResponse[appbilling.DashboardSummary]
// @Failure 400 {object} ErrorResponse
// @Router /billing/summary/dashboard [get]
func (h *SummaryHandler) Dashboard(c *gin.Context) {
	period, err := appbilling.ParsePeriod(c.Query("period"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	summary, err := h.summaryService.Dashboard(c.Request.Context(), period)
	if err != nil {
		h.logger.Warn("dashboard summary failed, serving zero values",
			zap.String("period", period.String()),
			zap.Error(err),
		)
		summary = zeroDashboardSummary(period)
	}

	h.Success(c, summary)
}

// Quotes godoc
// @Summary Quote summary
// @Description Summarizes quotes issued in the rolling period window
// @Tags summary
// @Produce json
// @Param period query string false "Summary period" Enums(week, month, year) default(month)
// @Success 200 {object} APIResponse[appbilling.DocumentSummary]
// @Failure 400 {object} ErrorResponse
// @Router /billing/summary/quotes [get]
func (h *SummaryHandler) Quotes(c *gin.Context) {
	period, err := appbilling.ParsePeriod(c.Query("period"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	summary, err := h.summaryService.QuoteSummary(c.Request.Context(), period)
	if err != nil {
		h.logger.Warn("quote summary failed, serving zero values",
			zap.String("period", period.String()),
			zap.Error(err),
		)
		summary = zeroQuoteSummary()
	}

	h.Success(c, summary)
}

// Invoices godoc
// @Summary Invoice summary
// @Description Summarizes invoices issued in the rolling period window, including the outstanding balance
// @Tags summary
// @Produce json
// @Param period query string false "Summary period" Enums(week, month, year) default(month)
// @Success 200 {object} APIResponse[appbilling.DocumentSummary]
// @Failure 400 {object} ErrorResponse
// @Router /billing/summary/invoices [get]
func (h *SummaryHandler) Invoices(c *gin.Context) {
	period, err := appbilling.ParsePeriod(c.Query("period"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	summary, err := h.summaryService.InvoiceSummary(c.Request.Context(), period)
	if err != nil {
		h.logger.Warn("invoice summary failed, serving zero values",
			zap.String("period", period.String()),
			zap.Error(err),
		)
		summary = zeroInvoiceSummary()
	}

	h.Success(c, summary)
}

// Payments godoc
// @Summary Payment summary
// @Description Summarizes completed payments dated in the rolling period window
// @Tags summary
// @Produce json
// @Param period query string false "Summary period" Enums(week, month, year) default(month)
// @Success 200 {object} APIResponse[appbilling.PaymentSummary]
// @Failure 400 {object} ErrorResponse
// @Router /billing/summary/payments [get]
func (h *SummaryHandler) Payments(c *gin.Context) {
	period, err := appbilling.ParsePeriod(c.Query("period"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	summary, err := h.summaryService.PaymentSummary(c.Request.Context(), period)
	if err != nil {
		h.logger.Warn("payment summary failed, serving zero values",
			zap.String("period", period.String()),
			zap.Error(err),
		)
		summary = zeroPaymentSummary()
	}

	h.Success(c, summary)
}

func zeroQuoteSummary() *appbilling.DocumentSummary {
	statuses := make([]appbilling.StatusPercentage, 0, len(billing.AllQuoteStatuses()))
	for _, status := range billing.AllQuoteStatuses() {
		statuses = append(statuses, appbilling.StatusPercentage{Status: status.String()})
	}
	return &appbilling.DocumentSummary{
		Total:       decimal.Zero,
		Performance: statuses,
		Type:        "quotes",
	}
}

func zeroInvoiceSummary() *appbilling.DocumentSummary {
	statuses := make([]appbilling.StatusPercentage, 0, len(billing.AllInvoiceStatuses()))
	for _, status := range billing.AllInvoiceStatuses() {
		statuses = append(statuses, appbilling.StatusPercentage{Status: status.String()})
	}
	undue := decimal.Zero
	return &appbilling.DocumentSummary{
		Total:       decimal.Zero,
		TotalUndue:  &undue,
		Performance: statuses,
		Type:        "invoices",
	}
}

func zeroPaymentSummary() *appbilling.PaymentSummary {
	return &appbilling.PaymentSummary{Total: decimal.Zero, Type: "payments"}
}

func zeroDashboardSummary(period appbilling.Period) *appbilling.DashboardSummary {
	return &appbilling.DashboardSummary{
		Quotes:   *zeroQuoteSummary(),
		Invoices: *zeroInvoiceSummary(),
		Payments: *zeroPaymentSummary(),
		Period:   period.String(),
	}
}
