package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID. Returns (nil, nil) when no invoice exists.
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its invoice number. Returns (nil, nil) when no invoice exists.
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "invoice_number = ?", invoiceNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByQuoteID finds the invoice produced from a quote, if any.
// Returns (nil, nil) when the quote has not produced an invoice.
func (r *GormInvoiceRepository) FindByQuoteID(ctx context.Context, quoteID uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "quote_id = ?", quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an invoice. A unique-index violation (invoice
// number, or the quote_id back-reference during a conversion race) is
// surfaced as shared.ErrAlreadyExists so callers can treat it as a conflict.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves an invoice with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if the stored version has moved on.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes an invoice
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByNumber checks if an invoice with the given number exists
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SummarizeWindow aggregates invoices issued in the half-open window [from, to).
// total_undue sums the outstanding balance (total - paid) over statuses that
// still owe money, across the same window.
func (r *GormInvoiceRepository) SummarizeWindow(ctx context.Context, from, to time.Time) (*billing.InvoiceWindowStats, error) {
	window := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("issue_date >= ? AND issue_date < ?", from, to)

	var totals struct {
		Total      decimal.Decimal
		TotalCount int64
	}
	if err := window.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS total_count").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	undue := billing.UndueInvoiceStatuses()
	undueValues := make([]string, len(undue))
	for i, s := range undue {
		undueValues[i] = s.String()
	}

	var undueTotal struct {
		TotalUndue decimal.Decimal
	}
	if err := window.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total_amount - paid_amount), 0) AS total_undue").
		Where("status IN ?", undueValues).
		Scan(&undueTotal).Error; err != nil {
		return nil, err
	}

	var counts []billing.StatusCount
	if err := window.Session(&gorm.Session{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	return &billing.InvoiceWindowStats{
		Total:        totals.Total,
		TotalUndue:   undueTotal.TotalUndue,
		TotalCount:   totals.TotalCount,
		StatusCounts: counts,
	}, nil
}

// applyFilter applies filter conditions, ordering and pagination to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	query = r.applyConditions(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyConditions applies filter conditions without ordering or pagination
func (r *GormInvoiceRepository) applyConditions(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.QuoteID != nil {
		query = query.Where("quote_id = ?", *filter.QuoteID)
	}
	if filter.FromDate != nil {
		query = query.Where("issue_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("issue_date < ?", *filter.ToDate)
	}
	if filter.Overdue != nil && *filter.Overdue {
		undue := billing.UndueInvoiceStatuses()
		undueValues := make([]string, len(undue))
		for i, s := range undue {
			undueValues[i] = s.String()
		}
		query = query.Where("due_date IS NOT NULL AND due_date < ? AND status IN ?", time.Now(), undueValues)
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR notes ILIKE ?", searchPattern, searchPattern)
	}
	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
