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

// GormQuoteRepository implements billing.QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByID finds a quote by its ID. Returns (nil, nil) when no quote exists.
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a quote by its quote number. Returns (nil, nil) when no quote exists.
func (r *GormQuoteRepository) FindByNumber(ctx context.Context, quoteNumber string) (*billing.Quote, error) {
	var model models.QuoteModel
	if err := r.db.WithContext(ctx).First(&model, "quote_number = ?", quoteNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all quotes matching the filter
func (r *GormQuoteRepository) FindAll(ctx context.Context, filter billing.QuoteFilter) ([]billing.Quote, error) {
	var quoteModels []models.QuoteModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.QuoteModel{}), filter)

	if err := query.Find(&quoteModels).Error; err != nil {
		return nil, err
	}

	quotes := make([]billing.Quote, len(quoteModels))
	for i, model := range quoteModels {
		quotes[i] = *model.ToDomain()
	}
	return quotes, nil
}

// Count counts quotes matching the filter
func (r *GormQuoteRepository) Count(ctx context.Context, filter billing.QuoteFilter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&models.QuoteModel{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a quote
func (r *GormQuoteRepository) Save(ctx context.Context, quote *billing.Quote) error {
	model := models.QuoteModelFromDomain(quote)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves a quote with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if the stored version has moved on.
func (r *GormQuoteRepository) SaveWithLock(ctx context.Context, quote *billing.Quote) error {
	model := models.QuoteModelFromDomain(quote)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", quote.ID, quote.Version-1).
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

// Delete deletes a quote
func (r *GormQuoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.QuoteModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByNumber checks if a quote with the given number exists
func (r *GormQuoteRepository) ExistsByNumber(ctx context.Context, quoteNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuoteModel{}).
		Where("quote_number = ?", quoteNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SummarizeWindow aggregates quotes issued in the half-open window [from, to)
func (r *GormQuoteRepository) SummarizeWindow(ctx context.Context, from, to time.Time) (*billing.QuoteWindowStats, error) {
	window := r.db.WithContext(ctx).
		Model(&models.QuoteModel{}).
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

	var counts []billing.StatusCount
	if err := window.Session(&gorm.Session{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	return &billing.QuoteWindowStats{
		Total:        totals.Total,
		TotalCount:   totals.TotalCount,
		StatusCounts: counts,
	}, nil
}

// applyFilter applies filter conditions, ordering and pagination to the query
func (r *GormQuoteRepository) applyFilter(query *gorm.DB, filter billing.QuoteFilter) *gorm.DB {
	query = r.applyConditions(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, QuoteSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyConditions applies filter conditions without ordering or pagination
func (r *GormQuoteRepository) applyConditions(query *gorm.DB, filter billing.QuoteFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("issue_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("issue_date < ?", *filter.ToDate)
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("quote_number ILIKE ? OR notes ILIKE ?", searchPattern, searchPattern)
	}
	return query
}

// Ensure GormQuoteRepository implements QuoteRepository
var _ billing.QuoteRepository = (*GormQuoteRepository)(nil)
