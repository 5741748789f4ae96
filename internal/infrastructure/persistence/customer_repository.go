package persistence

import (
	"context"
	"errors"

	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository stores the customers that quotes and invoices
// bill against.
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)

// FindByID returns (nil, nil) when no customer exists, matching the other
// ledger repositories.
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var row models.CustomerModel
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return row.ToDomain(), nil
}

// Exists reports whether a customer is on record. Quote and invoice
// creation call this before accepting a customer reference.
func (r *GormCustomerRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// FindAll lists customers matching the filter, paginated and ordered.
func (r *GormCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	var rows []models.CustomerModel
	query := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Scopes(customerConditions(filter), customerPagination(filter))

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	customers := make([]partner.Customer, len(rows))
	for i := range rows {
		customers[i] = *rows[i].ToDomain()
	}
	return customers, nil
}

// Count counts customers matching the filter, ignoring pagination.
func (r *GormCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Scopes(customerConditions(filter)).
		Count(&count).Error
	return count, err
}

// Save creates or updates a customer.
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return r.db.WithContext(ctx).Save(models.CustomerModelFromDomain(customer)).Error
}

// Delete removes a customer, reporting shared.ErrNotFound when nothing
// matched. Invoices and quotes keep their customer snapshot, so deleting a
// customer never rewrites ledger history.
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CustomerModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// customerConditions narrows the query by search term and status without
// touching ordering or pagination, so Count and FindAll stay consistent.
func customerConditions(filter shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			query = query.Where("name ILIKE ? OR email ILIKE ? OR phone ILIKE ?",
				pattern, pattern, pattern)
		}
		if status, ok := filter.Filters["status"]; ok {
			query = query.Where("status = ?", status)
		}
		return query
	}
}

func customerPagination(filter shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if filter.Page > 0 && filter.PageSize > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
		}
		orderBy := ValidateSortField(filter.OrderBy, CustomerSortFields, "name")
		return query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	}
}
