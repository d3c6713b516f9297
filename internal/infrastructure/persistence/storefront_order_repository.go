package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/storefront"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormStorefrontOrderRepository implements StorefrontOrderRepository using GORM
type GormStorefrontOrderRepository struct {
	source tenantdb.Source
}

// NewGormStorefrontOrderRepository creates a new GormStorefrontOrderRepository
func NewGormStorefrontOrderRepository(source tenantdb.Source) *GormStorefrontOrderRepository {
	return &GormStorefrontOrderRepository{source: source}
}

// FindByID finds an order by its ID, lines included
func (r *GormStorefrontOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*storefront.StorefrontOrder, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var order storefront.StorefrontOrder
	if err := db.Preload("Lines").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByNumber finds an order by its number
func (r *GormStorefrontOrderRepository) FindByNumber(ctx context.Context, number string) (*storefront.StorefrontOrder, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var order storefront.StorefrontOrder
	if err := db.Preload("Lines").
		Where("number = ?", number).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindAll finds all orders matching the filter
func (r *GormStorefrontOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]storefront.StorefrontOrder, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var orders []storefront.StorefrontOrder
	query := r.applyFilter(db.Model(&storefront.StorefrontOrder{}), filter)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByStorefront finds orders placed through one storefront
func (r *GormStorefrontOrderRepository) FindByStorefront(ctx context.Context, storefrontID uuid.UUID, filter shared.Filter) ([]storefront.StorefrontOrder, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var orders []storefront.StorefrontOrder
	query := r.applyFilter(
		db.Model(&storefront.StorefrontOrder{}).
			Where("storefront_id = ?", storefrontID),
		filter,
	)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByStatus finds orders by status
func (r *GormStorefrontOrderRepository) FindByStatus(ctx context.Context, status storefront.OrderStatus, filter shared.Filter) ([]storefront.StorefrontOrder, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var orders []storefront.StorefrontOrder
	query := r.applyFilter(
		db.Model(&storefront.StorefrontOrder{}).Where("status = ?", status),
		filter,
	)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByCustomerPhone finds orders placed with one contact phone
func (r *GormStorefrontOrderRepository) FindByCustomerPhone(ctx context.Context, phone string, filter shared.Filter) ([]storefront.StorefrontOrder, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var orders []storefront.StorefrontOrder
	query := r.applyFilter(
		db.Model(&storefront.StorefrontOrder{}).
			Where("customer_phone = ?", phone),
		filter,
	)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByPeriod finds orders placed in a time window
func (r *GormStorefrontOrderRepository) FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]storefront.StorefrontOrder, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var orders []storefront.StorefrontOrder
	query := r.applyFilter(
		db.Model(&storefront.StorefrontOrder{}).
			Where("created_at >= ? AND created_at < ?", from, to),
		filter,
	)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates an order with its lines
func (r *GormStorefrontOrderRepository) Save(ctx context.Context, order *storefront.StorefrontOrder) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(order).Error; err != nil {
			return err
		}

		// Order lines are fixed at checkout, so they are only inserted.
		for i := range order.Lines {
			order.Lines[i].OrderID = order.ID
			if err := tx.Save(&order.Lines[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete deletes an order
func (r *GormStorefrontOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).
			Delete(&storefront.StorefrontOrderLine{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&storefront.StorefrontOrder{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts orders matching the filter
func (r *GormStorefrontOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := r.applyFilterWithoutPagination(db.Model(&storefront.StorefrontOrder{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts orders in one status
func (r *GormStorefrontOrderRepository) CountByStatus(ctx context.Context, status storefront.OrderStatus) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&storefront.StorefrontOrder{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormStorefrontOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, StorefrontOrderSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormStorefrontOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR customer_name ILIKE ? OR customer_phone ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "storefront_id":
			query = query.Where("storefront_id = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		}
	}

	return query
}

// Ensure GormStorefrontOrderRepository implements StorefrontOrderRepository
var _ storefront.StorefrontOrderRepository = (*GormStorefrontOrderRepository)(nil)
