package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	source tenantdb.Source
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(source tenantdb.Source) *GormSaleRepository {
	return &GormSaleRepository{source: source}
}

// FindByID finds a sale by its ID, lines and payments included
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sale pos.Sale
	if err := db.Preload("Lines").Preload("Payments").
		First(&sale, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindByNumber finds a sale by its number
func (r *GormSaleRepository) FindByNumber(ctx context.Context, number string) (*pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sale pos.Sale
	if err := db.Preload("Lines").Preload("Payments").
		Where("number = ?", number).
		First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindAll finds all sales matching the filter
func (r *GormSaleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sales []pos.Sale
	query := r.applyFilter(db.Model(&pos.Sale{}), filter)

	if err := query.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// FindByStatus finds sales by status
func (r *GormSaleRepository) FindByStatus(ctx context.Context, status pos.SaleStatus, filter shared.Filter) ([]pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sales []pos.Sale
	query := r.applyFilter(
		db.Model(&pos.Sale{}).Where("status = ?", status),
		filter,
	)

	if err := query.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// FindByCashier finds sales rung up by one cashier
func (r *GormSaleRepository) FindByCashier(ctx context.Context, cashierID uuid.UUID, filter shared.Filter) ([]pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sales []pos.Sale
	query := r.applyFilter(
		db.Model(&pos.Sale{}).Where("cashier_id = ?", cashierID),
		filter,
	)

	if err := query.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// FindByCustomer finds sales attached to one customer
func (r *GormSaleRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sales []pos.Sale
	query := r.applyFilter(
		db.Model(&pos.Sale{}).Where("customer_id = ?", customerID),
		filter,
	)

	if err := query.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// FindByPeriod finds sales completed in a time window. Payments are
// preloaded because period queries feed till reports that break totals
// down by payment method.
func (r *GormSaleRepository) FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sales []pos.Sale
	query := r.applyFilter(
		db.Model(&pos.Sale{}).Preload("Payments").
			Where("completed_at >= ? AND completed_at < ?", from, to),
		filter,
	)

	if err := query.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// FindOpenOlderThan finds open sales abandoned before the cutoff. Lines
// and payments are preloaded because the sweep voids and saves these
// aggregates, and saving an unloaded aggregate would wipe its children.
func (r *GormSaleRepository) FindOpenOlderThan(ctx context.Context, cutoff time.Time) ([]pos.Sale, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sales []pos.Sale
	if err := db.Preload("Lines").Preload("Payments").
		Where("status = ? AND created_at < ?", pos.SaleStatusOpen, cutoff).
		Order("created_at ASC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// Save creates or updates a sale with its lines and payments. Removed lines
// are deleted, so the stored children always mirror the aggregate.
func (r *GormSaleRepository) Save(ctx context.Context, sale *pos.Sale) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines", "Payments").Save(sale).Error; err != nil {
			return err
		}

		lineIDs := make([]uuid.UUID, len(sale.Lines))
		for i, line := range sale.Lines {
			lineIDs[i] = line.ID
		}
		if len(lineIDs) > 0 {
			if err := tx.Where("sale_id = ? AND id NOT IN ?", sale.ID, lineIDs).
				Delete(&pos.SaleLine{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("sale_id = ?", sale.ID).
				Delete(&pos.SaleLine{}).Error; err != nil {
				return err
			}
		}
		for i := range sale.Lines {
			sale.Lines[i].SaleID = sale.ID
			if err := tx.Save(&sale.Lines[i]).Error; err != nil {
				return err
			}
		}

		// Payments are append-only; voiding a sale keeps them for the record.
		for i := range sale.Payments {
			sale.Payments[i].SaleID = sale.ID
			if err := tx.Save(&sale.Payments[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// ReassignCustomer repoints every sale of one customer to another
func (r *GormSaleRepository) ReassignCustomer(ctx context.Context, fromCustomerID, toCustomerID uuid.UUID) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Model(&pos.Sale{}).
		Where("customer_id = ?", fromCustomerID).
		Update("customer_id", toCustomerID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete deletes a sale
func (r *GormSaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", id).Delete(&pos.SaleLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sale_id = ?", id).Delete(&pos.SalePayment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&pos.Sale{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts sales matching the filter
func (r *GormSaleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := r.applyFilterWithoutPagination(db.Model(&pos.Sale{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts sales in one status
func (r *GormSaleRepository) CountByStatus(ctx context.Context, status pos.SaleStatus) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&pos.Sale{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormSaleRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, SaleSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSaleRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("number ILIKE ?", "%"+filter.Search+"%")
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "cashier_id":
			query = query.Where("cashier_id = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		case "min_total":
			query = query.Where("grand_total >= ?", value)
		case "max_total":
			query = query.Where("grand_total <= ?", value)
		}
	}

	return query
}

// Ensure GormSaleRepository implements SaleRepository
var _ pos.SaleRepository = (*GormSaleRepository)(nil)
