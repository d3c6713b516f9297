package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormStockLevelRepository implements StockLevelRepository using GORM
type GormStockLevelRepository struct {
	source tenantdb.Source
}

// NewGormStockLevelRepository creates a new GormStockLevelRepository
func NewGormStockLevelRepository(source tenantdb.Source) *GormStockLevelRepository {
	return &GormStockLevelRepository{source: source}
}

// FindByID finds a stock level by its ID
func (r *GormStockLevelRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockLevel, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var level inventory.StockLevel
	if err := db.First(&level, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindByLocationAndProduct finds the level for a location-product pair
func (r *GormStockLevelRepository) FindByLocationAndProduct(ctx context.Context, locationID, productID uuid.UUID) (*inventory.StockLevel, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var level inventory.StockLevel
	if err := db.Where("location_id = ? AND product_id = ?", locationID, productID).
		First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindByLocation finds all levels in a location
func (r *GormStockLevelRepository) FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]inventory.StockLevel, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var levels []inventory.StockLevel
	query := db.Model(&inventory.StockLevel{}).Where("location_id = ?", locationID)

	if onlyStocked, ok := filter.Filters["stocked"]; ok && onlyStocked == true {
		query = query.Where("on_hand > 0")
	}

	sortField := ValidateSortField(filter.OrderBy, StockLevelSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindByProduct finds all levels for a product across locations
func (r *GormStockLevelRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockLevel, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var levels []inventory.StockLevel
	if err := db.Where("product_id = ?", productID).Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// FindBelowReorderPoint finds levels at or below their reorder point.
// Levels with a zero reorder point never alert.
func (r *GormStockLevelRepository) FindBelowReorderPoint(ctx context.Context, filter shared.Filter) ([]inventory.StockLevel, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var levels []inventory.StockLevel
	query := db.Model(&inventory.StockLevel{}).
		Where("reorder_point > 0 AND on_hand <= reorder_point")

	if locationID, ok := filter.Filters["location_id"]; ok {
		query = query.Where("location_id = ?", locationID)
	}

	query = query.Order("on_hand ASC")
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// Save creates or updates a stock level
func (r *GormStockLevelRepository) Save(ctx context.Context, level *inventory.StockLevel) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(level).Error
}

// SaveWithMovements persists levels and appends their ledger rows in a
// single transaction, so a quantity change and its audit trail commit or
// roll back together.
func (r *GormStockLevelRepository) SaveWithMovements(ctx context.Context, levels []*inventory.StockLevel, movements []*inventory.StockMovement) error {
	if len(levels) == 0 && len(movements) == 0 {
		return nil
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, level := range levels {
			if err := tx.Save(level).Error; err != nil {
				return err
			}
		}
		if len(movements) > 0 {
			if err := tx.Create(movements).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a stock level
func (r *GormStockLevelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&inventory.StockLevel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts stock levels matching the filter
func (r *GormStockLevelRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := db.Model(&inventory.StockLevel{})
	if locationID, ok := filter.Filters["location_id"]; ok {
		query = query.Where("location_id = ?", locationID)
	}
	if productID, ok := filter.Filters["product_id"]; ok {
		query = query.Where("product_id = ?", productID)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormStockLevelRepository implements StockLevelRepository
var _ inventory.StockLevelRepository = (*GormStockLevelRepository)(nil)
