package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormStockMovementRepository implements StockMovementRepository using GORM.
// The movement table is an append-only ledger: rows are created through
// Append and never updated or deleted afterwards.
type GormStockMovementRepository struct {
	source tenantdb.Source
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(source tenantdb.Source) *GormStockMovementRepository {
	return &GormStockMovementRepository{source: source}
}

// FindByID finds a movement by its ID
func (r *GormStockMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockMovement, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var movement inventory.StockMovement
	if err := db.First(&movement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByStockLevel finds movements for one stock level, newest first
func (r *GormStockMovementRepository) FindByStockLevel(ctx context.Context, stockLevelID uuid.UUID, filter shared.Filter) ([]inventory.StockMovement, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var movements []inventory.StockMovement
	query := r.applyFilter(
		db.Model(&inventory.StockMovement{}).Where("stock_level_id = ?", stockLevelID),
		filter,
	)

	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByProduct finds movements for a product across locations
func (r *GormStockMovementRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.StockMovement, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var movements []inventory.StockMovement
	query := r.applyFilter(
		db.Model(&inventory.StockMovement{}).Where("product_id = ?", productID),
		filter,
	)

	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByReference finds movements written by one source document
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, reference string) ([]inventory.StockMovement, error) {
	if reference == "" {
		return []inventory.StockMovement{}, nil
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var movements []inventory.StockMovement
	if err := db.Where("reference = ?", reference).
		Order("occurred_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByPeriod finds movements in a time window, newest first
func (r *GormStockMovementRepository) FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]inventory.StockMovement, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var movements []inventory.StockMovement
	query := r.applyFilter(
		db.Model(&inventory.StockMovement{}).
			Where("occurred_at >= ? AND occurred_at < ?", from, to),
		filter,
	)

	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Append writes new ledger rows
func (r *GormStockMovementRepository) Append(ctx context.Context, movements ...*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Create(movements).Error
}

// Count counts movements matching the filter
func (r *GormStockMovementRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := db.Model(&inventory.StockMovement{})
	query = r.applyTypeFilter(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormStockMovementRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyTypeFilter(query, filter)

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, StockMovementSortFields, "")
	if sortField != "" {
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("occurred_at DESC")
	}

	return query
}

func (r *GormStockMovementRepository) applyTypeFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		case "product_id":
			query = query.Where("product_id = ?", value)
		}
	}
	return query
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
