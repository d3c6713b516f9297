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

// GormLocationRepository implements LocationRepository using GORM
type GormLocationRepository struct {
	source tenantdb.Source
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(source tenantdb.Source) *GormLocationRepository {
	return &GormLocationRepository{source: source}
}

// FindByID finds a location by its ID
func (r *GormLocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Location, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var location inventory.Location
	if err := db.First(&location, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// FindByName finds a location by its name
func (r *GormLocationRepository) FindByName(ctx context.Context, name string) (*inventory.Location, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var location inventory.Location
	if err := db.Where("name = ?", name).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// FindAll finds all locations matching the filter
func (r *GormLocationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Location, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var locations []inventory.Location
	query := db.Model(&inventory.Location{})

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR address ILIKE ?", searchPattern, searchPattern)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if locType, ok := filter.Filters["type"]; ok {
		query = query.Where("type = ?", locType)
	}

	sortField := ValidateSortField(filter.OrderBy, LocationSortFields, "")
	if sortField != "" {
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("sort_order ASC, name ASC")
	}
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// FindDefault finds the tenant's default location
func (r *GormLocationRepository) FindDefault(ctx context.Context) (*inventory.Location, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var location inventory.Location
	if err := db.Where("is_default = ?", true).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// Save creates or updates a location
func (r *GormLocationRepository) Save(ctx context.Context, location *inventory.Location) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(location).Error
}

// Delete deletes a location
func (r *GormLocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&inventory.Location{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts locations matching the filter
func (r *GormLocationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := db.Model(&inventory.Location{})
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByName checks if a location with the given name exists
func (r *GormLocationRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&inventory.Location{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormLocationRepository implements LocationRepository
var _ inventory.LocationRepository = (*GormLocationRepository)(nil)
