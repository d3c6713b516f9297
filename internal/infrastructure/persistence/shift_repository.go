package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/workforce"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormShiftRepository implements ShiftRepository using GORM
type GormShiftRepository struct {
	source tenantdb.Source
}

// NewGormShiftRepository creates a new GormShiftRepository
func NewGormShiftRepository(source tenantdb.Source) *GormShiftRepository {
	return &GormShiftRepository{source: source}
}

// FindByID finds a shift by its ID
func (r *GormShiftRepository) FindByID(ctx context.Context, id uuid.UUID) (*workforce.Shift, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var shift workforce.Shift
	if err := db.First(&shift, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

// FindByName finds a shift by its name
func (r *GormShiftRepository) FindByName(ctx context.Context, name string) (*workforce.Shift, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var shift workforce.Shift
	if err := db.Where("name = ?", name).First(&shift).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

// FindAll finds all shifts matching the filter
func (r *GormShiftRepository) FindAll(ctx context.Context, filter shared.Filter) ([]workforce.Shift, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var shifts []workforce.Shift
	query := db.Model(&workforce.Shift{})

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}

	sortField := ValidateSortField(filter.OrderBy, ShiftSortFields, "")
	if sortField != "" {
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("start_minute ASC, name ASC")
	}
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&shifts).Error; err != nil {
		return nil, err
	}
	return shifts, nil
}

// FindActive finds all active shifts ordered by start time
func (r *GormShiftRepository) FindActive(ctx context.Context) ([]workforce.Shift, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var shifts []workforce.Shift
	if err := db.Where("status = ?", workforce.ShiftStatusActive).
		Order("start_minute ASC").
		Find(&shifts).Error; err != nil {
		return nil, err
	}
	return shifts, nil
}

// Save creates or updates a shift
func (r *GormShiftRepository) Save(ctx context.Context, shift *workforce.Shift) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(shift).Error
}

// Delete deletes a shift
func (r *GormShiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&workforce.Shift{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByName checks if a shift with the given name exists
func (r *GormShiftRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&workforce.Shift{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts all shifts
func (r *GormShiftRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&workforce.Shift{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormShiftRepository implements ShiftRepository
var _ workforce.ShiftRepository = (*GormShiftRepository)(nil)
