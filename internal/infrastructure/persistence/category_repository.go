package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	source tenantdb.Source
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(source tenantdb.Source) *GormCategoryRepository {
	return &GormCategoryRepository{source: source}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var category catalog.Category
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// FindByName finds a category by its name
func (r *GormCategoryRepository) FindByName(ctx context.Context, name string) (*catalog.Category, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var category catalog.Category
	if err := db.Where("name = ?", name).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// FindAll finds all categories matching the filter
func (r *GormCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Category, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var categories []catalog.Category
	query := db.Model(&catalog.Category{})

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}

	sortField := ValidateSortField(filter.OrderBy, CategorySortFields, "")
	if sortField != "" {
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("sort_order ASC, name ASC")
	}
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindActive finds all active categories ordered by sort order
func (r *GormCategoryRepository) FindActive(ctx context.Context) ([]catalog.Category, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var categories []catalog.Category
	if err := db.Where("status = ?", catalog.CategoryStatusActive).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(category).Error
}

// Delete deletes a category
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&catalog.Category{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HasProducts checks if any products are assigned to the category
func (r *GormCategoryRepository) HasProducts(ctx context.Context, categoryID uuid.UUID) (bool, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&catalog.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts categories matching the filter
func (r *GormCategoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	query := db.Model(&catalog.Category{})
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByName checks if a category with the given name exists
func (r *GormCategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&catalog.Category{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormCategoryRepository implements CategoryRepository
var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
