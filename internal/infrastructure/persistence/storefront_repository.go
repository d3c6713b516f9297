package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/storefront"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// GormStorefrontRepository implements StorefrontRepository using GORM
type GormStorefrontRepository struct {
	source tenantdb.Source
}

// NewGormStorefrontRepository creates a new GormStorefrontRepository
func NewGormStorefrontRepository(source tenantdb.Source) *GormStorefrontRepository {
	return &GormStorefrontRepository{source: source}
}

// FindByID finds a storefront by its ID
func (r *GormStorefrontRepository) FindByID(ctx context.Context, id uuid.UUID) (*storefront.Storefront, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sf storefront.Storefront
	if err := db.First(&sf, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sf, nil
}

// FindBySlug finds a storefront by its slug
func (r *GormStorefrontRepository) FindBySlug(ctx context.Context, slug string) (*storefront.Storefront, error) {
	normalized, err := storefront.NormalizeSlug(slug)
	if err != nil {
		// A slug that cannot exist cannot be found.
		return nil, shared.ErrNotFound
	}
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var sf storefront.Storefront
	if err := db.Where("slug = ?", normalized).
		First(&sf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sf, nil
}

// FindAll finds all storefronts matching the filter
func (r *GormStorefrontRepository) FindAll(ctx context.Context, filter shared.Filter) ([]storefront.Storefront, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var storefronts []storefront.Storefront
	query := db.Model(&storefront.Storefront{})

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR slug ILIKE ?", searchPattern, searchPattern)
	}
	if published, ok := filter.Filters["published"]; ok {
		query = query.Where("published = ?", published)
	}

	sortField := ValidateSortField(filter.OrderBy, StorefrontSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&storefronts).Error; err != nil {
		return nil, err
	}
	return storefronts, nil
}

// FindPublished finds all published storefronts
func (r *GormStorefrontRepository) FindPublished(ctx context.Context) ([]storefront.Storefront, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var storefronts []storefront.Storefront
	if err := db.Where("published = ?", true).
		Order("name ASC").
		Find(&storefronts).Error; err != nil {
		return nil, err
	}
	return storefronts, nil
}

// Save creates or updates a storefront
func (r *GormStorefrontRepository) Save(ctx context.Context, sf *storefront.Storefront) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(sf).Error
}

// Delete deletes a storefront
func (r *GormStorefrontRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&storefront.Storefront{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts all storefronts
func (r *GormStorefrontRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&storefront.Storefront{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormStorefrontRepository implements StorefrontRepository
var _ storefront.StorefrontRepository = (*GormStorefrontRepository)(nil)
