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

// GormProductListingRepository implements ProductListingRepository using GORM
type GormProductListingRepository struct {
	source tenantdb.Source
}

// NewGormProductListingRepository creates a new GormProductListingRepository
func NewGormProductListingRepository(source tenantdb.Source) *GormProductListingRepository {
	return &GormProductListingRepository{source: source}
}

// FindByID finds a listing by its ID
func (r *GormProductListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*storefront.ProductListing, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var listing storefront.ProductListing
	if err := db.First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// FindByStorefrontAndProduct finds the listing for a storefront-product pair
func (r *GormProductListingRepository) FindByStorefrontAndProduct(ctx context.Context, storefrontID, productID uuid.UUID) (*storefront.ProductListing, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var listing storefront.ProductListing
	if err := db.Where("storefront_id = ? AND product_id = ?", storefrontID, productID).
		First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// FindByStorefront returns listings ordered by position
func (r *GormProductListingRepository) FindByStorefront(ctx context.Context, storefrontID uuid.UUID, filter shared.Filter) ([]storefront.ProductListing, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var listings []storefront.ProductListing
	query := db.Model(&storefront.ProductListing{}).
		Where("storefront_id = ?", storefrontID)

	if visible, ok := filter.Filters["visible"]; ok {
		query = query.Where("visible = ?", visible)
	}

	sortField := ValidateSortField(filter.OrderBy, ProductListingSortFields, "")
	if sortField != "" {
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("position ASC, created_at ASC")
	}
	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindVisibleByStorefront returns the listings shown to shoppers, ordered
// by position
func (r *GormProductListingRepository) FindVisibleByStorefront(ctx context.Context, storefrontID uuid.UUID) ([]storefront.ProductListing, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var listings []storefront.ProductListing
	if err := db.Where("storefront_id = ? AND visible = ?", storefrontID, true).
		Order("position ASC, created_at ASC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindByProduct finds every listing that carries one product
func (r *GormProductListingRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]storefront.ProductListing, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return nil, err
	}
	var listings []storefront.ProductListing
	if err := db.Where("product_id = ?", productID).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// Save creates or updates a listing
func (r *GormProductListingRepository) Save(ctx context.Context, listing *storefront.ProductListing) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Save(listing).Error
}

// Delete deletes a listing
func (r *GormProductListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	result := db.Delete(&storefront.ProductListing{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByStorefront deletes all listings of one storefront
func (r *GormProductListingRepository) DeleteByStorefront(ctx context.Context, storefrontID uuid.UUID) error {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return err
	}
	return db.Where("storefront_id = ?", storefrontID).
		Delete(&storefront.ProductListing{}).Error
}

// ExistsByStorefrontAndProduct checks if a listing exists for the pair
func (r *GormProductListingRepository) ExistsByStorefrontAndProduct(ctx context.Context, storefrontID, productID uuid.UUID) (bool, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Model(&storefront.ProductListing{}).
		Where("storefront_id = ? AND product_id = ?", storefrontID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts the listings of one storefront
func (r *GormProductListingRepository) Count(ctx context.Context, storefrontID uuid.UUID) (int64, error) {
	db, err := r.source.DBFor(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Model(&storefront.ProductListing{}).
		Where("storefront_id = ?", storefrontID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormProductListingRepository implements ProductListingRepository
var _ storefront.ProductListingRepository = (*GormProductListingRepository)(nil)
