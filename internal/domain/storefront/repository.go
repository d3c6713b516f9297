package storefront

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// StorefrontRepository defines the persistence interface for storefronts
type StorefrontRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Storefront, error)
	FindBySlug(ctx context.Context, slug string) (*Storefront, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Storefront, error)
	FindPublished(ctx context.Context) ([]Storefront, error)
	Save(ctx context.Context, storefront *Storefront) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

// ProductListingRepository defines the persistence interface for listings
type ProductListingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductListing, error)
	FindByStorefrontAndProduct(ctx context.Context, storefrontID, productID uuid.UUID) (*ProductListing, error)

	// FindByStorefront returns listings ordered by position
	FindByStorefront(ctx context.Context, storefrontID uuid.UUID, filter shared.Filter) ([]ProductListing, error)
	FindVisibleByStorefront(ctx context.Context, storefrontID uuid.UUID) ([]ProductListing, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductListing, error)

	Save(ctx context.Context, listing *ProductListing) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByStorefront(ctx context.Context, storefrontID uuid.UUID) error
	ExistsByStorefrontAndProduct(ctx context.Context, storefrontID, productID uuid.UUID) (bool, error)
	Count(ctx context.Context, storefrontID uuid.UUID) (int64, error)
}

// StorefrontOrderRepository defines the persistence interface for orders
type StorefrontOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StorefrontOrder, error)
	FindByNumber(ctx context.Context, number string) (*StorefrontOrder, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]StorefrontOrder, error)
	FindByStorefront(ctx context.Context, storefrontID uuid.UUID, filter shared.Filter) ([]StorefrontOrder, error)
	FindByStatus(ctx context.Context, status OrderStatus, filter shared.Filter) ([]StorefrontOrder, error)
	FindByCustomerPhone(ctx context.Context, phone string, filter shared.Filter) ([]StorefrontOrder, error)
	FindByPeriod(ctx context.Context, from, to time.Time, filter shared.Filter) ([]StorefrontOrder, error)
	Save(ctx context.Context, order *StorefrontOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByStatus(ctx context.Context, status OrderStatus) (int64, error)
}
