package storefront

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/storefront"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// StorefrontService manages a tenant's online shops and their product
// listings. Slug claims go through the control-plane registry so the
// public address stays unique across all tenants regardless of which
// database the tenant lives in.
type StorefrontService struct {
	storefrontRepo storefront.StorefrontRepository
	listingRepo    storefront.ProductListingRepository
	productRepo    catalog.ProductRepository
	slugRegistry   storefront.SlugRegistry
	eventPublisher shared.EventPublisher
}

// NewStorefrontService creates a new StorefrontService
func NewStorefrontService(
	storefrontRepo storefront.StorefrontRepository,
	listingRepo storefront.ProductListingRepository,
	productRepo catalog.ProductRepository,
	slugRegistry storefront.SlugRegistry,
) *StorefrontService {
	return &StorefrontService{
		storefrontRepo: storefrontRepo,
		listingRepo:    listingRepo,
		productRepo:    productRepo,
		slugRegistry:   slugRegistry,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *StorefrontService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create opens a new unpublished storefront and claims its slug.
// A failed save releases the claim so the slug is not orphaned.
func (s *StorefrontService) Create(ctx context.Context, req CreateStorefrontRequest) (*StorefrontResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	sf, err := storefront.NewStorefront(tenantID, req.Slug, req.DisplayName)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := sf.UpdateDetails(req.DisplayName, req.Description); err != nil {
			return nil, err
		}
	}

	if err := s.slugRegistry.Claim(ctx, sf.Slug, tenantID, sf.ID); err != nil {
		if errors.Is(err, storefront.ErrSlugTaken) {
			return nil, shared.NewDomainError("SLUG_TAKEN", "This shop address is already in use")
		}
		return nil, err
	}

	if err := s.storefrontRepo.Save(ctx, sf); err != nil {
		_ = s.slugRegistry.Release(ctx, sf.Slug)
		return nil, err
	}
	if err := s.publish(ctx, sf); err != nil {
		return nil, err
	}

	response := ToStorefrontResponse(sf)
	return &response, nil
}

// Update changes shop details, theme, currency or fulfillment location
func (s *StorefrontService) Update(ctx context.Context, storefrontID uuid.UUID, req UpdateStorefrontRequest) (*StorefrontResponse, error) {
	sf, err := s.storefrontRepo.FindByID(ctx, storefrontID)
	if err != nil {
		return nil, err
	}

	if err := sf.UpdateDetails(req.DisplayName, req.Description); err != nil {
		return nil, err
	}
	if req.Currency != "" {
		if err := sf.SetCurrency(req.Currency); err != nil {
			return nil, err
		}
	}
	if req.Theme != nil {
		sf.SetTheme(*req.Theme)
	}
	if req.LocationID != nil {
		sf.SetFulfillmentLocation(req.LocationID)
	}

	if err := s.storefrontRepo.Save(ctx, sf); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, sf); err != nil {
		return nil, err
	}

	response := ToStorefrontResponse(sf)
	return &response, nil
}

// Rename moves the storefront to a new slug. The new slug is claimed
// before the old one is released, so the shop never loses its address.
func (s *StorefrontService) Rename(ctx context.Context, storefrontID uuid.UUID, newSlug string) (*StorefrontResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	sf, err := s.storefrontRepo.FindByID(ctx, storefrontID)
	if err != nil {
		return nil, err
	}

	normalized, err := storefront.NormalizeSlug(newSlug)
	if err != nil {
		return nil, err
	}
	if normalized == sf.Slug {
		response := ToStorefrontResponse(sf)
		return &response, nil
	}

	if err := s.slugRegistry.Claim(ctx, normalized, tenantID, sf.ID); err != nil {
		if errors.Is(err, storefront.ErrSlugTaken) {
			return nil, shared.NewDomainError("SLUG_TAKEN", "This shop address is already in use")
		}
		return nil, err
	}

	oldSlug := sf.Slug
	sf.Slug = normalized
	if err := s.storefrontRepo.Save(ctx, sf); err != nil {
		_ = s.slugRegistry.Release(ctx, normalized)
		return nil, err
	}
	if err := s.slugRegistry.Release(ctx, oldSlug); err != nil {
		return nil, err
	}

	response := ToStorefrontResponse(sf)
	return &response, nil
}

// Publish makes the storefront publicly reachable
func (s *StorefrontService) Publish(ctx context.Context, storefrontID uuid.UUID) (*StorefrontResponse, error) {
	return s.modify(ctx, storefrontID, (*storefront.Storefront).Publish)
}

// Unpublish takes the storefront offline without deleting it
func (s *StorefrontService) Unpublish(ctx context.Context, storefrontID uuid.UUID) (*StorefrontResponse, error) {
	return s.modify(ctx, storefrontID, (*storefront.Storefront).Unpublish)
}

func (s *StorefrontService) modify(ctx context.Context, storefrontID uuid.UUID, op func(*storefront.Storefront) error) (*StorefrontResponse, error) {
	sf, err := s.storefrontRepo.FindByID(ctx, storefrontID)
	if err != nil {
		return nil, err
	}
	if err := op(sf); err != nil {
		return nil, err
	}
	if err := s.storefrontRepo.Save(ctx, sf); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, sf); err != nil {
		return nil, err
	}
	response := ToStorefrontResponse(sf)
	return &response, nil
}

// Delete removes a storefront, its listings and its slug claim.
// Published storefronts must be unpublished first.
func (s *StorefrontService) Delete(ctx context.Context, storefrontID uuid.UUID) error {
	sf, err := s.storefrontRepo.FindByID(ctx, storefrontID)
	if err != nil {
		return err
	}
	if sf.Published {
		return shared.NewDomainError("STILL_PUBLISHED", "Unpublish the storefront before deleting it")
	}

	if err := s.listingRepo.DeleteByStorefront(ctx, storefrontID); err != nil {
		return err
	}
	if err := s.storefrontRepo.Delete(ctx, storefrontID); err != nil {
		return err
	}
	return s.slugRegistry.Release(ctx, sf.Slug)
}

// Get retrieves a storefront by ID
func (s *StorefrontService) Get(ctx context.Context, storefrontID uuid.UUID) (*StorefrontResponse, error) {
	sf, err := s.storefrontRepo.FindByID(ctx, storefrontID)
	if err != nil {
		return nil, err
	}
	response := ToStorefrontResponse(sf)
	return &response, nil
}

// GetBySlug retrieves a storefront by its public slug. The caller is
// expected to have already resolved the slug to a tenant through the
// control-plane registry.
func (s *StorefrontService) GetBySlug(ctx context.Context, slug string) (*StorefrontResponse, error) {
	sf, err := s.storefrontRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	response := ToStorefrontResponse(sf)
	return &response, nil
}

// List retrieves the tenant's storefronts
func (s *StorefrontService) List(ctx context.Context) ([]StorefrontResponse, error) {
	storefronts, err := s.storefrontRepo.FindAll(ctx, shared.Filter{Page: 1, PageSize: 100, OrderBy: "created_at", OrderDir: "asc"})
	if err != nil {
		return nil, err
	}
	return ToStorefrontResponses(storefronts), nil
}

// ListProduct publishes a catalog product on a storefront
func (s *StorefrontService) ListProduct(ctx context.Context, storefrontID uuid.UUID, req ListProductRequest) (*ListingResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.storefrontRepo.FindByID(ctx, storefrontID); err != nil {
		return nil, err
	}

	exists, err := s.listingRepo.ExistsByStorefrontAndProduct(ctx, storefrontID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_LISTED", "Product is already listed on this storefront")
	}

	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product does not exist")
		}
		return nil, err
	}
	if !product.IsActive() {
		return nil, shared.NewDomainError("PRODUCT_INACTIVE", "Inactive products cannot be listed")
	}

	listing, err := storefront.NewProductListing(tenantID, storefrontID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.PriceOverride != nil {
		if err := listing.SetPriceOverride(*req.PriceOverride); err != nil {
			return nil, err
		}
	}
	if req.Position != nil {
		if err := listing.SetPosition(*req.Position); err != nil {
			return nil, err
		}
	}

	if err := s.listingRepo.Save(ctx, listing); err != nil {
		return nil, err
	}

	response := ToListingResponse(listing)
	return &response, nil
}

// UnlistProduct removes a product from a storefront
func (s *StorefrontService) UnlistProduct(ctx context.Context, storefrontID, productID uuid.UUID) error {
	listing, err := s.listingRepo.FindByStorefrontAndProduct(ctx, storefrontID, productID)
	if err != nil {
		return err
	}
	return s.listingRepo.Delete(ctx, listing.ID)
}

// SetListingPrice fixes a storefront-specific selling price. A nil
// price reverts the listing to the catalog price.
func (s *StorefrontService) SetListingPrice(ctx context.Context, listingID uuid.UUID, price *decimal.Decimal) (*ListingResponse, error) {
	return s.modifyListing(ctx, listingID, func(l *storefront.ProductListing) error {
		if price == nil {
			l.ClearPriceOverride()
			return nil
		}
		return l.SetPriceOverride(*price)
	})
}

// SetListingPosition orders the listing on the shop page
func (s *StorefrontService) SetListingPosition(ctx context.Context, listingID uuid.UUID, position int) (*ListingResponse, error) {
	return s.modifyListing(ctx, listingID, func(l *storefront.ProductListing) error {
		return l.SetPosition(position)
	})
}

// ShowListing makes the listing visible to shoppers
func (s *StorefrontService) ShowListing(ctx context.Context, listingID uuid.UUID) (*ListingResponse, error) {
	return s.modifyListing(ctx, listingID, func(l *storefront.ProductListing) error {
		l.Show()
		return nil
	})
}

// HideListing removes the listing from the shop page without unlisting it
func (s *StorefrontService) HideListing(ctx context.Context, listingID uuid.UUID) (*ListingResponse, error) {
	return s.modifyListing(ctx, listingID, func(l *storefront.ProductListing) error {
		l.Hide()
		return nil
	})
}

func (s *StorefrontService) modifyListing(ctx context.Context, listingID uuid.UUID, op func(*storefront.ProductListing) error) (*ListingResponse, error) {
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := op(listing); err != nil {
		return nil, err
	}
	if err := s.listingRepo.Save(ctx, listing); err != nil {
		return nil, err
	}
	response := ToListingResponse(listing)
	return &response, nil
}

// Listings retrieves all listings on a storefront, visible or not
func (s *StorefrontService) Listings(ctx context.Context, storefrontID uuid.UUID) ([]ListingResponse, error) {
	listings, err := s.listingRepo.FindByStorefront(ctx, storefrontID, shared.Filter{Page: 1, PageSize: 500, OrderBy: "position", OrderDir: "asc"})
	if err != nil {
		return nil, err
	}
	return ToListingResponses(listings), nil
}

// Catalog builds the public shop page: visible listings joined with
// their catalog snapshots, at the effective price, in position order.
// Listings whose product has been retired are skipped.
func (s *StorefrontService) Catalog(ctx context.Context, storefrontID uuid.UUID) ([]CatalogItemResponse, error) {
	listings, err := s.listingRepo.FindVisibleByStorefront(ctx, storefrontID)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return []CatalogItemResponse{}, nil
	}

	productIDs := make([]uuid.UUID, len(listings))
	for i := range listings {
		productIDs[i] = listings[i].ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]CatalogItemResponse, 0, len(listings))
	for i := range listings {
		listing := &listings[i]
		product, ok := byID[listing.ProductID]
		if !ok || !product.IsActive() {
			continue
		}
		items = append(items, CatalogItemResponse{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			Unit:      product.Unit,
			Price:     listing.EffectivePrice(product.SellingPrice),
			Position:  listing.Position,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })

	return items, nil
}

func (s *StorefrontService) publish(ctx context.Context, sf *storefront.Storefront) error {
	if s.eventPublisher == nil {
		sf.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, sf.GetDomainEvents()...); err != nil {
		return err
	}
	sf.ClearDomainEvents()
	return nil
}
