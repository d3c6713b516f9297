package storefront

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/shared"
)

// ProductListing publishes a catalog product on a storefront. A product
// appears at most once per storefront; the listing may override the
// catalog selling price and controls ordering on the shop page.
type ProductListing struct {
	shared.TenantAggregateRoot
	StorefrontID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_listings_storefront_product,priority:1" json:"storefront_id"`
	ProductID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_listings_storefront_product,priority:2" json:"product_id"`
	PriceOverride *decimal.Decimal `gorm:"type:decimal(18,4)" json:"price_override,omitempty"`
	Position      int              `gorm:"not null;default:0" json:"position"`
	Visible       bool             `gorm:"not null;default:true" json:"visible"`
}

func (ProductListing) TableName() string {
	return "product_listings"
}

// NewProductListing publishes a product on a storefront at the catalog price
func NewProductListing(tenantID, storefrontID, productID uuid.UUID) (*ProductListing, error) {
	if storefrontID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOREFRONT", "Storefront ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}

	return &ProductListing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		StorefrontID:        storefrontID,
		ProductID:           productID,
		Visible:             true,
	}, nil
}

// SetPriceOverride fixes a storefront-specific selling price
func (l *ProductListing) SetPriceOverride(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price override cannot be negative")
	}
	l.PriceOverride = &price
	l.markUpdated()
	return nil
}

// ClearPriceOverride reverts the listing to the catalog selling price
func (l *ProductListing) ClearPriceOverride() {
	l.PriceOverride = nil
	l.markUpdated()
}

// EffectivePrice resolves the price shown on the storefront
func (l *ProductListing) EffectivePrice(catalogPrice decimal.Decimal) decimal.Decimal {
	if l.PriceOverride != nil {
		return *l.PriceOverride
	}
	return catalogPrice
}

// SetPosition orders the listing on the shop page, lowest first
func (l *ProductListing) SetPosition(position int) error {
	if position < 0 {
		return shared.NewDomainError("INVALID_POSITION", "Position cannot be negative")
	}
	l.Position = position
	l.markUpdated()
	return nil
}

// Show makes the listing visible to shoppers
func (l *ProductListing) Show() {
	l.Visible = true
	l.markUpdated()
}

// Hide removes the listing from the shop page without unpublishing it
func (l *ProductListing) Hide() {
	l.Visible = false
	l.markUpdated()
}

func (l *ProductListing) markUpdated() {
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}
