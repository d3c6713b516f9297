package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// MaxMediaURLs caps the number of media attachments per product
const MaxMediaURLs = 10

// MediaURLs holds the ordered list of image/video URLs shown on storefronts.
// Stored as a JSON array.
type MediaURLs []string

// Value implements driver.Valuer
func (m MediaURLs) Value() (driver.Value, error) {
	if m == nil {
		m = MediaURLs{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *MediaURLs) Scan(value any) error {
	if value == nil {
		*m = MediaURLs{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MediaURLs", value)
	}
	if len(data) == 0 {
		*m = MediaURLs{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Product represents a sellable item in the catalog.
// It is the aggregate root for product-related operations; the SKU is
// unique within a tenant.
type Product struct {
	shared.TenantAggregateRoot
	SKU          string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_products_tenant_sku,priority:2"`
	Name         string          `gorm:"type:varchar(200);not null"`
	Description  string          `gorm:"type:text"`
	Barcode      string          `gorm:"type:varchar(50);index"`
	CategoryID   *uuid.UUID      `gorm:"type:uuid;index"`
	Unit         string          `gorm:"type:varchar(20);not null"`             // Base unit (e.g., "pcs", "kg", "box")
	CostPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // What the merchant pays
	SellingPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // What the customer pays
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`  // Percentage, e.g. 7.50
	Status       ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	SortOrder    int             `gorm:"not null;default:0"`
	MediaURLs    MediaURLs       `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(tenantID uuid.UUID, sku, name, unit string) (*Product, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateUnit(unit); err != nil {
		return nil, err
	}

	product := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 strings.ToUpper(sku),
		Name:                name,
		Unit:                unit,
		CostPrice:           decimal.Zero,
		SellingPrice:        decimal.Zero,
		TaxRate:             decimal.Zero,
		Status:              ProductStatusActive,
		MediaURLs:           MediaURLs{},
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// NewProductWithPrices creates a new product with prices
func NewProductWithPrices(
	tenantID uuid.UUID,
	sku, name, unit string,
	costPrice, sellingPrice valueobject.Money,
) (*Product, error) {
	product, err := NewProduct(tenantID, sku, name, unit)
	if err != nil {
		return nil, err
	}

	if err := product.SetPrices(costPrice, sellingPrice); err != nil {
		return nil, err
	}

	return product, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.Description = description
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// UpdateSKU updates the product's SKU
// Note: This should be used with caution as sales, invoices, and storefront
// listings reference the SKU
func (p *Product) UpdateSKU(sku string) error {
	if err := validateSKU(sku); err != nil {
		return err
	}

	p.SKU = strings.ToUpper(sku)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetBarcode sets the product barcode
func (p *Product) SetBarcode(barcode string) error {
	if barcode != "" && len(barcode) > 50 {
		return shared.NewDomainError("INVALID_BARCODE", "Barcode cannot exceed 50 characters")
	}

	p.Barcode = barcode
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetCategory sets the product category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))
}

// SetPrices sets both cost and selling prices
func (p *Product) SetPrices(costPrice, sellingPrice valueobject.Money) error {
	if costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Cost price cannot be negative")
	}
	if sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}

	oldCostPrice := p.CostPrice
	oldSellingPrice := p.SellingPrice

	p.CostPrice = costPrice.Amount()
	p.SellingPrice = sellingPrice.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, oldCostPrice, oldSellingPrice))

	return nil
}

// UpdateSellingPrice updates only the selling price
func (p *Product) UpdateSellingPrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}

	oldPrice := p.SellingPrice
	p.SellingPrice = price.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, p.CostPrice, oldPrice))

	return nil
}

// UpdateCostPrice updates only the cost price
func (p *Product) UpdateCostPrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Cost price cannot be negative")
	}

	oldPrice := p.CostPrice
	p.CostPrice = price.Amount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, oldPrice, p.SellingPrice))

	return nil
}

// SetTaxRate sets the tax rate applied at sale, as a percentage
func (p *Product) SetTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	if rate.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot exceed 100 percent")
	}

	p.TaxRate = rate
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetSortOrder sets the display order of the product
func (p *Product) SetSortOrder(order int) {
	p.SortOrder = order
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// SetMediaURLs replaces the product's media URL list
func (p *Product) SetMediaURLs(urls []string) error {
	if len(urls) > MaxMediaURLs {
		return shared.NewDomainError("TOO_MANY_MEDIA", fmt.Sprintf("A product can have at most %d media URLs", MaxMediaURLs))
	}
	for _, raw := range urls {
		if err := validateMediaURL(raw); err != nil {
			return err
		}
	}

	p.MediaURLs = append(MediaURLs{}, urls...)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// AddMediaURL appends a media URL to the product
func (p *Product) AddMediaURL(raw string) error {
	if len(p.MediaURLs) >= MaxMediaURLs {
		return shared.NewDomainError("TOO_MANY_MEDIA", fmt.Sprintf("A product can have at most %d media URLs", MaxMediaURLs))
	}
	if err := validateMediaURL(raw); err != nil {
		return err
	}

	p.MediaURLs = append(p.MediaURLs, raw)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// RemoveMediaURL removes a media URL from the product
func (p *Product) RemoveMediaURL(raw string) error {
	for i, existing := range p.MediaURLs {
		if existing == raw {
			p.MediaURLs = append(p.MediaURLs[:i], p.MediaURLs[i+1:]...)
			p.UpdatedAt = time.Now()
			p.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("MEDIA_NOT_FOUND", "Media URL not found on product")
}

// Activate activates the product
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	if p.Status == ProductStatusDiscontinued {
		return shared.NewDomainError("CANNOT_ACTIVATE", "Cannot activate a discontinued product")
	}

	oldStatus := p.Status
	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusActive))

	return nil
}

// Deactivate deactivates the product
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	if p.Status == ProductStatusDiscontinued {
		return shared.NewDomainError("CANNOT_DEACTIVATE", "Cannot deactivate a discontinued product")
	}

	oldStatus := p.Status
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusInactive))

	return nil
}

// Discontinue marks the product as discontinued
// A discontinued product cannot be reactivated
func (p *Product) Discontinue() error {
	if p.Status == ProductStatusDiscontinued {
		return shared.NewDomainError("ALREADY_DISCONTINUED", "Product is already discontinued")
	}

	oldStatus := p.Status
	p.Status = ProductStatusDiscontinued
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductStatusChangedEvent(p, oldStatus, ProductStatusDiscontinued))

	return nil
}

// IsActive returns true if the product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsDiscontinued returns true if the product is discontinued
func (p *Product) IsDiscontinued() bool {
	return p.Status == ProductStatusDiscontinued
}

// HasCategory returns true if the product has a category assigned
func (p *Product) HasCategory() bool {
	return p.CategoryID != nil
}

// SellingPriceMoney returns the selling price as a Money value object
func (p *Product) SellingPriceMoney(currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(p.SellingPrice, currency)
	return m
}

// CostPriceMoney returns the cost price as a Money value object
func (p *Product) CostPriceMoney(currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(p.CostPrice, currency)
	return m
}

// ProfitMargin returns the profit margin percentage.
// Returns 0 if cost price is zero.
func (p *Product) ProfitMargin() decimal.Decimal {
	if p.CostPrice.IsZero() {
		return decimal.Zero
	}
	profit := p.SellingPrice.Sub(p.CostPrice)
	return profit.Div(p.CostPrice).Mul(decimal.NewFromInt(100))
}

// TaxAmount returns the tax charged on the given base amount at this
// product's rate
func (p *Product) TaxAmount(base decimal.Decimal) decimal.Decimal {
	if p.TaxRate.IsZero() {
		return decimal.Zero
	}
	return base.Mul(p.TaxRate).Div(decimal.NewFromInt(100))
}

// validateSKU validates the product SKU
func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 50 characters")
	}
	// SKU should be alphanumeric with underscores and hyphens
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

// validateUnit validates the unit
func validateUnit(unit string) error {
	if unit == "" {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}
	if len(unit) > 20 {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot exceed 20 characters")
	}
	return nil
}

// validateMediaURL validates a single media URL
func validateMediaURL(raw string) error {
	if raw == "" {
		return shared.NewDomainError("INVALID_MEDIA_URL", "Media URL cannot be empty")
	}
	if len(raw) > 500 {
		return shared.NewDomainError("INVALID_MEDIA_URL", "Media URL cannot exceed 500 characters")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return shared.NewDomainError("INVALID_MEDIA_URL", "Media URL must be a valid http(s) URL")
	}
	return nil
}
