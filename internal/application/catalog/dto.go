package catalog

import (
	"time"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU          string           `json:"sku"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Barcode      string           `json:"barcode"`
	CategoryID   *uuid.UUID       `json:"category_id"`
	Unit         string           `json:"unit"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	SortOrder    *int             `json:"sort_order"`
	MediaURLs    []string         `json:"media_urls"`
}

// UpdateProductRequest represents a request to update a product.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Barcode      *string          `json:"barcode"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	SortOrder    *int             `json:"sort_order"`
	MediaURLs    *[]string        `json:"media_urls"`
}

// UpdateProductSKURequest represents a request to change a product's SKU
type UpdateProductSKURequest struct {
	SKU string `json:"sku"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Barcode      string          `json:"barcode"`
	CategoryID   *uuid.UUID      `json:"category_id"`
	Unit         string          `json:"unit"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Status       string          `json:"status"`
	SortOrder    int             `json:"sort_order"`
	MediaURLs    []string        `json:"media_urls"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// ProductListResponse represents a list item for products
type ProductListResponse struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Barcode      string          `json:"barcode"`
	CategoryID   *uuid.UUID      `json:"category_id"`
	Unit         string          `json:"unit"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Status       string          `json:"status"`
	SortOrder    int             `json:"sort_order"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProductListFilter represents filter options for product list
type ProductListFilter struct {
	Search     string     `json:"search"`
	Status     string     `json:"status"`
	CategoryID *uuid.UUID `json:"category_id"`
	Unit       string     `json:"unit"`
	MinPrice   *float64   `json:"min_price"`
	MaxPrice   *float64   `json:"max_price"`
	HasBarcode *bool      `json:"has_barcode"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	OrderBy    string     `json:"order_by"`
	OrderDir   string     `json:"order_dir"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		TenantID:     p.TenantID,
		SKU:          p.SKU,
		Name:         p.Name,
		Description:  p.Description,
		Barcode:      p.Barcode,
		CategoryID:   p.CategoryID,
		Unit:         p.Unit,
		CostPrice:    p.CostPrice,
		SellingPrice: p.SellingPrice,
		TaxRate:      p.TaxRate,
		Status:       string(p.Status),
		SortOrder:    p.SortOrder,
		MediaURLs:    p.MediaURLs,
		ProfitMargin: p.ProfitMargin(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Version:      p.Version,
	}
}

// ToProductListResponse converts a domain Product to ProductListResponse
func ToProductListResponse(p *catalog.Product) ProductListResponse {
	return ProductListResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Barcode:      p.Barcode,
		CategoryID:   p.CategoryID,
		Unit:         p.Unit,
		SellingPrice: p.SellingPrice,
		Status:       string(p.Status),
		SortOrder:    p.SortOrder,
		CreatedAt:    p.CreatedAt,
	}
}

// ToProductListResponses converts a slice of domain Products to ProductListResponses
func ToProductListResponses(products []catalog.Product) []ProductListResponse {
	responses := make([]ProductListResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductListResponse(&p)
	}
	return responses
}

// CreateCategoryRequest represents a request to create a new category
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sort_order"`
}

// UpdateCategoryRequest represents a request to update a category.
// Nil fields are left unchanged.
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

// CategoryListFilter represents filter options for category list
type CategoryListFilter struct {
	Search   string `json:"search"`
	Status   string `json:"status"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	OrderBy  string `json:"order_by"`
	OrderDir string `json:"order_dir"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Name:        c.Name,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToCategoryResponses converts a slice of domain Categories to CategoryResponses
func ToCategoryResponses(categories []catalog.Category) []CategoryResponse {
	responses := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		responses[i] = ToCategoryResponse(&c)
	}
	return responses
}
