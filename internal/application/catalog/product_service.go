package catalog

import (
	"context"
	"errors"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/shared/valueobject"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo    catalog.ProductRepository
	categoryRepo   catalog.CategoryRepository
	eventPublisher shared.EventPublisher
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := s.productRepo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
	}

	product, err := catalog.NewProduct(tenantID, req.SKU, req.Name, req.Unit)
	if err != nil {
		return nil, err
	}

	if req.Description != "" {
		if err := product.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}

	if req.Barcode != "" {
		barcodeExists, err := s.productRepo.ExistsByBarcode(ctx, req.Barcode)
		if err != nil {
			return nil, err
		}
		if barcodeExists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this barcode already exists")
		}
		if err := product.SetBarcode(req.Barcode); err != nil {
			return nil, err
		}
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
			}
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}

	if req.CostPrice != nil || req.SellingPrice != nil {
		costPrice := decimal.Zero
		if req.CostPrice != nil {
			costPrice = *req.CostPrice
		}
		sellingPrice := decimal.Zero
		if req.SellingPrice != nil {
			sellingPrice = *req.SellingPrice
		}
		cost, _ := valueobject.NewMoney(costPrice, valueobject.DefaultCurrency)
		selling, _ := valueobject.NewMoney(sellingPrice, valueobject.DefaultCurrency)
		if err := product.SetPrices(cost, selling); err != nil {
			return nil, err
		}
	}

	if req.TaxRate != nil {
		if err := product.SetTaxRate(*req.TaxRate); err != nil {
			return nil, err
		}
	}
	if req.SortOrder != nil {
		product.SetSortOrder(*req.SortOrder)
	}
	if len(req.MediaURLs) > 0 {
		if err := product.SetMediaURLs(req.MediaURLs); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, product.GetDomainEvents()...); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
	}

	response := ToProductResponse(product)
	return &response, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// GetBySKU retrieves a product by SKU
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// Lookup resolves a scanned or typed code to a product. Barcodes win over
// SKUs, so a cashier can scan without caring which kind of code it is.
func (s *ProductService) Lookup(ctx context.Context, code string) (*ProductResponse, error) {
	product, err := s.productRepo.FindByBarcode(ctx, code)
	if errors.Is(err, shared.ErrNotFound) {
		product, err = s.productRepo.FindBySKU(ctx, code)
	}
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// List retrieves products with filtering and pagination
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductListResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "sort_order"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}

	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.CategoryID != nil {
		domainFilter.Filters["category_id"] = *filter.CategoryID
	}
	if filter.Unit != "" {
		domainFilter.Filters["unit"] = filter.Unit
	}
	if filter.MinPrice != nil {
		domainFilter.Filters["min_price"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		domainFilter.Filters["max_price"] = *filter.MaxPrice
	}
	if filter.HasBarcode != nil {
		domainFilter.Filters["has_barcode"] = *filter.HasBarcode
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToProductListResponses(products), total, nil
}

// ListByCategory retrieves products in a specific category
func (s *ProductService) ListByCategory(ctx context.Context, categoryID uuid.UUID, filter ProductListFilter) ([]ProductListResponse, int64, error) {
	filter.CategoryID = &categoryID
	return s.List(ctx, filter)
}

// Update updates a product's information and prices
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		name := product.Name
		if req.Name != nil {
			name = *req.Name
		}
		description := product.Description
		if req.Description != nil {
			description = *req.Description
		}
		if err := product.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.Barcode != nil && *req.Barcode != product.Barcode {
		if *req.Barcode != "" {
			barcodeExists, err := s.productRepo.ExistsByBarcode(ctx, *req.Barcode)
			if err != nil {
				return nil, err
			}
			if barcodeExists {
				return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this barcode already exists")
			}
		}
		if err := product.SetBarcode(*req.Barcode); err != nil {
			return nil, err
		}
	}

	if req.CostPrice != nil && req.SellingPrice != nil {
		cost, _ := valueobject.NewMoney(*req.CostPrice, valueobject.DefaultCurrency)
		selling, _ := valueobject.NewMoney(*req.SellingPrice, valueobject.DefaultCurrency)
		if err := product.SetPrices(cost, selling); err != nil {
			return nil, err
		}
	} else if req.CostPrice != nil {
		cost, _ := valueobject.NewMoney(*req.CostPrice, valueobject.DefaultCurrency)
		if err := product.UpdateCostPrice(cost); err != nil {
			return nil, err
		}
	} else if req.SellingPrice != nil {
		selling, _ := valueobject.NewMoney(*req.SellingPrice, valueobject.DefaultCurrency)
		if err := product.UpdateSellingPrice(selling); err != nil {
			return nil, err
		}
	}

	if req.TaxRate != nil {
		if err := product.SetTaxRate(*req.TaxRate); err != nil {
			return nil, err
		}
	}
	if req.SortOrder != nil {
		product.SetSortOrder(*req.SortOrder)
	}
	if req.MediaURLs != nil {
		if err := product.SetMediaURLs(*req.MediaURLs); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, product.GetDomainEvents()...); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
	}

	response := ToProductResponse(product)
	return &response, nil
}

// UpdateSKU changes a product's SKU after checking uniqueness
func (s *ProductService) UpdateSKU(ctx context.Context, id uuid.UUID, req UpdateProductSKURequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.productRepo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
	}

	if err := product.UpdateSKU(req.SKU); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, product.GetDomainEvents()...); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
	}

	response := ToProductResponse(product)
	return &response, nil
}

// AssignCategory assigns a product to a category
func (s *ProductService) AssignCategory(ctx context.Context, productID, categoryID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return nil, err
	}

	product.SetCategory(&categoryID)

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, product.GetDomainEvents()...); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
	}

	response := ToProductResponse(product)
	return &response, nil
}

// ClearCategory removes a product from its category
func (s *ProductService) ClearCategory(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.SetCategory(nil)

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, product.GetDomainEvents()...); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
	}

	response := ToProductResponse(product)
	return &response, nil
}

// AddMediaURL appends a media URL to the product's gallery
func (s *ProductService) AddMediaURL(ctx context.Context, id uuid.UUID, url string) (*ProductResponse, error) {
	return s.modify(ctx, id, func(p *catalog.Product) error {
		return p.AddMediaURL(url)
	})
}

// RemoveMediaURL removes a media URL from the product's gallery
func (s *ProductService) RemoveMediaURL(ctx context.Context, id uuid.UUID, url string) (*ProductResponse, error) {
	return s.modify(ctx, id, func(p *catalog.Product) error {
		return p.RemoveMediaURL(url)
	})
}

// Activate makes a product sellable again
func (s *ProductService) Activate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.modify(ctx, id, (*catalog.Product).Activate)
}

// Deactivate takes a product off sale without discontinuing it
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.modify(ctx, id, (*catalog.Product).Deactivate)
}

// Discontinue permanently retires a product. Discontinued products cannot
// be reactivated.
func (s *ProductService) Discontinue(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.modify(ctx, id, (*catalog.Product).Discontinue)
}

func (s *ProductService) modify(ctx context.Context, id uuid.UUID, op func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := op(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, product.GetDomainEvents()...); err != nil {
			return nil, err
		}
		product.ClearDomainEvents()
	}

	response := ToProductResponse(product)
	return &response, nil
}

// Delete deletes a product. Active products must be deactivated or
// discontinued first.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if product.IsActive() {
		return shared.NewDomainError("PRODUCT_ACTIVE", "Active products cannot be deleted")
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, catalog.NewProductDeletedEvent(product)); err != nil {
			return err
		}
	}

	return nil
}
