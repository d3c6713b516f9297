package catalog

import (
	"context"
	"testing"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByBarcode(ctx context.Context, barcode string) (*catalog.Product, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCategory(ctx context.Context, categoryID uuid.UUID, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, categoryID, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindActive(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	args := m.Called(ctx, sku)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) ExistsByBarcode(ctx context.Context, barcode string) (bool, error) {
	args := m.Called(ctx, barcode)
	return args.Bool(0), args.Error(1)
}

// MockCategoryRepository is a mock implementation of CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindByName(ctx context.Context, name string) (*catalog.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Category, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindActive(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryRepository) HasProducts(ctx context.Context, categoryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, categoryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// Test helper functions
func newTestTenantID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newTestProductID() uuid.UUID {
	return uuid.MustParse("22222222-2222-2222-2222-222222222222")
}

func newTestCategoryID() uuid.UUID {
	return uuid.MustParse("33333333-3333-3333-3333-333333333333")
}

// newTestContext builds a context carrying the tenant the way the routing
// layer expects to find it.
func newTestContext(tenantID uuid.UUID) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
	return ctx
}

func createTestProduct(tenantID uuid.UUID) *catalog.Product {
	product, _ := catalog.NewProduct(tenantID, "TEST-001", "Test Product", "pcs")
	product.ClearDomainEvents()
	return product
}

func createTestCategory(tenantID uuid.UUID) *catalog.Category {
	category, _ := catalog.NewCategory(tenantID, "Beverages")
	category.ClearDomainEvents()
	return category
}

// Tests for ProductService.Create
func TestProductService_Create_Success(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	req := CreateProductRequest{
		SKU:  "NEW-001",
		Name: "New Product",
		Unit: "pcs",
	}

	mockProductRepo.On("ExistsBySKU", ctx, req.SKU).Return(false, nil)
	mockProductRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

	result, err := service.Create(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "NEW-001", result.SKU)
	assert.Equal(t, "New Product", result.Name)
	assert.Equal(t, "pcs", result.Unit)
	assert.Equal(t, "active", result.Status)
	assert.Equal(t, tenantID, result.TenantID)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_Create_WithAllFields(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	categoryID := newTestCategoryID()
	costPrice := decimal.NewFromFloat(50.00)
	sellingPrice := decimal.NewFromFloat(100.00)
	taxRate := decimal.NewFromFloat(7.5)
	sortOrder := 5

	req := CreateProductRequest{
		SKU:          "FULL-001",
		Name:         "Full Product",
		Description:  "A product with all fields",
		Barcode:      "1234567890123",
		CategoryID:   &categoryID,
		Unit:         "pcs",
		CostPrice:    &costPrice,
		SellingPrice: &sellingPrice,
		TaxRate:      &taxRate,
		SortOrder:    &sortOrder,
		MediaURLs:    []string{"https://cdn.example.com/p/full-001.jpg"},
	}

	category := createTestCategory(tenantID)

	mockProductRepo.On("ExistsBySKU", ctx, req.SKU).Return(false, nil)
	mockProductRepo.On("ExistsByBarcode", ctx, req.Barcode).Return(false, nil)
	mockCategoryRepo.On("FindByID", ctx, categoryID).Return(category, nil)
	mockProductRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

	result, err := service.Create(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "FULL-001", result.SKU)
	assert.Equal(t, "A product with all fields", result.Description)
	assert.Equal(t, "1234567890123", result.Barcode)
	assert.Equal(t, &categoryID, result.CategoryID)
	assert.True(t, result.CostPrice.Equal(costPrice))
	assert.True(t, result.SellingPrice.Equal(sellingPrice))
	assert.True(t, result.TaxRate.Equal(taxRate))
	assert.Equal(t, sortOrder, result.SortOrder)
	assert.Equal(t, []string{"https://cdn.example.com/p/full-001.jpg"}, result.MediaURLs)
	mockProductRepo.AssertExpectations(t)
	mockCategoryRepo.AssertExpectations(t)
}

func TestProductService_Create_MissingTenant(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	req := CreateProductRequest{
		SKU:  "NEW-001",
		Name: "New Product",
		Unit: "pcs",
	}

	result, err := service.Create(context.Background(), req)

	assert.ErrorIs(t, err, tenantdb.ErrTenantIDRequired)
	assert.Nil(t, result)
	mockProductRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProductService_Create_DuplicateSKU(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	req := CreateProductRequest{
		SKU:  "EXISTING-001",
		Name: "New Product",
		Unit: "pcs",
	}

	mockProductRepo.On("ExistsBySKU", ctx, req.SKU).Return(true, nil)

	result, err := service.Create(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_Create_DuplicateBarcode(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	req := CreateProductRequest{
		SKU:     "NEW-001",
		Name:    "New Product",
		Unit:    "pcs",
		Barcode: "EXISTING-BARCODE",
	}

	mockProductRepo.On("ExistsBySKU", ctx, req.SKU).Return(false, nil)
	mockProductRepo.On("ExistsByBarcode", ctx, req.Barcode).Return(true, nil)

	result, err := service.Create(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_Create_InvalidCategory(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	invalidCategoryID := uuid.New()
	req := CreateProductRequest{
		SKU:        "NEW-001",
		Name:       "New Product",
		Unit:       "pcs",
		CategoryID: &invalidCategoryID,
	}

	mockProductRepo.On("ExistsBySKU", ctx, req.SKU).Return(false, nil)
	mockCategoryRepo.On("FindByID", ctx, invalidCategoryID).Return(nil, shared.ErrNotFound)

	result, err := service.Create(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CATEGORY", domainErr.Code)
	mockProductRepo.AssertExpectations(t)
	mockCategoryRepo.AssertExpectations(t)
}

func TestProductService_Create_PublishesEvents(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	mockPublisher := new(MockEventPublisher)
	service := NewProductService(mockProductRepo, mockCategoryRepo)
	service.SetEventPublisher(mockPublisher)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	req := CreateProductRequest{
		SKU:  "NEW-001",
		Name: "New Product",
		Unit: "pcs",
	}

	mockProductRepo.On("ExistsBySKU", ctx, req.SKU).Return(false, nil)
	mockProductRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
	mockPublisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == catalog.EventTypeProductCreated
	})).Return(nil)

	result, err := service.Create(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	mockPublisher.AssertExpectations(t)
}

// Tests for ProductService.GetByID
func TestProductService_GetByID_Success(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)

	result, err := service.GetByID(ctx, product.ID)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, product.ID, result.ID)
	assert.Equal(t, "TEST-001", result.SKU)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	productID := newTestProductID()

	mockProductRepo.On("FindByID", ctx, productID).Return(nil, shared.ErrNotFound)

	result, err := service.GetByID(ctx, productID)

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Nil(t, result)
	mockProductRepo.AssertExpectations(t)
}

// Tests for ProductService.Lookup
func TestProductService_Lookup_ByBarcode(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)
	_ = product.SetBarcode("4006381333931")

	mockProductRepo.On("FindByBarcode", ctx, "4006381333931").Return(product, nil)

	result, err := service.Lookup(ctx, "4006381333931")

	assert.NoError(t, err)
	assert.Equal(t, product.ID, result.ID)
	mockProductRepo.AssertNotCalled(t, "FindBySKU", mock.Anything, mock.Anything)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_Lookup_FallsBackToSKU(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)

	mockProductRepo.On("FindByBarcode", ctx, "TEST-001").Return(nil, shared.ErrNotFound)
	mockProductRepo.On("FindBySKU", ctx, "TEST-001").Return(product, nil)

	result, err := service.Lookup(ctx, "TEST-001")

	assert.NoError(t, err)
	assert.Equal(t, product.ID, result.ID)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_Lookup_NotFound(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	mockProductRepo.On("FindByBarcode", ctx, "UNKNOWN").Return(nil, shared.ErrNotFound)
	mockProductRepo.On("FindBySKU", ctx, "UNKNOWN").Return(nil, shared.ErrNotFound)

	result, err := service.Lookup(ctx, "UNKNOWN")

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Nil(t, result)
	mockProductRepo.AssertExpectations(t)
}

// Tests for ProductService.List
func TestProductService_List_AppliesDefaults(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	products := []catalog.Product{*createTestProduct(tenantID)}

	matchDefaults := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "sort_order" && f.OrderDir == "asc"
	})
	mockProductRepo.On("FindAll", ctx, matchDefaults).Return(products, nil)
	mockProductRepo.On("Count", ctx, matchDefaults).Return(int64(1), nil)

	result, total, err := service.List(ctx, ProductListFilter{})

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, int64(1), total)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_List_WithFilters(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	categoryID := newTestCategoryID()
	minPrice := 10.0
	hasBarcode := true

	match := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["status"] == "active" &&
			f.Filters["category_id"] == categoryID &&
			f.Filters["min_price"] == minPrice &&
			f.Filters["has_barcode"] == hasBarcode
	})
	mockProductRepo.On("FindAll", ctx, match).Return([]catalog.Product{}, nil)
	mockProductRepo.On("Count", ctx, match).Return(int64(0), nil)

	_, _, err := service.List(ctx, ProductListFilter{
		Status:     "active",
		CategoryID: &categoryID,
		MinPrice:   &minPrice,
		HasBarcode: &hasBarcode,
	})

	assert.NoError(t, err)
	mockProductRepo.AssertExpectations(t)
}

// Tests for ProductService.Update
func TestProductService_Update_Success(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)
	newName := "Renamed Product"
	newPrice := decimal.NewFromFloat(129.99)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)
	mockProductRepo.On("Save", ctx, product).Return(nil)

	result, err := service.Update(ctx, product.ID, UpdateProductRequest{
		Name:         &newName,
		SellingPrice: &newPrice,
	})

	assert.NoError(t, err)
	assert.Equal(t, "Renamed Product", result.Name)
	assert.True(t, result.SellingPrice.Equal(newPrice))
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_Update_NegativePrice(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)
	negative := decimal.NewFromFloat(-1)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)

	result, err := service.Update(ctx, product.ID, UpdateProductRequest{
		SellingPrice: &negative,
	})

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PRICE", domainErr.Code)
	mockProductRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// Tests for ProductService.UpdateSKU
func TestProductService_UpdateSKU_Duplicate(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)
	mockProductRepo.On("ExistsBySKU", ctx, "TAKEN-001").Return(true, nil)

	result, err := service.UpdateSKU(ctx, product.ID, UpdateProductSKURequest{SKU: "TAKEN-001"})

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	mockProductRepo.AssertExpectations(t)
}

// Tests for category assignment
func TestProductService_AssignCategory_Success(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)
	category := createTestCategory(tenantID)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)
	mockCategoryRepo.On("FindByID", ctx, category.ID).Return(category, nil)
	mockProductRepo.On("Save", ctx, product).Return(nil)

	result, err := service.AssignCategory(ctx, product.ID, category.ID)

	assert.NoError(t, err)
	assert.Equal(t, &category.ID, result.CategoryID)
	mockProductRepo.AssertExpectations(t)
	mockCategoryRepo.AssertExpectations(t)
}

func TestProductService_ClearCategory_Success(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)
	categoryID := newTestCategoryID()
	product.SetCategory(&categoryID)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)
	mockProductRepo.On("Save", ctx, product).Return(nil)

	result, err := service.ClearCategory(ctx, product.ID)

	assert.NoError(t, err)
	assert.Nil(t, result.CategoryID)
	mockProductRepo.AssertExpectations(t)
}

// Tests for status transitions
func TestProductService_Deactivate_Success(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)
	mockProductRepo.On("Save", ctx, product).Return(nil)

	result, err := service.Deactivate(ctx, product.ID)

	assert.NoError(t, err)
	assert.Equal(t, "inactive", result.Status)
	mockProductRepo.AssertExpectations(t)
}

func TestProductService_Activate_DiscontinuedRejected(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)
	_ = product.Discontinue()
	product.ClearDomainEvents()

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)

	result, err := service.Activate(ctx, product.ID)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CANNOT_ACTIVATE", domainErr.Code)
	mockProductRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// Tests for ProductService.Delete
func TestProductService_Delete_ActiveRejected(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)

	err := service.Delete(ctx, product.ID)

	assert.Error(t, err)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PRODUCT_ACTIVE", domainErr.Code)
	mockProductRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestProductService_Delete_Success(t *testing.T) {
	mockProductRepo := new(MockProductRepository)
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewProductService(mockProductRepo, mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	product := createTestProduct(tenantID)
	_ = product.Deactivate()
	product.ClearDomainEvents()

	mockProductRepo.On("FindByID", ctx, product.ID).Return(product, nil)
	mockProductRepo.On("Delete", ctx, product.ID).Return(nil)

	err := service.Delete(ctx, product.ID)

	assert.NoError(t, err)
	mockProductRepo.AssertExpectations(t)
}
