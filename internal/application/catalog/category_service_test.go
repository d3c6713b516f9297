package catalog

import (
	"testing"

	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCategoryService_Create_Success(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	sortOrder := 3
	req := CreateCategoryRequest{
		Name:        "Beverages",
		Description: "Drinks and juices",
		SortOrder:   &sortOrder,
	}

	mockCategoryRepo.On("ExistsByName", ctx, req.Name).Return(false, nil)
	mockCategoryRepo.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).Return(nil)

	result, err := service.Create(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "Beverages", result.Name)
	assert.Equal(t, "Drinks and juices", result.Description)
	assert.Equal(t, 3, result.SortOrder)
	assert.Equal(t, "active", result.Status)
	assert.Equal(t, tenantID, result.TenantID)
	mockCategoryRepo.AssertExpectations(t)
}

func TestCategoryService_Create_DuplicateName(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	req := CreateCategoryRequest{Name: "Beverages"}

	mockCategoryRepo.On("ExistsByName", ctx, req.Name).Return(true, nil)

	result, err := service.Create(ctx, req)

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	mockCategoryRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCategoryService_List_AppliesDefaults(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	categories := []catalog.Category{*createTestCategory(tenantID)}

	matchDefaults := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "sort_order" && f.OrderDir == "asc"
	})
	mockCategoryRepo.On("FindAll", ctx, matchDefaults).Return(categories, nil)
	mockCategoryRepo.On("Count", ctx, matchDefaults).Return(int64(1), nil)

	result, total, err := service.List(ctx, CategoryListFilter{})

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, int64(1), total)
	mockCategoryRepo.AssertExpectations(t)
}

func TestCategoryService_ListActive(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	categories := []catalog.Category{*createTestCategory(tenantID)}

	mockCategoryRepo.On("FindActive", ctx).Return(categories, nil)

	result, err := service.ListActive(ctx)

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	mockCategoryRepo.AssertExpectations(t)
}

func TestCategoryService_Update_RenameChecksUniqueness(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	category := createTestCategory(tenantID)
	newName := "Snacks"

	mockCategoryRepo.On("FindByID", ctx, category.ID).Return(category, nil)
	mockCategoryRepo.On("ExistsByName", ctx, newName).Return(false, nil)
	mockCategoryRepo.On("Save", ctx, category).Return(nil)

	result, err := service.Update(ctx, category.ID, UpdateCategoryRequest{Name: &newName})

	assert.NoError(t, err)
	assert.Equal(t, "Snacks", result.Name)
	mockCategoryRepo.AssertExpectations(t)
}

func TestCategoryService_Update_RenameToTakenName(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	category := createTestCategory(tenantID)
	newName := "Snacks"

	mockCategoryRepo.On("FindByID", ctx, category.ID).Return(category, nil)
	mockCategoryRepo.On("ExistsByName", ctx, newName).Return(true, nil)

	result, err := service.Update(ctx, category.ID, UpdateCategoryRequest{Name: &newName})

	assert.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	mockCategoryRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCategoryService_Deactivate_Success(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	category := createTestCategory(tenantID)

	mockCategoryRepo.On("FindByID", ctx, category.ID).Return(category, nil)
	mockCategoryRepo.On("Save", ctx, category).Return(nil)

	result, err := service.Deactivate(ctx, category.ID)

	assert.NoError(t, err)
	assert.Equal(t, "inactive", result.Status)
	mockCategoryRepo.AssertExpectations(t)
}

func TestCategoryService_Delete_WithProductsRejected(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	service := NewCategoryService(mockCategoryRepo)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	category := createTestCategory(tenantID)

	mockCategoryRepo.On("FindByID", ctx, category.ID).Return(category, nil)
	mockCategoryRepo.On("HasProducts", ctx, category.ID).Return(true, nil)

	err := service.Delete(ctx, category.ID)

	assert.Error(t, err)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CATEGORY_IN_USE", domainErr.Code)
	mockCategoryRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCategoryService_Delete_Success(t *testing.T) {
	mockCategoryRepo := new(MockCategoryRepository)
	mockPublisher := new(MockEventPublisher)
	service := NewCategoryService(mockCategoryRepo)
	service.SetEventPublisher(mockPublisher)

	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	category := createTestCategory(tenantID)

	mockCategoryRepo.On("FindByID", ctx, category.ID).Return(category, nil)
	mockCategoryRepo.On("HasProducts", ctx, category.ID).Return(false, nil)
	mockCategoryRepo.On("Delete", ctx, category.ID).Return(nil)
	mockPublisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == catalog.EventTypeCategoryDeleted
	})).Return(nil)

	err := service.Delete(ctx, category.ID)

	assert.NoError(t, err)
	mockCategoryRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}
