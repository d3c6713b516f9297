package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/auth"
)

type userFixture struct {
	service   *UserService
	userRepo  *MockUserRepository
	blacklist *auth.InMemoryTokenBlacklist
}

func newUserService() userFixture {
	userRepo := new(MockUserRepository)
	blacklist := auth.NewInMemoryTokenBlacklist()
	service := NewUserService(userRepo, newTestJWTService(), blacklist, zap.NewNop())
	return userFixture{service: service, userRepo: userRepo, blacklist: blacklist}
}

func TestUserService_Register(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	t.Run("owner registers a cashier", func(t *testing.T) {
		f := newUserService()
		owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)

		f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
		f.userRepo.On("ExistsByEmail", ctx, "Chidi@Example.com").Return(false, nil)
		f.userRepo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		result, err := f.service.Register(ctx, owner.ID, RegisterUserRequest{
			Email:    "Chidi@Example.com",
			Name:     "Chidi Eze",
			Phone:    "+234 802 555 0100",
			Password: "Sw0rdfish9",
			Role:     "cashier",
		})

		require.NoError(t, err)
		assert.Equal(t, "chidi@example.com", result.Email)
		assert.Equal(t, "cashier", result.Role)
		assert.Equal(t, "active", result.Status)
		assert.Equal(t, tenantID, result.TenantID)
		assert.Equal(t, "+234 802 555 0100", result.Phone)
	})

	t.Run("cashier cannot register staff", func(t *testing.T) {
		f := newUserService()
		cashier := createTestUser(t, tenantID, "cashier@example.com", identity.RoleCashier)

		f.userRepo.On("FindByID", ctx, cashier.ID).Return(cashier, nil)

		_, err := f.service.Register(ctx, cashier.ID, RegisterUserRequest{
			Email:    "new@example.com",
			Name:     "New Staff",
			Password: "Sw0rdfish9",
			Role:     "staff",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "FORBIDDEN", domainErr.Code)
		f.userRepo.AssertNotCalled(t, "Save", ctx, mock.Anything)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		f := newUserService()
		owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)

		f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
		f.userRepo.On("ExistsByEmail", ctx, "chidi@example.com").Return(true, nil)

		_, err := f.service.Register(ctx, owner.ID, RegisterUserRequest{
			Email:    "chidi@example.com",
			Name:     "Chidi Eze",
			Password: "Sw0rdfish9",
			Role:     "cashier",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		f := newUserService()
		owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)

		f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
		f.userRepo.On("ExistsByEmail", ctx, "chidi@example.com").Return(false, nil)

		_, err := f.service.Register(ctx, owner.ID, RegisterUserRequest{
			Email:    "chidi@example.com",
			Name:     "Chidi Eze",
			Password: "Sw0rdfish9",
			Role:     "superadmin",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ROLE", domainErr.Code)
	})
}

func TestUserService_ChangeRole(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	t.Run("promotes a cashier to manager", func(t *testing.T) {
		f := newUserService()
		owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)
		cashier := createTestUser(t, tenantID, "cashier@example.com", identity.RoleCashier)

		f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
		f.userRepo.On("FindByID", ctx, cashier.ID).Return(cashier, nil)
		f.userRepo.On("SaveWithLock", ctx, cashier).Return(nil)

		result, err := f.service.ChangeRole(ctx, owner.ID, cashier.ID, ChangeRoleRequest{Role: "manager"})

		require.NoError(t, err)
		assert.Equal(t, "manager", result.Role)
	})

	t.Run("demoting the last owner is refused", func(t *testing.T) {
		f := newUserService()
		owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)

		f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
		f.userRepo.On("FindByRole", ctx, identity.RoleOwner, mock.AnythingOfType("shared.Filter")).
			Return([]identity.User{*owner}, nil)

		_, err := f.service.ChangeRole(ctx, owner.ID, owner.ID, ChangeRoleRequest{Role: "manager"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "LAST_OWNER", domainErr.Code)
	})

	t.Run("demoting one of two owners is allowed", func(t *testing.T) {
		f := newUserService()
		owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)
		second := createTestUser(t, tenantID, "second@example.com", identity.RoleOwner)

		f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
		f.userRepo.On("FindByID", ctx, second.ID).Return(second, nil)
		f.userRepo.On("FindByRole", ctx, identity.RoleOwner, mock.AnythingOfType("shared.Filter")).
			Return([]identity.User{*owner, *second}, nil)
		f.userRepo.On("SaveWithLock", ctx, second).Return(nil)

		result, err := f.service.ChangeRole(ctx, owner.ID, second.ID, ChangeRoleRequest{Role: "manager"})

		require.NoError(t, err)
		assert.Equal(t, "manager", result.Role)
	})
}

func TestUserService_Deactivate(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	t.Run("deactivates staff and revokes their tokens", func(t *testing.T) {
		f := newUserService()
		manager := createTestUser(t, tenantID, "manager@example.com", identity.RoleManager)
		staff := createTestUser(t, tenantID, "staff@example.com", identity.RoleStaff)
		issuedAt := time.Now().Add(-time.Minute)

		f.userRepo.On("FindByID", ctx, manager.ID).Return(manager, nil)
		f.userRepo.On("FindByID", ctx, staff.ID).Return(staff, nil)
		f.userRepo.On("SaveWithLock", ctx, staff).Return(nil)

		result, err := f.service.Deactivate(ctx, manager.ID, staff.ID)

		require.NoError(t, err)
		assert.Equal(t, "deactivated", result.Status)

		invalidated, err := f.blacklist.IsUserTokenInvalidated(ctx, staff.ID.String(), issuedAt)
		require.NoError(t, err)
		assert.True(t, invalidated)
	})

	t.Run("self-deactivation is refused", func(t *testing.T) {
		f := newUserService()
		manager := createTestUser(t, tenantID, "manager@example.com", identity.RoleManager)

		f.userRepo.On("FindByID", ctx, manager.ID).Return(manager, nil)

		_, err := f.service.Deactivate(ctx, manager.ID, manager.ID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CANNOT_DEACTIVATE_SELF", domainErr.Code)
	})

	t.Run("deactivating the last owner is refused", func(t *testing.T) {
		f := newUserService()
		owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)
		manager := createTestUser(t, tenantID, "manager@example.com", identity.RoleManager)

		f.userRepo.On("FindByID", ctx, manager.ID).Return(manager, nil)
		f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
		f.userRepo.On("FindByRole", ctx, identity.RoleOwner, mock.AnythingOfType("shared.Filter")).
			Return([]identity.User{*owner}, nil)

		_, err := f.service.Deactivate(ctx, manager.ID, owner.ID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "LAST_OWNER", domainErr.Code)
	})
}

func TestUserService_Reactivate(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	f := newUserService()
	owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)
	staff := createTestUser(t, tenantID, "staff@example.com", identity.RoleStaff)
	require.NoError(t, staff.Deactivate())
	staff.ClearDomainEvents()

	f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
	f.userRepo.On("FindByID", ctx, staff.ID).Return(staff, nil)
	f.userRepo.On("SaveWithLock", ctx, staff).Return(nil)

	result, err := f.service.Reactivate(ctx, owner.ID, staff.ID)

	require.NoError(t, err)
	assert.Equal(t, "active", result.Status)
}

func TestUserService_ResetPassword(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	f := newUserService()
	owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)
	staff := createTestUser(t, tenantID, "staff@example.com", identity.RoleStaff)
	issuedAt := time.Now().Add(-time.Minute)

	f.userRepo.On("FindByID", ctx, owner.ID).Return(owner, nil)
	f.userRepo.On("FindByID", ctx, staff.ID).Return(staff, nil)
	f.userRepo.On("SaveWithLock", ctx, staff).Return(nil)

	err := f.service.ResetPassword(ctx, owner.ID, staff.ID, ResetPasswordRequest{NewPassword: "N3wSecret42"})

	require.NoError(t, err)
	assert.True(t, staff.VerifyPassword("N3wSecret42"))

	invalidated, err := f.blacklist.IsUserTokenInvalidated(ctx, staff.ID.String(), issuedAt)
	require.NoError(t, err)
	assert.True(t, invalidated)
}

func TestUserService_List(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	f := newUserService()
	owner := createTestUser(t, tenantID, "owner@example.com", identity.RoleOwner)
	cashier := createTestUser(t, tenantID, "cashier@example.com", identity.RoleCashier)

	f.userRepo.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).
		Return([]identity.User{*owner, *cashier}, nil)
	f.userRepo.On("Count", ctx, mock.AnythingOfType("shared.Filter")).Return(int64(2), nil)

	users, total, err := f.service.List(ctx, UserListFilter{})

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 2)
	assert.Equal(t, "owner@example.com", users[0].Email)
}
