package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/tenancy"
	"github.com/retail/backend/internal/infrastructure/auth"
	"github.com/retail/backend/internal/infrastructure/config"
	"github.com/retail/backend/internal/infrastructure/logger"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByRole(ctx context.Context, role identity.Role, filter shared.Filter) ([]identity.User, error) {
	args := m.Called(ctx, role, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SaveWithLock(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockTenantRepository is a mock implementation of tenancy.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByCode(ctx context.Context, code string) (*tenancy.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*tenancy.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]tenancy.Tenant, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tenancy.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStatus(ctx context.Context, status tenancy.TenantStatus, filter shared.Filter) ([]tenancy.Tenant, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tenancy.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByPlacement(ctx context.Context, placement tenancy.Placement) ([]tenancy.Tenant, error) {
	args := m.Called(ctx, placement)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tenancy.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindLicenseExpiring(ctx context.Context, withinDays int) ([]tenancy.Tenant, error) {
	args := m.Called(ctx, withinDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tenancy.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *tenancy.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) CountByStatus(ctx context.Context, status tenancy.TenantStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) CountByPlan(ctx context.Context, plan tenancy.TenantPlan) (int64, error) {
	args := m.Called(ctx, plan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) ExistsBySubdomain(ctx context.Context, subdomain string) (bool, error) {
	args := m.Called(ctx, subdomain)
	return args.Bool(0), args.Error(1)
}

func newTestTenantID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newTestContext(tenantID uuid.UUID) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
	return ctx
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-0123456789abcdef",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "retail-backend",
	})
}

func createTestUser(t *testing.T, tenantID uuid.UUID, email string, role identity.Role) *identity.User {
	t.Helper()
	user, err := identity.NewUser(tenantID, email, "Ada Obi", "Sw0rdfish9", role)
	require.NoError(t, err)
	user.ClearDomainEvents()
	return user
}

func createTestTenant(t *testing.T) *tenancy.Tenant {
	t.Helper()
	tenant, err := tenancy.NewTenant("ACME-01", "Acme Retail Ltd", "acme")
	require.NoError(t, err)
	tenant.ClearDomainEvents()
	return tenant
}

type authFixture struct {
	service    *AuthService
	userRepo   *MockUserRepository
	tenantRepo *MockTenantRepository
	blacklist  *auth.InMemoryTokenBlacklist
	jwt        *auth.JWTService
}

func newAuthService(cfg AuthServiceConfig) authFixture {
	userRepo := new(MockUserRepository)
	tenantRepo := new(MockTenantRepository)
	blacklist := auth.NewInMemoryTokenBlacklist()
	jwtService := newTestJWTService()
	service := NewAuthService(userRepo, tenantRepo, jwtService, blacklist, cfg, zap.NewNop())
	return authFixture{
		service:    service,
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		blacklist:  blacklist,
		jwt:        jwtService,
	}
}

func TestAuthService_Login(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	t.Run("successful login issues a routed token pair", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		tenant := createTestTenant(t)

		f.userRepo.On("FindByEmail", ctx, "ada@example.com").Return(user, nil)
		f.tenantRepo.On("FindByID", ctx, tenantID).Return(tenant, nil)
		f.userRepo.On("SaveWithLock", ctx, user).Return(nil)

		result, err := f.service.Login(ctx, LoginRequest{Email: "Ada@Example.com", Password: "Sw0rdfish9"})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, "ada@example.com", result.User.Email)
		assert.Equal(t, "cashier", result.User.Role)
		assert.NotNil(t, user.LastLoginAt)

		claims, err := f.jwt.ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, tenantID.String(), claims.TenantID)
		assert.Equal(t, user.ID.String(), claims.UserID)
		assert.Equal(t, "cashier", claims.Role)
		assert.Equal(t, "free", claims.Plan)
	})

	t.Run("unknown email is invalid credentials", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		f.userRepo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, shared.ErrNotFound)

		_, err := f.service.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "Sw0rdfish9"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	})

	t.Run("wrong password records the failure", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		tenant := createTestTenant(t)

		f.userRepo.On("FindByEmail", ctx, "ada@example.com").Return(user, nil)
		f.tenantRepo.On("FindByID", ctx, tenantID).Return(tenant, nil)
		f.userRepo.On("SaveWithLock", ctx, user).Return(nil)

		_, err := f.service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-pass1"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
		assert.Equal(t, 1, user.FailedAttempts)
		f.userRepo.AssertCalled(t, "SaveWithLock", ctx, user)
	})

	t.Run("account locks after repeated failures", func(t *testing.T) {
		f := newAuthService(AuthServiceConfig{MaxLoginAttempts: 3, LockDuration: 15 * time.Minute})
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		tenant := createTestTenant(t)

		f.userRepo.On("FindByEmail", ctx, "ada@example.com").Return(user, nil)
		f.tenantRepo.On("FindByID", ctx, tenantID).Return(tenant, nil)
		f.userRepo.On("SaveWithLock", ctx, user).Return(nil)

		var domainErr *shared.DomainError
		for i := 0; i < 2; i++ {
			_, err := f.service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-pass1"})
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
		}

		_, err := f.service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "wrong-pass1"})
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
		assert.True(t, user.IsLocked())

		// The right password no longer helps while the lock holds.
		_, err = f.service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "Sw0rdfish9"})
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
	})

	t.Run("deactivated account is refused", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		require.NoError(t, user.Deactivate())
		user.ClearDomainEvents()
		tenant := createTestTenant(t)

		f.userRepo.On("FindByEmail", ctx, "ada@example.com").Return(user, nil)
		f.tenantRepo.On("FindByID", ctx, tenantID).Return(tenant, nil)

		_, err := f.service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "Sw0rdfish9"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", domainErr.Code)
	})

	t.Run("suspended tenant is refused before credentials", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleOwner)
		tenant := createTestTenant(t)
		require.NoError(t, tenant.Suspend("nonpayment"))
		tenant.ClearDomainEvents()

		f.userRepo.On("FindByEmail", ctx, "ada@example.com").Return(user, nil)
		f.tenantRepo.On("FindByID", ctx, tenantID).Return(tenant, nil)

		_, err := f.service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "Sw0rdfish9"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TENANT_INACTIVE", domainErr.Code)
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	login := func(t *testing.T, f authFixture, user *identity.User, tenant *tenancy.Tenant) *LoginResult {
		t.Helper()
		f.userRepo.On("FindByEmail", ctx, user.Email).Return(user, nil)
		f.tenantRepo.On("FindByID", ctx, tenantID).Return(tenant, nil)
		f.userRepo.On("SaveWithLock", ctx, user).Return(nil)
		result, err := f.service.Login(ctx, LoginRequest{Email: user.Email, Password: "Sw0rdfish9"})
		require.NoError(t, err)
		return result
	}

	t.Run("rotates the pair and retires the spent token", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		tenant := createTestTenant(t)
		loginResult := login(t, f, user, tenant)

		f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		refreshed, err := f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: loginResult.RefreshToken})

		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)
		assert.NotEqual(t, loginResult.RefreshToken, refreshed.RefreshToken)

		// Replaying the spent refresh token must fail.
		_, err = f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: loginResult.RefreshToken})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_REVOKED", domainErr.Code)
	})

	t.Run("new access token reflects a role change", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		tenant := createTestTenant(t)
		loginResult := login(t, f, user, tenant)

		require.NoError(t, user.ChangeRole(identity.RoleManager))
		user.ClearDomainEvents()
		f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		refreshed, err := f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: loginResult.RefreshToken})

		require.NoError(t, err)
		claims, err := f.jwt.ValidateAccessToken(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "manager", claims.Role)
	})

	t.Run("deactivated user cannot refresh", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		tenant := createTestTenant(t)
		loginResult := login(t, f, user, tenant)

		require.NoError(t, user.Deactivate())
		user.ClearDomainEvents()
		f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		_, err := f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: loginResult.RefreshToken})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_INACTIVE", domainErr.Code)
	})

	t.Run("garbage token is invalid", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())

		_, err := f.service.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: "not-a-jwt"})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
	})
}

func TestAuthService_Logout(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	f := newAuthService(DefaultAuthServiceConfig())
	user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
	tenant := createTestTenant(t)

	f.userRepo.On("FindByEmail", ctx, "ada@example.com").Return(user, nil)
	f.tenantRepo.On("FindByID", ctx, tenantID).Return(tenant, nil)
	f.userRepo.On("SaveWithLock", ctx, user).Return(nil)

	result, err := f.service.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "Sw0rdfish9"})
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, LogoutRequest{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}))

	claims, err := f.jwt.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	revoked, err := f.blacklist.IsBlacklisted(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	refreshClaims, err := f.jwt.ValidateRefreshToken(result.RefreshToken)
	require.NoError(t, err)
	revoked, err = f.blacklist.IsBlacklisted(ctx, refreshClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_ChangePassword(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)

	t.Run("changes the password and invalidates existing tokens", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)
		issuedAt := time.Now().Add(-time.Minute)

		f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
		f.userRepo.On("SaveWithLock", ctx, user).Return(nil)

		err := f.service.ChangePassword(ctx, user.ID, ChangePasswordRequest{
			CurrentPassword: "Sw0rdfish9",
			NewPassword:     "N3wSecret42",
		})

		require.NoError(t, err)
		assert.True(t, user.VerifyPassword("N3wSecret42"))
		assert.False(t, user.VerifyPassword("Sw0rdfish9"))

		invalidated, err := f.blacklist.IsUserTokenInvalidated(ctx, user.ID.String(), issuedAt)
		require.NoError(t, err)
		assert.True(t, invalidated)
	})

	t.Run("wrong current password is rejected", func(t *testing.T) {
		f := newAuthService(DefaultAuthServiceConfig())
		user := createTestUser(t, tenantID, "ada@example.com", identity.RoleCashier)

		f.userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		err := f.service.ChangePassword(ctx, user.ID, ChangePasswordRequest{
			CurrentPassword: "wrong-pass1",
			NewPassword:     "N3wSecret42",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PASSWORD", domainErr.Code)
		assert.True(t, user.VerifyPassword("Sw0rdfish9"))
	})
}
