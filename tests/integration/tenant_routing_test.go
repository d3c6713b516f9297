package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	tenancyapp "github.com/retail/backend/internal/application/tenancy"
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/tenancy"
	"github.com/retail/backend/internal/infrastructure/logger"
	"github.com/retail/backend/internal/infrastructure/persistence"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
	"github.com/retail/backend/migrations"
)

// routingStack wires the tenant routing components against one container,
// the way the binaries wire them against the shared database.
type routingStack struct {
	db          *TestDB
	tenantRepo  tenancy.TenantRepository
	directory   *tenantdb.Directory
	connCache   *tenantdb.ConnCache
	router      *tenantdb.Router
	provisioner *tenantdb.Provisioner
	mover       *tenantdb.Mover
	service     *tenancyapp.TenantService
}

func newRoutingStack(t *testing.T) *routingStack {
	t.Helper()

	db := NewTestDB(t)
	log := zap.NewNop()

	tenantRepo := persistence.NewGormTenantRepository(db.DB)

	dial := func(dbName string) (*gorm.DB, error) {
		return db.OpenDatabase(dbName)
	}
	connCache := tenantdb.NewConnCache(dial)
	t.Cleanup(func() {
		_ = connCache.CloseAll()
	})

	directory := tenantdb.NewDirectory(tenantRepo, tenantdb.NewMemoryRecordCache(), time.Minute)
	sharedDB := tenantdb.NewSharedDB(db.DB)
	router := tenantdb.NewRouter(directory, sharedDB, connCache)

	provisioner := tenantdb.NewProvisioner(
		db.SqlDB,
		db.DSNForDatabase,
		migrations.FS,
		migrations.TenantDir,
	)
	mover := tenantdb.NewMover(
		tenantRepo,
		db.DB,
		provisioner,
		dial,
		directory,
		persistence.MovePlan(),
		tenantdb.WithMoveBatchSize(100),
		tenantdb.WithSettleDelay(10*time.Millisecond),
		tenantdb.WithMoverLogger(log),
	)

	return &routingStack{
		db:          db,
		tenantRepo:  tenantRepo,
		directory:   directory,
		connCache:   connCache,
		router:      router,
		provisioner: provisioner,
		mover:       mover,
		service:     tenancyapp.NewTenantService(tenantRepo, mover, log),
	}
}

func (s *routingStack) createTenant(t *testing.T, code, subdomain string) *tenancy.Tenant {
	t.Helper()

	tenant, err := tenancy.NewTenant(code, code+" Stores", subdomain)
	require.NoError(t, err)
	require.NoError(t, s.tenantRepo.Save(context.Background(), tenant))
	return tenant
}

func tenantContext(t *testing.T, tenant *tenancy.Tenant) context.Context {
	t.Helper()

	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenant.ID.String())
	return ctx
}

func seedProduct(t *testing.T, s *routingStack, tenant *tenancy.Tenant, sku string) *catalog.Product {
	t.Helper()

	product, err := catalog.NewProduct(tenant.ID, sku, "Product "+sku, "pcs")
	require.NoError(t, err)

	repo := persistence.NewGormProductRepository(s.router)
	require.NoError(t, repo.Save(tenantContext(t, tenant), product))
	return product
}

func TestSharedPoolIsolation(t *testing.T) {
	s := newRoutingStack(t)

	acme := s.createTenant(t, "ACME", "acme")
	zen := s.createTenant(t, "ZEN", "zen")

	seedProduct(t, s, acme, "ACME-001")
	seedProduct(t, s, acme, "ACME-002")
	seedProduct(t, s, zen, "ZEN-001")

	repo := persistence.NewGormProductRepository(s.router)

	acmeProducts, err := repo.FindAll(tenantContext(t, acme), shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, acmeProducts, 2)

	zenProducts, err := repo.FindAll(tenantContext(t, zen), shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, zenProducts, 1)
	assert.Equal(t, "ZEN-001", zenProducts[0].SKU)

	// A tenant cannot reach another tenant's rows even by ID.
	_, err = repo.FindByID(tenantContext(t, zen), acmeProducts[0].ID)
	assert.Error(t, err)
}

func TestUpgradeMovesTenantToDedicatedDatabase(t *testing.T) {
	s := newRoutingStack(t)
	ctx := context.Background()

	acme := s.createTenant(t, "ACME", "acme")
	bystander := s.createTenant(t, "ZEN", "zen")
	seedProduct(t, s, acme, "ACME-001")
	seedProduct(t, s, acme, "ACME-002")
	seedProduct(t, s, bystander, "ZEN-001")

	upgraded, err := s.service.Upgrade(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, string(tenancy.TenantPlanEnterprise), upgraded.Plan)
	assert.Equal(t, string(tenancy.PlacementDedicated), upgraded.Placement)
	assert.Equal(t, "tenant_acme", upgraded.DatabaseName)
	require.NotNil(t, upgraded.ProvisionedAt)

	// The rows exist in the dedicated database.
	dedicated, err := s.db.OpenDatabase(upgraded.DatabaseName)
	require.NoError(t, err)
	var count int64
	require.NoError(t, dedicated.Table("products").Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// The router follows the directory to the dedicated database: a
	// product created after the move must not land in the shared pool.
	repo := persistence.NewGormProductRepository(s.router)
	seedProduct(t, s, acme, "ACME-003")

	require.NoError(t, dedicated.Table("products").Count(&count).Error)
	assert.Equal(t, int64(3), count)

	products, err := repo.FindAll(tenantContext(t, acme), shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, products, 3)

	// The bystander stays in the shared pool, untouched.
	zenProducts, err := repo.FindAll(tenantContext(t, bystander), shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, zenProducts, 1)

	// The janitor clears the orphaned shared copy; the bystander's rows
	// survive the sweep.
	janitor := tenantdb.NewJanitor(s.tenantRepo, s.db.DB, persistence.MovePlan(),
		tenantdb.WithJanitorBatchSize(100))
	swept, err := janitor.Sweep(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, swept, int64(2))

	var sharedCount int64
	require.NoError(t, s.db.DB.Table("products").Where("tenant_id = ?", acme.ID).Count(&sharedCount).Error)
	assert.Equal(t, int64(0), sharedCount)
	require.NoError(t, s.db.DB.Table("products").Where("tenant_id = ?", bystander.ID).Count(&sharedCount).Error)
	assert.Equal(t, int64(1), sharedCount)
}

func TestUpgradeIsIdempotent(t *testing.T) {
	s := newRoutingStack(t)
	ctx := context.Background()

	acme := s.createTenant(t, "ACME", "acme")
	seedProduct(t, s, acme, "ACME-001")

	_, err := s.service.Upgrade(ctx, acme.ID)
	require.NoError(t, err)

	// Provision on an already-dedicated tenant is a no-op.
	again, err := s.service.Provision(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, string(tenancy.PlacementDedicated), again.Placement)

	dedicated, err := s.db.OpenDatabase(again.DatabaseName)
	require.NoError(t, err)
	var count int64
	require.NoError(t, dedicated.Table("products").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDowngradeIsRejected(t *testing.T) {
	s := newRoutingStack(t)
	ctx := context.Background()

	acme := s.createTenant(t, "ACME", "acme")
	_, err := s.service.Upgrade(ctx, acme.ID)
	require.NoError(t, err)

	err = s.service.Downgrade(ctx, acme.ID)
	require.Error(t, err)

	// The tenant is untouched by the refused downgrade.
	refreshed, err := s.service.Get(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, string(tenancy.TenantPlanEnterprise), refreshed.Plan)
	assert.Equal(t, string(tenancy.PlacementDedicated), refreshed.Placement)
}

func TestSharedPoolHandleFiltersByTenant(t *testing.T) {
	s := newRoutingStack(t)

	acme := s.createTenant(t, "ACME", "acme")
	zen := s.createTenant(t, "ZEN", "zen")
	seedProduct(t, s, acme, "ACME-001")
	seedProduct(t, s, zen, "ZEN-001")

	pdb := &persistence.Database{DB: s.db.DB}
	handle, err := pdb.SharedPoolHandle()
	require.NoError(t, err)

	// A raw query on the handle, bypassing the scoped wrapper, still gets
	// the tenant condition from the context.
	var count int64
	require.NoError(t, handle.WithContext(tenantContext(t, acme)).
		Table("products").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Without a tenant in the context the handle fails closed.
	err = handle.WithContext(context.Background()).
		Table("products").Count(&count).Error
	require.ErrorIs(t, err, tenantdb.ErrTenantIDRequired)
}

func TestSuspendedTenantIsRefusedByRouter(t *testing.T) {
	s := newRoutingStack(t)
	ctx := context.Background()

	acme := s.createTenant(t, "ACME", "acme")
	seedProduct(t, s, acme, "ACME-001")

	_, err := s.service.Suspend(ctx, acme.ID, tenancyapp.SuspendTenantRequest{Reason: "unpaid"})
	require.NoError(t, err)
	s.directory.Invalidate(ctx, acme.ID, acme.Subdomain)

	repo := persistence.NewGormProductRepository(s.router)
	_, err = repo.FindAll(tenantContext(t, acme), shared.DefaultFilter())
	require.ErrorIs(t, err, tenantdb.ErrTenantSuspended)
}
