package tenantdb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retail/backend/internal/domain/tenancy"
	"github.com/retail/backend/internal/infrastructure/logger"
)

// routedItem is a minimal tenant-scoped row for routing tests.
type routedItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string
}

func (routedItem) TableName() string {
	return "routed_items"
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

type routerFixture struct {
	router    *Router
	repo      *fakeTenantRepo
	shared    *gorm.DB
	pools     *ConnCache
	dedicated map[string]*gorm.DB
}

// newRouterFixture builds a router over a sqlite shared pool with the
// callbacks registered, the way production wiring does it. Dedicated pools
// are dialed into per-database sqlite instances seeded with one marker row.
func newRouterFixture(t *testing.T, tenants ...*tenancy.Tenant) *routerFixture {
	t.Helper()

	sharedPool := openSQLite(t)
	require.NoError(t, sharedPool.AutoMigrate(&routedItem{}))
	EnableAutoTenantFilter(sharedPool, true)

	f := &routerFixture{
		repo:      newFakeTenantRepo(tenants...),
		shared:    sharedPool,
		dedicated: make(map[string]*gorm.DB),
	}

	dial := func(dbName string) (*gorm.DB, error) {
		db := openSQLite(t)
		if err := db.AutoMigrate(&routedItem{}); err != nil {
			return nil, err
		}
		f.dedicated[dbName] = db
		return db, nil
	}
	f.pools = NewConnCache(dial)
	t.Cleanup(func() {
		_ = f.pools.CloseAll()
	})

	directory := NewDirectory(f.repo, NewMemoryRecordCache(), time.Minute)
	f.router = NewRouter(directory, NewSharedDB(sharedPool), f.pools)
	return f
}

func (f *routerFixture) seedShared(t *testing.T, tenantID uuid.UUID, names ...string) {
	t.Helper()
	for _, name := range names {
		item := routedItem{ID: uuid.New(), TenantID: tenantID, Name: name}
		require.NoError(t, f.shared.Unscoped().Create(&item).Error)
	}
}

func TestRouter_Resolve_Shared(t *testing.T) {
	ctx := context.Background()

	acme := testTenant(t, "ACME", "acme")
	other := testTenant(t, "OTHER", "other")
	f := newRouterFixture(t, acme, other)

	f.seedShared(t, acme.ID, "till", "scanner")
	f.seedShared(t, other.ID, "shelf")

	handle, err := f.router.Resolve(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, tenancy.PlacementShared, handle.Placement())
	assert.False(t, handle.Dedicated())
	assert.Equal(t, acme.ID, handle.TenantID())

	var items []routedItem
	require.NoError(t, handle.DB().Find(&items).Error)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, acme.ID, item.TenantID)
	}
}

func TestRouter_Resolve_Dedicated(t *testing.T) {
	ctx := context.Background()

	mega := testTenant(t, "MEGA", "mega")
	require.NoError(t, mega.Upgrade())
	require.NoError(t, mega.BeginMigration())
	require.NoError(t, mega.CompleteMigration("tenant_mega"))
	mega.ClearDomainEvents()

	f := newRouterFixture(t, mega)

	handle, err := f.router.Resolve(ctx, mega.ID)
	require.NoError(t, err)
	assert.True(t, handle.Dedicated())
	assert.Equal(t, "tenant_mega", handle.Record().DatabaseName)

	// Writes through the handle land in the dedicated database, and the
	// handle is not row-filtered.
	item := routedItem{ID: uuid.New(), TenantID: mega.ID, Name: "till"}
	require.NoError(t, handle.DB().Create(&item).Error)

	var count int64
	require.NoError(t, f.dedicated["tenant_mega"].Model(&routedItem{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, f.shared.Unscoped().Model(&routedItem{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// The pool is cached for the next request.
	again, err := f.router.Resolve(ctx, mega.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.pools.Len())
	assert.True(t, again.Dedicated())
}

func TestRouter_Resolve_Refusals(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown tenant", func(t *testing.T) {
		f := newRouterFixture(t)

		_, err := f.router.Resolve(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})

	t.Run("suspended tenant", func(t *testing.T) {
		acme := testTenant(t, "ACME", "acme")
		require.NoError(t, acme.Suspend("unpaid invoices"))
		acme.ClearDomainEvents()
		f := newRouterFixture(t, acme)

		_, err := f.router.Resolve(ctx, acme.ID)
		assert.ErrorIs(t, err, ErrTenantSuspended)
	})

	t.Run("archived tenant", func(t *testing.T) {
		acme := testTenant(t, "ACME", "acme")
		require.NoError(t, acme.Archive())
		acme.ClearDomainEvents()
		f := newRouterFixture(t, acme)

		_, err := f.router.Resolve(ctx, acme.ID)
		assert.ErrorIs(t, err, ErrTenantArchived)
	})

	t.Run("migrating tenant", func(t *testing.T) {
		mega := testTenant(t, "MEGA", "mega")
		require.NoError(t, mega.Upgrade())
		require.NoError(t, mega.BeginMigration())
		mega.ClearDomainEvents()
		f := newRouterFixture(t, mega)

		_, err := f.router.Resolve(ctx, mega.ID)
		assert.ErrorIs(t, err, ErrTenantMigrating)
	})

	t.Run("dedicated without a database name", func(t *testing.T) {
		broken := testTenant(t, "BROKEN", "broken")
		broken.Plan = tenancy.TenantPlanEnterprise
		broken.Placement = tenancy.PlacementDedicated
		broken.DatabaseName = ""
		f := newRouterFixture(t, broken)

		_, err := f.router.Resolve(ctx, broken.ID)
		assert.ErrorIs(t, err, ErrDatabaseNotAssigned)
	})
}

func TestRouter_ResolveSubdomain(t *testing.T) {
	ctx := context.Background()

	acme := testTenant(t, "ACME", "acme")
	f := newRouterFixture(t, acme)

	handle, err := f.router.ResolveSubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, handle.TenantID())

	_, err = f.router.ResolveSubdomain(ctx, "nope")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestRouter_DBFor(t *testing.T) {
	acme := testTenant(t, "ACME", "acme")
	other := testTenant(t, "OTHER", "other")
	f := newRouterFixture(t, acme, other)

	f.seedShared(t, acme.ID, "till")
	f.seedShared(t, other.ID, "shelf")

	t.Run("routes with the tenant from context", func(t *testing.T) {
		ctx := context.Background()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithTenantID(ctx, log, acme.ID.String())

		db, err := f.router.DBFor(ctx)
		require.NoError(t, err)

		var items []routedItem
		require.NoError(t, db.Find(&items).Error)
		require.Len(t, items, 1)
		assert.Equal(t, "till", items[0].Name)
	})

	t.Run("requires a tenant in context", func(t *testing.T) {
		_, err := f.router.DBFor(context.Background())
		assert.ErrorIs(t, err, ErrTenantIDRequired)
	})

	t.Run("rejects malformed tenant IDs", func(t *testing.T) {
		ctx := context.Background()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithTenantID(ctx, log, "not-a-uuid")

		_, err := f.router.DBFor(ctx)
		assert.ErrorIs(t, err, ErrInvalidTenantID)
	})
}
