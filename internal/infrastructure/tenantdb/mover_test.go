package tenantdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/tenancy"
)

// moverCustomer and moverOrder form a two-table parent/child plan for move
// tests.
type moverCustomer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string
	CreatedAt time.Time
}

func (moverCustomer) TableName() string { return "mover_customers" }

type moverOrder struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Total      int64
}

func (moverOrder) TableName() string { return "mover_orders" }

func moverPlan() []TableCopy {
	return []TableCopy{
		{Table: "mover_customers", NewSlice: func() any { return &[]moverCustomer{} }},
		{Table: "mover_orders", NewSlice: func() any { return &[]moverOrder{} }},
	}
}

type fakeProvisioner struct {
	ensures   int
	ensureErr error
}

func (f *fakeProvisioner) DatabaseName(code string) string {
	return "tenant_" + strings.ToLower(code)
}

func (f *fakeProvisioner) Ensure(_ context.Context, _ string) error {
	f.ensures++
	return f.ensureErr
}

type moverFixture struct {
	mover     *Mover
	repo      *fakeTenantRepo
	directory *Directory
	source    *gorm.DB
	dest      *gorm.DB
	destDSN   string
	prov      *fakeProvisioner
	tenant    *tenancy.Tenant
}

// newMoverFixture seeds a sqlite shared pool with rows for the tenant under
// test plus a bystander tenant, and points the dial at a named shared-cache
// sqlite database standing in for the dedicated side.
func newMoverFixture(t *testing.T, migrateDest bool) *moverFixture {
	t.Helper()

	source := openSQLite(t)
	require.NoError(t, source.AutoMigrate(&moverCustomer{}, &moverOrder{}))

	tenant := testTenant(t, "ACME", "acme")
	require.NoError(t, tenant.Upgrade())
	tenant.ClearDomainEvents()

	bystander := testTenant(t, "OTHER", "other")

	seedCustomers := []moverCustomer{
		{ID: uuid.New(), TenantID: tenant.ID, Name: "Walk-in", CreatedAt: time.Now()},
		{ID: uuid.New(), TenantID: tenant.ID, Name: "Wholesale", CreatedAt: time.Now()},
		{ID: uuid.New(), TenantID: bystander.ID, Name: "Bystander", CreatedAt: time.Now()},
	}
	require.NoError(t, source.Create(&seedCustomers).Error)

	seedOrders := []moverOrder{
		{ID: uuid.New(), TenantID: tenant.ID, CustomerID: seedCustomers[0].ID, Total: 1200},
		{ID: uuid.New(), TenantID: tenant.ID, CustomerID: seedCustomers[0].ID, Total: 340},
		{ID: uuid.New(), TenantID: tenant.ID, CustomerID: seedCustomers[1].ID, Total: 9900},
	}
	require.NoError(t, source.Create(&seedOrders).Error)

	// A named shared-cache database survives across dials as long as the
	// anchor connection below stays open.
	destDSN := fmt.Sprintf("file:moverdest_%s?mode=memory&cache=shared",
		strings.ReplaceAll(uuid.New().String(), "-", ""))
	dest, err := gorm.Open(sqlite.Open(destDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeDB(dest) })
	if migrateDest {
		require.NoError(t, dest.AutoMigrate(&moverCustomer{}, &moverOrder{}))
	}

	dial := func(dbName string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(destDSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
	}

	repo := newFakeTenantRepo(tenant, bystander)
	directory := NewDirectory(repo, NewMemoryRecordCache(), time.Minute)
	prov := &fakeProvisioner{}

	mover := NewMover(repo, source, prov, dial, directory, moverPlan(),
		WithMoveBatchSize(2),
		WithSettleDelay(0),
	)

	return &moverFixture{
		mover:     mover,
		repo:      repo,
		directory: directory,
		source:    source,
		dest:      dest,
		destDSN:   destDSN,
		prov:      prov,
		tenant:    tenant,
	}
}

func (f *moverFixture) countDest(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.dest.Table(table).Where("tenant_id = ?", f.tenant.ID).Count(&n).Error)
	return n
}

func TestMover_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("copies rows and flips the directory", func(t *testing.T) {
		f := newMoverFixture(t, true)

		require.NoError(t, f.mover.Move(ctx, f.tenant.ID))

		moved := f.repo.get(f.tenant.ID)
		assert.Equal(t, tenancy.PlacementDedicated, moved.Placement)
		assert.Equal(t, "tenant_acme", moved.DatabaseName)
		assert.NotNil(t, moved.ProvisionedAt)

		// Batch size 2 against 2 customers and 3 orders exercises both the
		// exact-fit and the trailing-batch paths.
		assert.Equal(t, int64(2), f.countDest(t, "mover_customers"))
		assert.Equal(t, int64(3), f.countDest(t, "mover_orders"))

		// Only the moved tenant's rows were carried.
		var total int64
		require.NoError(t, f.dest.Table("mover_customers").Count(&total).Error)
		assert.Equal(t, int64(2), total)

		// Source rows stay until the janitor reclaims them.
		var left int64
		require.NoError(t, f.source.Table("mover_orders").Where("tenant_id = ?", f.tenant.ID).Count(&left).Error)
		assert.Equal(t, int64(3), left)

		// The directory cache was invalidated, so routing sees the flip.
		rec, err := f.directory.Lookup(ctx, f.tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, tenancy.PlacementDedicated, rec.Placement)
	})

	t.Run("rerun after success is a no-op", func(t *testing.T) {
		f := newMoverFixture(t, true)

		require.NoError(t, f.mover.Move(ctx, f.tenant.ID))
		require.Equal(t, 1, f.prov.ensures)

		require.NoError(t, f.mover.Move(ctx, f.tenant.ID))
		assert.Equal(t, 1, f.prov.ensures, "second move must not provision again")
		assert.Equal(t, int64(2), f.countDest(t, "mover_customers"))
	})

	t.Run("free plan tenants cannot move", func(t *testing.T) {
		f := newMoverFixture(t, true)
		free := testTenant(t, "SMALL", "small")
		require.NoError(t, f.repo.Save(ctx, free))

		err := f.mover.Move(ctx, free.ID)
		require.Error(t, err)
		assert.Equal(t, tenancy.PlacementShared, f.repo.get(free.ID).Placement)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		f := newMoverFixture(t, true)

		err := f.mover.Move(ctx, uuid.New())
		assert.Error(t, err)
	})

	t.Run("copy failure aborts back to shared", func(t *testing.T) {
		// The dedicated side has no schema, so the copy fails after the
		// tenant was marked migrating.
		f := newMoverFixture(t, false)

		err := f.mover.Move(ctx, f.tenant.ID)
		require.Error(t, err)

		aborted := f.repo.get(f.tenant.ID)
		assert.Equal(t, tenancy.PlacementShared, aborted.Placement)
		assert.Equal(t, tenancy.TenantPlanEnterprise, aborted.Plan)

		rec, lookupErr := f.directory.Lookup(ctx, f.tenant.ID)
		require.NoError(t, lookupErr)
		assert.Equal(t, tenancy.PlacementShared, rec.Placement)
	})

	t.Run("provision failure aborts back to shared", func(t *testing.T) {
		f := newMoverFixture(t, true)
		f.prov.ensureErr = assert.AnError

		err := f.mover.Move(ctx, f.tenant.ID)
		require.Error(t, err)
		assert.Equal(t, tenancy.PlacementShared, f.repo.get(f.tenant.ID).Placement)
	})

	t.Run("resuming an interrupted move wipes the partial copy", func(t *testing.T) {
		f := newMoverFixture(t, true)

		// A previous run died mid-copy: placement is migrating and the
		// dedicated side holds a partial, stale copy.
		crashed := f.repo.get(f.tenant.ID)
		require.NoError(t, crashed.BeginMigration())
		require.NoError(t, f.repo.Save(ctx, crashed))

		stale := moverCustomer{ID: uuid.New(), TenantID: f.tenant.ID, Name: "Stale", CreatedAt: time.Now()}
		require.NoError(t, f.dest.Create(&stale).Error)

		require.NoError(t, f.mover.Move(ctx, f.tenant.ID))

		assert.Equal(t, int64(2), f.countDest(t, "mover_customers"))
		var staleLeft int64
		require.NoError(t, f.dest.Table("mover_customers").Where("name = ?", "Stale").Count(&staleLeft).Error)
		assert.Equal(t, int64(0), staleLeft)

		assert.Equal(t, tenancy.PlacementDedicated, f.repo.get(f.tenant.ID).Placement)
	})

	t.Run("racing directory write surfaces as an error", func(t *testing.T) {
		f := newMoverFixture(t, true)
		f.repo.saveErr = shared.ErrConcurrencyConflict

		err := f.mover.Move(ctx, f.tenant.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}
