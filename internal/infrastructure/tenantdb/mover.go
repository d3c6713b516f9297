package tenantdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/tenancy"
)

// TableCopy names one tenant-scoped table and how to carry its rows.
type TableCopy struct {
	// Table is the SQL table name.
	Table string
	// OrderBy is the stable read order for batching. Empty means "id";
	// tables with a composite primary key name their key columns here.
	OrderBy string
	// KeyColumns are the primary key columns batched deletes match on.
	// Empty means the table is keyed by a single "id" column.
	KeyColumns []string
	// NewSlice returns a pointer to an empty slice of the table's model.
	// Rows are read from the shared pool into it and written to the
	// dedicated database from it, so column mapping stays typed.
	NewSlice func() any
}

// deleteKey returns the column list batched deletes select and match on.
func (c TableCopy) deleteKey() string {
	if len(c.KeyColumns) == 0 {
		return "id"
	}
	return strings.Join(c.KeyColumns, ", ")
}

// DatabaseProvisioner creates and migrates dedicated tenant databases.
type DatabaseProvisioner interface {
	DatabaseName(code string) string
	Ensure(ctx context.Context, dbName string) error
}

var _ DatabaseProvisioner = (*Provisioner)(nil)

// Mover copies a tenant's rows from the shared pool into a dedicated
// database and flips the directory. The sequence is:
//
//  1. Mark the tenant migrating. Routing refuses the tenant from here on,
//     so the shared rows stop changing.
//  2. Provision the dedicated database and bring its schema up to date.
//  3. Copy every tenant-scoped table inside one transaction on the
//     dedicated side, parents before children, then verify row counts.
//  4. Flip the directory record to dedicated. The optimistic version check
//     on the tenants row guards against a racing mover.
//
// Any failure between 1 and 4 rolls the tenant back to shared placement;
// the copied rows are discarded with the transaction and nothing is
// dropped. The shared rows are left in place even after a successful flip,
// and the Janitor reclaims them later.
//
// Move is idempotent: rerunning it for a dedicated tenant is a no-op, and
// rerunning after a crash mid-copy wipes the partial copy and starts over.
type Mover struct {
	tenants   tenancy.TenantRepository
	source    *gorm.DB
	prov      DatabaseProvisioner
	dial      DialFunc
	directory *Directory
	plan      []TableCopy
	batchSize int
	settle    time.Duration
	logger    *zap.Logger
	metrics   *Metrics
}

// MoverOption configures a Mover.
type MoverOption func(*Mover)

// WithMoveBatchSize sets how many rows are carried per read (default 500).
func WithMoveBatchSize(n int) MoverOption {
	return func(m *Mover) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithSettleDelay sets how long the mover waits after marking the tenant
// migrating before it starts copying, so requests that already resolved to
// the shared pool can finish (default 2s).
func WithSettleDelay(d time.Duration) MoverOption {
	return func(m *Mover) {
		m.settle = d
	}
}

// WithMoverLogger sets the logger.
func WithMoverLogger(logger *zap.Logger) MoverOption {
	return func(m *Mover) {
		m.logger = logger
	}
}

// WithMoverMetrics sets the metrics recorder.
func WithMoverMetrics(metrics *Metrics) MoverOption {
	return func(m *Mover) {
		m.metrics = metrics
	}
}

// NewMover creates a Mover. source must be an unfiltered handle on the
// database that hosts the shared pool; plan lists every tenant-scoped table
// in parent-before-child order.
func NewMover(tenants tenancy.TenantRepository, source *gorm.DB, prov DatabaseProvisioner, dial DialFunc, directory *Directory, plan []TableCopy, opts ...MoverOption) *Mover {
	m := &Mover{
		tenants:   tenants,
		source:    source,
		prov:      prov,
		dial:      dial,
		directory: directory,
		plan:      plan,
		batchSize: 500,
		settle:    2 * time.Second,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Move migrates the tenant to a dedicated database.
func (m *Mover) Move(ctx context.Context, tenantID uuid.UUID) error {
	start := time.Now()

	t, err := m.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}

	log := m.logger.With(
		zap.String("tenant_id", t.ID.String()),
		zap.String("tenant_code", t.Code),
	)

	switch t.Placement {
	case tenancy.PlacementDedicated:
		log.Info("tenant already on a dedicated database, nothing to move")
		return nil

	case tenancy.PlacementShared:
		if err := t.BeginMigration(); err != nil {
			return err
		}
		if err := m.tenants.Save(ctx, t); err != nil {
			return fmt.Errorf("mark tenant migrating: %w", err)
		}
		m.directory.Invalidate(ctx, t.ID, t.Subdomain)
		log.Info("tenant marked migrating, routing paused")
		m.waitSettle(ctx)

	case tenancy.PlacementMigrating:
		log.Warn("resuming interrupted move")
	}

	dbName := m.prov.DatabaseName(t.Code)
	if err := m.prov.Ensure(ctx, dbName); err != nil {
		return m.abort(ctx, t, log, fmt.Errorf("provision %s: %w", dbName, err))
	}

	dest, err := m.dial(dbName)
	if err != nil {
		return m.abort(ctx, t, log, fmt.Errorf("connect to %s: %w", dbName, err))
	}
	defer func() {
		_ = closeDB(dest)
	}()

	rows, err := m.copyAll(ctx, dest, t.ID)
	if err != nil {
		return m.abort(ctx, t, log, err)
	}

	if err := t.CompleteMigration(dbName); err != nil {
		return m.abort(ctx, t, log, err)
	}
	if err := m.tenants.Save(ctx, t); err != nil {
		// The rows are committed on the dedicated side but the directory
		// still says migrating. Rerunning the move wipes that copy and
		// carries the rows again, so nothing is lost.
		return fmt.Errorf("record move completion: %w", err)
	}
	m.directory.Invalidate(ctx, t.ID, t.Subdomain)

	took := time.Since(start)
	m.metrics.RecordMove(ctx, took, rows)
	log.Info("tenant moved to dedicated database",
		zap.String("database", dbName),
		zap.Int64("rows", rows),
		zap.Duration("took", took),
	)
	return nil
}

// abort rolls the tenant back to shared placement and returns cause. The
// bookkeeping runs on a detached context so a cancelled move can still be
// recorded.
func (m *Mover) abort(ctx context.Context, t *tenancy.Tenant, log *zap.Logger, cause error) error {
	ctx = context.WithoutCancel(ctx)

	if err := t.AbortMigration(cause.Error()); err != nil {
		log.Error("cannot roll tenant back to shared placement",
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return cause
	}
	if err := m.tenants.Save(ctx, t); err != nil {
		log.Error("cannot persist move abort, tenant stays migrating",
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return cause
	}
	m.directory.Invalidate(ctx, t.ID, t.Subdomain)

	log.Warn("move aborted, tenant restored to shared placement",
		zap.NamedError("cause", cause),
	)
	return cause
}

// copyAll carries every planned table inside one transaction on the
// dedicated side and verifies row counts before it returns.
func (m *Mover) copyAll(ctx context.Context, dest *gorm.DB, tenantID uuid.UUID) (int64, error) {
	var total int64
	err := dest.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Wipe any partial copy from an interrupted run, children first.
		for i := len(m.plan) - 1; i >= 0; i-- {
			stmt := fmt.Sprintf("DELETE FROM %s WHERE tenant_id = ?", m.plan[i].Table)
			if err := tx.Exec(stmt, tenantID).Error; err != nil {
				return fmt.Errorf("clear %s: %w", m.plan[i].Table, err)
			}
		}

		for _, tc := range m.plan {
			copied, err := m.copyTable(ctx, tx, tc, tenantID)
			if err != nil {
				return err
			}
			total += copied
		}

		return m.verify(ctx, tx, tenantID)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (m *Mover) copyTable(ctx context.Context, tx *gorm.DB, tc TableCopy, tenantID uuid.UUID) (int64, error) {
	order := tc.OrderBy
	if order == "" {
		order = "id"
	}

	var copied int64
	for offset := 0; ; {
		batch := tc.NewSlice()
		res := m.source.WithContext(ctx).Table(tc.Table).
			Where("tenant_id = ?", tenantID).
			Order(order).
			Limit(m.batchSize).
			Offset(offset).
			Find(batch)
		if res.Error != nil {
			return copied, fmt.Errorf("read %s: %w", tc.Table, res.Error)
		}
		if res.RowsAffected == 0 {
			break
		}

		if err := tx.Table(tc.Table).Create(batch).Error; err != nil {
			return copied, fmt.Errorf("write %s: %w", tc.Table, err)
		}

		copied += res.RowsAffected
		offset += int(res.RowsAffected)
		if res.RowsAffected < int64(m.batchSize) {
			break
		}
	}

	if copied > 0 {
		m.logger.Debug("copied table",
			zap.String("table", tc.Table),
			zap.Int64("rows", copied),
		)
	}
	return copied, nil
}

// verify compares per-table row counts between the shared pool and the
// pending copy. The tenant is blocked from writing while migrating, so the
// counts are stable; any mismatch fails the move before the flip.
func (m *Mover) verify(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) error {
	for _, tc := range m.plan {
		var src, dst int64
		if err := m.source.WithContext(ctx).Table(tc.Table).
			Where("tenant_id = ?", tenantID).Count(&src).Error; err != nil {
			return fmt.Errorf("count %s in shared pool: %w", tc.Table, err)
		}
		if err := tx.Table(tc.Table).
			Where("tenant_id = ?", tenantID).Count(&dst).Error; err != nil {
			return fmt.Errorf("count %s in dedicated database: %w", tc.Table, err)
		}
		if src != dst {
			return fmt.Errorf("row count mismatch for %s: shared=%d dedicated=%d", tc.Table, src, dst)
		}
	}
	return nil
}

func (m *Mover) waitSettle(ctx context.Context) {
	if m.settle <= 0 {
		return
	}
	timer := time.NewTimer(m.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
