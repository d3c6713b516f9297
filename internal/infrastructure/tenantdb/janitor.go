package tenantdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/tenancy"
)

// Janitor reclaims shared-pool rows left behind after tenants move to
// dedicated databases. The Mover leaves the source rows in place so the flip
// stays cheap to verify and abort; the Janitor deletes them afterwards,
// children before parents, in bounded batches so a large tenant cannot
// monopolize the pool.
type Janitor struct {
	tenants   tenancy.TenantRepository
	source    *gorm.DB
	plan      []TableCopy
	batchSize int
	logger    *zap.Logger
	metrics   *Metrics
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithJanitorBatchSize sets how many rows are deleted per statement
// (default 500).
func WithJanitorBatchSize(n int) JanitorOption {
	return func(j *Janitor) {
		if n > 0 {
			j.batchSize = n
		}
	}
}

// WithJanitorLogger sets the logger.
func WithJanitorLogger(logger *zap.Logger) JanitorOption {
	return func(j *Janitor) {
		j.logger = logger
	}
}

// WithJanitorMetrics sets the metrics recorder.
func WithJanitorMetrics(m *Metrics) JanitorOption {
	return func(j *Janitor) {
		j.metrics = m
	}
}

// NewJanitor creates a Janitor. source must be an unfiltered handle on the
// database that hosts the shared pool; plan is the same table list the
// Mover copies.
func NewJanitor(tenants tenancy.TenantRepository, source *gorm.DB, plan []TableCopy, opts ...JanitorOption) *Janitor {
	j := &Janitor{
		tenants:   tenants,
		source:    source,
		plan:      plan,
		batchSize: 500,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Sweep deletes shared-pool rows for every tenant on dedicated placement
// and returns the number of rows reclaimed. A sweep finding nothing to do
// is the steady state and is not logged.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	moved, err := j.tenants.FindByPlacement(ctx, tenancy.PlacementDedicated)
	if err != nil {
		return 0, fmt.Errorf("list dedicated tenants: %w", err)
	}

	var total int64
	for _, t := range moved {
		reclaimed, err := j.sweepTenant(ctx, t.ID)
		total += reclaimed
		if err != nil {
			j.metrics.RecordSweep(ctx, total)
			return total, fmt.Errorf("sweep tenant %s: %w", t.Code, err)
		}
		if reclaimed > 0 {
			j.logger.Info("reclaimed shared pool rows",
				zap.String("tenant_id", t.ID.String()),
				zap.String("tenant_code", t.Code),
				zap.Int64("rows", reclaimed),
			)
		}
	}

	j.metrics.RecordSweep(ctx, total)
	return total, nil
}

func (j *Janitor) sweepTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	for i := len(j.plan) - 1; i >= 0; i-- {
		table := j.plan[i].Table
		key := j.plan[i].deleteKey()
		for {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			stmt := fmt.Sprintf(
				"DELETE FROM %s WHERE (%s) IN (SELECT %s FROM %s WHERE tenant_id = ? LIMIT %d)",
				table, key, key, table, j.batchSize,
			)
			res := j.source.WithContext(ctx).Exec(stmt, tenantID)
			if res.Error != nil {
				return total, fmt.Errorf("delete from %s: %w", table, res.Error)
			}
			total += res.RowsAffected
			if res.RowsAffected < int64(j.batchSize) {
				break
			}
		}
	}
	return total, nil
}
