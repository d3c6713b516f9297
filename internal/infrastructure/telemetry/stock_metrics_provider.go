// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantDBResolver returns the database handle for one tenant. The worker
// wires it from the tenant router, so the provider reads from the shared
// pool or the tenant's dedicated pool without knowing which.
type TenantDBResolver func(ctx context.Context, tenantID uuid.UUID) (*gorm.DB, error)

// GormStockMetricsProvider implements StockMetricsProvider using GORM.
// It queries the stock_levels table directly for aggregated metrics.
type GormStockMetricsProvider struct {
	resolve TenantDBResolver
}

// NewGormStockMetricsProvider creates a new GormStockMetricsProvider.
func NewGormStockMetricsProvider(resolve TenantDBResolver) *GormStockMetricsProvider {
	return &GormStockMetricsProvider{resolve: resolve}
}

// GetReservedQuantityByLocation returns total reserved quantity per location
// for a tenant. The resolved handle is already scoped to the tenant, so no
// tenant condition is added here.
func (p *GormStockMetricsProvider) GetReservedQuantityByLocation(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error) {
	db, err := p.resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	type result struct {
		LocationID uuid.UUID `gorm:"column:location_id"`
		Reserved   int64     `gorm:"column:reserved"`
	}

	var results []result
	err = db.WithContext(ctx).
		Table("stock_levels").
		Select("location_id, COALESCE(SUM(reserved), 0) as reserved").
		Group("location_id").
		Having("SUM(reserved) > 0").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		m[r.LocationID] = r.Reserved
	}

	return m, nil
}

// GetLowStockCount returns count of products at or below their reorder point
// for a tenant.
func (p *GormStockMetricsProvider) GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	db, err := p.resolve(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.WithContext(ctx).
		Table("stock_levels").
		Where("reorder_point > 0 AND on_hand <= reorder_point").
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM. It reads the
// control-plane tenants table, so it must be constructed with the
// control-plane pool.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all active tenant IDs.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("tenants").
		Select("id").
		Where("status = ?", "active").
		Find(&ids).Error

	return ids, err
}
