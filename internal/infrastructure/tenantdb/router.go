// Package tenantdb routes each tenant request to the database that holds the
// tenant's rows.
//
// Free-plan tenants share one database and are isolated by tenant_id row
// filters; enterprise tenants get a dedicated database provisioned when they
// upgrade. The Router resolves a tenant through the Directory (a cached view
// of the tenants table) and yields a Handle bound to either the shared pool,
// with the row filter applied, or the tenant's own pool from the ConnCache.
// While the Mover is copying a tenant between placements the tenant resolves
// to ErrTenantMigrating and requests are refused rather than risking writes
// on the losing side of the move.
package tenantdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/tenancy"
	"github.com/retail/backend/internal/infrastructure/logger"
)

// Source yields a request-scoped *gorm.DB for the tenant carried in the
// context. Tenant-scoped repositories depend on this instead of a fixed
// pool, which is what lets one repository implementation serve tenants on
// both placements.
type Source interface {
	DBFor(ctx context.Context) (*gorm.DB, error)
}

// Handle is a routed database handle for one tenant request.
type Handle struct {
	db     *gorm.DB
	record Record
}

// DB returns the routed GORM handle. For shared placement the tenant row
// filter is already applied.
func (h Handle) DB() *gorm.DB {
	return h.db
}

// Record returns the directory snapshot the handle was routed with.
func (h Handle) Record() Record {
	return h.record
}

// TenantID returns the tenant the handle belongs to.
func (h Handle) TenantID() uuid.UUID {
	return h.record.ID
}

// Placement returns the placement the handle was routed to.
func (h Handle) Placement() tenancy.Placement {
	return h.record.Placement
}

// Dedicated reports whether the handle points at the tenant's own database.
func (h Handle) Dedicated() bool {
	return h.record.Placement == tenancy.PlacementDedicated
}

// Router resolves tenants to database handles.
type Router struct {
	directory *Directory
	shared    *SharedDB
	pools     *ConnCache
	logger    *zap.Logger
	metrics   *Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger.
func WithRouterLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithRouterMetrics sets the metrics recorder.
func WithRouterMetrics(m *Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a Router over the directory, the shared pool, and the
// dedicated pool cache.
func NewRouter(directory *Directory, shared *SharedDB, pools *ConnCache, opts ...RouterOption) *Router {
	r := &Router{
		directory: directory,
		shared:    shared,
		pools:     pools,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve routes a tenant ID to a database handle.
func (r *Router) Resolve(ctx context.Context, tenantID uuid.UUID) (Handle, error) {
	rec, err := r.directory.Lookup(ctx, tenantID)
	if err != nil {
		return Handle{}, err
	}
	return r.handleFor(ctx, rec)
}

// ResolveSubdomain routes a storefront subdomain to a database handle.
func (r *Router) ResolveSubdomain(ctx context.Context, subdomain string) (Handle, error) {
	rec, err := r.directory.LookupBySubdomain(ctx, subdomain)
	if err != nil {
		return Handle{}, err
	}
	return r.handleFor(ctx, rec)
}

func (r *Router) handleFor(ctx context.Context, rec Record) (Handle, error) {
	switch rec.Status {
	case tenancy.TenantStatusSuspended:
		return Handle{}, ErrTenantSuspended
	case tenancy.TenantStatusArchived:
		return Handle{}, ErrTenantArchived
	}

	switch rec.Placement {
	case tenancy.PlacementMigrating:
		r.logger.Debug("refusing request during database move",
			zap.String("tenant_id", rec.ID.String()),
		)
		return Handle{}, ErrTenantMigrating

	case tenancy.PlacementDedicated:
		if rec.DatabaseName == "" {
			r.logger.Error("directory record has dedicated placement without a database",
				zap.String("tenant_id", rec.ID.String()),
				zap.String("tenant_code", rec.Code),
			)
			return Handle{}, ErrDatabaseNotAssigned
		}
		db, err := r.pools.Get(ctx, rec.ID, rec.DatabaseName)
		if err != nil {
			return Handle{}, fmt.Errorf("open dedicated pool: %w", err)
		}
		r.metrics.RecordResolution(ctx, rec.Placement)
		r.metrics.RecordOpenPools(ctx, r.pools.Len())
		return Handle{db: db.WithContext(ctx), record: rec}, nil

	default:
		r.metrics.RecordResolution(ctx, rec.Placement)
		return Handle{db: r.shared.ForTenant(ctx, rec.ID), record: rec}, nil
	}
}

// TenantIDFromContext parses the tenant ID carried in the context. Services
// and the Router share it so the tenant a request routes to and the tenant
// its aggregates are stamped with can never diverge.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, ErrTenantIDRequired
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return tenantID, nil
}

// DBFor implements Source using the tenant ID carried in the context.
func (r *Router) DBFor(ctx context.Context) (*gorm.DB, error) {
	tenantID, err := TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	h, err := r.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return h.DB(), nil
}

var _ Source = (*Router)(nil)
