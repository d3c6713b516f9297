package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/tenancy"
)

// Record is an immutable directory snapshot used for routing. It carries
// just enough of the tenant row to pick a database and refuse unusable
// tenants; anything richer goes through the tenancy repository.
type Record struct {
	ID           uuid.UUID            `json:"id"`
	Code         string               `json:"code"`
	Subdomain    string               `json:"subdomain"`
	Status       tenancy.TenantStatus `json:"status"`
	Plan         tenancy.TenantPlan   `json:"plan"`
	Placement    tenancy.Placement    `json:"placement"`
	DatabaseName string               `json:"database_name"`
	Currency     string               `json:"currency"`
}

func newRecord(t *tenancy.Tenant) Record {
	return Record{
		ID:           t.ID,
		Code:         t.Code,
		Subdomain:    t.Subdomain,
		Status:       t.Status,
		Plan:         t.Plan,
		Placement:    t.Placement,
		DatabaseName: t.DatabaseName,
		Currency:     t.Currency,
	}
}

func idKey(id uuid.UUID) string {
	return "id:" + id.String()
}

func subdomainKey(subdomain string) string {
	return "sub:" + strings.ToLower(subdomain)
}

// Directory is a cached read-through view of the tenants table. Every
// request resolves through it, so lookups must not hit the control plane
// each time; records are cached for a bounded TTL and invalidated
// explicitly when the tenancy service or the Mover changes a tenant.
//
// Staleness is bounded by the TTL: a suspension or placement flip done by
// another process is picked up at the latest one TTL after it commits.
type Directory struct {
	repo    tenancy.TenantRepository
	cache   RecordCache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *Metrics
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithDirectoryLogger sets the logger.
func WithDirectoryLogger(logger *zap.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = logger
	}
}

// WithDirectoryMetrics sets the metrics recorder.
func WithDirectoryMetrics(m *Metrics) DirectoryOption {
	return func(d *Directory) {
		d.metrics = m
	}
}

// NewDirectory creates a Directory over the tenants repository. A nil cache
// falls back to an in-process cache; a zero ttl falls back to 30 seconds.
func NewDirectory(repo tenancy.TenantRepository, cache RecordCache, ttl time.Duration, opts ...DirectoryOption) *Directory {
	if cache == nil {
		cache = NewMemoryRecordCache()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	d := &Directory{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Lookup resolves a tenant ID to its directory record.
func (d *Directory) Lookup(ctx context.Context, tenantID uuid.UUID) (Record, error) {
	if rec, ok := d.cached(ctx, idKey(tenantID)); ok {
		return rec, nil
	}

	t, err := d.repo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Record{}, ErrTenantNotFound
		}
		return Record{}, fmt.Errorf("directory lookup for tenant %s: %w", tenantID, err)
	}

	rec := newRecord(t)
	d.prime(ctx, rec)
	return rec, nil
}

// LookupBySubdomain resolves a subdomain to its directory record. The
// subdomain is matched case-insensitively; records are stored lowercased.
func (d *Directory) LookupBySubdomain(ctx context.Context, subdomain string) (Record, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return Record{}, ErrTenantNotFound
	}

	if rec, ok := d.cached(ctx, subdomainKey(subdomain)); ok {
		return rec, nil
	}

	t, err := d.repo.FindBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Record{}, ErrTenantNotFound
		}
		return Record{}, fmt.Errorf("directory lookup for subdomain %s: %w", subdomain, err)
	}

	rec := newRecord(t)
	d.prime(ctx, rec)
	return rec, nil
}

// Invalidate drops the cached record for a tenant. Callers invalidate after
// every directory write: status changes, plan changes, and placement flips.
func (d *Directory) Invalidate(ctx context.Context, tenantID uuid.UUID, subdomain string) {
	keys := []string{idKey(tenantID)}
	if subdomain != "" {
		keys = append(keys, subdomainKey(subdomain))
	}
	if err := d.cache.Delete(ctx, keys...); err != nil {
		d.logger.Warn("failed to invalidate directory cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

func (d *Directory) cached(ctx context.Context, key string) (Record, bool) {
	rec, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a directory read, not an outage.
		d.logger.Warn("directory cache read failed", zap.String("key", key), zap.Error(err))
		d.metrics.RecordDirectoryLookup(ctx, false)
		return Record{}, false
	}
	d.metrics.RecordDirectoryLookup(ctx, ok)
	return rec, ok
}

func (d *Directory) prime(ctx context.Context, rec Record) {
	if err := d.cache.Set(ctx, idKey(rec.ID), rec, d.ttl); err != nil {
		d.logger.Warn("failed to cache directory record",
			zap.String("tenant_id", rec.ID.String()),
			zap.Error(err),
		)
		return
	}
	if rec.Subdomain != "" {
		if err := d.cache.Set(ctx, subdomainKey(rec.Subdomain), rec, d.ttl); err != nil {
			d.logger.Warn("failed to cache directory record by subdomain",
				zap.String("tenant_id", rec.ID.String()),
				zap.String("subdomain", rec.Subdomain),
				zap.Error(err),
			)
		}
	}
}
