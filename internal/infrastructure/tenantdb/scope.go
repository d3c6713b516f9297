package tenantdb

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/infrastructure/logger"
)

// TenantScope applies the tenant row filter to a GORM query.
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// TenantScopeString applies the tenant row filter using a string tenant ID.
func TenantScopeString(tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// ScopeConfig holds configuration for SharedDB.
type ScopeConfig struct {
	// Column is the name of the tenant ID column (default: "tenant_id").
	Column string
	// Required determines whether a missing tenant ID is an error
	// (default: true).
	Required bool
}

// DefaultScopeConfig returns the default SharedDB configuration.
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		Column:   "tenant_id",
		Required: true,
	}
}

// SharedDB wraps the shared pool and applies the tenant row filter to every
// handle it yields. Free-plan tenants store their rows side by side in one
// database, so a handle without the filter must never reach a repository.
// A missing or malformed tenant ID fails closed: the returned handle errors
// on execution instead of running unfiltered.
type SharedDB struct {
	db       *gorm.DB
	column   string
	required bool
}

// NewSharedDB creates a SharedDB with the default configuration.
func NewSharedDB(db *gorm.DB) *SharedDB {
	return NewSharedDBWithConfig(db, DefaultScopeConfig())
}

// NewSharedDBWithConfig creates a SharedDB with custom configuration.
func NewSharedDBWithConfig(db *gorm.DB, cfg ScopeConfig) *SharedDB {
	if cfg.Column == "" {
		cfg.Column = "tenant_id"
	}
	return &SharedDB{
		db:       db,
		column:   cfg.Column,
		required: cfg.Required,
	}
}

// DB returns the underlying pool without tenant scoping.
// Use with caution: this bypasses tenant isolation.
func (s *SharedDB) DB() *gorm.DB {
	return s.db
}

// WithContext returns a handle scoped to the tenant carried in the context.
// If no tenant ID is present and Required is true, the handle errors on any
// operation.
func (s *SharedDB) WithContext(ctx context.Context) *gorm.DB {
	tenantID := logger.GetTenantID(ctx)

	if tenantID == "" {
		if s.required {
			db := s.db.WithContext(ctx)
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return s.db.WithContext(ctx)
	}

	if _, err := uuid.Parse(tenantID); err != nil {
		db := s.db.WithContext(ctx)
		_ = db.AddError(ErrInvalidTenantID)
		return db
	}

	return s.db.WithContext(ctx).Scopes(TenantScopeString(tenantID))
}

// ForTenant returns a handle bound to both the context and an explicit
// tenant ID. The Router uses this after resolving the tenant through the
// directory, so the filter does not depend on what the context carries.
func (s *SharedDB) ForTenant(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	if tenantID == uuid.Nil {
		db := s.db.WithContext(ctx)
		_ = db.AddError(ErrTenantIDRequired)
		return db
	}
	return s.db.WithContext(ctx).Scopes(TenantScope(tenantID))
}

// WithTenant returns a handle scoped to a specific tenant ID.
// Use this when the tenant ID is known directly rather than from context.
func (s *SharedDB) WithTenant(tenantID uuid.UUID) *gorm.DB {
	if tenantID == uuid.Nil {
		if s.required {
			db := s.db
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return s.db
	}
	return s.db.Scopes(TenantScope(tenantID))
}

// Transaction executes fn inside a database transaction with the tenant
// filter applied from the context.
func (s *SharedDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tenantID := logger.GetTenantID(ctx)

	if tenantID == "" && s.required {
		return ErrTenantIDRequired
	}
	if tenantID != "" {
		if _, err := uuid.Parse(tenantID); err != nil {
			return ErrInvalidTenantID
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tenantID != "" {
			tx = tx.Scopes(TenantScopeString(tenantID))
		}
		return fn(tx)
	})
}

// Unscoped returns the underlying pool without any tenant scoping.
// This is reserved for system-level work: the Mover and Janitor read and
// delete across tenants with their own explicit filters.
func (s *SharedDB) Unscoped() *gorm.DB {
	return s.db
}
