package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/tenancy"
)

// GormTenantRepository implements TenantRepository using GORM. It is bound
// to the control-plane database directly: the tenants table is what routing
// is derived from, so it can never itself be routed.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	var tenant tenancy.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindByCode finds a tenant by its unique code
func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*tenancy.Tenant, error) {
	var tenant tenancy.Tenant
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindBySubdomain finds a tenant by its subdomain
func (r *GormTenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*tenancy.Tenant, error) {
	if subdomain == "" {
		return nil, shared.ErrNotFound
	}
	var tenant tenancy.Tenant
	if err := r.db.WithContext(ctx).
		Where("subdomain = ?", strings.ToLower(strings.TrimSpace(subdomain))).
		First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindAll finds all tenants matching the filter
func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]tenancy.Tenant, error) {
	var tenants []tenancy.Tenant
	query := r.applyFilter(r.db.WithContext(ctx).Model(&tenancy.Tenant{}), filter)

	if err := query.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// FindByStatus finds tenants by status
func (r *GormTenantRepository) FindByStatus(ctx context.Context, status tenancy.TenantStatus, filter shared.Filter) ([]tenancy.Tenant, error) {
	var tenants []tenancy.Tenant
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&tenancy.Tenant{}).Where("status = ?", status),
		filter,
	)

	if err := query.Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// FindByPlacement finds tenants by database placement
func (r *GormTenantRepository) FindByPlacement(ctx context.Context, placement tenancy.Placement) ([]tenancy.Tenant, error) {
	var tenants []tenancy.Tenant
	if err := r.db.WithContext(ctx).
		Where("placement = ?", placement).
		Order("code ASC").
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// FindLicenseExpiring finds tenants whose license expires within the given days
func (r *GormTenantRepository) FindLicenseExpiring(ctx context.Context, withinDays int) ([]tenancy.Tenant, error) {
	if withinDays < 0 {
		withinDays = 0
	}
	cutoff := time.Now().AddDate(0, 0, withinDays)

	var tenants []tenancy.Tenant
	if err := r.db.WithContext(ctx).
		Where("status = ?", tenancy.TenantStatusActive).
		Where("license_expires_at IS NOT NULL AND license_expires_at <= ?", cutoff).
		Order("license_expires_at ASC").
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Save creates or updates a tenant. Updates carry an optimistic version
// guard: the aggregate increments its version on every mutation, so the row
// must still hold the previous version or another writer got there first.
// Racing movers and lifecycle commands are serialized by this check.
func (r *GormTenantRepository) Save(ctx context.Context, tenant *tenancy.Tenant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&tenancy.Tenant{}).
			Where("id = ?", tenant.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(tenant).Error
		}

		result := tx.Model(tenant).
			Where("version = ?", tenant.Version-1).
			Select("*").
			Omit("id", "created_at").
			Updates(tenant)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// Count counts tenants matching the filter
func (r *GormTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&tenancy.Tenant{})
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ? OR subdomain ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if plan, ok := filter.Filters["plan"]; ok {
		query = query.Where("plan = ?", plan)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts tenants by status
func (r *GormTenantRepository) CountByStatus(ctx context.Context, status tenancy.TenantStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&tenancy.Tenant{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByPlan counts tenants by plan
func (r *GormTenantRepository) CountByPlan(ctx context.Context, plan tenancy.TenantPlan) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&tenancy.Tenant{}).
		Where("plan = ?", plan).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if a tenant with the given code exists
func (r *GormTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&tenancy.Tenant{}).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsBySubdomain checks if a tenant with the given subdomain exists
func (r *GormTenantRepository) ExistsBySubdomain(ctx context.Context, subdomain string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&tenancy.Tenant{}).
		Where("subdomain = ?", strings.ToLower(strings.TrimSpace(subdomain))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormTenantRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ? OR subdomain ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "plan":
			query = query.Where("plan = ?", value)
		case "placement":
			query = query.Where("placement = ?", value)
		}
	}

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	sortField := ValidateSortField(filter.OrderBy, TenantSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// Ensure GormTenantRepository implements TenantRepository
var _ tenancy.TenantRepository = (*GormTenantRepository)(nil)
