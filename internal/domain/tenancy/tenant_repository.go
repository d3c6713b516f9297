package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// TenantRepository defines the interface for tenant directory persistence.
// It always operates on the control-plane database.
type TenantRepository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByCode finds a tenant by its unique code
	FindByCode(ctx context.Context, code string) (*Tenant, error)

	// FindBySubdomain finds a tenant by its subdomain
	FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// FindAll finds all tenants matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, error)

	// FindByStatus finds tenants by status
	FindByStatus(ctx context.Context, status TenantStatus, filter shared.Filter) ([]Tenant, error)

	// FindByPlacement finds tenants by database placement
	FindByPlacement(ctx context.Context, placement Placement) ([]Tenant, error)

	// FindLicenseExpiring finds tenants whose license expires within the given days
	FindLicenseExpiring(ctx context.Context, withinDays int) ([]Tenant, error)

	// Save creates or updates a tenant. An update checks the optimistic
	// version and returns shared.ErrConcurrencyConflict on a stale write.
	Save(ctx context.Context, tenant *Tenant) error

	// Count counts tenants matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts tenants by status
	CountByStatus(ctx context.Context, status TenantStatus) (int64, error)

	// CountByPlan counts tenants by plan
	CountByPlan(ctx context.Context, plan TenantPlan) (int64, error)

	// ExistsByCode checks if a tenant with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// ExistsBySubdomain checks if a tenant with the given subdomain exists
	ExistsBySubdomain(ctx context.Context, subdomain string) (bool, error)
}
