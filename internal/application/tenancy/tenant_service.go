package tenancy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/tenancy"
)

// DataMover migrates a tenant's rows from the shared pool into a
// dedicated database. The tenantdb Mover implements it.
type DataMover interface {
	Move(ctx context.Context, tenantID uuid.UUID) error
}

// TenantService manages the tenant directory on the control plane:
// onboarding, lifecycle, licensing and the upgrade to a dedicated
// database.
type TenantService struct {
	tenantRepo     tenancy.TenantRepository
	mover          DataMover
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewTenantService creates a new TenantService
func NewTenantService(tenantRepo tenancy.TenantRepository, mover DataMover, logger *zap.Logger) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		mover:      mover,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *TenantService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create onboards a tenant. Code and subdomain must be unique across the
// directory.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*TenantResponse, error) {
	exists, err := s.tenantRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("A tenant with code %s already exists", req.Code))
	}

	exists, err = s.tenantRepo.ExistsBySubdomain(ctx, req.Subdomain)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SUBDOMAIN_TAKEN", fmt.Sprintf("Subdomain %s is already taken", req.Subdomain))
	}

	tenant, err := tenancy.NewTenant(req.Code, req.Name, req.Subdomain)
	if err != nil {
		return nil, err
	}
	if req.Currency != "" {
		if err := tenant.SetCurrency(req.Currency); err != nil {
			return nil, err
		}
	}
	if req.ContactName != "" || req.ContactPhone != "" || req.ContactEmail != "" {
		if err := tenant.SetContact(req.ContactName, req.ContactPhone, req.ContactEmail); err != nil {
			return nil, err
		}
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("code", tenant.Code),
		zap.String("subdomain", tenant.Subdomain))

	response := ToTenantResponse(tenant)
	return &response, nil
}

// Update updates a tenant's display name and contact information
func (s *TenantService) Update(ctx context.Context, tenantID uuid.UUID, req UpdateTenantRequest) (*TenantResponse, error) {
	return s.modify(ctx, tenantID, func(t *tenancy.Tenant) error {
		if err := t.Update(req.Name); err != nil {
			return err
		}
		return t.SetContact(req.ContactName, req.ContactPhone, req.ContactEmail)
	})
}

// ChangeSubdomain moves the tenant to a new subdomain
func (s *TenantService) ChangeSubdomain(ctx context.Context, tenantID uuid.UUID, subdomain string) (*TenantResponse, error) {
	exists, err := s.tenantRepo.ExistsBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SUBDOMAIN_TAKEN", fmt.Sprintf("Subdomain %s is already taken", subdomain))
	}
	return s.modify(ctx, tenantID, func(t *tenancy.Tenant) error {
		return t.ChangeSubdomain(subdomain)
	})
}

// Suspend suspends a tenant; routing refuses suspended tenants
func (s *TenantService) Suspend(ctx context.Context, tenantID uuid.UUID, req SuspendTenantRequest) (*TenantResponse, error) {
	return s.modify(ctx, tenantID, func(t *tenancy.Tenant) error {
		return t.Suspend(req.Reason)
	})
}

// Reactivate restores a suspended tenant to active
func (s *TenantService) Reactivate(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	return s.modify(ctx, tenantID, (*tenancy.Tenant).Reactivate)
}

// Archive permanently retires a tenant. Data is retained; routing
// refuses all requests from here on.
func (s *TenantService) Archive(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	return s.modify(ctx, tenantID, (*tenancy.Tenant).Archive)
}

// AssignLicense assigns a license key with an expiry date
func (s *TenantService) AssignLicense(ctx context.Context, tenantID uuid.UUID, req AssignLicenseRequest) (*TenantResponse, error) {
	return s.modify(ctx, tenantID, func(t *tenancy.Tenant) error {
		return t.AssignLicense(req.LicenseKey, req.ExpiresAt)
	})
}

// Upgrade moves a tenant to the enterprise plan and starts the data move
// into a dedicated database. The plan change commits first; if the move
// fails the tenant stays enterprise on shared placement and Provision
// retries the move alone.
func (s *TenantService) Upgrade(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := tenant.Upgrade(); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, tenant); err != nil {
		return nil, err
	}

	if err := s.mover.Move(ctx, tenantID); err != nil {
		s.logger.Error("data move failed after upgrade, tenant remains on shared placement",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("move tenant data: %w", err)
	}

	refreshed, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	response := ToTenantResponse(refreshed)
	return &response, nil
}

// Downgrade refuses the move back to the free plan. Carrying rows back
// into the shared database is not supported; the domain rejects it.
func (s *TenantService) Downgrade(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	return tenant.Downgrade()
}

// Provision runs the data move for an enterprise tenant whose dedicated
// database does not exist yet, or resumes one interrupted mid-move
func (s *TenantService) Provision(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Plan != tenancy.TenantPlanEnterprise {
		return nil, shared.NewDomainError("NOT_ENTERPRISE", "Only enterprise tenants get a dedicated database")
	}

	if err := s.mover.Move(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("move tenant data: %w", err)
	}

	refreshed, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	response := ToTenantResponse(refreshed)
	return &response, nil
}

func (s *TenantService) modify(ctx context.Context, tenantID uuid.UUID, op func(*tenancy.Tenant) error) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := op(tenant); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, tenant); err != nil {
		return nil, err
	}
	response := ToTenantResponse(tenant)
	return &response, nil
}

// Get retrieves a tenant by ID
func (s *TenantService) Get(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	response := ToTenantResponse(tenant)
	return &response, nil
}

// GetByCode retrieves a tenant by its unique code
func (s *TenantService) GetByCode(ctx context.Context, code string) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	response := ToTenantResponse(tenant)
	return &response, nil
}

// GetBySubdomain retrieves a tenant by its subdomain
func (s *TenantService) GetBySubdomain(ctx context.Context, subdomain string) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	response := ToTenantResponse(tenant)
	return &response, nil
}

// List retrieves tenants matching the filter
func (s *TenantService) List(ctx context.Context, filter TenantListFilter) ([]TenantResponse, int64, error) {
	domainFilter := toTenantDomainFilter(filter)

	tenants, err := s.tenantRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tenantRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToTenantResponses(tenants), total, nil
}

// LicenseExpiring lists tenants whose license expires within the given
// number of days
func (s *TenantService) LicenseExpiring(ctx context.Context, withinDays int) ([]TenantResponse, error) {
	tenants, err := s.tenantRepo.FindLicenseExpiring(ctx, withinDays)
	if err != nil {
		return nil, err
	}
	return ToTenantResponses(tenants), nil
}

// Stats summarizes the tenant directory by status, plan and placement
func (s *TenantService) Stats(ctx context.Context) (*TenantStatsResponse, error) {
	stats := &TenantStatsResponse{}

	var err error
	if stats.Active, err = s.tenantRepo.CountByStatus(ctx, tenancy.TenantStatusActive); err != nil {
		return nil, err
	}
	if stats.Suspended, err = s.tenantRepo.CountByStatus(ctx, tenancy.TenantStatusSuspended); err != nil {
		return nil, err
	}
	if stats.Archived, err = s.tenantRepo.CountByStatus(ctx, tenancy.TenantStatusArchived); err != nil {
		return nil, err
	}
	if stats.FreePlan, err = s.tenantRepo.CountByPlan(ctx, tenancy.TenantPlanFree); err != nil {
		return nil, err
	}
	if stats.Enterprise, err = s.tenantRepo.CountByPlan(ctx, tenancy.TenantPlanEnterprise); err != nil {
		return nil, err
	}

	dedicated, err := s.tenantRepo.FindByPlacement(ctx, tenancy.PlacementDedicated)
	if err != nil {
		return nil, err
	}
	stats.Dedicated = int64(len(dedicated))

	migrating, err := s.tenantRepo.FindByPlacement(ctx, tenancy.PlacementMigrating)
	if err != nil {
		return nil, err
	}
	stats.Migrating = int64(len(migrating))

	stats.Total = stats.Active + stats.Suspended + stats.Archived
	return stats, nil
}

func toTenantDomainFilter(filter TenantListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "code",
		OrderDir: "asc",
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Plan != "" {
		domainFilter.Filters["plan"] = filter.Plan
	}
	if filter.Placement != "" {
		domainFilter.Filters["placement"] = filter.Placement
	}
	return domainFilter
}

func (s *TenantService) publish(ctx context.Context, tenant *tenancy.Tenant) error {
	if s.eventPublisher == nil {
		tenant.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, tenant.GetDomainEvents()...); err != nil {
		return err
	}
	tenant.ClearDomainEvents()
	return nil
}
