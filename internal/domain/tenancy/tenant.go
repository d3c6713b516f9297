package tenancy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// TenantStatus represents the lifecycle status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended" // Payment or policy violation; routing refuses requests
	TenantStatusArchived  TenantStatus = "archived"  // Terminal; data retained, routing refuses requests
)

// TenantPlan represents the subscription plan of a tenant
type TenantPlan string

const (
	TenantPlanFree       TenantPlan = "free"
	TenantPlanEnterprise TenantPlan = "enterprise"
)

// Placement says where a tenant's data physically lives.
// It is routing state derived from the plan, not the plan itself: an
// enterprise tenant stays on "shared" until its dedicated database has been
// provisioned and its rows moved.
type Placement string

const (
	PlacementShared    Placement = "shared"    // Rows in the shared database, filtered by tenant_id
	PlacementDedicated Placement = "dedicated" // Own database; no row filters applied
	PlacementMigrating Placement = "migrating" // Move in flight; routing is blocked
)

// Tenant is the control-plane aggregate for one tenant organization.
// It lives in the control-plane database regardless of where the tenant's
// business data is placed.
type Tenant struct {
	shared.BaseAggregateRoot
	Code             string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name             string       `gorm:"type:varchar(200);not null"`
	Subdomain        string       `gorm:"type:varchar(63);not null;uniqueIndex"`
	Status           TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Plan             TenantPlan   `gorm:"type:varchar(20);not null;default:'free'"`
	Placement        Placement    `gorm:"type:varchar(20);not null;default:'shared';index"`
	DatabaseName     string       `gorm:"type:varchar(63)"` // Set once the dedicated database exists
	ProvisionedAt    *time.Time
	LicenseKey       string `gorm:"type:varchar(100);index"`
	LicenseExpiresAt *time.Time
	Currency         string `gorm:"type:varchar(3);not null;default:'USD'"`
	ContactName      string `gorm:"type:varchar(100)"`
	ContactPhone     string `gorm:"type:varchar(50)"`
	ContactEmail     string `gorm:"type:varchar(200)"`
	Notes            string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant on the free plan, placed in the shared
// database
func NewTenant(code, name, subdomain string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if err := ValidateSubdomain(subdomain); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Subdomain:         strings.ToLower(subdomain),
		Status:            TenantStatusActive,
		Plan:              TenantPlanFree,
		Placement:         PlacementShared,
		Currency:          "USD",
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// Update updates the tenant's display name
func (t *Tenant) Update(name string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}

	t.Name = name
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetContact sets the tenant's contact information
func (t *Tenant) SetContact(contactName, phone, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}

	t.ContactName = contactName
	t.ContactPhone = phone
	t.ContactEmail = email
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetCurrency sets the tenant's default currency code
func (t *Tenant) SetCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}

	t.Currency = currency
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// ChangeSubdomain changes the tenant's subdomain
func (t *Tenant) ChangeSubdomain(subdomain string) error {
	if err := ValidateSubdomain(subdomain); err != nil {
		return err
	}

	old := t.Subdomain
	t.Subdomain = strings.ToLower(subdomain)
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantSubdomainChangedEvent(t, old, t.Subdomain))

	return nil
}

// AssignLicense assigns a license key with an expiry date
func (t *Tenant) AssignLicense(key string, expiresAt time.Time) error {
	if key == "" {
		return shared.NewDomainError("INVALID_LICENSE", "License key cannot be empty")
	}
	if len(key) > 100 {
		return shared.NewDomainError("INVALID_LICENSE", "License key cannot exceed 100 characters")
	}
	if !expiresAt.After(time.Now()) {
		return shared.NewDomainError("INVALID_LICENSE", "License expiry must be in the future")
	}

	t.LicenseKey = key
	t.LicenseExpiresAt = &expiresAt
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantLicenseAssignedEvent(t))

	return nil
}

// IsLicenseExpired returns true if a license is assigned and past its expiry
func (t *Tenant) IsLicenseExpired() bool {
	if t.LicenseExpiresAt == nil {
		return false
	}
	return time.Now().After(*t.LicenseExpiresAt)
}

// Suspend suspends the tenant. Routing refuses suspended tenants.
func (t *Tenant) Suspend(reason string) error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}
	if t.Status == TenantStatusArchived {
		return shared.NewDomainError("TENANT_ARCHIVED", "Archived tenants cannot be suspended")
	}

	oldStatus := t.Status
	t.Status = TenantStatusSuspended
	if reason != "" {
		t.Notes = reason
	}
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusSuspended))

	return nil
}

// Reactivate restores a suspended tenant to active
func (t *Tenant) Reactivate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}
	if t.Status == TenantStatusArchived {
		return shared.NewDomainError("TENANT_ARCHIVED", "Archived tenants cannot be reactivated")
	}

	oldStatus := t.Status
	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusActive))

	return nil
}

// Archive permanently retires the tenant. Data is retained but routing
// refuses all requests. Archiving is terminal.
func (t *Tenant) Archive() error {
	if t.Status == TenantStatusArchived {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Tenant is already archived")
	}
	if t.Placement == PlacementMigrating {
		return shared.NewDomainError("MIGRATION_IN_PROGRESS", "Cannot archive a tenant while its data is being moved")
	}

	oldStatus := t.Status
	t.Status = TenantStatusArchived
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusArchived))

	return nil
}

// Upgrade moves the tenant to the enterprise plan. The data move runs
// separately; placement stays where it is until BeginMigration.
func (t *Tenant) Upgrade() error {
	if t.Status != TenantStatusActive {
		return shared.NewDomainError("TENANT_NOT_ACTIVE", "Only active tenants can be upgraded")
	}
	if t.Plan == TenantPlanEnterprise {
		return shared.NewDomainError("ALREADY_ENTERPRISE", "Tenant is already on the enterprise plan")
	}

	oldPlan := t.Plan
	t.Plan = TenantPlanEnterprise
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantPlanChangedEvent(t, oldPlan, TenantPlanEnterprise))

	return nil
}

// Downgrade is refused once a tenant runs on the enterprise plan: moving
// rows back into the shared database is not supported.
func (t *Tenant) Downgrade() error {
	if t.Plan == TenantPlanFree {
		return shared.NewDomainError("ALREADY_FREE", "Tenant is already on the free plan")
	}
	return shared.NewDomainError("DOWNGRADE_UNSUPPORTED", "Enterprise tenants cannot be downgraded to the free plan")
}

// BeginMigration flips placement to migrating, blocking routing while the
// data move runs
func (t *Tenant) BeginMigration() error {
	if t.Plan != TenantPlanEnterprise {
		return shared.NewDomainError("NOT_ENTERPRISE", "Only enterprise tenants get a dedicated database")
	}
	if t.Placement == PlacementDedicated {
		return shared.NewDomainError("ALREADY_DEDICATED", "Tenant already has a dedicated database")
	}
	if t.Placement == PlacementMigrating {
		return shared.NewDomainError("MIGRATION_IN_PROGRESS", "A data move is already in progress")
	}

	t.Placement = PlacementMigrating
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantMigrationStartedEvent(t))

	return nil
}

// CompleteMigration records the dedicated database and flips placement.
// Only valid while migrating.
func (t *Tenant) CompleteMigration(databaseName string) error {
	if t.Placement != PlacementMigrating {
		return shared.NewDomainError("NOT_MIGRATING", "Tenant is not in a data move")
	}
	if databaseName == "" {
		return shared.NewDomainError("INVALID_DATABASE_NAME", "Database name cannot be empty")
	}

	now := time.Now()
	t.Placement = PlacementDedicated
	t.DatabaseName = databaseName
	t.ProvisionedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantMigrationCompletedEvent(t))

	return nil
}

// AbortMigration rolls placement back to shared after a failed move.
// The shared rows were never touched, so routing can resume immediately.
func (t *Tenant) AbortMigration(reason string) error {
	if t.Placement != PlacementMigrating {
		return shared.NewDomainError("NOT_MIGRATING", "Tenant is not in a data move")
	}

	t.Placement = PlacementShared
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantMigrationAbortedEvent(t, reason))

	return nil
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// IsSuspended returns true if the tenant is suspended
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended
}

// IsArchived returns true if the tenant is archived
func (t *Tenant) IsArchived() bool {
	return t.Status == TenantStatusArchived
}

// IsDedicated returns true if the tenant's data lives in its own database
func (t *Tenant) IsDedicated() bool {
	return t.Placement == PlacementDedicated
}

// Validation functions

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

// ValidateSubdomain checks that the subdomain is a valid DNS label:
// lowercase letters, digits and hyphens, no leading/trailing hyphen,
// at most 63 characters.
func ValidateSubdomain(subdomain string) error {
	s := strings.ToLower(subdomain)
	if s == "" {
		return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain cannot be empty")
	}
	if len(s) > 63 {
		return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain cannot exceed 63 characters")
	}
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain cannot start or end with a hyphen")
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain can only contain lowercase letters, digits, and hyphens")
		}
	}
	return nil
}

// GetTenantID returns the tenant's own ID. On this aggregate the tenant IS
// the aggregate, so events carry its ID in both positions.
func (t *Tenant) GetTenantID() uuid.UUID {
	return t.ID
}
