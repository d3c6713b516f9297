package tenancy

import (
	"github.com/retail/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTenant = "Tenant"

// Event type constants
const (
	EventTypeTenantCreated            = "TenantCreated"
	EventTypeTenantStatusChanged      = "TenantStatusChanged"
	EventTypeTenantPlanChanged        = "TenantPlanChanged"
	EventTypeTenantSubdomainChanged   = "TenantSubdomainChanged"
	EventTypeTenantLicenseAssigned    = "TenantLicenseAssigned"
	EventTypeTenantMigrationStarted   = "TenantMigrationStarted"
	EventTypeTenantMigrationCompleted = "TenantMigrationCompleted"
	EventTypeTenantMigrationAborted   = "TenantMigrationAborted"
)

// TenantCreatedEvent is published when a new tenant is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Subdomain string       `json:"subdomain"`
	Status    TenantStatus `json:"status"`
	Plan      TenantPlan   `json:"plan"`
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantCreated, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		Name:            tenant.Name,
		Subdomain:       tenant.Subdomain,
		Status:          tenant.Status,
		Plan:            tenant.Plan,
	}
}

// TenantStatusChangedEvent is published when a tenant's status changes
type TenantStatusChangedEvent struct {
	shared.BaseDomainEvent
	Code      string       `json:"code"`
	OldStatus TenantStatus `json:"old_status"`
	NewStatus TenantStatus `json:"new_status"`
}

// NewTenantStatusChangedEvent creates a new TenantStatusChangedEvent
func NewTenantStatusChangedEvent(tenant *Tenant, oldStatus, newStatus TenantStatus) *TenantStatusChangedEvent {
	return &TenantStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantStatusChanged, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// TenantPlanChangedEvent is published when a tenant's subscription plan
// changes. The data move is driven by this event, not by the plan write.
type TenantPlanChangedEvent struct {
	shared.BaseDomainEvent
	Code    string     `json:"code"`
	OldPlan TenantPlan `json:"old_plan"`
	NewPlan TenantPlan `json:"new_plan"`
}

// NewTenantPlanChangedEvent creates a new TenantPlanChangedEvent
func NewTenantPlanChangedEvent(tenant *Tenant, oldPlan, newPlan TenantPlan) *TenantPlanChangedEvent {
	return &TenantPlanChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantPlanChanged, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		OldPlan:         oldPlan,
		NewPlan:         newPlan,
	}
}

// TenantSubdomainChangedEvent is published when a tenant's subdomain changes
type TenantSubdomainChangedEvent struct {
	shared.BaseDomainEvent
	Code         string `json:"code"`
	OldSubdomain string `json:"old_subdomain"`
	NewSubdomain string `json:"new_subdomain"`
}

// NewTenantSubdomainChangedEvent creates a new TenantSubdomainChangedEvent
func NewTenantSubdomainChangedEvent(tenant *Tenant, oldSubdomain, newSubdomain string) *TenantSubdomainChangedEvent {
	return &TenantSubdomainChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantSubdomainChanged, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		OldSubdomain:    oldSubdomain,
		NewSubdomain:    newSubdomain,
	}
}

// TenantLicenseAssignedEvent is published when a license is assigned
type TenantLicenseAssignedEvent struct {
	shared.BaseDomainEvent
	Code       string `json:"code"`
	LicenseKey string `json:"license_key"`
}

// NewTenantLicenseAssignedEvent creates a new TenantLicenseAssignedEvent
func NewTenantLicenseAssignedEvent(tenant *Tenant) *TenantLicenseAssignedEvent {
	return &TenantLicenseAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantLicenseAssigned, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		LicenseKey:      tenant.LicenseKey,
	}
}

// TenantMigrationStartedEvent is published when a tenant's data move begins
type TenantMigrationStartedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
}

// NewTenantMigrationStartedEvent creates a new TenantMigrationStartedEvent
func NewTenantMigrationStartedEvent(tenant *Tenant) *TenantMigrationStartedEvent {
	return &TenantMigrationStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantMigrationStarted, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
	}
}

// TenantMigrationCompletedEvent is published when a tenant's data move
// finishes and routing flips to the dedicated database
type TenantMigrationCompletedEvent struct {
	shared.BaseDomainEvent
	Code         string `json:"code"`
	DatabaseName string `json:"database_name"`
}

// NewTenantMigrationCompletedEvent creates a new TenantMigrationCompletedEvent
func NewTenantMigrationCompletedEvent(tenant *Tenant) *TenantMigrationCompletedEvent {
	return &TenantMigrationCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantMigrationCompleted, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		DatabaseName:    tenant.DatabaseName,
	}
}

// TenantMigrationAbortedEvent is published when a tenant's data move fails
// and placement rolls back to shared
type TenantMigrationAbortedEvent struct {
	shared.BaseDomainEvent
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// NewTenantMigrationAbortedEvent creates a new TenantMigrationAbortedEvent
func NewTenantMigrationAbortedEvent(tenant *Tenant, reason string) *TenantMigrationAbortedEvent {
	return &TenantMigrationAbortedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantMigrationAborted, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		Reason:          reason,
	}
}
