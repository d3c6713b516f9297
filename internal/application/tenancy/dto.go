package tenancy

import (
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/tenancy"
)

// CreateTenantRequest represents a request to onboard a tenant. New
// tenants start active, on the free plan, placed in the shared database.
type CreateTenantRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	Currency     string `json:"currency,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// UpdateTenantRequest represents a request to update a tenant's profile
type UpdateTenantRequest struct {
	Name         string `json:"name"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// AssignLicenseRequest represents a license assignment
type AssignLicenseRequest struct {
	LicenseKey string    `json:"license_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SuspendTenantRequest carries the reason a tenant is being suspended
type SuspendTenantRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code"`
	Name             string     `json:"name"`
	Subdomain        string     `json:"subdomain"`
	Status           string     `json:"status"`
	Plan             string     `json:"plan"`
	Placement        string     `json:"placement"`
	DatabaseName     string     `json:"database_name,omitempty"`
	ProvisionedAt    *time.Time `json:"provisioned_at,omitempty"`
	LicenseKey       string     `json:"license_key,omitempty"`
	LicenseExpiresAt *time.Time `json:"license_expires_at,omitempty"`
	LicenseExpired   bool       `json:"license_expired"`
	Currency         string     `json:"currency"`
	ContactName      string     `json:"contact_name,omitempty"`
	ContactPhone     string     `json:"contact_phone,omitempty"`
	ContactEmail     string     `json:"contact_email,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TenantListFilter represents filtering options for tenant lists
type TenantListFilter struct {
	Status    string `json:"status,omitempty"`
	Plan      string `json:"plan,omitempty"`
	Placement string `json:"placement,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

// TenantStatsResponse summarizes the tenant directory
type TenantStatsResponse struct {
	Total      int64 `json:"total"`
	Active     int64 `json:"active"`
	Suspended  int64 `json:"suspended"`
	Archived   int64 `json:"archived"`
	FreePlan   int64 `json:"free_plan"`
	Enterprise int64 `json:"enterprise"`
	Dedicated  int64 `json:"dedicated"`
	Migrating  int64 `json:"migrating"`
}

// ToTenantResponse converts a domain tenant to a response DTO
func ToTenantResponse(t *tenancy.Tenant) TenantResponse {
	return TenantResponse{
		ID:               t.ID,
		Code:             t.Code,
		Name:             t.Name,
		Subdomain:        t.Subdomain,
		Status:           string(t.Status),
		Plan:             string(t.Plan),
		Placement:        string(t.Placement),
		DatabaseName:     t.DatabaseName,
		ProvisionedAt:    t.ProvisionedAt,
		LicenseKey:       t.LicenseKey,
		LicenseExpiresAt: t.LicenseExpiresAt,
		LicenseExpired:   t.IsLicenseExpired(),
		Currency:         t.Currency,
		ContactName:      t.ContactName,
		ContactPhone:     t.ContactPhone,
		ContactEmail:     t.ContactEmail,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// ToTenantResponses converts domain tenants to response DTOs
func ToTenantResponses(tenants []tenancy.Tenant) []TenantResponse {
	responses := make([]TenantResponse, len(tenants))
	for i := range tenants {
		responses[i] = ToTenantResponse(&tenants[i])
	}
	return responses
}
