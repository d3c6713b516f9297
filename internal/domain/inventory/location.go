package inventory

import (
	"strings"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LocationStatus represents the status of a location
type LocationStatus string

const (
	LocationStatusActive   LocationStatus = "active"
	LocationStatusInactive LocationStatus = "inactive"
)

// LocationType represents the kind of stock location
type LocationType string

const (
	LocationTypeStore     LocationType = "store"     // Shop floor, sellable stock
	LocationTypeWarehouse LocationType = "warehouse" // Back room or off-site storage
)

// Location is a place stock is held. Most tenants have exactly one (the
// shop); larger merchants add back rooms or satellite stores and transfer
// stock between them.
type Location struct {
	shared.TenantAggregateRoot
	Name      string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_locations_tenant_name,priority:2"`
	Type      LocationType   `gorm:"type:varchar(20);not null;default:'store'"`
	Status    LocationStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Address   string         `gorm:"type:text"`
	IsDefault bool           `gorm:"not null;default:false"` // Default location for sales and receiving
	SortOrder int            `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "locations"
}

// NewLocation creates a new location
func NewLocation(tenantID uuid.UUID, name string, locationType LocationType) (*Location, error) {
	name = strings.TrimSpace(name)
	if err := validateLocationName(name); err != nil {
		return nil, err
	}
	if err := validateLocationType(locationType); err != nil {
		return nil, err
	}

	location := &Location{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Type:                locationType,
		Status:              LocationStatusActive,
	}

	location.AddDomainEvent(NewLocationCreatedEvent(location))

	return location, nil
}

// NewDefaultLocation creates the tenant's initial store location
func NewDefaultLocation(tenantID uuid.UUID, name string) (*Location, error) {
	location, err := NewLocation(tenantID, name, LocationTypeStore)
	if err != nil {
		return nil, err
	}
	location.IsDefault = true
	return location, nil
}

// Update updates the location's basic information
func (l *Location) Update(name, address string) error {
	name = strings.TrimSpace(name)
	if err := validateLocationName(name); err != nil {
		return err
	}

	l.Name = name
	l.Address = address
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// SetDefault marks or unmarks the location as the tenant default.
// Callers must ensure only one location per tenant is the default.
func (l *Location) SetDefault(isDefault bool) {
	l.IsDefault = isDefault
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// SetSortOrder sets the display order
func (l *Location) SetSortOrder(order int) {
	l.SortOrder = order
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// Enable activates the location
func (l *Location) Enable() error {
	if l.Status == LocationStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Location is already active")
	}

	l.Status = LocationStatusActive
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// Disable deactivates the location. The default location cannot be
// disabled while it is the default.
func (l *Location) Disable() error {
	if l.Status == LocationStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Location is already inactive")
	}
	if l.IsDefault {
		return shared.NewDomainError("CANNOT_DISABLE_DEFAULT", "Cannot disable the default location")
	}

	l.Status = LocationStatusInactive
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// IsActive returns true if the location is active
func (l *Location) IsActive() bool {
	return l.Status == LocationStatusActive
}

// validateLocationName validates the location name
func validateLocationName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Location name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Location name cannot exceed 100 characters")
	}
	return nil
}

// validateLocationType validates the location type
func validateLocationType(t LocationType) error {
	switch t {
	case LocationTypeStore, LocationTypeWarehouse:
		return nil
	}
	return shared.NewDomainError("INVALID_TYPE", "Invalid location type")
}
