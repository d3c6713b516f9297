package storefront

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// ThemeSettings holds the storefront's visual configuration, stored as JSONB
type ThemeSettings struct {
	PrimaryColor string `json:"primary_color,omitempty"`
	AccentColor  string `json:"accent_color,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	BannerURL    string `json:"banner_url,omitempty"`
}

// Value implements driver.Valuer
func (t ThemeSettings) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner
func (t *ThemeSettings) Scan(value any) error {
	if value == nil {
		*t = ThemeSettings{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan ThemeSettings: unsupported type")
	}

	if len(bytes) == 0 {
		*t = ThemeSettings{}
		return nil
	}

	return json.Unmarshal(bytes, t)
}

// Storefront is a tenant's public online shop. The slug is the shop's
// public address and is unique across all tenants; the claim is enforced
// through the control-plane slug registry, not the tenant database.
type Storefront struct {
	shared.TenantAggregateRoot
	Slug        string        `gorm:"type:varchar(63);not null;index" json:"slug"`
	DisplayName string        `gorm:"type:varchar(100);not null" json:"display_name"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Currency    string        `gorm:"type:varchar(3);not null;default:'NGN'" json:"currency"`
	Theme       ThemeSettings `gorm:"type:jsonb;default:'{}'" json:"theme"`
	// LocationID is the stock location orders are fulfilled from. When nil
	// the tenant's default location is used.
	LocationID  *uuid.UUID `gorm:"type:uuid" json:"location_id,omitempty"`
	Published   bool       `gorm:"not null;default:false;index" json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func (Storefront) TableName() string {
	return "storefronts"
}

// NewStorefront creates an unpublished storefront
func NewStorefront(tenantID uuid.UUID, slug, displayName string) (*Storefront, error) {
	slug, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot be empty")
	}
	if len(displayName) > 100 {
		return nil, shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 100 characters")
	}

	sf := &Storefront{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Slug:                slug,
		DisplayName:         displayName,
		Currency:            "NGN",
		Theme:               ThemeSettings{},
		Published:           false,
	}

	sf.AddDomainEvent(NewStorefrontCreatedEvent(sf))

	return sf, nil
}

// NormalizeSlug lowercases and validates a storefront slug.
// Slugs are DNS-label style: 3-63 characters, lowercase letters, digits
// and inner hyphens.
func NormalizeSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return "", shared.NewDomainError("INVALID_SLUG",
			fmt.Sprintf("Slug %q must be 3-63 lowercase letters, digits or hyphens and cannot start or end with a hyphen", slug))
	}
	return slug, nil
}

// UpdateDetails changes the display name and description
func (sf *Storefront) UpdateDetails(displayName, description string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot be empty")
	}
	if len(displayName) > 100 {
		return shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 100 characters")
	}

	sf.DisplayName = displayName
	sf.Description = description
	sf.markUpdated()

	sf.AddDomainEvent(NewStorefrontUpdatedEvent(sf))

	return nil
}

// SetTheme replaces the storefront's visual configuration
func (sf *Storefront) SetTheme(theme ThemeSettings) {
	sf.Theme = theme
	sf.markUpdated()
}

// SetFulfillmentLocation pins orders from this storefront to a stock location
func (sf *Storefront) SetFulfillmentLocation(locationID *uuid.UUID) {
	sf.LocationID = locationID
	sf.markUpdated()
}

// SetCurrency changes the display currency (ISO 4217 code)
func (sf *Storefront) SetCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO 4217 code")
	}
	sf.Currency = currency
	sf.markUpdated()
	return nil
}

// Publish makes the storefront publicly reachable under its slug
func (sf *Storefront) Publish() error {
	if sf.Published {
		return shared.NewDomainError("ALREADY_PUBLISHED", "Storefront is already published")
	}
	now := time.Now()
	sf.Published = true
	sf.PublishedAt = &now
	sf.markUpdated()

	sf.AddDomainEvent(NewStorefrontPublishedEvent(sf))

	return nil
}

// Unpublish takes the storefront offline without deleting it
func (sf *Storefront) Unpublish() error {
	if !sf.Published {
		return shared.NewDomainError("NOT_PUBLISHED", "Storefront is not published")
	}
	sf.Published = false
	sf.markUpdated()

	sf.AddDomainEvent(NewStorefrontUnpublishedEvent(sf))

	return nil
}

func (sf *Storefront) markUpdated() {
	sf.UpdatedAt = time.Now()
	sf.IncrementVersion()
}
