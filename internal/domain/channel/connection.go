package channel

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// Platform identifies a messaging platform behind the Meta Graph API
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformInstagram Platform = "instagram"
)

func (p Platform) IsValid() bool {
	return p == PlatformWhatsApp || p == PlatformInstagram
}

func (p Platform) String() string {
	return string(p)
}

// ConnectionStatus represents the health of a channel connection
type ConnectionStatus string

const (
	ConnectionStatusConnected ConnectionStatus = "connected"
	ConnectionStatusDisabled  ConnectionStatus = "disabled"
	ConnectionStatusError     ConnectionStatus = "error"
)

func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusConnected, ConnectionStatusDisabled, ConnectionStatusError:
		return true
	}
	return false
}

func (s ConnectionStatus) String() string {
	return string(s)
}

// DefaultRateLimitPerMinute bounds outbound sends per connection when the
// tenant has not configured a limit.
const DefaultRateLimitPerMinute = 60

// ChannelConnection links a tenant to one messaging platform. A tenant
// holds at most one connection per platform. Tokens arrive already
// issued through the service API and are stored opaque.
type ChannelConnection struct {
	shared.TenantAggregateRoot
	Platform Platform `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_connections_tenant_platform,priority:2" json:"platform"`
	// WABAID is the WhatsApp Business Account id; empty for Instagram.
	WABAID string `gorm:"type:varchar(64)" json:"waba_id,omitempty"`
	// ExternalAccountID is the phone number id for WhatsApp or the IG
	// business account id for Instagram.
	ExternalAccountID  string           `gorm:"type:varchar(64);not null" json:"external_account_id"`
	AccessToken        string           `gorm:"type:text;not null" json:"-"`
	DisplayLabel       string           `gorm:"type:varchar(100)" json:"display_label,omitempty"`
	Status             ConnectionStatus `gorm:"type:varchar(20);not null;default:'connected';index" json:"status"`
	LastError          string           `gorm:"type:text" json:"last_error,omitempty"`
	RateLimitPerMinute int              `gorm:"not null;default:60" json:"rate_limit_per_minute"`
	ConnectedAt        time.Time        `gorm:"not null" json:"connected_at"`
}

func (ChannelConnection) TableName() string {
	return "channel_connections"
}

// NewWhatsAppConnection connects a tenant's WhatsApp Business Account
func NewWhatsAppConnection(tenantID uuid.UUID, wabaID, phoneNumberID, accessToken string) (*ChannelConnection, error) {
	wabaID = strings.TrimSpace(wabaID)
	phoneNumberID = strings.TrimSpace(phoneNumberID)
	if wabaID == "" {
		return nil, shared.NewDomainError("INVALID_WABA", "WhatsApp Business Account id cannot be empty")
	}
	if phoneNumberID == "" {
		return nil, shared.NewDomainError("INVALID_PHONE_NUMBER_ID", "Phone number id cannot be empty")
	}
	return newConnection(tenantID, PlatformWhatsApp, wabaID, phoneNumberID, accessToken)
}

// NewInstagramConnection connects a tenant's Instagram business account
func NewInstagramConnection(tenantID uuid.UUID, businessAccountID, accessToken string) (*ChannelConnection, error) {
	businessAccountID = strings.TrimSpace(businessAccountID)
	if businessAccountID == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_ID", "Instagram business account id cannot be empty")
	}
	return newConnection(tenantID, PlatformInstagram, "", businessAccountID, accessToken)
}

func newConnection(tenantID uuid.UUID, platform Platform, wabaID, externalAccountID, accessToken string) (*ChannelConnection, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Access token cannot be empty")
	}

	conn := &ChannelConnection{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		WABAID:              wabaID,
		ExternalAccountID:   externalAccountID,
		AccessToken:         accessToken,
		Status:              ConnectionStatusConnected,
		RateLimitPerMinute:  DefaultRateLimitPerMinute,
		ConnectedAt:         time.Now(),
	}

	conn.AddDomainEvent(NewChannelConnectedEvent(conn))

	return conn, nil
}

// CanSend reports whether messages may be dispatched on this connection
func (c *ChannelConnection) CanSend() bool {
	return c.Status == ConnectionStatusConnected
}

// UpdateToken replaces the access token, clearing a prior error state
func (c *ChannelConnection) UpdateToken(accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return shared.NewDomainError("INVALID_TOKEN", "Access token cannot be empty")
	}
	c.AccessToken = accessToken
	if c.Status == ConnectionStatusError {
		c.Status = ConnectionStatusConnected
		c.LastError = ""
	}
	c.markUpdated()
	return nil
}

// SetDisplayLabel names the connection for the tenant's staff
func (c *ChannelConnection) SetDisplayLabel(label string) error {
	if len(label) > 100 {
		return shared.NewDomainError("INVALID_LABEL", "Display label cannot exceed 100 characters")
	}
	c.DisplayLabel = label
	c.markUpdated()
	return nil
}

// SetRateLimit bounds dispatches per minute on this connection
func (c *ChannelConnection) SetRateLimit(perMinute int) error {
	if perMinute < 1 || perMinute > 1000 {
		return shared.NewDomainError("INVALID_RATE_LIMIT", "Rate limit must be between 1 and 1000 messages per minute")
	}
	c.RateLimitPerMinute = perMinute
	c.markUpdated()
	return nil
}

// Disable stops dispatching without dropping the connection
func (c *ChannelConnection) Disable() error {
	if c.Status == ConnectionStatusDisabled {
		return shared.NewDomainError("ALREADY_DISABLED", "Connection is already disabled")
	}
	c.Status = ConnectionStatusDisabled
	c.markUpdated()

	c.AddDomainEvent(NewChannelStatusChangedEvent(c))

	return nil
}

// Enable resumes dispatching on a disabled connection
func (c *ChannelConnection) Enable() error {
	if c.Status != ConnectionStatusDisabled {
		return shared.NewDomainError("NOT_DISABLED", "Only disabled connections can be enabled")
	}
	c.Status = ConnectionStatusConnected
	c.LastError = ""
	c.markUpdated()

	c.AddDomainEvent(NewChannelStatusChangedEvent(c))

	return nil
}

// RecordError moves the connection into the error state. Authentication
// failures land here so the dispatcher stops retrying a dead token.
func (c *ChannelConnection) RecordError(message string) {
	c.Status = ConnectionStatusError
	c.LastError = message
	c.markUpdated()

	c.AddDomainEvent(NewChannelStatusChangedEvent(c))
}

func (c *ChannelConnection) markUpdated() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}
