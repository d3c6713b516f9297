package channel

import (
	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// ChannelConnectedEvent is raised when a platform connection is established
type ChannelConnectedEvent struct {
	shared.BaseDomainEvent
	ConnectionID      uuid.UUID `json:"connection_id"`
	Platform          Platform  `json:"platform"`
	ExternalAccountID string    `json:"external_account_id"`
}

// NewChannelConnectedEvent creates a new ChannelConnectedEvent
func NewChannelConnectedEvent(c *ChannelConnection) *ChannelConnectedEvent {
	return &ChannelConnectedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("ChannelConnected", "ChannelConnection", c.ID, c.TenantID),
		ConnectionID:      c.ID,
		Platform:          c.Platform,
		ExternalAccountID: c.ExternalAccountID,
	}
}

// ChannelStatusChangedEvent is raised when a connection is disabled,
// re-enabled or drops into the error state
type ChannelStatusChangedEvent struct {
	shared.BaseDomainEvent
	ConnectionID uuid.UUID        `json:"connection_id"`
	Platform     Platform         `json:"platform"`
	Status       ConnectionStatus `json:"status"`
	LastError    string           `json:"last_error,omitempty"`
}

// NewChannelStatusChangedEvent creates a new ChannelStatusChangedEvent
func NewChannelStatusChangedEvent(c *ChannelConnection) *ChannelStatusChangedEvent {
	return &ChannelStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ChannelStatusChanged", "ChannelConnection", c.ID, c.TenantID),
		ConnectionID:    c.ID,
		Platform:        c.Platform,
		Status:          c.Status,
		LastError:       c.LastError,
	}
}
