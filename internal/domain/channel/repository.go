package channel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// ConnectionRepository defines the persistence interface for channel connections
type ConnectionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ChannelConnection, error)
	FindByPlatform(ctx context.Context, platform Platform) (*ChannelConnection, error)
	FindAll(ctx context.Context) ([]ChannelConnection, error)
	Save(ctx context.Context, conn *ChannelConnection) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByPlatform(ctx context.Context, platform Platform) (bool, error)
}

// TemplateRepository defines the persistence interface for message templates
type TemplateRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MessageTemplate, error)
	FindByKey(ctx context.Context, platform Platform, name, language string) (*MessageTemplate, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]MessageTemplate, error)
	FindApproved(ctx context.Context, platform Platform) ([]MessageTemplate, error)
	Save(ctx context.Context, template *MessageTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// OutboundMessageRepository defines the persistence interface for the
// outbound message queue
type OutboundMessageRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OutboundMessage, error)

	// FindDue returns queued messages plus failed messages whose backoff
	// has elapsed, oldest first, up to limit. The dispatcher drains these.
	FindDue(ctx context.Context, now time.Time, limit int) ([]OutboundMessage, error)

	// FindDead returns dead-lettered messages with pagination
	FindDead(ctx context.Context, filter shared.Filter) ([]OutboundMessage, int64, error)

	FindByRecipient(ctx context.Context, recipient string, filter shared.Filter) ([]OutboundMessage, error)
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]OutboundMessage, error)

	Save(ctx context.Context, msg *OutboundMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[MessageStatus]int64, error)

	// DeleteSentOlderThan prunes delivered messages past the retention window
	DeleteSentOlderThan(ctx context.Context, before time.Time) (int64, error)
}
