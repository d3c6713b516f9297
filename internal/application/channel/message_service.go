package channel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/shared"
)

// MessageService queues outbound messages and manages the dead-letter
// queue. Actual delivery happens in the dispatcher.
type MessageService struct {
	connectionRepo channel.ConnectionRepository
	templateRepo   channel.TemplateRepository
	messageRepo    channel.OutboundMessageRepository
}

// NewMessageService creates a new MessageService
func NewMessageService(
	connectionRepo channel.ConnectionRepository,
	templateRepo channel.TemplateRepository,
	messageRepo channel.OutboundMessageRepository,
) *MessageService {
	return &MessageService{
		connectionRepo: connectionRepo,
		templateRepo:   templateRepo,
		messageRepo:    messageRepo,
	}
}

// QueueTemplate queues an approved template message for dispatch
func (s *MessageService) QueueTemplate(ctx context.Context, req QueueTemplateMessageRequest) (*MessageResponse, error) {
	platform := channel.Platform(req.Platform)
	conn, err := s.connectionForPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}

	tpl, err := s.templateRepo.FindByKey(ctx, platform, req.Template, req.Language)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TEMPLATE_NOT_FOUND", "Template is not registered")
		}
		return nil, err
	}

	msg, err := channel.NewTemplateMessage(conn, tpl, req.Recipient, req.Params)
	if err != nil {
		return nil, err
	}
	if req.SourceType != "" && req.SourceID != nil {
		msg.WithSource(req.SourceType, *req.SourceID)
	}

	if err := s.messageRepo.Save(ctx, msg); err != nil {
		return nil, err
	}

	response := ToMessageResponse(msg)
	return &response, nil
}

// QueueText queues a free-text message. Delivery only succeeds inside an
// open customer service window; otherwise the platform rejects it and
// the failure lands on the message.
func (s *MessageService) QueueText(ctx context.Context, req QueueTextMessageRequest) (*MessageResponse, error) {
	conn, err := s.connectionForPlatform(ctx, channel.Platform(req.Platform))
	if err != nil {
		return nil, err
	}

	msg, err := channel.NewTextMessage(conn, req.Recipient, req.Body)
	if err != nil {
		return nil, err
	}
	if req.SourceType != "" && req.SourceID != nil {
		msg.WithSource(req.SourceType, *req.SourceID)
	}

	if err := s.messageRepo.Save(ctx, msg); err != nil {
		return nil, err
	}

	response := ToMessageResponse(msg)
	return &response, nil
}

func (s *MessageService) connectionForPlatform(ctx context.Context, platform channel.Platform) (*channel.ChannelConnection, error) {
	if !platform.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLATFORM", "Unknown messaging platform")
	}
	conn, err := s.connectionRepo.FindByPlatform(ctx, platform)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_CONNECTED", "Tenant has no connection for this platform")
		}
		return nil, err
	}
	return conn, nil
}

// Get retrieves an outbound message by ID
func (s *MessageService) Get(ctx context.Context, messageID uuid.UUID) (*MessageResponse, error) {
	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	response := ToMessageResponse(msg)
	return &response, nil
}

// BySource retrieves the messages triggered by a document
func (s *MessageService) BySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]MessageResponse, error) {
	messages, err := s.messageRepo.FindBySource(ctx, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	return ToMessageResponses(messages), nil
}

// DeadLetters retrieves dead-lettered messages with pagination
func (s *MessageService) DeadLetters(ctx context.Context, page, pageSize int) ([]MessageResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	messages, total, err := s.messageRepo.FindDead(ctx, shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  "updated_at",
		OrderDir: "desc",
	})
	if err != nil {
		return nil, 0, err
	}
	return ToMessageResponses(messages), total, nil
}

// Retry re-queues a dead-lettered message after the underlying fault has
// been fixed
func (s *MessageService) Retry(ctx context.Context, messageID uuid.UUID) (*MessageResponse, error) {
	msg, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := msg.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.messageRepo.Save(ctx, msg); err != nil {
		return nil, err
	}
	response := ToMessageResponse(msg)
	return &response, nil
}

// QueueStats summarizes the outbound queue by status
func (s *MessageService) QueueStats(ctx context.Context) (*QueueStatsResponse, error) {
	counts, err := s.messageRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &QueueStatsResponse{
		Queued:  counts[channel.MessageStatusQueued],
		Sending: counts[channel.MessageStatusSending],
		Sent:    counts[channel.MessageStatusSent],
		Failed:  counts[channel.MessageStatusFailed],
		Dead:    counts[channel.MessageStatusDead],
	}, nil
}

// PruneSent deletes delivered messages older than the retention window.
// The worker runs this alongside the other sweeps.
func (s *MessageService) PruneSent(ctx context.Context, before time.Time) (int64, error) {
	return s.messageRepo.DeleteSentOlderThan(ctx, before)
}
