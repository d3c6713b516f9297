package channel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/shared"
)

// RateLimiter bounds dispatches per connection. Allow reports whether
// one more send fits inside the connection's per-minute budget.
type RateLimiter interface {
	Allow(ctx context.Context, connectionID uuid.UUID, perMinute int) (bool, error)
}

// Dispatcher drains the outbound message queue through the platform
// gateways. It runs in the worker, one batch per tick.
type Dispatcher struct {
	messageRepo    channel.OutboundMessageRepository
	connectionRepo channel.ConnectionRepository
	gateways       channel.GatewayRegistry
	limiter        RateLimiter
	logger         *zap.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	messageRepo channel.OutboundMessageRepository,
	connectionRepo channel.ConnectionRepository,
	gateways channel.GatewayRegistry,
	limiter RateLimiter,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		messageRepo:    messageRepo,
		connectionRepo: connectionRepo,
		gateways:       gateways,
		limiter:        limiter,
		logger:         logger,
	}
}

// DispatchDue sends up to batchSize due messages and returns how many
// were delivered. Per-message failures are recorded on the message and
// do not abort the batch.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time, batchSize int) (int, error) {
	messages, err := d.messageRepo.FindDue(ctx, now, batchSize)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	// Connections repeat across a batch; load each once.
	connections := make(map[uuid.UUID]*channel.ChannelConnection)
	sent := 0

	for i := range messages {
		msg := &messages[i]

		conn, ok := connections[msg.ConnectionID]
		if !ok {
			conn, err = d.connectionRepo.FindByID(ctx, msg.ConnectionID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					d.deadLetter(ctx, msg, "connection no longer exists")
					continue
				}
				return sent, err
			}
			connections[msg.ConnectionID] = conn
		}

		if !conn.CanSend() {
			continue
		}

		allowed, err := d.limiter.Allow(ctx, conn.ID, conn.RateLimitPerMinute)
		if err != nil {
			return sent, err
		}
		if !allowed {
			// Budget exhausted for this minute; leave the rest of this
			// connection's messages queued for the next tick.
			continue
		}

		delivered, err := d.dispatchOne(ctx, conn, msg)
		if err != nil {
			return sent, err
		}
		if delivered {
			sent++
		}
	}

	return sent, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, conn *channel.ChannelConnection, msg *channel.OutboundMessage) (bool, error) {
	gateway, err := d.gateways.GatewayFor(msg.Platform)
	if err != nil {
		d.deadLetter(ctx, msg, err.Error())
		return false, nil
	}

	if err := msg.MarkSending(); err != nil {
		return false, err
	}
	if err := d.messageRepo.Save(ctx, msg); err != nil {
		return false, err
	}

	result, sendErr := d.send(ctx, gateway, conn, msg)
	if sendErr == nil {
		if err := msg.MarkSent(result.ProviderMessageID); err != nil {
			return false, err
		}
		if err := d.messageRepo.Save(ctx, msg); err != nil {
			return false, err
		}
		d.logger.Info("Outbound message sent",
			zap.String("message_id", msg.ID.String()),
			zap.String("platform", msg.Platform.String()),
			zap.String("provider_message_id", result.ProviderMessageID))
		return true, nil
	}

	return false, d.handleSendError(ctx, conn, msg, sendErr)
}

func (d *Dispatcher) send(ctx context.Context, gateway channel.Gateway, conn *channel.ChannelConnection, msg *channel.OutboundMessage) (*channel.SendResult, error) {
	if msg.Kind == channel.MessageKindTemplate {
		return gateway.SendTemplate(ctx, conn, msg)
	}
	return gateway.SendText(ctx, conn, msg)
}

func (d *Dispatcher) handleSendError(ctx context.Context, conn *channel.ChannelConnection, msg *channel.OutboundMessage, sendErr error) error {
	switch {
	case errors.Is(sendErr, channel.ErrGatewayAuthFailed):
		// A dead token fails every message on the connection; park the
		// connection so the dispatcher stops burning attempts.
		conn.RecordError(sendErr.Error())
		if err := d.connectionRepo.Save(ctx, conn); err != nil {
			return err
		}
		conn.ClearDomainEvents()
		d.logger.Warn("Connection disabled after authentication failure",
			zap.String("connection_id", conn.ID.String()),
			zap.String("platform", conn.Platform.String()))
		if err := msg.MarkFailed(sendErr.Error()); err != nil {
			return err
		}

	case channel.IsPermanentSendError(sendErr):
		if err := msg.MarkDead(sendErr.Error()); err != nil {
			return err
		}
		d.logger.Warn("Outbound message dead-lettered",
			zap.String("message_id", msg.ID.String()),
			zap.String("recipient", msg.Recipient),
			zap.Error(sendErr))

	default:
		if err := msg.MarkFailed(sendErr.Error()); err != nil {
			return err
		}
		d.logger.Warn("Outbound message send failed",
			zap.String("message_id", msg.ID.String()),
			zap.Int("attempt", msg.AttemptCount),
			zap.Error(sendErr))
	}

	return d.messageRepo.Save(ctx, msg)
}

func (d *Dispatcher) deadLetter(ctx context.Context, msg *channel.OutboundMessage, reason string) {
	if err := msg.MarkSending(); err != nil {
		d.logger.Error("Failed to claim message for dead-lettering",
			zap.String("message_id", msg.ID.String()), zap.Error(err))
		return
	}
	if err := msg.MarkDead(reason); err != nil {
		d.logger.Error("Failed to dead-letter message",
			zap.String("message_id", msg.ID.String()), zap.Error(err))
		return
	}
	if err := d.messageRepo.Save(ctx, msg); err != nil {
		d.logger.Error("Failed to save dead-lettered message",
			zap.String("message_id", msg.ID.String()), zap.Error(err))
	}
}
