package channel

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// ConnectionService manages a tenant's messaging platform connections.
// One connection per platform; the dispatcher only sends on connections
// in the connected state.
type ConnectionService struct {
	connectionRepo channel.ConnectionRepository
	eventPublisher shared.EventPublisher
}

// NewConnectionService creates a new ConnectionService
func NewConnectionService(connectionRepo channel.ConnectionRepository) *ConnectionService {
	return &ConnectionService{connectionRepo: connectionRepo}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ConnectionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ConnectWhatsApp links the tenant's WhatsApp Business Account
func (s *ConnectionService) ConnectWhatsApp(ctx context.Context, req ConnectWhatsAppRequest) (*ConnectionResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNotConnected(ctx, channel.PlatformWhatsApp); err != nil {
		return nil, err
	}

	conn, err := channel.NewWhatsAppConnection(tenantID, req.WABAID, req.PhoneNumberID, req.AccessToken)
	if err != nil {
		return nil, err
	}
	return s.saveNew(ctx, conn, req.DisplayLabel)
}

// ConnectInstagram links the tenant's Instagram business account
func (s *ConnectionService) ConnectInstagram(ctx context.Context, req ConnectInstagramRequest) (*ConnectionResponse, error) {
	tenantID, err := tenantdb.TenantIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNotConnected(ctx, channel.PlatformInstagram); err != nil {
		return nil, err
	}

	conn, err := channel.NewInstagramConnection(tenantID, req.BusinessAccountID, req.AccessToken)
	if err != nil {
		return nil, err
	}
	return s.saveNew(ctx, conn, req.DisplayLabel)
}

func (s *ConnectionService) ensureNotConnected(ctx context.Context, platform channel.Platform) error {
	exists, err := s.connectionRepo.ExistsByPlatform(ctx, platform)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_CONNECTED", fmt.Sprintf("A %s connection already exists", platform))
	}
	return nil
}

func (s *ConnectionService) saveNew(ctx context.Context, conn *channel.ChannelConnection, label string) (*ConnectionResponse, error) {
	if label != "" {
		if err := conn.SetDisplayLabel(label); err != nil {
			return nil, err
		}
	}
	if err := s.connectionRepo.Save(ctx, conn); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, conn); err != nil {
		return nil, err
	}
	response := ToConnectionResponse(conn)
	return &response, nil
}

// UpdateToken replaces a connection's access token, clearing a prior
// error state so the dispatcher resumes
func (s *ConnectionService) UpdateToken(ctx context.Context, connectionID uuid.UUID, accessToken string) (*ConnectionResponse, error) {
	return s.modify(ctx, connectionID, func(c *channel.ChannelConnection) error {
		return c.UpdateToken(accessToken)
	})
}

// SetRateLimit bounds dispatches per minute on a connection
func (s *ConnectionService) SetRateLimit(ctx context.Context, connectionID uuid.UUID, perMinute int) (*ConnectionResponse, error) {
	return s.modify(ctx, connectionID, func(c *channel.ChannelConnection) error {
		return c.SetRateLimit(perMinute)
	})
}

// Disable stops dispatching on a connection without dropping it
func (s *ConnectionService) Disable(ctx context.Context, connectionID uuid.UUID) (*ConnectionResponse, error) {
	return s.modify(ctx, connectionID, (*channel.ChannelConnection).Disable)
}

// Enable resumes dispatching on a disabled connection
func (s *ConnectionService) Enable(ctx context.Context, connectionID uuid.UUID) (*ConnectionResponse, error) {
	return s.modify(ctx, connectionID, (*channel.ChannelConnection).Enable)
}

func (s *ConnectionService) modify(ctx context.Context, connectionID uuid.UUID, op func(*channel.ChannelConnection) error) (*ConnectionResponse, error) {
	conn, err := s.connectionRepo.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if err := op(conn); err != nil {
		return nil, err
	}
	if err := s.connectionRepo.Save(ctx, conn); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, conn); err != nil {
		return nil, err
	}
	response := ToConnectionResponse(conn)
	return &response, nil
}

// Disconnect removes a connection entirely. Queued messages on it will
// dead-letter as the dispatcher finds the connection gone.
func (s *ConnectionService) Disconnect(ctx context.Context, connectionID uuid.UUID) error {
	if _, err := s.connectionRepo.FindByID(ctx, connectionID); err != nil {
		return err
	}
	return s.connectionRepo.Delete(ctx, connectionID)
}

// Get retrieves a connection by ID
func (s *ConnectionService) Get(ctx context.Context, connectionID uuid.UUID) (*ConnectionResponse, error) {
	conn, err := s.connectionRepo.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	response := ToConnectionResponse(conn)
	return &response, nil
}

// List retrieves the tenant's connections
func (s *ConnectionService) List(ctx context.Context) ([]ConnectionResponse, error) {
	conns, err := s.connectionRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ToConnectionResponses(conns), nil
}

func (s *ConnectionService) publish(ctx context.Context, conn *channel.ChannelConnection) error {
	if s.eventPublisher == nil {
		conn.ClearDomainEvents()
		return nil
	}
	if err := s.eventPublisher.Publish(ctx, conn.GetDomainEvents()...); err != nil {
		return err
	}
	conn.ClearDomainEvents()
	return nil
}
