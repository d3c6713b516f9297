package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/shared"
)

func newDispatcher() (*Dispatcher, *MockOutboundMessageRepository, *MockConnectionRepository, *MockGatewayRegistry, *MockRateLimiter) {
	messageRepo := new(MockOutboundMessageRepository)
	connectionRepo := new(MockConnectionRepository)
	gateways := new(MockGatewayRegistry)
	limiter := new(MockRateLimiter)
	dispatcher := NewDispatcher(messageRepo, connectionRepo, gateways, limiter, zap.NewNop())
	return dispatcher, messageRepo, connectionRepo, gateways, limiter
}

func queuedTemplateMessage(t *testing.T, conn *channel.ChannelConnection) *channel.OutboundMessage {
	t.Helper()
	tpl := createApprovedTemplate(t, conn.TenantID, "sale_receipt", "Receipt {{1}} totals {{2}}")
	msg, err := channel.NewTemplateMessage(conn, tpl, "+2348012345678", []string{"SAL-202608-0042", "15000.00"})
	require.NoError(t, err)
	return msg
}

func TestDispatcher_DispatchDue(t *testing.T) {
	tenantID := newTestTenantID()
	ctx := newTestContext(tenantID)
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	t.Run("delivers a due template message", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, gateways, limiter := newDispatcher()

		conn := createWhatsAppConnection(t, tenantID)
		msg := queuedTemplateMessage(t, conn)
		gateway := &MockGateway{platform: channel.PlatformWhatsApp}

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{*msg}, nil)
		connectionRepo.On("FindByID", ctx, conn.ID).Return(conn, nil)
		limiter.On("Allow", ctx, conn.ID, channel.DefaultRateLimitPerMinute).Return(true, nil)
		gateways.On("GatewayFor", channel.PlatformWhatsApp).Return(gateway, nil)
		gateway.On("SendTemplate", ctx, conn, mock.AnythingOfType("*channel.OutboundMessage")).
			Return(&channel.SendResult{ProviderMessageID: "wamid.123"}, nil)
		messageRepo.On("Save", ctx, mock.MatchedBy(func(m *channel.OutboundMessage) bool {
			return m.Status == channel.MessageStatusSending
		})).Return(nil).Once()
		messageRepo.On("Save", ctx, mock.MatchedBy(func(m *channel.OutboundMessage) bool {
			return m.Status == channel.MessageStatusSent && m.ProviderMessageID == "wamid.123"
		})).Return(nil).Once()

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		messageRepo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("skips messages past the rate limit", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, gateways, limiter := newDispatcher()

		conn := createWhatsAppConnection(t, tenantID)
		msg := queuedTemplateMessage(t, conn)

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{*msg}, nil)
		connectionRepo.On("FindByID", ctx, conn.ID).Return(conn, nil)
		limiter.On("Allow", ctx, conn.ID, channel.DefaultRateLimitPerMinute).Return(false, nil)

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Zero(t, sent)
		gateways.AssertNotCalled(t, "GatewayFor")
		messageRepo.AssertNotCalled(t, "Save")
	})

	t.Run("skips connections that cannot send", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, _, limiter := newDispatcher()

		conn := createWhatsAppConnection(t, tenantID)
		msg := queuedTemplateMessage(t, conn)
		require.NoError(t, conn.Disable())
		conn.ClearDomainEvents()

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{*msg}, nil)
		connectionRepo.On("FindByID", ctx, conn.ID).Return(conn, nil)

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Zero(t, sent)
		limiter.AssertNotCalled(t, "Allow")
	})

	t.Run("auth failure parks the connection", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, gateways, limiter := newDispatcher()

		conn := createWhatsAppConnection(t, tenantID)
		msg := queuedTemplateMessage(t, conn)
		gateway := &MockGateway{platform: channel.PlatformWhatsApp}

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{*msg}, nil)
		connectionRepo.On("FindByID", ctx, conn.ID).Return(conn, nil)
		limiter.On("Allow", ctx, conn.ID, channel.DefaultRateLimitPerMinute).Return(true, nil)
		gateways.On("GatewayFor", channel.PlatformWhatsApp).Return(gateway, nil)
		gateway.On("SendTemplate", ctx, conn, mock.AnythingOfType("*channel.OutboundMessage")).
			Return(nil, channel.ErrGatewayAuthFailed)
		connectionRepo.On("Save", ctx, conn).Return(nil)
		messageRepo.On("Save", ctx, mock.AnythingOfType("*channel.OutboundMessage")).Return(nil)

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Equal(t, channel.ConnectionStatusError, conn.Status)
		assert.False(t, conn.CanSend())
		connectionRepo.AssertExpectations(t)
	})

	t.Run("permanent error dead-letters without retries", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, gateways, limiter := newDispatcher()

		conn := createWhatsAppConnection(t, tenantID)
		msg := queuedTemplateMessage(t, conn)
		gateway := &MockGateway{platform: channel.PlatformWhatsApp}

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{*msg}, nil)
		connectionRepo.On("FindByID", ctx, conn.ID).Return(conn, nil)
		limiter.On("Allow", ctx, conn.ID, channel.DefaultRateLimitPerMinute).Return(true, nil)
		gateways.On("GatewayFor", channel.PlatformWhatsApp).Return(gateway, nil)
		gateway.On("SendTemplate", ctx, conn, mock.AnythingOfType("*channel.OutboundMessage")).
			Return(nil, channel.ErrRecipientInvalid)

		var saved *channel.OutboundMessage
		messageRepo.On("Save", ctx, mock.MatchedBy(func(m *channel.OutboundMessage) bool {
			saved = m
			return true
		})).Return(nil)

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Zero(t, sent)
		require.NotNil(t, saved)
		assert.Equal(t, channel.MessageStatusDead, saved.Status)
		assert.Equal(t, 1, saved.AttemptCount)
		assert.Nil(t, saved.NextAttemptAt)
	})

	t.Run("transient error schedules a retry", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, gateways, limiter := newDispatcher()

		conn := createWhatsAppConnection(t, tenantID)
		msg := queuedTemplateMessage(t, conn)
		gateway := &MockGateway{platform: channel.PlatformWhatsApp}

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{*msg}, nil)
		connectionRepo.On("FindByID", ctx, conn.ID).Return(conn, nil)
		limiter.On("Allow", ctx, conn.ID, channel.DefaultRateLimitPerMinute).Return(true, nil)
		gateways.On("GatewayFor", channel.PlatformWhatsApp).Return(gateway, nil)
		gateway.On("SendTemplate", ctx, conn, mock.AnythingOfType("*channel.OutboundMessage")).
			Return(nil, channel.ErrGatewayUnavailable)

		var saved *channel.OutboundMessage
		messageRepo.On("Save", ctx, mock.MatchedBy(func(m *channel.OutboundMessage) bool {
			saved = m
			return true
		})).Return(nil)

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Zero(t, sent)
		require.NotNil(t, saved)
		assert.Equal(t, channel.MessageStatusFailed, saved.Status)
		assert.Equal(t, 1, saved.AttemptCount)
		require.NotNil(t, saved.NextAttemptAt)
		assert.True(t, saved.NextAttemptAt.After(time.Now()))
	})

	t.Run("dead-letters messages on a vanished connection", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, gateways, _ := newDispatcher()

		conn := createWhatsAppConnection(t, tenantID)
		msg := queuedTemplateMessage(t, conn)

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{*msg}, nil)
		connectionRepo.On("FindByID", ctx, conn.ID).Return(nil, shared.ErrNotFound)

		var saved *channel.OutboundMessage
		messageRepo.On("Save", ctx, mock.MatchedBy(func(m *channel.OutboundMessage) bool {
			saved = m
			return true
		})).Return(nil)

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Zero(t, sent)
		require.NotNil(t, saved)
		assert.Equal(t, channel.MessageStatusDead, saved.Status)
		gateways.AssertNotCalled(t, "GatewayFor")
	})

	t.Run("empty queue is a no-op", func(t *testing.T) {
		dispatcher, messageRepo, connectionRepo, _, _ := newDispatcher()

		messageRepo.On("FindDue", ctx, now, 50).Return([]channel.OutboundMessage{}, nil)

		sent, err := dispatcher.DispatchDue(ctx, now, 50)

		require.NoError(t, err)
		assert.Zero(t, sent)
		connectionRepo.AssertNotCalled(t, "FindByID")
	})
}
