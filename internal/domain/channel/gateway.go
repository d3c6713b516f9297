package channel

import (
	"context"
	"errors"
)

// Gateway errors. Adapters map provider error codes onto these so the
// dispatcher can decide between retrying, dead-lettering and disabling
// the connection without knowing provider specifics.
var (
	// ErrGatewayAuthFailed means the access token was rejected. Retrying
	// is pointless until the tenant supplies a new token.
	ErrGatewayAuthFailed = errors.New("channel: gateway authentication failed")
	// ErrGatewayRateLimited means the provider throttled the send; retry
	// after backoff.
	ErrGatewayRateLimited = errors.New("channel: gateway rate limited")
	// ErrRecipientInvalid means the recipient cannot receive messages on
	// this platform; retrying cannot succeed.
	ErrRecipientInvalid = errors.New("channel: recipient invalid")
	// ErrTemplateRejected means the provider does not accept the
	// template (unknown name, unapproved or paused).
	ErrTemplateRejected = errors.New("channel: template rejected by provider")
	// ErrMessageRejected means the provider refused the message content,
	// for example free text outside the customer service window.
	ErrMessageRejected = errors.New("channel: message rejected by provider")
	// ErrGatewayUnavailable means a transport or server fault; retry
	// after backoff.
	ErrGatewayUnavailable = errors.New("channel: gateway unavailable")
)

// IsPermanentSendError reports whether retrying the send can ever
// succeed without operator intervention
func IsPermanentSendError(err error) bool {
	return errors.Is(err, ErrRecipientInvalid) ||
		errors.Is(err, ErrTemplateRejected) ||
		errors.Is(err, ErrMessageRejected)
}

// SendResult carries the provider's identifiers for a delivered message
type SendResult struct {
	ProviderMessageID string
}

// Gateway is the port for one messaging platform. Implementations live
// in the infrastructure layer and talk to the Meta Graph API.
type Gateway interface {
	// Platform returns the platform this gateway serves
	Platform() Platform

	// SendTemplate delivers an approved template message with its
	// parameters substituted by the provider
	SendTemplate(ctx context.Context, conn *ChannelConnection, msg *OutboundMessage) (*SendResult, error)

	// SendText delivers a free-text message inside an open customer
	// service window
	SendText(ctx context.Context, conn *ChannelConnection, msg *OutboundMessage) (*SendResult, error)
}

// GatewayRegistry resolves the gateway for a platform
type GatewayRegistry interface {
	// GatewayFor returns the gateway serving the platform
	GatewayFor(platform Platform) (Gateway, error)

	// Platforms lists the platforms with a registered gateway
	Platforms() []Platform
}
