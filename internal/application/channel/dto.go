package channel

import (
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/channel"
)

// ConnectWhatsAppRequest links a tenant's WhatsApp Business Account.
// The token arrives already issued; exchanging OAuth codes is not this
// service's job.
type ConnectWhatsAppRequest struct {
	WABAID        string `json:"waba_id"`
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	DisplayLabel  string `json:"display_label,omitempty"`
}

// ConnectInstagramRequest links a tenant's Instagram business account
type ConnectInstagramRequest struct {
	BusinessAccountID string `json:"business_account_id"`
	AccessToken       string `json:"access_token"`
	DisplayLabel      string `json:"display_label,omitempty"`
}

// RegisterTemplateRequest registers a message template pending approval
type RegisterTemplateRequest struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// QueueTemplateMessageRequest queues a template send
type QueueTemplateMessageRequest struct {
	Platform   string     `json:"platform"`
	Template   string     `json:"template"`
	Language   string     `json:"language"`
	Recipient  string     `json:"recipient"`
	Params     []string   `json:"params,omitempty"`
	SourceType string     `json:"source_type,omitempty"`
	SourceID   *uuid.UUID `json:"source_id,omitempty"`
}

// QueueTextMessageRequest queues a free-text send
type QueueTextMessageRequest struct {
	Platform   string     `json:"platform"`
	Recipient  string     `json:"recipient"`
	Body       string     `json:"body"`
	SourceType string     `json:"source_type,omitempty"`
	SourceID   *uuid.UUID `json:"source_id,omitempty"`
}

// ConnectionResponse represents a channel connection in API responses.
// The access token never leaves the service.
type ConnectionResponse struct {
	ID                 uuid.UUID `json:"id"`
	TenantID           uuid.UUID `json:"tenant_id"`
	Platform           string    `json:"platform"`
	WABAID             string    `json:"waba_id,omitempty"`
	ExternalAccountID  string    `json:"external_account_id"`
	DisplayLabel       string    `json:"display_label,omitempty"`
	Status             string    `json:"status"`
	LastError          string    `json:"last_error,omitempty"`
	RateLimitPerMinute int       `json:"rate_limit_per_minute"`
	ConnectedAt        time.Time `json:"connected_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TemplateResponse represents a message template in API responses
type TemplateResponse struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	Platform         string    `json:"platform"`
	Name             string    `json:"name"`
	Language         string    `json:"language"`
	Body             string    `json:"body"`
	Category         string    `json:"category"`
	PlaceholderCount int       `json:"placeholder_count"`
	ApprovalStatus   string    `json:"approval_status"`
	RejectionReason  string    `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MessageResponse represents an outbound message in API responses
type MessageResponse struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	ConnectionID      uuid.UUID  `json:"connection_id"`
	Platform          string     `json:"platform"`
	Kind              string     `json:"kind"`
	Recipient         string     `json:"recipient"`
	TemplateName      string     `json:"template_name,omitempty"`
	Language          string     `json:"language,omitempty"`
	Params            []string   `json:"params,omitempty"`
	BodyText          string     `json:"body_text,omitempty"`
	SourceType        string     `json:"source_type,omitempty"`
	SourceID          *uuid.UUID `json:"source_id,omitempty"`
	Status            string     `json:"status"`
	AttemptCount      int        `json:"attempt_count"`
	MaxAttempts       int        `json:"max_attempts"`
	LastError         string     `json:"last_error,omitempty"`
	NextAttemptAt     *time.Time `json:"next_attempt_at,omitempty"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// QueueStatsResponse summarizes the outbound queue by status
type QueueStatsResponse struct {
	Queued  int64 `json:"queued"`
	Sending int64 `json:"sending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dead    int64 `json:"dead"`
}

// TemplateListFilter represents filtering options for template lists
type TemplateListFilter struct {
	Platform string `json:"platform,omitempty"`
	Status   string `json:"status,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// ToConnectionResponse converts a domain connection to a response DTO
func ToConnectionResponse(conn *channel.ChannelConnection) ConnectionResponse {
	return ConnectionResponse{
		ID:                 conn.ID,
		TenantID:           conn.TenantID,
		Platform:           conn.Platform.String(),
		WABAID:             conn.WABAID,
		ExternalAccountID:  conn.ExternalAccountID,
		DisplayLabel:       conn.DisplayLabel,
		Status:             conn.Status.String(),
		LastError:          conn.LastError,
		RateLimitPerMinute: conn.RateLimitPerMinute,
		ConnectedAt:        conn.ConnectedAt,
		UpdatedAt:          conn.UpdatedAt,
	}
}

// ToConnectionResponses converts domain connections to response DTOs
func ToConnectionResponses(conns []channel.ChannelConnection) []ConnectionResponse {
	responses := make([]ConnectionResponse, len(conns))
	for i := range conns {
		responses[i] = ToConnectionResponse(&conns[i])
	}
	return responses
}

// ToTemplateResponse converts a domain template to a response DTO
func ToTemplateResponse(tpl *channel.MessageTemplate) TemplateResponse {
	return TemplateResponse{
		ID:               tpl.ID,
		TenantID:         tpl.TenantID,
		Platform:         tpl.Platform.String(),
		Name:             tpl.Name,
		Language:         tpl.Language,
		Body:             tpl.Body,
		Category:         string(tpl.Category),
		PlaceholderCount: tpl.PlaceholderCount,
		ApprovalStatus:   tpl.ApprovalStatus.String(),
		RejectionReason:  tpl.RejectionReason,
		CreatedAt:        tpl.CreatedAt,
		UpdatedAt:        tpl.UpdatedAt,
	}
}

// ToTemplateResponses converts domain templates to response DTOs
func ToTemplateResponses(templates []channel.MessageTemplate) []TemplateResponse {
	responses := make([]TemplateResponse, len(templates))
	for i := range templates {
		responses[i] = ToTemplateResponse(&templates[i])
	}
	return responses
}

// ToMessageResponse converts a domain outbound message to a response DTO
func ToMessageResponse(msg *channel.OutboundMessage) MessageResponse {
	return MessageResponse{
		ID:                msg.ID,
		TenantID:          msg.TenantID,
		ConnectionID:      msg.ConnectionID,
		Platform:          msg.Platform.String(),
		Kind:              string(msg.Kind),
		Recipient:         msg.Recipient,
		TemplateName:      msg.TemplateName,
		Language:          msg.Language,
		Params:            msg.Params,
		BodyText:          msg.BodyText,
		SourceType:        msg.SourceType,
		SourceID:          msg.SourceID,
		Status:            msg.Status.String(),
		AttemptCount:      msg.AttemptCount,
		MaxAttempts:       msg.MaxAttempts,
		LastError:         msg.LastError,
		NextAttemptAt:     msg.NextAttemptAt,
		ProviderMessageID: msg.ProviderMessageID,
		SentAt:            msg.SentAt,
		CreatedAt:         msg.CreatedAt,
	}
}

// ToMessageResponses converts domain outbound messages to response DTOs
func ToMessageResponses(messages []channel.OutboundMessage) []MessageResponse {
	responses := make([]MessageResponse, len(messages))
	for i := range messages {
		responses[i] = ToMessageResponse(&messages[i])
	}
	return responses
}
