package channel

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
)

// MessageStatus represents the delivery state of an outbound message
type MessageStatus string

const (
	MessageStatusQueued  MessageStatus = "queued"
	MessageStatusSending MessageStatus = "sending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
	MessageStatusDead    MessageStatus = "dead"
)

func (s MessageStatus) IsValid() bool {
	switch s {
	case MessageStatusQueued, MessageStatusSending, MessageStatusSent, MessageStatusFailed, MessageStatusDead:
		return true
	}
	return false
}

func (s MessageStatus) String() string {
	return string(s)
}

// MessageKind distinguishes template sends from free-text sends
type MessageKind string

const (
	MessageKindTemplate MessageKind = "template"
	MessageKindText     MessageKind = "text"
)

// Retry configuration for the dispatcher
const (
	DefaultMaxAttempts = 5
	baseRetryBackoff   = 30 * time.Second
)

// MessageParams stores rendered template parameters as JSONB
type MessageParams []string

// Value implements driver.Valuer
func (p MessageParams) Value() (driver.Value, error) {
	if p == nil {
		p = MessageParams{}
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *MessageParams) Scan(value any) error {
	if value == nil {
		*p = MessageParams{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan MessageParams: unsupported type")
	}

	if len(bytes) == 0 {
		*p = MessageParams{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// OutboundMessage is one queued send on a channel connection. The
// dispatcher drains the queue, retries failures with exponential backoff
// and dead-letters a message once its attempts are exhausted.
type OutboundMessage struct {
	shared.TenantAggregateRoot
	ConnectionID uuid.UUID     `gorm:"type:uuid;not null;index" json:"connection_id"`
	Platform     Platform      `gorm:"type:varchar(20);not null" json:"platform"`
	Kind         MessageKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Recipient    string        `gorm:"type:varchar(64);not null" json:"recipient"`
	TemplateID   *uuid.UUID    `gorm:"type:uuid" json:"template_id,omitempty"`
	TemplateName string        `gorm:"type:varchar(512)" json:"template_name,omitempty"`
	Language     string        `gorm:"type:varchar(10)" json:"language,omitempty"`
	Params       MessageParams `gorm:"type:jsonb;default:'[]'" json:"params"`
	BodyText     string        `gorm:"type:text" json:"body_text,omitempty"`
	// SourceType and SourceID reference the document that triggered the
	// message: a sale receipt, an invoice notice, an order update.
	SourceType        string        `gorm:"type:varchar(50);index:idx_outbound_messages_source" json:"source_type,omitempty"`
	SourceID          *uuid.UUID    `gorm:"type:uuid;index:idx_outbound_messages_source" json:"source_id,omitempty"`
	Status            MessageStatus `gorm:"type:varchar(20);not null;default:'queued';index" json:"status"`
	AttemptCount      int           `gorm:"not null;default:0" json:"attempt_count"`
	MaxAttempts       int           `gorm:"not null;default:5" json:"max_attempts"`
	LastError         string        `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt     *time.Time    `gorm:"index" json:"next_attempt_at,omitempty"`
	ProviderMessageID string        `gorm:"type:varchar(128)" json:"provider_message_id,omitempty"`
	SentAt            *time.Time    `json:"sent_at,omitempty"`
}

func (OutboundMessage) TableName() string {
	return "outbound_messages"
}

// NewTemplateMessage queues a template send. The template must be
// approved, belong to the connection's platform and receive exactly as
// many parameters as it declares placeholders.
func NewTemplateMessage(conn *ChannelConnection, template *MessageTemplate, recipient string, params []string) (*OutboundMessage, error) {
	if conn == nil {
		return nil, shared.NewDomainError("INVALID_CONNECTION", "Connection cannot be nil")
	}
	if template == nil {
		return nil, shared.NewDomainError("INVALID_TEMPLATE", "Template cannot be nil")
	}
	if template.TenantID != conn.TenantID {
		return nil, shared.NewDomainError("TENANT_MISMATCH", "Template belongs to a different tenant")
	}
	if template.Platform != conn.Platform {
		return nil, shared.NewDomainError("PLATFORM_MISMATCH",
			fmt.Sprintf("Template is registered for %s, connection is %s", template.Platform, conn.Platform))
	}
	if !template.IsApproved() {
		return nil, shared.NewDomainError("TEMPLATE_NOT_APPROVED", fmt.Sprintf("Template %s is not approved", template.Name))
	}
	if len(params) != template.PlaceholderCount {
		return nil, shared.NewDomainError("PARAMETER_MISMATCH",
			fmt.Sprintf("Template %s expects %d parameters, got %d", template.Name, template.PlaceholderCount, len(params)))
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Recipient cannot be empty")
	}

	msg := &OutboundMessage{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(conn.TenantID),
		ConnectionID:        conn.ID,
		Platform:            conn.Platform,
		Kind:                MessageKindTemplate,
		Recipient:           recipient,
		TemplateID:          &template.ID,
		TemplateName:        template.Name,
		Language:            template.Language,
		Params:              params,
		Status:              MessageStatusQueued,
		MaxAttempts:         DefaultMaxAttempts,
	}

	return msg, nil
}

// NewTextMessage queues a free-text send. Free text is only deliverable
// inside an open customer service window; outside it the platform
// rejects the send and the failure surfaces on this message.
func NewTextMessage(conn *ChannelConnection, recipient, body string) (*OutboundMessage, error) {
	if conn == nil {
		return nil, shared.NewDomainError("INVALID_CONNECTION", "Connection cannot be nil")
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Recipient cannot be empty")
	}
	if strings.TrimSpace(body) == "" {
		return nil, shared.NewDomainError("INVALID_BODY", "Message body cannot be empty")
	}

	msg := &OutboundMessage{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(conn.TenantID),
		ConnectionID:        conn.ID,
		Platform:            conn.Platform,
		Kind:                MessageKindText,
		Recipient:           recipient,
		Params:              MessageParams{},
		BodyText:            body,
		Status:              MessageStatusQueued,
		MaxAttempts:         DefaultMaxAttempts,
	}

	return msg, nil
}

// WithSource tags the message with the document that triggered it
func (m *OutboundMessage) WithSource(sourceType string, sourceID uuid.UUID) *OutboundMessage {
	m.SourceType = sourceType
	m.SourceID = &sourceID
	return m
}

// IsDue reports whether the dispatcher should pick the message up
func (m *OutboundMessage) IsDue(now time.Time) bool {
	switch m.Status {
	case MessageStatusQueued:
		return true
	case MessageStatusFailed:
		return m.NextAttemptAt == nil || !m.NextAttemptAt.After(now)
	}
	return false
}

// CanRetry reports whether the message has attempts left
func (m *OutboundMessage) CanRetry() bool {
	return m.Status == MessageStatusFailed && m.AttemptCount < m.MaxAttempts
}

// IsDead reports whether the message has been dead-lettered
func (m *OutboundMessage) IsDead() bool {
	return m.Status == MessageStatusDead
}

// MarkSending claims the message for a dispatch attempt
func (m *OutboundMessage) MarkSending() error {
	if m.Status != MessageStatusQueued && m.Status != MessageStatusFailed {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send message in %s status", m.Status))
	}
	m.Status = MessageStatusSending
	m.markUpdated()
	return nil
}

// MarkSent records a successful delivery with the provider's message id
func (m *OutboundMessage) MarkSent(providerMessageID string) error {
	if m.Status != MessageStatusSending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark message in %s status as sent", m.Status))
	}
	now := time.Now()
	m.Status = MessageStatusSent
	m.ProviderMessageID = providerMessageID
	m.SentAt = &now
	m.LastError = ""
	m.NextAttemptAt = nil
	m.markUpdated()
	return nil
}

// MarkFailed records a failed attempt. Backoff doubles per attempt
// (30s, 1m, 2m, ...); once attempts are exhausted the message is
// dead-lettered and the dispatcher stops picking it up.
func (m *OutboundMessage) MarkFailed(errMsg string) error {
	if m.Status != MessageStatusSending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark message in %s status as failed", m.Status))
	}

	m.AttemptCount++
	m.LastError = errMsg

	if m.AttemptCount >= m.MaxAttempts {
		m.Status = MessageStatusDead
		m.NextAttemptAt = nil
	} else {
		m.Status = MessageStatusFailed
		backoff := baseRetryBackoff * time.Duration(1<<uint(m.AttemptCount-1))
		next := time.Now().Add(backoff)
		m.NextAttemptAt = &next
	}

	m.markUpdated()
	return nil
}

// MarkDead dead-letters the message immediately. Used for failures that
// retrying can never fix, such as an invalid recipient.
func (m *OutboundMessage) MarkDead(errMsg string) error {
	if m.Status != MessageStatusSending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot dead-letter message in %s status", m.Status))
	}
	m.AttemptCount++
	m.LastError = errMsg
	m.Status = MessageStatusDead
	m.NextAttemptAt = nil
	m.markUpdated()
	return nil
}

// ResetForRetry re-queues a dead-lettered message after the underlying
// fault (expired token, bad template) has been fixed
func (m *OutboundMessage) ResetForRetry() error {
	if m.Status != MessageStatusDead {
		return shared.NewDomainError("NOT_DEAD", "Only dead-lettered messages can be reset")
	}
	m.Status = MessageStatusQueued
	m.AttemptCount = 0
	m.LastError = ""
	m.NextAttemptAt = nil
	m.markUpdated()
	return nil
}

func (m *OutboundMessage) markUpdated() {
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
}
