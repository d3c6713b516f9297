package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/infrastructure/config"
)

// Graph API error codes this adapter maps onto the gateway sentinels.
// https://developers.facebook.com/docs/whatsapp/cloud-api/support/error-codes
const (
	graphCodeAuthFailed          = 190
	graphCodeTooManyCalls        = 4
	graphCodeRateLimitHit        = 80007
	graphCodeThroughputReached   = 130429
	graphCodeUndeliverable       = 131026
	graphCodeRecipientNotAllowed = 131030
	graphCodeParamCountMismatch  = 132000
	graphCodeTemplateNotFound    = 132001
	graphCodeParamFormatInvalid  = 132012
	graphCodeTemplatePaused      = 132015
	graphCodeTemplateDisabled    = 132016
	graphCodeReengagementWindow  = 131047
	graphCodeUnsupportedMessage  = 131051
)

type graphErrorBody struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// graphClient carries the HTTP plumbing shared by the WhatsApp and
// Instagram gateways
type graphClient struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

func newGraphClient(cfg config.ChannelConfig) *graphClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &graphClient{
		baseURL:    cfg.GraphBaseURL,
		version:    cfg.GraphVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// post sends a JSON payload to {base}/{version}/{accountID}/messages with
// the connection's bearer token and decodes the response into out.
func (c *graphClient) post(ctx context.Context, accountID, accessToken string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("graph: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graph: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", channel.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", channel.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return mapGraphError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("graph: decode response: %w", err)
	}
	return nil
}

// mapGraphError translates a Graph API error response onto the gateway
// sentinels so the dispatcher can choose between retry, dead-letter and
// parking the connection
func mapGraphError(status int, body []byte) error {
	var parsed graphErrorBody
	_ = json.Unmarshal(body, &parsed)
	code := parsed.Error.Code
	message := parsed.Error.Message
	if message == "" {
		message = fmt.Sprintf("http status %d", status)
	}

	switch {
	case code == graphCodeAuthFailed || status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", channel.ErrGatewayAuthFailed, message)
	case code == graphCodeTooManyCalls || code == graphCodeRateLimitHit ||
		code == graphCodeThroughputReached || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", channel.ErrGatewayRateLimited, message)
	case code == graphCodeUndeliverable || code == graphCodeRecipientNotAllowed:
		return fmt.Errorf("%w: %s", channel.ErrRecipientInvalid, message)
	case code == graphCodeParamCountMismatch || code == graphCodeTemplateNotFound ||
		code == graphCodeParamFormatInvalid || code == graphCodeTemplatePaused ||
		code == graphCodeTemplateDisabled:
		return fmt.Errorf("%w: %s", channel.ErrTemplateRejected, message)
	case code == graphCodeReengagementWindow || code == graphCodeUnsupportedMessage:
		return fmt.Errorf("%w: %s", channel.ErrMessageRejected, message)
	default:
		return fmt.Errorf("%w: %s", channel.ErrGatewayUnavailable, message)
	}
}

// WhatsAppGateway sends messages through the WhatsApp Cloud API. The
// connection's ExternalAccountID is the phone number id.
type WhatsAppGateway struct {
	client *graphClient
}

// NewWhatsAppGateway creates a WhatsApp gateway from channel settings
func NewWhatsAppGateway(cfg config.ChannelConfig) *WhatsAppGateway {
	return &WhatsAppGateway{client: newGraphClient(cfg)}
}

// Platform returns the platform this gateway serves
func (g *WhatsAppGateway) Platform() channel.Platform {
	return channel.PlatformWhatsApp
}

type whatsappSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type whatsappTextPayload struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsappText `json:"text"`
}

type whatsappText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsappTemplatePayload struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Template         whatsappTemplate `json:"template"`
}

type whatsappTemplate struct {
	Name       string              `json:"name"`
	Language   whatsappLanguage    `json:"language"`
	Components []whatsappComponent `json:"components,omitempty"`
}

type whatsappLanguage struct {
	Code string `json:"code"`
}

type whatsappComponent struct {
	Type       string              `json:"type"`
	Parameters []whatsappParameter `json:"parameters"`
}

type whatsappParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTemplate delivers a template message; the provider substitutes the
// body parameters server-side
func (g *WhatsAppGateway) SendTemplate(ctx context.Context, conn *channel.ChannelConnection, msg *channel.OutboundMessage) (*channel.SendResult, error) {
	payload := whatsappTemplatePayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.Recipient,
		Type:             "template",
		Template: whatsappTemplate{
			Name:     msg.TemplateName,
			Language: whatsappLanguage{Code: msg.Language},
		},
	}
	if len(msg.Params) > 0 {
		params := make([]whatsappParameter, len(msg.Params))
		for i, p := range msg.Params {
			params[i] = whatsappParameter{Type: "text", Text: p}
		}
		payload.Template.Components = []whatsappComponent{{Type: "body", Parameters: params}}
	}

	var resp whatsappSendResponse
	if err := g.client.post(ctx, conn.ExternalAccountID, conn.AccessToken, payload, &resp); err != nil {
		return nil, err
	}
	return resultFromWhatsApp(resp)
}

// SendText delivers a free-text message inside an open customer service
// window
func (g *WhatsAppGateway) SendText(ctx context.Context, conn *channel.ChannelConnection, msg *channel.OutboundMessage) (*channel.SendResult, error) {
	payload := whatsappTextPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.Recipient,
		Type:             "text",
		Text:             whatsappText{Body: msg.BodyText},
	}

	var resp whatsappSendResponse
	if err := g.client.post(ctx, conn.ExternalAccountID, conn.AccessToken, payload, &resp); err != nil {
		return nil, err
	}
	return resultFromWhatsApp(resp)
}

func resultFromWhatsApp(resp whatsappSendResponse) (*channel.SendResult, error) {
	if len(resp.Messages) == 0 {
		return nil, fmt.Errorf("%w: response carried no message id", channel.ErrGatewayUnavailable)
	}
	return &channel.SendResult{ProviderMessageID: resp.Messages[0].ID}, nil
}

// Ensure WhatsAppGateway implements channel.Gateway
var _ channel.Gateway = (*WhatsAppGateway)(nil)

// InstagramGateway sends messages through the Instagram messaging API.
// The connection's ExternalAccountID is the IG business account id.
type InstagramGateway struct {
	client *graphClient
}

// NewInstagramGateway creates an Instagram gateway from channel settings
func NewInstagramGateway(cfg config.ChannelConfig) *InstagramGateway {
	return &InstagramGateway{client: newGraphClient(cfg)}
}

// Platform returns the platform this gateway serves
func (g *InstagramGateway) Platform() channel.Platform {
	return channel.PlatformInstagram
}

type instagramSendPayload struct {
	Recipient instagramRecipient `json:"recipient"`
	Message   instagramMessage   `json:"message"`
}

type instagramRecipient struct {
	ID string `json:"id"`
}

type instagramMessage struct {
	Text string `json:"text"`
}

type instagramSendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// SendTemplate is rejected: Instagram messaging has no pre-approved
// template sends, only free text inside the 24-hour window
func (g *InstagramGateway) SendTemplate(ctx context.Context, conn *channel.ChannelConnection, msg *channel.OutboundMessage) (*channel.SendResult, error) {
	return nil, fmt.Errorf("%w: instagram does not support template messages", channel.ErrTemplateRejected)
}

// SendText delivers a free-text message to an Instagram user
func (g *InstagramGateway) SendText(ctx context.Context, conn *channel.ChannelConnection, msg *channel.OutboundMessage) (*channel.SendResult, error) {
	payload := instagramSendPayload{
		Recipient: instagramRecipient{ID: msg.Recipient},
		Message:   instagramMessage{Text: msg.BodyText},
	}

	var resp instagramSendResponse
	if err := g.client.post(ctx, conn.ExternalAccountID, conn.AccessToken, payload, &resp); err != nil {
		return nil, err
	}
	if resp.MessageID == "" {
		return nil, fmt.Errorf("%w: response carried no message id", channel.ErrGatewayUnavailable)
	}
	return &channel.SendResult{ProviderMessageID: resp.MessageID}, nil
}

// Ensure InstagramGateway implements channel.Gateway
var _ channel.Gateway = (*InstagramGateway)(nil)
