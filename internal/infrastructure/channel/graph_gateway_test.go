package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/infrastructure/config"
)

func testChannelConfig(baseURL string) config.ChannelConfig {
	return config.ChannelConfig{
		GraphBaseURL:   baseURL,
		GraphVersion:   "v21.0",
		RequestTimeout: 5 * time.Second,
	}
}

func testConnection(t *testing.T) *channel.ChannelConnection {
	t.Helper()
	conn, err := channel.NewWhatsAppConnection(uuid.New(), "waba-100", "phone-200", "token-abc")
	require.NoError(t, err)
	conn.ClearDomainEvents()
	return conn
}

func testTemplateMessage(t *testing.T, conn *channel.ChannelConnection) *channel.OutboundMessage {
	t.Helper()
	tpl, err := channel.NewMessageTemplate(conn.TenantID, channel.PlatformWhatsApp, "sale_receipt", "en",
		"Receipt {{1}} totals {{2}}", channel.TemplateCategoryUtility)
	require.NoError(t, err)
	require.NoError(t, tpl.Approve())
	msg, err := channel.NewTemplateMessage(conn, tpl, "+2348012345678", []string{"SAL-202608-0042", "15000.00"})
	require.NoError(t, err)
	return msg
}

func graphError(w http.ResponseWriter, status, code int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "OAuthException",
			"code":    code,
		},
	})
}

func TestWhatsAppGateway_SendTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("posts template payload with bearer token", func(t *testing.T) {
		var captured struct {
			path    string
			auth    string
			payload whatsappTemplatePayload
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured.path = r.URL.Path
			captured.auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.payload))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "wamid.HBgN"}},
			})
		}))
		defer server.Close()

		gateway := NewWhatsAppGateway(testChannelConfig(server.URL))
		conn := testConnection(t)
		msg := testTemplateMessage(t, conn)

		result, err := gateway.SendTemplate(ctx, conn, msg)

		require.NoError(t, err)
		assert.Equal(t, "wamid.HBgN", result.ProviderMessageID)
		assert.Equal(t, "/v21.0/phone-200/messages", captured.path)
		assert.Equal(t, "Bearer token-abc", captured.auth)
		assert.Equal(t, "whatsapp", captured.payload.MessagingProduct)
		assert.Equal(t, "template", captured.payload.Type)
		assert.Equal(t, "sale_receipt", captured.payload.Template.Name)
		assert.Equal(t, "en", captured.payload.Template.Language.Code)
		require.Len(t, captured.payload.Template.Components, 1)
		require.Len(t, captured.payload.Template.Components[0].Parameters, 2)
		assert.Equal(t, "SAL-202608-0042", captured.payload.Template.Components[0].Parameters[0].Text)
	})

	t.Run("expired token maps to auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			graphError(w, http.StatusUnauthorized, 190, "Error validating access token")
		}))
		defer server.Close()

		gateway := NewWhatsAppGateway(testChannelConfig(server.URL))
		conn := testConnection(t)

		_, err := gateway.SendTemplate(ctx, conn, testTemplateMessage(t, conn))

		assert.ErrorIs(t, err, channel.ErrGatewayAuthFailed)
	})

	t.Run("unknown template maps to template rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			graphError(w, http.StatusBadRequest, 132001, "Template name does not exist in the translation")
		}))
		defer server.Close()

		gateway := NewWhatsAppGateway(testChannelConfig(server.URL))
		conn := testConnection(t)

		_, err := gateway.SendTemplate(ctx, conn, testTemplateMessage(t, conn))

		assert.ErrorIs(t, err, channel.ErrTemplateRejected)
		assert.True(t, channel.IsPermanentSendError(err))
	})

	t.Run("throughput limit maps to rate limiting", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			graphError(w, http.StatusTooManyRequests, 130429, "Rate limit hit")
		}))
		defer server.Close()

		gateway := NewWhatsAppGateway(testChannelConfig(server.URL))
		conn := testConnection(t)

		_, err := gateway.SendTemplate(ctx, conn, testTemplateMessage(t, conn))

		assert.ErrorIs(t, err, channel.ErrGatewayRateLimited)
		assert.False(t, channel.IsPermanentSendError(err))
	})

	t.Run("server fault maps to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		gateway := NewWhatsAppGateway(testChannelConfig(server.URL))
		conn := testConnection(t)

		_, err := gateway.SendTemplate(ctx, conn, testTemplateMessage(t, conn))

		assert.ErrorIs(t, err, channel.ErrGatewayUnavailable)
	})
}

func TestWhatsAppGateway_SendText(t *testing.T) {
	ctx := context.Background()

	t.Run("posts text payload", func(t *testing.T) {
		var payload whatsappTextPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "wamid.TEXT"}},
			})
		}))
		defer server.Close()

		gateway := NewWhatsAppGateway(testChannelConfig(server.URL))
		conn := testConnection(t)
		msg, err := channel.NewTextMessage(conn, "+2348012345678", "Your order is ready.")
		require.NoError(t, err)

		result, err := gateway.SendText(ctx, conn, msg)

		require.NoError(t, err)
		assert.Equal(t, "wamid.TEXT", result.ProviderMessageID)
		assert.Equal(t, "text", payload.Type)
		assert.Equal(t, "Your order is ready.", payload.Text.Body)
		assert.Equal(t, "+2348012345678", payload.To)
	})

	t.Run("closed service window maps to message rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			graphError(w, http.StatusBadRequest, 131047, "Re-engagement message required")
		}))
		defer server.Close()

		gateway := NewWhatsAppGateway(testChannelConfig(server.URL))
		conn := testConnection(t)
		msg, err := channel.NewTextMessage(conn, "+2348012345678", "hello")
		require.NoError(t, err)

		_, err = gateway.SendText(ctx, conn, msg)

		assert.ErrorIs(t, err, channel.ErrMessageRejected)
		assert.True(t, channel.IsPermanentSendError(err))
	})
}

func TestInstagramGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("sends text to the IG account endpoint", func(t *testing.T) {
		var captured struct {
			path    string
			payload instagramSendPayload
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured.path = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.payload))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"recipient_id": "ig-user-1",
				"message_id":   "mid.777",
			})
		}))
		defer server.Close()

		gateway := NewInstagramGateway(testChannelConfig(server.URL))
		conn, err := channel.NewInstagramConnection(uuid.New(), "ig-300", "token-xyz")
		require.NoError(t, err)
		msg, err := channel.NewTextMessage(conn, "ig-user-1", "Thanks for your order!")
		require.NoError(t, err)

		result, err := gateway.SendText(ctx, conn, msg)

		require.NoError(t, err)
		assert.Equal(t, "mid.777", result.ProviderMessageID)
		assert.Equal(t, "/v21.0/ig-300/messages", captured.path)
		assert.Equal(t, "ig-user-1", captured.payload.Recipient.ID)
	})

	t.Run("template sends are rejected outright", func(t *testing.T) {
		gateway := NewInstagramGateway(testChannelConfig("http://unused"))
		conn, err := channel.NewInstagramConnection(uuid.New(), "ig-300", "token-xyz")
		require.NoError(t, err)

		_, err = gateway.SendTemplate(ctx, conn, &channel.OutboundMessage{})

		assert.ErrorIs(t, err, channel.ErrTemplateRejected)
	})
}

func TestGatewayRegistry(t *testing.T) {
	whatsapp := NewWhatsAppGateway(testChannelConfig("http://unused"))
	instagram := NewInstagramGateway(testChannelConfig("http://unused"))
	registry := NewGatewayRegistry(whatsapp, instagram)

	t.Run("resolves registered platforms", func(t *testing.T) {
		gateway, err := registry.GatewayFor(channel.PlatformWhatsApp)
		require.NoError(t, err)
		assert.Equal(t, channel.PlatformWhatsApp, gateway.Platform())

		platforms := registry.Platforms()
		assert.Equal(t, []channel.Platform{channel.PlatformInstagram, channel.PlatformWhatsApp}, platforms)
	})

	t.Run("unknown platform errors", func(t *testing.T) {
		_, err := registry.GatewayFor(channel.Platform("telegram"))
		assert.Error(t, err)
	})
}
