package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"english_bot_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayFixture(t *testing.T, handler http.HandlerFunc) *WhatsAppService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewWhatsAppService(config.WhatsAppConfig{
		BaseURL:        server.URL,
		Token:          "token-123",
		TimeoutSeconds: 2,
	}, nil)
}

func TestSendText_WireFormat(t *testing.T) {
	var captured map[string]any
	var gotToken, gotPath string

	svc := newGatewayFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	})

	err := svc.SendText(context.Background(), "5511999999999@s.whatsapp.net", "Olá!")
	require.NoError(t, err)

	assert.Equal(t, "/send/text", gotPath)
	assert.Equal(t, "token-123", gotToken)
	assert.Equal(t, "5511999999999@s.whatsapp.net", captured["number"])
	assert.Equal(t, "Olá!", captured["text"])
	assert.Equal(t, true, captured["readchat"])
	assert.Equal(t, float64(1000), captured["delay"])
}

func TestSendMenu_EncodesChoicesWithControlIDs(t *testing.T) {
	var captured map[string]any

	svc := newGatewayFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send/menu", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	})

	err := svc.SendMenu(context.Background(), "5511999999999@s.whatsapp.net", "Escolha:", []MenuOption{
		{Label: "A: Good night", ControlID: "A"},
		{Label: "B: Good morning", ControlID: "B"},
	})
	require.NoError(t, err)

	assert.Equal(t, "button", captured["type"])
	assert.Equal(t, "Escolha:", captured["text"])
	assert.Equal(t, menuFooterText, captured["footerText"])
	assert.Equal(t, float64(500), captured["delay"])

	choices, ok := captured["choices"].([]any)
	require.True(t, ok)
	require.Len(t, choices, 2)
	assert.Equal(t, "A: Good night|A", choices[0])
	assert.Equal(t, "B: Good morning|B", choices[1])
}

func TestSend_NonOKStatusIsError(t *testing.T) {
	svc := newGatewayFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	err := svc.SendText(context.Background(), "jid", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestInstanceStatus_MapsGatewayStates(t *testing.T) {
	tests := []struct {
		gateway string
		want    ConnectivityState
	}{
		{"connected", ConnectivityConnected},
		{"Connected", ConnectivityConnected},
		{"connecting", ConnectivityConnecting},
		{"disconnected", ConnectivityDisconnected},
		{"banana", ConnectivityUnknown},
		{"", ConnectivityUnknown},
	}

	for _, tt := range tests {
		t.Run("status "+tt.gateway, func(t *testing.T) {
			svc := newGatewayFixture(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/instance/status", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				json.NewEncoder(w).Encode(map[string]any{
					"instance": map[string]any{"status": tt.gateway},
				})
			})

			assert.Equal(t, tt.want, svc.InstanceStatus(context.Background()))
		})
	}
}

func TestInstanceStatus_GatewayFailureIsError(t *testing.T) {
	svc := newGatewayFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	assert.Equal(t, ConnectivityError, svc.InstanceStatus(context.Background()))
}
