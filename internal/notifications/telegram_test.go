package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSendPostsSendMessage(t *testing.T) {
	var gotPath string
	var gotReq sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":4211}}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender(TelegramConfig{BotToken: "test-token", APIBaseURL: srv.URL})

	id, err := sender.Send(context.Background(), "56911111111", "hola")
	require.NoError(t, err)
	assert.Equal(t, "4211", id)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "56911111111", gotReq.ChatID)
	assert.Equal(t, "hola", gotReq.Text)
	assert.Equal(t, "HTML", gotReq.ParseMode)
}

func TestTelegramSendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender(TelegramConfig{BotToken: "test-token", APIBaseURL: srv.URL})

	_, err := sender.Send(context.Background(), "0", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramSendWithoutTokenSimulates(t *testing.T) {
	sender := NewTelegramSender(TelegramConfig{})

	id, err := sender.Send(context.Background(), "56911111111", "hola")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "simulated_"))
}
