package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TelegramConfig holds the bot credentials and endpoint.
type TelegramConfig struct {
	BotToken string
	// APIBaseURL defaults to the public bot API; tests point it at a local
	// server.
	APIBaseURL string
	Timeout    time.Duration
}

// TelegramSender delivers messages through the Telegram bot API. The
// destination is used as the chat id; mapping phone numbers to chat ids is
// the intake layer's concern.
type TelegramSender struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegramSender creates a sender. With an empty bot token Send becomes
// a no-op that reports success, which keeps local development working
// without credentials.
func NewTelegramSender(cfg TelegramConfig) *TelegramSender {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.telegram.org"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &TelegramSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Description string `json:"description"`
}

// Send posts a sendMessage call and returns the Telegram message id.
func (s *TelegramSender) Send(ctx context.Context, destination, text string) (string, error) {
	if s.cfg.BotToken == "" {
		return fmt.Sprintf("simulated_%d", time.Now().UnixNano()), nil
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: destination, Text: text, ParseMode: "HTML"})
	if err != nil {
		return "", fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.cfg.APIBaseURL, s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read telegram response: %w", err)
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode telegram response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return "", fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, parsed.Description)
	}

	return fmt.Sprintf("%d", parsed.Result.MessageID), nil
}
