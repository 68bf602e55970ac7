package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/models"
)

// Telegram sends through the Bot API, retrying up to three times.
type Telegram struct {
	BotToken string
	ChatID   string
	APIURL   string
	Client   *http.Client
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

func NewTelegram(cfg config.TelegramConfig) *Telegram {
	api := cfg.APIURL
	if api == "" {
		api = "https://api.telegram.org"
	}
	return &Telegram{
		BotToken: cfg.BotToken,
		ChatID:   cfg.ChatID,
		APIURL:   strings.TrimRight(api, "/"),
		Client:   &http.Client{Timeout: 15 * time.Second},
		Backoff:  time.Second,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, msg models.Message) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram bot_token and chat_id are required")
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.APIURL, t.BotToken)

	body, _ := json.Marshal(map[string]any{
		"chat_id":    t.ChatID,
		"text":       msg.RenderMarkdown(),
		"parse_mode": "Markdown",
	})

	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * t.Backoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}
