package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bobmcallan/storetally/internal/models"
)

// Slack posts to an incoming webhook using a blocks payload.
type Slack struct {
	WebhookURL string
	Client     *http.Client
}

func NewSlack(webhookURL string) *Slack {
	return &Slack{WebhookURL: webhookURL, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (s *Slack) Name() string { return "slack" }

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func slackPayloadFor(msg models.Message) slackPayload {
	p := slackPayload{Text: msg.Title}
	p.Blocks = append(p.Blocks, slackBlock{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: msg.Title},
	})
	for _, sec := range msg.Sections {
		if len(sec.Lines) == 0 {
			continue
		}
		text := "*" + sec.Title + "*\n"
		for _, l := range sec.Lines {
			text += l + "\n"
		}
		p.Blocks = append(p.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}
	if msg.Footer != "" {
		p.Blocks = append(p.Blocks, slackBlock{Type: "divider"}, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: msg.Footer},
		})
	}
	return p
}

// Send posts the message once; webhooks are not retried.
func (s *Slack) Send(ctx context.Context, msg models.Message) error {
	body, err := json.Marshal(slackPayloadFor(msg))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook status=%d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
