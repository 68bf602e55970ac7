// Package notify delivers the daily report to chat and email channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"golang.org/x/sync/errgroup"
)

// Fanout sends one message to every channel concurrently.
type Fanout struct {
	notifiers []interfaces.Notifier
	logger    *common.Logger
}

// NewFanout wraps the given channels.
func NewFanout(logger *common.Logger, notifiers ...interfaces.Notifier) *Fanout {
	return &Fanout{notifiers: notifiers, logger: logger}
}

// FromConfig enables every channel whose credentials are present.
func FromConfig(cfg config.NotifyConfig, logger *common.Logger) *Fanout {
	var ns []interfaces.Notifier
	if cfg.Slack.WebhookURL != "" {
		ns = append(ns, NewSlack(cfg.Slack.WebhookURL))
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		ns = append(ns, NewTelegram(cfg.Telegram))
	}
	if cfg.Email.Host != "" && len(cfg.Email.To) > 0 {
		ns = append(ns, NewEmail(cfg.Email))
	}
	return NewFanout(logger, ns...)
}

func (f *Fanout) Name() string { return "fanout" }

// Channels returns the names of the enabled channels.
func (f *Fanout) Channels() []string {
	names := make([]string, len(f.notifiers))
	for i, n := range f.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Send delivers to all channels and joins their failures. One failing channel
// does not stop the others.
func (f *Fanout) Send(ctx context.Context, msg models.Message) error {
	if len(f.notifiers) == 0 {
		f.logger.Warn().Msg("no notification channels configured")
		return nil
	}

	errs := make([]error, len(f.notifiers))
	var g errgroup.Group
	for i, n := range f.notifiers {
		g.Go(func() error {
			if err := n.Send(ctx, msg); err != nil {
				f.logger.Error().Str("channel", n.Name()).Err(err).Msg("notification failed")
				errs[i] = fmt.Errorf("%s: %w", n.Name(), err)
				return nil
			}
			f.logger.Info().Str("channel", n.Name()).Msg("notification sent")
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}
