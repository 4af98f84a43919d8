package notificator

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/core-coin/tokensale/pkg/logger"
)

type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot

	chatID string
}

// NewTelegramNotificator creates a sender posting to chatID. The bot is only used to send
// messages, updates are never polled.
func NewTelegramNotificator(logger *logger.Logger, token, chatID string, opts ...bot.Option) (*TelegramNotificator, error) {
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotificator{
		logger: logger.With("channel", "telegram"),
		bot:    b,
		chatID: chatID,
	}, nil
}

func (t *TelegramNotificator) SendNotification(ctx context.Context, message string) error {
	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   message,
	}
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	t.logger.Debug("Telegram report sent", "chat_id", t.chatID)
	return nil
}
