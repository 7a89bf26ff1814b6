package telegram

import (
	"fmt"

	"gatewarden/internal/application"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier pushes moderation alerts (verifications, expiries, unlinks) to a
// single admin chat. It never blocks callers on Telegram errors.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger application.Logger
}

func NewNotifier(token string, chatID int64, logger application.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("telegram notifier authorized on account %s", bot.Self.UserName)

	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Notify implements application.Notifier.
func (n *Notifier) Notify(text string) {
	go func() {
		if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
			n.logger.Warn("telegram notify: %v", err)
		}
	}()
}
