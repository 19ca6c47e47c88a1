package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// TelegramSender is satisfied by *tgbotapi.BotAPI.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts bonus and milestone facts to the ops chat.
// Other facts are too chatty for the channel and are skipped.
type TelegramNotifier struct {
	bot    TelegramSender
	chatID int64
}

func NewTelegramNotifier(bot TelegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

func (n *TelegramNotifier) Dispatch(_ context.Context, fact domain.Fact) error {
	switch fact.(type) {
	case domain.BonusAwarded, domain.MilestoneReached:
	default:
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, Describe(fact))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}
