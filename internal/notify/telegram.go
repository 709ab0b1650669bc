package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// TelegramNotifier posts events to a Telegram chat. Delivery runs in its own
// goroutine with its own deadline so a slow Telegram API never holds up a
// booking call.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, event Event) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := n.bot.SendMessage(sendCtx, &bot.SendMessageParams{
			ChatID: n.chatID,
			Text:   formatEvent(event),
		})
		if err != nil {
			n.logger.Warn("Failed to deliver notification",
				zap.String("event_id", event.ID.String()),
				zap.String("kind", event.Kind),
				zap.Error(err),
			)
		}
	}()
}

func formatEvent(event Event) string {
	switch event.Kind {
	case EventBookingConfirmed:
		return fmt.Sprintf("✅ Booking #%d confirmed: student %d with tutor %d on %s",
			event.BookingID, event.StudentID, event.TutorID, event.SlotDate)
	case EventBookingCancelled:
		return fmt.Sprintf("❌ Booking #%d cancelled (tutor %d, %s)",
			event.BookingID, event.TutorID, event.SlotDate)
	case EventRuleDeleted:
		return fmt.Sprintf("🗑 Availability rule #%d of tutor %d deleted", event.RuleID, event.TutorID)
	default:
		return fmt.Sprintf("%s (tutor %d)", event.Kind, event.TutorID)
	}
}
