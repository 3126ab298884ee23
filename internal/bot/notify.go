package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"gw-currency-rates/internal/storages"
	"github.com/sirupsen/logrus"
)

// HandleRatesUpdated рассылает сводку курсов всем активным подписчикам.
// Возвращает число чатов, получивших сообщение.
func (b *Bot) HandleRatesUpdated(ctx context.Context, event storages.RatesUpdatedEvent) int {
	subscribers, err := b.subscribers.ActiveSubscribers(ctx)
	if err != nil {
		b.logger.Errorf("Failed to load subscribers for %s: %v", event.Date, err)
		return 0
	}
	if len(subscribers) == 0 {
		b.logger.Infof("No active subscribers for rates update %s", event.Date)
		return 0
	}

	rates, err := b.ratesBlock(ctx)
	if err != nil {
		b.logger.Errorf("Failed to build digest for %s: %v", event.Date, err)
		return 0
	}
	text := fmt.Sprintf("🔔 ЦБ опубликовал курсы на %s\n\n%s", event.Date, rates)

	notified := 0
	for _, sub := range subscribers {
		if ctx.Err() != nil {
			break
		}

		if _, err := b.send(ctx, b.api, sub.ChatID, text); err != nil {
			b.logger.WithFields(logrus.Fields{
				"chat_id": sub.ChatID,
				"date":    event.Date,
			}).Warnf("Failed to send digest: %v", err)

			// Пользователь заблокировал бота
			if errors.Is(err, bot.ErrorForbidden) {
				if _, uerr := b.subscribers.Unsubscribe(ctx, sub.ChatID); uerr != nil {
					b.logger.Errorf("Failed to unsubscribe blocked chat %d: %v", sub.ChatID, uerr)
				}
			}
			continue
		}
		notified++
	}

	b.logger.WithFields(logrus.Fields{
		"date":        event.Date,
		"subscribers": len(subscribers),
		"notified":    notified,
	}).Info("Rates digest sent")

	return notified
}
