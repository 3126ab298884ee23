package storages

import (
	"context"

	"gw-currency-rates/internal/datekey"
)

// RateStore определяет интерфейс хранилища наблюдений курсов.
// Хранилище не содержит бизнес-логики: только чтение и upsert по ключу (дата, код).
type RateStore interface {
	// Upsert атомарно записывает пакет, заменяя строки с тем же (дата, код)
	Upsert(ctx context.Context, observations []Observation) error

	// Exists сообщает, есть ли хотя бы одно наблюдение за дату
	Exists(ctx context.Context, date datekey.Key) (bool, error)

	// Get возвращает наблюдение или apperrors.ErrNotFound
	Get(ctx context.Context, date datekey.Key, code string) (*Observation, error)

	// LatestDate возвращает максимальную дату или apperrors.ErrNotFound для пустого хранилища
	LatestDate(ctx context.Context) (datekey.Key, error)

	// DistinctCurrenciesOn возвращает валюты, присутствующие за дату, по коду
	DistinctCurrenciesOn(ctx context.Context, date datekey.Key) ([]Currency, error)

	// Range возвращает наблюдения валюты в [from, to] по возрастанию даты
	Range(ctx context.Context, code string, from, to datekey.Key) ([]Observation, error)

	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error

	// Close освобождает ресурсы
	Close() error
}

// SubscriberStore хранит подписчиков бота и журнал событий обновления
type SubscriberStore interface {
	// Subscribe добавляет или повторно активирует подписчика
	Subscribe(ctx context.Context, sub *Subscriber) error

	// Unsubscribe деактивирует подписчика; false, если он не был активен
	Unsubscribe(ctx context.Context, chatID int64) (bool, error)

	// ActiveSubscribers возвращает всех активных подписчиков
	ActiveSubscribers(ctx context.Context) ([]Subscriber, error)

	// SaveEventBatch сохраняет пакет событий обновления курсов
	SaveEventBatch(ctx context.Context, events []EventRecord) error

	// RecentEvents возвращает последние события
	RecentEvents(ctx context.Context, limit int) ([]EventRecord, error)

	// GetStatistics возвращает сводную статистику
	GetStatistics(ctx context.Context) (*Statistics, error)

	// Health check
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
