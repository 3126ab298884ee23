package storages

import (
	"time"

	"gw-currency-rates/internal/datekey"
)

// Observation представляет курс одной валюты за один календарный день
type Observation struct {
	Date           datekey.Key `db:"rate_date" json:"date"`
	CurrencyCode   string      `db:"code" json:"currency_code" validate:"required,len=3,alpha,uppercase"`
	CurrencyName   string      `db:"name" json:"currency_name" validate:"required,max=100"`
	NumeratorValue float64     `db:"value" json:"numerator_value" validate:"gt=0"`
	Nominal        float64     `db:"nominal" json:"nominal" validate:"gt=0"`
}

// Rate возвращает курс за одну единицу валюты
func (o Observation) Rate() float64 {
	return o.NumeratorValue / o.Nominal
}

// Currency представляет валюту, присутствующую в хранилище
type Currency struct {
	Code string `json:"code" bson:"code"`
	Name string `json:"name" bson:"name"`
}

// Subscriber подписчик бота на ежедневную рассылку
type Subscriber struct {
	ChatID       int64     `bson:"chat_id" json:"chat_id"`
	Username     string    `bson:"username,omitempty" json:"username,omitempty"`
	Active       bool      `bson:"active" json:"active"`
	SubscribedAt time.Time `bson:"subscribed_at" json:"subscribed_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// RatesUpdatedEvent событие об успешном обновлении курсов за дату
type RatesUpdatedEvent struct {
	Date       string    `bson:"date" json:"date"`
	ISODate    string    `bson:"iso_date" json:"iso_date"`
	Currencies int       `bson:"currencies" json:"currencies"`
	Source     string    `bson:"source" json:"source"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// EventRecord событие, сохраненное журналом бота
type EventRecord struct {
	RatesUpdatedEvent `bson:",inline"`
	ReceivedAt        time.Time `bson:"received_at" json:"received_at"`
	Notified          int       `bson:"notified" json:"notified"`
}

// Statistics сводка по журналу событий и подписчикам
type Statistics struct {
	ActiveSubscribers int64     `bson:"active_subscribers" json:"active_subscribers"`
	TotalEvents       int64     `bson:"total_events" json:"total_events"`
	LastEventDate     string    `bson:"last_event_date" json:"last_event_date"`
	LastReceivedAt    time.Time `bson:"last_received_at" json:"last_received_at"`
	TotalNotified     int64     `bson:"total_notified" json:"total_notified"`
}
