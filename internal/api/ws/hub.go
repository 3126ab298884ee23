// Package ws рассылает обновления курсов подключенным WebSocket-клиентам.
package ws

import (
	"context"
	"fmt"
	"sync"

	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/storages"
	"github.com/sirupsen/logrus"
)

// MessageRatesUpdate тип сообщения со снимком курсов
const MessageRatesUpdate = "rates_update"

const (
	clientBuffer    = 16
	broadcastBuffer = 64
)

// Message сообщение клиенту
type Message struct {
	Type string      `json:"type"`
	Date string      `json:"date,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

type client struct {
	send chan Message
}

// Hub хранит подключения и рассылает им сообщения.
// Карта клиентов принадлежит горутине Run.
type Hub struct {
	querier engine.Querier
	logger  *logrus.Logger

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

// NewHub создает hub; до вызова Run подключения не обслуживаются
func NewHub(querier engine.Querier, logger *logrus.Logger) *Hub {
	return &Hub{
		querier:    querier,
		logger:     logger,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run обслуживает подключения до отмены ctx
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			h.logger.Info("WebSocket hub stopped")
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("Dropping slow WebSocket client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// ClientCount число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Broadcast ставит сообщение в очередь; при переполнении сообщение теряется
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warnf("WebSocket broadcast queue full, dropping %s", msg.Type)
	}
}

// PublishRatesUpdated рассылает снимок курсов после загрузки новой даты
func (h *Hub) PublishRatesUpdated(ctx context.Context, event storages.RatesUpdatedEvent) error {
	snapshot, err := h.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to build rates snapshot: %w", err)
	}

	h.Broadcast(Message{Type: MessageRatesUpdate, Date: event.Date, Data: snapshot})
	h.logger.WithFields(logrus.Fields{
		"date":    event.Date,
		"clients": h.ClientCount(),
	}).Info("Rates update broadcast")
	return nil
}

// Snapshot текущие курсы всех валют последней даты по коду
func (h *Hub) Snapshot(ctx context.Context) (map[string]*engine.CurrentRate, error) {
	currencies, err := h.querier.ListCurrencies(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]*engine.CurrentRate, len(currencies))
	for _, currency := range currencies {
		current, err := h.querier.GetCurrent(ctx, currency.Code)
		if err != nil {
			return nil, err
		}
		snapshot[current.Code] = current
	}
	return snapshot, nil
}

// attach регистрирует клиента; false, если hub остановлен или ctx отменен
func (h *Hub) attach(ctx context.Context, c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
	case <-ctx.Done():
	}
	return false
}

func (h *Hub) detach(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
