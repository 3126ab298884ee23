package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gw-currency-rates/internal/storages"
	"gw-currency-rates/pkg"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageReader часть kafka.Reader, используемая consumer
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler реагирует на событие обновления курсов и возвращает число уведомленных
type EventHandler interface {
	HandleRatesUpdated(ctx context.Context, event storages.RatesUpdatedEvent) int
}

// Consumer Kafka consumer событий обновления курсов
type Consumer struct {
	reader        messageReader
	storage       storages.SubscriberStore
	handler       EventHandler
	logger        *logrus.Logger
	batchSize     int
	workers       int
	flushInterval time.Duration
	retryAttempts int
	retryDelay    time.Duration

	// Статистика
	mu                sync.RWMutex
	messagesProcessed int64
	messagesFailed    int64
	startTime         time.Time
}

// Config конфигурация consumer
type Config struct {
	Brokers       []string
	Topic         string
	GroupID       string
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	BatchSize     int
	Workers       int
	FlushInterval time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// NewConsumer создает новый Kafka consumer
func NewConsumer(cfg *Config, storage storages.SubscriberStore, handler EventHandler, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		Logger:      kafka.LoggerFunc(logger.Debugf),
		ErrorLogger: kafka.LoggerFunc(logger.Errorf),
	})

	logger.Infof("Kafka consumer initialized: Topic=%s, GroupID=%s, Brokers=%v",
		cfg.Topic, cfg.GroupID, cfg.Brokers)

	return newConsumerWithReader(reader, cfg, storage, handler, logger)
}

func newConsumerWithReader(reader messageReader, cfg *Config, storage storages.SubscriberStore, handler EventHandler, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader:        reader,
		storage:       storage,
		handler:       handler,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		workers:       cfg.Workers,
		flushInterval: cfg.FlushInterval,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		startTime:     time.Now(),
	}
}

// Start запускает consumer и блокируется до отмены ctx
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer...")

	messages := make(chan kafka.Message, c.batchSize*2)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.processMessages(ctx, messages, workerID)
		}(i)
	}

	go func() {
		defer close(messages)
		c.readMessages(ctx, messages)
	}()

	wg.Wait()

	c.logger.Info("Kafka consumer stopped")
	return nil
}

// readMessages читает сообщения из Kafka
func (c *Consumer) readMessages(ctx context.Context, messages chan<- kafka.Message) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping message reading...")
				return
			}
			c.logger.Errorf("Failed to fetch message: %v", err)
			time.Sleep(c.retryDelay)
			continue
		}

		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// processMessages копит события в пакет и сбрасывает его по размеру или таймеру
func (c *Consumer) processMessages(ctx context.Context, messages <-chan kafka.Message, workerID int) {
	batch := make([]storages.EventRecord, 0, c.batchSize)
	kafkaMessages := make([]kafka.Message, 0, c.batchSize)

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			c.flushBatch(ctx, batch, kafkaMessages)
			batch = batch[:0]
			kafkaMessages = kafkaMessages[:0]
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case <-ticker.C:
			flush()

		case msg, ok := <-messages:
			if !ok {
				flush()
				return
			}

			event, err := ParseEvent(msg.Value)
			if err != nil {
				c.logger.Errorf("Worker %d: Failed to parse message: %v", workerID, err)
				c.incrementFailed()
				// Коммитим, чтобы битое сообщение не блокировало очередь
				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.Errorf("Worker %d: Failed to commit failed message: %v", workerID, err)
				}
				continue
			}

			notified := 0
			if c.handler != nil {
				notified = c.handler.HandleRatesUpdated(ctx, *event)
			}

			batch = append(batch, storages.EventRecord{
				RatesUpdatedEvent: *event,
				ReceivedAt:        time.Now(),
				Notified:          notified,
			})
			kafkaMessages = append(kafkaMessages, msg)

			if len(batch) >= c.batchSize {
				flush()
			}
		}
	}
}

// ParseEvent разбирает событие rates.updated
func ParseEvent(value []byte) (*storages.RatesUpdatedEvent, error) {
	var event storages.RatesUpdatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if event.Date == "" {
		return nil, fmt.Errorf("event has no date")
	}
	return &event, nil
}

// flushBatch сохраняет пакет событий в журнал и коммитит сообщения
func (c *Consumer) flushBatch(ctx context.Context, batch []storages.EventRecord, messages []kafka.Message) {
	start := time.Now()

	var err error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		err = c.storage.SaveEventBatch(ctx, batch)
		if err == nil {
			break
		}

		c.logger.Warnf("Attempt %d/%d: Failed to save batch: %v", attempt+1, c.retryAttempts, err)

		if attempt < c.retryAttempts-1 {
			time.Sleep(c.retryDelay)
		}
	}

	if err != nil {
		c.logger.Errorf("Failed to save batch after %d attempts: %v", c.retryAttempts, err)
		c.incrementFailed()
		return
	}

	if err := c.reader.CommitMessages(ctx, messages...); err != nil {
		c.logger.Errorf("Failed to commit messages: %v", err)
		return
	}

	c.incrementProcessed(int64(len(batch)))
	c.logger.Infof("Flushed batch: size=%d, duration=%s", len(batch), pkg.FormatDuration(time.Since(start)))
}

// incrementProcessed увеличивает счетчик обработанных сообщений
func (c *Consumer) incrementProcessed(count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesProcessed += count
}

// incrementFailed увеличивает счетчик неудачных сообщений
func (c *Consumer) incrementFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesFailed++
}

// GetStatistics возвращает статистику обработки
func (c *Consumer) GetStatistics() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"messages_processed": c.messagesProcessed,
		"messages_failed":    c.messagesFailed,
		"uptime":             pkg.FormatDuration(time.Since(c.startTime)),
	}
}

// Close закрывает consumer
func (c *Consumer) Close() error {
	c.logger.Info("Closing Kafka consumer")
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
