package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gw-currency-rates/internal/storages"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter часть kafka.Writer, используемая producer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka producer событий обновления курсов
type Producer struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string, topic string, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
	}

	logger.Infof("Kafka producer initialized for topic: %s", topic)

	return newProducerWithWriter(writer, topic, logger)
}

func newProducerWithWriter(writer messageWriter, topic string, logger *logrus.Logger) *Producer {
	return &Producer{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// PublishRatesUpdated отправляет событие об обновлении курсов за дату
func (p *Producer) PublishRatesUpdated(ctx context.Context, event storages.RatesUpdatedEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorf("Failed to marshal Kafka message: %v", err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Ключ по дате: события одной даты попадают в одну партицию
	kafkaMessage := kafka.Message{
		Key:   []byte(event.ISODate),
		Value: messageBytes,
		Time:  event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, kafkaMessage); err != nil {
		p.logger.Errorf("Failed to send message to Kafka: %v", err)
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":      p.topic,
		"date":       event.Date,
		"currencies": event.Currencies,
	}).Info("Published rates.updated event")

	return nil
}

// Close закрывает Kafka producer
func (p *Producer) Close() error {
	if p.writer != nil {
		p.logger.Info("Closing Kafka producer")
		return p.writer.Close()
	}
	return nil
}
