package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config содержит конфигурацию для подключения к MongoDB
type Config struct {
	URI                   string
	Database              string
	SubscribersCollection string
	EventsCollection      string
	Timeout               time.Duration
	MaxPoolSize           uint64
	MinPoolSize           uint64
}

// MongoStorage реализует интерфейс SubscriberStore для MongoDB
type MongoStorage struct {
	client      *mongo.Client
	database    *mongo.Database
	subscribers *mongo.Collection
	events      *mongo.Collection
	logger      *logrus.Logger
}

// New создает новое подключение к MongoDB
func New(cfg *Config, logger *logrus.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Infof("Successfully connected to MongoDB database %s", cfg.Database)

	database := client.Database(cfg.Database)
	storage := &MongoStorage{
		client:      client,
		database:    database,
		subscribers: database.Collection(cfg.SubscribersCollection),
		events:      database.Collection(cfg.EventsCollection),
		logger:      logger,
	}

	if err := storage.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return storage, nil
}

// createIndexes создает необходимые индексы
func (s *MongoStorage) createIndexes(ctx context.Context) error {
	subscriberIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "active", Value: 1}},
		},
	}
	if _, err := s.subscribers.Indexes().CreateMany(ctx, subscriberIndexes); err != nil {
		return fmt.Errorf("failed to create subscriber indexes: %w", err)
	}

	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "received_at", Value: -1}}},
		{Keys: bson.D{{Key: "iso_date", Value: -1}}},
	}
	names, err := s.events.Indexes().CreateMany(ctx, eventIndexes)
	if err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}

	s.logger.Infof("Created indexes: %v", names)
	return nil
}

// Ping проверяет соединение с базой данных
func (s *MongoStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close закрывает соединение с базой данных
func (s *MongoStorage) Close(ctx context.Context) error {
	if s.client != nil {
		s.logger.Info("Closing MongoDB connection")
		return s.client.Disconnect(ctx)
	}
	return nil
}
