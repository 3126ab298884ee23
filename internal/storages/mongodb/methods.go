package mongodb

import (
	"context"
	"time"

	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/storages"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Subscribe добавляет подписчика или повторно активирует существующего
func (s *MongoStorage) Subscribe(ctx context.Context, sub *storages.Subscriber) error {
	now := time.Now()
	filter := bson.M{"chat_id": sub.ChatID}
	update := bson.M{
		"$set": bson.M{
			"username":   sub.Username,
			"active":     true,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"subscribed_at": now,
		},
	}

	_, err := s.subscribers.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		s.logger.Errorf("Failed to subscribe chat %d: %v", sub.ChatID, err)
		return apperrors.NewStoreUnavailableError("subscribe", err)
	}

	sub.Active = true
	sub.UpdatedAt = now
	s.logger.Debugf("Subscribed chat %d", sub.ChatID)
	return nil
}

// Unsubscribe деактивирует подписчика
func (s *MongoStorage) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	filter := bson.M{"chat_id": chatID, "active": true}
	update := bson.M{"$set": bson.M{"active": false, "updated_at": time.Now()}}

	result, err := s.subscribers.UpdateOne(ctx, filter, update)
	if err != nil {
		s.logger.Errorf("Failed to unsubscribe chat %d: %v", chatID, err)
		return false, apperrors.NewStoreUnavailableError("unsubscribe", err)
	}

	return result.ModifiedCount > 0, nil
}

// ActiveSubscribers возвращает всех активных подписчиков
func (s *MongoStorage) ActiveSubscribers(ctx context.Context) ([]storages.Subscriber, error) {
	opts := options.Find().SetSort(bson.D{{Key: "subscribed_at", Value: 1}})

	cursor, err := s.subscribers.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		s.logger.Errorf("Failed to query subscribers: %v", err)
		return nil, apperrors.NewStoreUnavailableError("query subscribers", err)
	}
	defer cursor.Close(ctx)

	var subscribers []storages.Subscriber
	if err := cursor.All(ctx, &subscribers); err != nil {
		s.logger.Errorf("Failed to decode subscribers: %v", err)
		return nil, apperrors.NewStoreUnavailableError("decode subscribers", err)
	}

	return subscribers, nil
}

// SaveEventBatch сохраняет пакет событий обновления
func (s *MongoStorage) SaveEventBatch(ctx context.Context, events []storages.EventRecord) error {
	if len(events) == 0 {
		return nil
	}

	documents := make([]interface{}, len(events))
	for i := range events {
		documents[i] = events[i]
	}

	result, err := s.events.InsertMany(ctx, documents)
	if err != nil {
		s.logger.Errorf("Failed to save event batch: %v", err)
		return apperrors.NewStoreUnavailableError("save event batch", err)
	}

	s.logger.Infof("Saved batch of %d events (inserted: %d)", len(events), len(result.InsertedIDs))
	return nil
}

// RecentEvents возвращает последние события
func (s *MongoStorage) RecentEvents(ctx context.Context, limit int) ([]storages.EventRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.events.Find(ctx, bson.M{}, opts)
	if err != nil {
		s.logger.Errorf("Failed to query recent events: %v", err)
		return nil, apperrors.NewStoreUnavailableError("query events", err)
	}
	defer cursor.Close(ctx)

	var events []storages.EventRecord
	if err := cursor.All(ctx, &events); err != nil {
		s.logger.Errorf("Failed to decode events: %v", err)
		return nil, apperrors.NewStoreUnavailableError("decode events", err)
	}

	return events, nil
}

// GetStatistics возвращает статистику журнала и подписок
func (s *MongoStorage) GetStatistics(ctx context.Context) (*storages.Statistics, error) {
	pipeline := []bson.M{
		{
			"$group": bson.M{
				"_id":              nil,
				"total_events":     bson.M{"$sum": 1},
				"total_notified":   bson.M{"$sum": "$notified"},
				"last_event_date":  bson.M{"$max": "$iso_date"},
				"last_received_at": bson.M{"$max": "$received_at"},
			},
		},
	}

	cursor, err := s.events.Aggregate(ctx, pipeline)
	if err != nil {
		s.logger.Errorf("Failed to get statistics: %v", err)
		return nil, apperrors.NewStoreUnavailableError("aggregate events", err)
	}
	defer cursor.Close(ctx)

	var results []storages.Statistics
	if err := cursor.All(ctx, &results); err != nil {
		s.logger.Errorf("Failed to decode statistics: %v", err)
		return nil, apperrors.NewStoreUnavailableError("decode statistics", err)
	}

	stats := &storages.Statistics{}
	if len(results) > 0 {
		*stats = results[0]
	}

	active, err := s.subscribers.CountDocuments(ctx, bson.M{"active": true})
	if err != nil {
		s.logger.Errorf("Failed to count subscribers: %v", err)
		return nil, apperrors.NewStoreUnavailableError("count subscribers", err)
	}
	stats.ActiveSubscribers = active

	s.logger.Debugf("Statistics: Events=%d, Subscribers=%d, Notified=%d",
		stats.TotalEvents, stats.ActiveSubscribers, stats.TotalNotified)

	return stats, nil
}
