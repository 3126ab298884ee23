package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gw-currency-rates/internal/bot"
	"gw-currency-rates/internal/cache"
	"gw-currency-rates/internal/config"
	"gw-currency-rates/internal/feed"
	ratesgrpc "gw-currency-rates/internal/grpc"
	"gw-currency-rates/internal/kafka"
	"gw-currency-rates/internal/logger"
	"gw-currency-rates/internal/storages/mongodb"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const statsInterval = 30 * time.Second

func main() {
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateBot(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level)
	log.Info("Starting gw-rates-bot service...")
	log.Infof("Configuration loaded from: %s", *configPath)

	storage, err := mongodb.New(&mongodb.Config{
		URI:                   cfg.MongoDB.URI,
		Database:              cfg.MongoDB.Database,
		SubscribersCollection: cfg.MongoDB.SubscribersCollection,
		EventsCollection:      cfg.MongoDB.EventsCollection,
		Timeout:               cfg.MongoDB.Timeout,
		MaxPoolSize:           cfg.MongoDB.MaxPoolSize,
		MinPoolSize:           cfg.MongoDB.MinPoolSize,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		storage.Close(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := storage.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("MongoDB ping failed: %v", err)
	}
	cancel()
	log.Info("MongoDB connection established")

	ratesClient, err := ratesgrpc.NewRatesClient(cfg.RatesAPI.Address, cfg.RatesAPI.Timeout, log)
	if err != nil {
		log.Fatalf("Failed to create rates client: %v", err)
	}
	defer ratesClient.Close()

	coingecko := feed.NewCoinGeckoClient(cfg.Feed.CoinGeckoURL, cfg.Feed.Timeout, log).
		WithMarketsURL(cfg.Feed.MarketsURL)

	telegram, err := bot.New(bot.Config{
		Token:          cfg.Telegram.Token,
		MainCurrencies: cfg.Telegram.MainCurrencies,
	}, ratesClient, storage, coingecko, cache.NewPricesCache(cfg.Cache.PricesTTL),
		cache.NewMarketsCache(cfg.Cache.MarketsTTL), log)
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		telegram.Start(gctx)
		return nil
	})

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer = kafka.NewConsumer(&kafka.Config{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			GroupID:       cfg.Kafka.GroupID,
			MinBytes:      cfg.Kafka.MinBytes,
			MaxBytes:      cfg.Kafka.MaxBytes,
			MaxWait:       cfg.Kafka.MaxWait,
			BatchSize:     cfg.Processing.BatchSize,
			Workers:       cfg.Processing.Workers,
			FlushInterval: cfg.Processing.FlushInterval,
			RetryAttempts: cfg.Processing.RetryAttempts,
			RetryDelay:    cfg.Processing.RetryDelay,
		}, storage, telegram, log)
		defer consumer.Close()

		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil && err != context.Canceled {
				return fmt.Errorf("consumer stopped: %w", err)
			}
			return nil
		})
	} else {
		log.Warn("Kafka disabled, subscribers will not receive digests")
	}

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				printStatistics(gctx, log, consumer, storage)
			}
		}
	})

	log.Info("Service is running. Press Ctrl+C to stop...")

	if err := g.Wait(); err != nil {
		log.Errorf("Service stopped with error: %v", err)
	}

	printStatistics(context.Background(), log, consumer, storage)
	log.Info("Service stopped gracefully")
}

// printStatistics выводит статистику consumer и журнала событий
func printStatistics(ctx context.Context, log *logrus.Logger, consumer *kafka.Consumer, storage *mongodb.MongoStorage) {
	if consumer != nil {
		stats := consumer.GetStatistics()
		log.Infof("Consumer Statistics: Processed=%d, Failed=%d, Uptime=%s",
			stats["messages_processed"], stats["messages_failed"], stats["uptime"])
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	storageStats, err := storage.GetStatistics(ctx)
	if err != nil {
		log.Warnf("Failed to get storage statistics: %v", err)
		return
	}

	log.Infof("Storage Statistics: Subscribers=%d, Events=%d, Notified=%d, LastDate=%s",
		storageStats.ActiveSubscribers,
		storageStats.TotalEvents,
		storageStats.TotalNotified,
		storageStats.LastEventDate)
}
