package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gw-currency-rates/internal/api"
	"gw-currency-rates/internal/api/handlers"
	"gw-currency-rates/internal/api/middleware"
	"gw-currency-rates/internal/api/ws"
	"gw-currency-rates/internal/config"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/internal/feed"
	ratesgrpc "gw-currency-rates/internal/grpc"
	"gw-currency-rates/internal/kafka"
	"gw-currency-rates/internal/logger"
	"gw-currency-rates/internal/refresh"
	"gw-currency-rates/internal/storages"
	"gw-currency-rates/internal/storages/memory"
	"gw-currency-rates/internal/storages/postgres"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// @title Currency Rates API
// @version 1.0
// @description Central bank exchange rates: current values, history, statistics and conversion.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateAPI(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level)
	log.Info("Starting gw-rates-api service...")
	log.Infof("Configuration loaded from: %s", *configPath)

	store, err := openRateStore(cfg, log)
	if err != nil {
		log.Fatalf("Failed to open rate store: %v", err)
	}
	defer store.Close()

	rates := engine.New(store, log)
	hub := ws.NewHub(rates, log)

	publishers := refresh.Publishers{hub}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		publishers = append(publishers, producer)
	} else {
		log.Info("Kafka disabled, rates.updated events go to WebSocket clients only")
	}

	cbr := feed.NewCBRClient(cfg.Feed.CBRURL, cfg.Feed.Timeout, log)
	refresher := refresh.New(cbr, store, publishers, refresh.Config{
		Interval:      cfg.Refresh.Interval,
		RetryAttempts: cfg.Refresh.RetryAttempts,
		RetryDelay:    cfg.Refresh.RetryDelay,
		Concurrency:   cfg.Refresh.Concurrency,
		BackfillDays:  cfg.Refresh.BackfillDays,
	}, log)

	ipLimiter, err := middleware.NewIPLimiter(cfg.RateLimit.Rate)
	if err != nil {
		log.Fatalf("Invalid rate limit: %v", err)
	}

	router := api.SetupRouter(api.RouterDeps{
		Querier:   rates,
		Refresher: refresher,
		Admin: handlers.AdminCredentials{
			Username:     cfg.Admin.Username,
			PasswordHash: cfg.Admin.PasswordHash,
		},
		JWTMiddleware: middleware.NewJWTMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration, log),
		Limiter:       ipLimiter,
		Hub:           hub,
		Logger:        log,
		GinMode:       cfg.Server.GinMode,
	})
	if cfg.Admin.PasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH is empty, admin endpoints are unreachable")
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := ratesgrpc.NewServer(rates, log)
	listener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to create listener: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		log.Infof("HTTP server is listening on port %s", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Infof("gRPC server is listening on port %s", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(listener); err != nil {
			return fmt.Errorf("failed to serve gRPC: %w", err)
		}
		return nil
	})

	if cfg.Refresh.Enabled {
		g.Go(func() error {
			if err := refresher.EnsureHistory(gctx); err != nil {
				log.Warnf("Initial backfill failed: %v", err)
			}
			return refresher.Run(gctx)
		})
	} else {
		log.Info("Scheduled refresh disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("HTTP shutdown error: %v", err)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	log.Info("Service is running. Press Ctrl+C to stop...")

	if err := g.Wait(); err != nil {
		log.Errorf("Service stopped with error: %v", err)
		return
	}
	log.Info("Service stopped gracefully")
}

// openRateStore открывает хранилище курсов по STORAGE_DRIVER
func openRateStore(cfg *config.Config, log *logrus.Logger) (storages.RateStore, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn("Using in-memory rate store, data is lost on restart")
		return memory.New(log), nil
	}

	storage, err := postgres.New(&postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := storage.Ping(ctx); err != nil {
		storage.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("Database connection established")
	return storage, nil
}
