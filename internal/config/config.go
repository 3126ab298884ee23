package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Драйверы хранилища курсов
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config содержит всю конфигурацию сервисов
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Admin      AdminConfig
	RateLimit  RateLimitConfig
	Feed       FeedConfig
	Refresh    RefreshConfig
	Kafka      KafkaConfig
	Processing ProcessingConfig
	MongoDB    MongoDBConfig
	Telegram   TelegramConfig
	RatesAPI   RatesAPIConfig
	Cache      CacheConfig
	Logger     LoggerConfig
}

// ServerConfig содержит конфигурацию HTTP и gRPC серверов
type ServerConfig struct {
	HTTPPort string
	GRPCPort string
	GinMode  string
}

// StorageConfig выбирает реализацию хранилища курсов
type StorageConfig struct {
	Driver string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig содержит конфигурацию JWT
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AdminConfig учетные данные администратора (пароль хранится как bcrypt-хеш)
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// RateLimitConfig лимит запросов к публичному API
type RateLimitConfig struct {
	Rate string
}

// FeedConfig адреса внешних источников
type FeedConfig struct {
	CBRURL       string
	CoinGeckoURL string
	MarketsURL   string
	Timeout      time.Duration
}

// RefreshConfig расписание обновления курсов
type RefreshConfig struct {
	Enabled       bool
	Interval      time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Concurrency   int
	BackfillDays  int
}

// KafkaConfig содержит конфигурацию Kafka
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

// ProcessingConfig параметры обработки событий ботом
type ProcessingConfig struct {
	BatchSize     int
	Workers       int
	FlushInterval time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// MongoDBConfig содержит конфигурацию MongoDB
type MongoDBConfig struct {
	URI                   string
	Database              string
	SubscribersCollection string
	EventsCollection      string
	Timeout               time.Duration
	MaxPoolSize           uint64
	MinPoolSize           uint64
}

// TelegramConfig содержит конфигурацию бота
type TelegramConfig struct {
	Token          string
	MainCurrencies []string
}

// RatesAPIConfig адрес gRPC API курсов для бота и CLI
type RatesAPIConfig struct {
	Address string
	Timeout time.Duration
}

// CacheConfig содержит конфигурацию кеша
type CacheConfig struct {
	PricesTTL  time.Duration
	MarketsTTL time.Duration
}

// LoggerConfig содержит конфигурацию логгера
type LoggerConfig struct {
	Level string
}

// Load загружает конфигурацию из файла окружения
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg := &Config{}

	// Server
	cfg.Server.HTTPPort = getEnv("HTTP_PORT", DefaultHTTPPort)
	cfg.Server.GRPCPort = getEnv("GRPC_PORT", DefaultGRPCPort)
	cfg.Server.GinMode = getEnv("GIN_MODE", DefaultGinMode)

	// Storage
	cfg.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", DefaultStorageDriver))

	// Database
	cfg.Database.Host = getEnv("DB_HOST", DefaultDBHost)
	cfg.Database.Port = getEnvInt("DB_PORT", DefaultDBPort)
	cfg.Database.User = getEnv("DB_USER", DefaultDBUser)
	cfg.Database.Password = getEnv("DB_PASSWORD", DefaultDBPassword)
	cfg.Database.DBName = getEnv("DB_NAME", DefaultDBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", DefaultDBSSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", DefaultDBMaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", DefaultDBMaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", DefaultDBConnMaxLifetime)

	// JWT
	cfg.JWT.Secret = getEnv("JWT_SECRET", DefaultJWTSecret)
	cfg.JWT.Expiration = getEnvDuration("JWT_EXPIRATION", DefaultJWTExpiration)

	// Admin
	cfg.Admin.Username = getEnv("ADMIN_USERNAME", DefaultAdminUsername)
	cfg.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", "")

	// Rate limit
	cfg.RateLimit.Rate = getEnv("RATE_LIMIT", DefaultRateLimit)

	// Feeds
	cfg.Feed.CBRURL = getEnv("CBR_URL", DefaultCBRURL)
	cfg.Feed.CoinGeckoURL = getEnv("COINGECKO_URL", DefaultCoinGeckoURL)
	cfg.Feed.MarketsURL = getEnv("COINGECKO_MARKETS_URL", DefaultCoinGeckoMarketsURL)
	cfg.Feed.Timeout = getEnvDuration("FEED_TIMEOUT", DefaultFeedTimeout)

	// Refresh
	cfg.Refresh.Enabled = getEnvBool("REFRESH_ENABLED", true)
	cfg.Refresh.Interval = getEnvDuration("REFRESH_INTERVAL", DefaultRefreshInterval)
	cfg.Refresh.RetryAttempts = getEnvInt("REFRESH_RETRY_ATTEMPTS", DefaultRefreshRetryAttempts)
	cfg.Refresh.RetryDelay = getEnvDuration("REFRESH_RETRY_DELAY", DefaultRefreshRetryDelay)
	cfg.Refresh.Concurrency = getEnvInt("REFRESH_CONCURRENCY", DefaultRefreshConcurrency)
	cfg.Refresh.BackfillDays = getEnvInt("REFRESH_BACKFILL_DAYS", DefaultRefreshBackfillDays)

	// Kafka
	cfg.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", true)
	cfg.Kafka.Brokers = getEnvList("KAFKA_BROKERS", DefaultKafkaBrokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", DefaultKafkaTopic)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", DefaultKafkaGroupID)
	cfg.Kafka.MinBytes = getEnvInt("KAFKA_MIN_BYTES", DefaultKafkaMinBytes)
	cfg.Kafka.MaxBytes = getEnvInt("KAFKA_MAX_BYTES", DefaultKafkaMaxBytes)
	cfg.Kafka.MaxWait = getEnvDuration("KAFKA_MAX_WAIT", DefaultKafkaMaxWait)

	// Processing
	cfg.Processing.BatchSize = getEnvInt("BATCH_SIZE", DefaultBatchSize)
	cfg.Processing.Workers = getEnvInt("WORKERS", DefaultWorkers)
	cfg.Processing.FlushInterval = getEnvDuration("FLUSH_INTERVAL", DefaultFlushInterval)
	cfg.Processing.RetryAttempts = getEnvInt("RETRY_ATTEMPTS", DefaultRetryAttempts)
	cfg.Processing.RetryDelay = getEnvDuration("RETRY_DELAY", DefaultRetryDelay)

	// MongoDB
	cfg.MongoDB.URI = getEnv("MONGO_URI", DefaultMongoURI)
	cfg.MongoDB.Database = getEnv("MONGO_DATABASE", DefaultMongoDatabase)
	cfg.MongoDB.SubscribersCollection = getEnv("MONGO_SUBSCRIBERS_COLLECTION", DefaultMongoSubscribersCollection)
	cfg.MongoDB.EventsCollection = getEnv("MONGO_EVENTS_COLLECTION", DefaultMongoEventsCollection)
	cfg.MongoDB.Timeout = getEnvDuration("MONGO_TIMEOUT", DefaultMongoTimeout)
	cfg.MongoDB.MaxPoolSize = uint64(getEnvInt("MONGO_MAX_POOL_SIZE", DefaultMongoMaxPoolSize))
	cfg.MongoDB.MinPoolSize = uint64(getEnvInt("MONGO_MIN_POOL_SIZE", DefaultMongoMinPoolSize))

	// Telegram
	cfg.Telegram.Token = getEnv("TELEGRAM_TOKEN", "")
	cfg.Telegram.MainCurrencies = getEnvList("MAIN_CURRENCIES", DefaultMainCurrencies)

	// Rates gRPC API
	cfg.RatesAPI.Address = getEnv("RATES_API_ADDRESS", DefaultRatesAPIAddress)
	cfg.RatesAPI.Timeout = getEnvDuration("RATES_API_TIMEOUT", DefaultRatesAPITimeout)

	// Cache
	cfg.Cache.PricesTTL = getEnvDuration("CACHE_PRICES_TTL", DefaultPricesTTL)
	cfg.Cache.MarketsTTL = getEnvDuration("CACHE_MARKETS_TTL", DefaultMarketsTTL)

	// Logger
	cfg.Logger.Level = getEnv("LOG_LEVEL", DefaultLogLevel)

	return cfg, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool получает логическую переменную окружения
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения типа duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList разбивает значение по запятой, пропуская пустые элементы
func getEnvList(key, defaultValue string) []string {
	var result []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// Validate проверяет общие параметры конфигурации
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER: %s", c.Storage.Driver)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC is required")
		}
	}

	return nil
}

// ValidateAPI проверяет параметры HTTP/gRPC сервиса курсов
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	if c.Server.GRPCPort == "" {
		return fmt.Errorf("GRPC_PORT is required")
	}

	if c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set to a secure value")
	}

	if c.Refresh.Concurrency <= 0 {
		return fmt.Errorf("REFRESH_CONCURRENCY must be positive")
	}

	if c.Refresh.RetryAttempts <= 0 {
		return fmt.Errorf("REFRESH_RETRY_ATTEMPTS must be positive")
	}

	return nil
}

// ValidateBot проверяет параметры Telegram-бота
func (c *Config) ValidateBot() error {
	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	if c.MongoDB.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	if c.MongoDB.Database == "" {
		return fmt.Errorf("MONGO_DATABASE is required")
	}

	if c.RatesAPI.Address == "" {
		return fmt.Errorf("RATES_API_ADDRESS is required")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required")
		}
		if c.Processing.BatchSize <= 0 {
			return fmt.Errorf("BATCH_SIZE must be positive")
		}
		if c.Processing.Workers <= 0 {
			return fmt.Errorf("WORKERS must be positive")
		}
	}

	return nil
}
