package config

import "time"

// Server defaults
const (
	DefaultHTTPPort = "8080"
	DefaultGRPCPort = "50051"
	DefaultGinMode  = "release"
	DefaultLogLevel = "info"
)

// Storage defaults
const (
	DefaultStorageDriver = StorageDriverPostgres
)

// Database defaults
const (
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBUser            = "rates_user"
	DefaultDBPassword        = "rates_password"
	DefaultDBName            = "rates_db"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 25
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 5 * time.Minute
)

// JWT и администратор
const (
	DefaultJWTSecret     = "change-me-in-production"
	DefaultJWTExpiration = 12 * time.Hour
	DefaultAdminUsername = "admin"
)

// Rate limit defaults (формат ulule/limiter)
const (
	DefaultRateLimit = "120-M"
)

// Feed defaults
const (
	DefaultCBRURL       = "https://www.cbr.ru/scripts/XML_daily.asp"
	DefaultCoinGeckoURL        = "https://api.coingecko.com/api/v3/simple/price"
	DefaultCoinGeckoMarketsURL = "https://api.coingecko.com/api/v3/coins/markets"
	DefaultFeedTimeout         = 10 * time.Second
)

// Refresh defaults
const (
	DefaultRefreshInterval      = 12 * time.Hour
	DefaultRefreshRetryAttempts = 3
	DefaultRefreshRetryDelay    = 30 * time.Second
	DefaultRefreshConcurrency   = 4
	DefaultRefreshBackfillDays  = 45
)

// Kafka defaults
const (
	DefaultKafkaBrokers  = "localhost:9092"
	DefaultKafkaTopic    = "rates.updated"
	DefaultKafkaGroupID  = "rates-bot-group"
	DefaultKafkaMinBytes = 1
	DefaultKafkaMaxBytes = 10485760 // 10MB
	DefaultKafkaMaxWait  = 500 * time.Millisecond
)

// Processing defaults
const (
	DefaultBatchSize     = 10
	DefaultWorkers       = 2
	DefaultFlushInterval = 5 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 1 * time.Second
)

// MongoDB defaults
const (
	DefaultMongoURI                   = "mongodb://localhost:27017"
	DefaultMongoDatabase              = "rates_bot"
	DefaultMongoSubscribersCollection = "subscribers"
	DefaultMongoEventsCollection      = "rate_events"
	DefaultMongoTimeout               = 10 * time.Second
	DefaultMongoMaxPoolSize           = 50
	DefaultMongoMinPoolSize           = 5
)

// Bot defaults
const (
	DefaultMainCurrencies  = "USD,EUR,CNY,GBP,JPY"
	DefaultRatesAPIAddress = "localhost:50051"
	DefaultRatesAPITimeout = 5 * time.Second
	DefaultPricesTTL       = 5 * time.Minute
	DefaultMarketsTTL      = 300 * time.Second
)
