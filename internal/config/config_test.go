package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
	assert.Equal(t, DefaultGRPCPort, cfg.Server.GRPCPort)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, DefaultRefreshInterval, cfg.Refresh.Interval)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"USD", "EUR", "CNY", "GBP", "JPY"}, cfg.Telegram.MainCurrencies)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MarketsTTL)
	assert.Equal(t, DefaultCoinGeckoMarketsURL, cfg.Feed.MarketsURL)
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.env")
	content := "HTTP_PORT=9090\n" +
		"STORAGE_DRIVER=Memory\n" +
		"KAFKA_BROKERS=kafka-1:9092, kafka-2:9092,\n" +
		"REFRESH_INTERVAL=1h\n" +
		"REFRESH_ENABLED=false\n" +
		"DB_PORT=not-a-number\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	keys := []string{"HTTP_PORT", "STORAGE_DRIVER", "KAFKA_BROKERS", "REFRESH_INTERVAL", "REFRESH_ENABLED", "DB_PORT"}
	t.Cleanup(func() {
		for _, key := range keys {
			os.Unsetenv(key)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.HTTPPort)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Refresh.Interval)
	assert.False(t, cfg.Refresh.Enabled)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "sqlite"
	assert.EqualError(t, cfg.Validate(), "unsupported STORAGE_DRIVER: sqlite")

	cfg.Storage.Driver = StorageDriverMemory
	cfg.Logger.Level = "loud"
	assert.EqualError(t, cfg.Validate(), "invalid log level: loud")
}

func TestValidateAPIRequiresSecret(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.EqualError(t, cfg.ValidateAPI(), "JWT_SECRET must be set to a secure value")

	cfg.JWT.Secret = "a-real-secret"
	assert.NoError(t, cfg.ValidateAPI())
}

func TestValidateBotRequiresToken(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.EqualError(t, cfg.ValidateBot(), "TELEGRAM_TOKEN is required")

	cfg.Telegram.Token = "123:abc"
	assert.NoError(t, cfg.ValidateBot())
}
