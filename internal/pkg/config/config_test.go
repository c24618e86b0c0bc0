package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/kyb")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 3, cfg.RefreshRetries)
	assert.Equal(t, 0, cfg.ListLimit)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, []string{"phone", "email"}, cfg.RedactionFields())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("FILE_STORE_DIR", t.TempDir())
	t.Setenv("REFRESH_INTERVAL", "5s")
	t.Setenv("ONBOARD_RATE_PER_SEC", "2.5")
	t.Setenv("PII_REDACTION_FIELDS", " phone, ,owner_email ")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreBackendFile, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 2.5, cfg.OnboardRatePerSec)
	assert.Equal(t, []string{"phone", "owner_email"}, cfg.RedactionFields())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreBackend:    StoreBackendFile,
			FileStoreDir:    "/tmp/logs",
			FileSegmentSize: 10,
			FileMaxDiskSize: 100,
			RefreshInterval: time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "postgres without url", mutate: func(c *Config) { c.StoreBackend = StoreBackendPostgres }},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "mongo" }},
		{name: "max below segment", mutate: func(c *Config) { c.FileMaxDiskSize = 5 }},
		{name: "zero interval", mutate: func(c *Config) { c.RefreshInterval = 0 }},
		{name: "negative limit", mutate: func(c *Config) { c.ListLimit = -1 }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
