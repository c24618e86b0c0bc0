package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendFile     = "file"
)

// Config holds all application configuration.
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9091"`

	StoreBackend    string        `env:"STORE_BACKEND" envDefault:"postgres"`
	PostgresURL     string        `env:"POSTGRES_URL"`
	FileStoreDir    string        `env:"FILE_STORE_DIR" envDefault:"./data/logs"`
	FileSegmentSize int64         `env:"FILE_SEGMENT_SIZE_BYTES" envDefault:"16777216"`    // 16MB
	FileMaxDiskSize int64         `env:"FILE_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB
	RedisURL        string        `env:"REDIS_URL"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"30s"`
	RefreshRetries  int           `env:"REFRESH_RETRIES" envDefault:"3"`
	RefreshBackoff  time.Duration `env:"REFRESH_BACKOFF" envDefault:"1s"`
	ListLimit       int           `env:"LIST_LIMIT" envDefault:"0"`

	SummarizerURL     string        `env:"SUMMARIZER_URL" envDefault:"http://localhost:8000"`
	SummarizerTimeout time.Duration `env:"SUMMARIZER_TIMEOUT" envDefault:"120s"`
	OnboardRatePerSec float64       `env:"ONBOARD_RATE_PER_SEC" envDefault:"0.5"`
	OnboardBurst      int           `env:"ONBOARD_BURST" envDefault:"2"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"kyb.logs.created"`

	PIIRedactionFields string `env:"PII_REDACTION_FIELDS" envDefault:"phone,email"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when STORE_BACKEND=%s", StoreBackendPostgres)
		}
	case StoreBackendFile:
		if c.FileStoreDir == "" {
			return fmt.Errorf("FILE_STORE_DIR is required when STORE_BACKEND=%s", StoreBackendFile)
		}
		if c.FileSegmentSize <= 0 || c.FileMaxDiskSize < c.FileSegmentSize {
			return fmt.Errorf("invalid file store sizes: segment %d, max %d", c.FileSegmentSize, c.FileMaxDiskSize)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	if c.ListLimit < 0 {
		return fmt.Errorf("LIST_LIMIT must not be negative, got %d", c.ListLimit)
	}
	return nil
}

// RedactionFields returns the configured PII field names, trimmed, without
// empties.
func (c *Config) RedactionFields() []string {
	var fields []string
	for _, f := range strings.Split(c.PIIRedactionFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
