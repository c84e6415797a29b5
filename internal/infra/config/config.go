package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `env:"APP_ENV"   envDefault:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9090"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH"    envDefault:"data/staybook.db"`
	PostgresDSN   string `env:"POSTGRES_DSN"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB"  envDefault:"staybook"`

	KafkaBrokers      []string `env:"KAFKA_BROKERS"       envSeparator:","`
	KafkaTopicPrefix  string   `env:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID      string   `env:"KAFKA_GROUP_ID"      envDefault:"staybook-engine"`
	NotificationTopic string   `env:"NOTIFICATION_TOPIC"  envDefault:"notifications.v1"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"        envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL"       envDefault:"5m"`

	IdempotencyTTL     time.Duration   `env:"IDEMP_TTL"            envDefault:"168h"`
	OutboxPollInterval time.Duration   `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	RetryBackoff       []time.Duration `env:"RETRY_BACKOFF"        envDefault:"1s,5s,30s" envSeparator:","`

	SignalsEndpoint string        `env:"PRICING_SIGNALS_URL"`
	SignalsFile     string        `env:"PRICING_SIGNALS_FILE"`
	SignalsRefresh  time.Duration `env:"PRICING_SIGNALS_REFRESH" envDefault:"15m"`

	S3Endpoint   string `env:"S3_ENDPOINT"`
	S3AccessKey  string `env:"S3_ACCESS_KEY"`
	S3SecretKey  string `env:"S3_SECRET_KEY"`
	S3Bucket     string `env:"S3_BUCKET"     envDefault:"staybook-calendars"`
	S3UseSSL     bool   `env:"S3_USE_SSL"    envDefault:"false"`
	S3PublicURL  string `env:"S3_PUBLIC_URL"`
	S3PublicRead bool   `env:"S3_PUBLIC_READ" envDefault:"false"`

	OTelEndpoint string   `env:"OTEL_EXPORTER_ENDPOINT"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	FixturesPath string   `env:"LISTING_FIXTURES"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	for _, d := range c.RetryBackoff {
		if d <= 0 {
			return fmt.Errorf("RETRY_BACKOFF entries must be positive")
		}
	}
	return nil
}

// KafkaEnabled reports whether events are relayed through the broker.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
