package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Lock      LockConfig
	Regions   RegionConfig
	Dispatch  DispatchConfig
	Sinks     SinkConfig
	Telemetry TelemetryConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=geofence"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type LockConfig struct {
	// Backend is "memory" (single process) or "redis" (shared across processes).
	Backend     string        `env:"LOCK_BACKEND,      default=memory"`
	TTL         time.Duration `env:"LOCK_TTL,          default=30s"`
	WaitTimeout time.Duration `env:"LOCK_WAIT_TIMEOUT, default=10s"`
}

type RegionConfig struct {
	CacheTTL     time.Duration `env:"REGION_CACHE_TTL,     default=5m"`
	FetchTimeout time.Duration `env:"REGION_FETCH_TIMEOUT, default=5s"`
	VertexCount  int           `env:"POLYGON_VERTEX_COUNT, default=8"`
}

type DispatchConfig struct {
	Workers     int           `env:"DISPATCH_WORKERS,    default=8"`
	QueueSize   int           `env:"DISPATCH_QUEUE_SIZE, default=256"`
	SinkTimeout time.Duration `env:"SINK_TIMEOUT,        default=5s"`
}

type SinkConfig struct {
	WebhookURL    string   `env:"WEBHOOK_URL"`
	WebhookSecret string   `env:"WEBHOOK_SECRET"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS"`
	KafkaTopic    string   `env:"KAFKA_TOPIC, default=geofence.transitions"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME, default=geofence-api"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration through lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Lock.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("LOCK_BACKEND must be memory or redis, got %q", c.Lock.Backend)
	}
	if c.Regions.VertexCount < 0 || (c.Regions.VertexCount > 0 && c.Regions.VertexCount < 3) {
		return fmt.Errorf("POLYGON_VERTEX_COUNT must be 0 or at least 3, got %d", c.Regions.VertexCount)
	}
	return nil
}

// IsDevelopment reports whether human-friendly output should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}
