package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/axmq/ds/metrics"
	"github.com/axmq/ds/pkg/logger"
	"github.com/axmq/ds/tracing"
	"github.com/caarlos0/env/v11"
)

// Store backends
const (
	BackendMemory    = "memory"
	BackendPebble    = "pebble"
	BackendRedis     = "redis"
	BackendCouchbase = "couchbase"
)

// Config is the daemon configuration, read from the environment
type Config struct {
	Backend   string `env:"DS_BACKEND" envDefault:"memory"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text or json

	Pebble    PebbleConfig
	Redis     RedisConfig
	Couchbase CouchbaseConfig
	Shards    ShardConfig
	Limits    LimitConfig

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	Metrics        metrics.ServerConfig
	Tracing        tracing.Config
}

type PebbleConfig struct {
	Path   string `env:"PEBBLE_PATH" envDefault:"data/ds"`
	Prefix string `env:"PEBBLE_PREFIX"`
}

type RedisConfig struct {
	Addr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password   string `env:"REDIS_PASSWORD"`
	DB         int    `env:"REDIS_DB" envDefault:"0"`
	Prefix     string `env:"REDIS_PREFIX" envDefault:"ds:"`
	MaxRetries uint   `env:"REDIS_MAX_RETRIES" envDefault:"10"`
}

type CouchbaseConfig struct {
	ConnectionString string        `env:"COUCHBASE_CONNECTION_STRING" envDefault:"couchbase://localhost"`
	Username         string        `env:"COUCHBASE_USERNAME" envDefault:"Administrator"`
	Password         string        `env:"COUCHBASE_PASSWORD"`
	Bucket           string        `env:"COUCHBASE_BUCKET_NAME" envDefault:"ds"`
	Scope            string        `env:"COUCHBASE_SCOPE_NAME" envDefault:"_default"`
	Collection       string        `env:"COUCHBASE_COLLECTION_NAME" envDefault:"_default"`
	Timeout          time.Duration `env:"COUCHBASE_TIMEOUT" envDefault:"10s"`
}

// ShardConfig lists the shards started at boot
type ShardConfig struct {
	Dir   string   `env:"SHARD_DIR" envDefault:"data/shards"`
	Names []string `env:"SHARDS" envSeparator:","`
}

// LimitConfig bounds how often a client may open its session; a zero
// rate disables the limit
type LimitConfig struct {
	SessionOpenRate   int           `env:"SESSION_OPEN_RATE" envDefault:"0"`
	SessionOpenWindow time.Duration `env:"SESSION_OPEN_WINDOW" envDefault:"1m"`
}

// Load parses the process environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses the given environment instead of the process one
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for inconsistent values
func (c Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendMemory:
	case BackendPebble:
		if c.Pebble.Path == "" {
			errs = append(errs, errors.New("PEBBLE_PATH is required for the pebble backend"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendCouchbase:
		if c.Couchbase.ConnectionString == "" || c.Couchbase.Bucket == "" {
			errs = append(errs, errors.New("COUCHBASE_CONNECTION_STRING and COUCHBASE_BUCKET_NAME are required for the couchbase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	if c.MetricsEnabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics port %d out of range", c.Metrics.Port))
	}
	if c.Tracing.Enabled && (c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1) {
		errs = append(errs, fmt.Errorf("tracing sample rate %v must be within [0, 1]", c.Tracing.SampleRate))
	}

	if len(c.Shards.Names) > 0 && c.Shards.Dir == "" {
		errs = append(errs, errors.New("SHARD_DIR is required when SHARDS is set"))
	}
	for _, name := range c.Shards.Names {
		if name == "" || strings.ContainsAny(name, `/\`) {
			errs = append(errs, fmt.Errorf("invalid shard name %q", name))
		}
	}

	if c.Limits.SessionOpenRate < 0 {
		errs = append(errs, fmt.Errorf("session open rate %d must not be negative", c.Limits.SessionOpenRate))
	}
	if c.Limits.SessionOpenRate > 0 && c.Limits.SessionOpenWindow <= 0 {
		errs = append(errs, errors.New("SESSION_OPEN_WINDOW must be positive when SESSION_OPEN_RATE is set"))
	}

	return errors.Join(errs...)
}
