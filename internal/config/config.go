// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and RINGSIDE_ environment variables on top.
// - Errors wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/rules"
)

// Storage selects the ledger and audit backend.
type Storage struct {
	// Driver is memory, sqlite or postgres.
	Driver string `koanf:"driver"`
	// DSN is passed to the SQL driver. Ignored for memory.
	DSN string `koanf:"dsn"`
	// MaxOpenConns bounds the postgres pool.
	MaxOpenConns int `koanf:"max_open_conns"`
	// ConnMaxLifetime recycles pooled connections.
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// Archive configures the closed-bout bundle sink. An empty bucket disables it.
type Archive struct {
	Bucket   string `koanf:"bucket"`
	Prefix   string `koanf:"prefix"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the rescore queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rescore workers. Zero sizes it from the CPU count.
	WorkerCount int `koanf:"worker_count"`

	// SubscriberBuffer is the per-subscriber live update buffer.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// SubscriberPolicy is drop_oldest or disconnect.
	SubscriberPolicy string `koanf:"subscriber_policy"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Storage Storage `koanf:"storage"`
	Archive Archive `koanf:"archive"`

	// Scoring carries every tunable of the scoring pipeline.
	Scoring rules.Rules `koanf:"scoring"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        4096,
		WorkerCount:      0,
		SubscriberBuffer: 16,
		SubscriberPolicy: "drop_oldest",
		ShutdownTimeout:  10 * time.Second,
		Storage: Storage{
			Driver:       repository.DriverMemory,
			MaxOpenConns: 10,
		},
		Archive: Archive{
			Prefix: "bouts/",
			Region: "us-east-1",
		},
		Scoring: rules.Default(),
	}
}

// Validate checks server fields and the scoring rules.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.QueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount < 0:
		return invalid("worker_count must not be negative, got %d", c.WorkerCount)
	case c.SubscriberBuffer < 1:
		return invalid("subscriber_buffer must be positive, got %d", c.SubscriberBuffer)
	case c.ShutdownTimeout < 0:
		return invalid("shutdown_timeout must not be negative")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("unknown log_format %q", c.LogFormat)
	}
	if _, err := broadcast.ParsePolicy(c.SubscriberPolicy); err != nil {
		return invalid("unknown subscriber_policy %q", c.SubscriberPolicy)
	}

	switch c.Storage.Driver {
	case repository.DriverMemory:
	case repository.DriverSQLite, repository.DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return invalid("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return invalid("unknown storage.driver %q", c.Storage.Driver)
	}

	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("%w: scoring: %w", ErrInvalidConfig, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
