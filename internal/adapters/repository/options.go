// Package repository defines the ledger and audit store interfaces with memory and SQL backends.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Storage drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultMaxOpenConns    = 16
	defaultConnMaxLifetime = 30 * time.Minute
)

// Option applies a configuration option to Open.
type Option func(*openConfig)

type openConfig struct {
	maxOpenConns    int
	connMaxLifetime time.Duration
}

// WithMaxOpenConns caps the SQL connection pool. SQLite always uses a single connection.
func WithMaxOpenConns(n int) Option {
	return func(c *openConfig) {
		if n > 0 {
			c.maxOpenConns = n
		}
	}
}

// WithConnMaxLifetime sets how long a pooled connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *openConfig) {
		if d > 0 {
			c.connMaxLifetime = d
		}
	}
}

// Open builds the store for driver and runs migrations for SQL backends.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	cfg := openConfig{maxOpenConns: defaultMaxOpenConns, connMaxLifetime: defaultConnMaxLifetime}
	for _, opt := range opts {
		opt(&cfg)
	}

	var dialect Dialect
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		dialect = DialectSQLite
		cfg.maxOpenConns = 1
		cfg.connMaxLifetime = 0
	case DriverPostgres:
		dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
