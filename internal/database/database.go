// Package database provides database connection management and utilities.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds database configuration settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Connect establishes a database connection with the given configuration.
// The pool is shared by HTTP handlers and background workers, so MaxOpenConnections
// should leave room for one held connection per delivery worker.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverMySQL {
		return nil, fmt.Errorf("failed to open database: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
