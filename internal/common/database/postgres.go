package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loan-eligibility-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient owns the pool shared by the profile, report and
// application workers.
type PostgresClient struct {
	db          *sql.DB
	autoMigrate bool
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres %s/%s: %w", cfg.Host, cfg.Database, err)
	}

	lifetime := time.Duration(cfg.ConnMaxLifetime) * time.Second
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(lifetime)

	return &PostgresClient{db: db, autoMigrate: cfg.AutoMigrate}, nil
}

// WrapPostgres adopts an already opened pool.
func WrapPostgres(db *sql.DB, autoMigrate bool) *PostgresClient {
	return &PostgresClient{db: db, autoMigrate: autoMigrate}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema when auto-migration is on and
// reports whether it ran.
func (c *PostgresClient) Migrate() (bool, error) {
	if !c.autoMigrate {
		return false, nil
	}
	if err := RunMigrations(c.db); err != nil {
		return false, err
	}
	return true, nil
}

func (c *PostgresClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.db
}
