// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"heart-risk-workers/internal/common/config"

	_ "github.com/lib/pq"
)

const predictionTable = "prediction_log"

// PostgresClient owns the connection pool behind the prediction log.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Ready pings the server and checks the prediction log has been migrated.
func (c *PostgresClient) Ready(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return err
	}
	var table sql.NullString
	if err := c.DB.QueryRowContext(ctx, "SELECT to_regclass($1)::text", predictionTable).Scan(&table); err != nil {
		return fmt.Errorf("failed to check %s: %w", predictionTable, err)
	}
	if !table.Valid {
		return fmt.Errorf("table %s does not exist, run migrations", predictionTable)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
