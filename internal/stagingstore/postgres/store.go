// Package postgres implements the stagingstore.Store contract against a
// PostgreSQL database using pgx/v5.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmwm/dbs3-uploader/internal/logger"
)

// Store implements stagingstore.Store against a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	config *Config
}

// New creates a Store, establishing the connection pool and optionally
// applying pending schema migrations.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	cfg.ApplyDefaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse staging store dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create staging store connection pool: %w", err)
	}

	if cfg.AutoMigrate {
		if err := runMigrations(ctx, cfg.DSN); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run staging store migrations: %w", err)
		}
	}

	logger.Info("staging store connected", "max_conns", cfg.MaxConns)

	return &Store{pool: pool, config: cfg}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
