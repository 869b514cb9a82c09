package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rickgao/empire-bidder/internal/config"
)

// Pools holds database connections for the bidder.
type Pools struct {
	// Postgres holds the price reference tables and bid_attempts.
	Postgres *pgxpool.Pool
}

// NewPools creates the connection pool and ensures the audit schema exists
// when auditing is enabled.
func NewPools(ctx context.Context, cfg config.DatabaseConfig, audit bool) (*Pools, error) {
	pg, err := Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if audit {
		if err := EnsureAuditSchema(ctx, pg); err != nil {
			pg.Close()
			return nil, err
		}
	}

	return &Pools{Postgres: pg}, nil
}

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Close closes the connection pool. Safe on a nil receiver.
func (p *Pools) Close() {
	if p == nil {
		return
	}
	if p.Postgres != nil {
		p.Postgres.Close()
	}
}

// Ping verifies the connection is healthy. A nil Pools is healthy: the
// bidder runs without a database when nothing needs one.
func (p *Pools) Ping(ctx context.Context) error {
	if p == nil || p.Postgres == nil {
		return nil
	}
	if err := p.Postgres.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// PostgresPool returns the Postgres pool, or nil on a nil receiver.
func (p *Pools) PostgresPool() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Postgres
}
