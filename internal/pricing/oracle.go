// Package pricing provides the reference price lookup that caps every bid.
//
// A reference price is the most the bidder is willing to pay for an item,
// keyed by market name. Two backends are supported: a Postgres query against
// an existing price table, and a local SQLite file managed through gorm.
package pricing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rickgao/empire-bidder/internal/config"
)

// Oracle looks up reference prices.
type Oracle interface {
	// ReferencePrice returns the reference price for marketName in minor
	// units. found is false when no price is known; that is not an error.
	ReferencePrice(ctx context.Context, marketName string) (price int64, found bool, err error)
}

// New builds the oracle selected by cfg.Source. pool may be nil unless the
// source is postgres.
func New(cfg config.PricingConfig, pool *pgxpool.Pool, logger *slog.Logger) (Oracle, error) {
	switch cfg.Source {
	case config.PricingSourcePostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres pricing requires a database pool")
		}
		return NewPostgresOracle(pool, cfg.Query, logger), nil
	case config.PricingSourceSQLite:
		return OpenSQLite(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown pricing source %q", cfg.Source)
	}
}
