package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// rowQuerier is the subset of pgxpool.Pool used by PostgresOracle.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresOracle reads reference prices with a single-row query whose only
// parameter ($1) is the market name.
type PostgresOracle struct {
	db     rowQuerier
	query  string
	logger *slog.Logger
}

// NewPostgresOracle creates an oracle backed by db.
func NewPostgresOracle(db rowQuerier, query string, logger *slog.Logger) *PostgresOracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOracle{
		db:     db,
		query:  query,
		logger: logger,
	}
}

// ReferencePrice implements Oracle.
func (o *PostgresOracle) ReferencePrice(ctx context.Context, marketName string) (int64, bool, error) {
	var price *int64
	err := o.db.QueryRow(ctx, o.query, marketName).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query reference price: %w", err)
	}
	if price == nil {
		return 0, false, nil
	}

	return *price, true, nil
}
