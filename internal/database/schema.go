package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditSchema creates the bid_attempts table written by the audit writer.
const AuditSchema = `
CREATE TABLE IF NOT EXISTS bid_attempts (
	attempt_id     UUID PRIMARY KEY,
	negotiation_id UUID        NOT NULL,
	item_id        BIGINT      NOT NULL,
	market_name    TEXT        NOT NULL,
	bid_value      BIGINT      NOT NULL,
	bid_max        BIGINT      NOT NULL,
	result         TEXT        NOT NULL,
	error_key      TEXT        NOT NULL DEFAULT '',
	message        TEXT        NOT NULL DEFAULT '',
	sent_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS bid_attempts_item_id_idx ON bid_attempts (item_id);
`

// EnsureAuditSchema creates the audit table if it does not exist.
func EnsureAuditSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, AuditSchema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}
