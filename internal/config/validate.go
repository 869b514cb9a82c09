package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *BidderConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.APIKey == "" && c.API.APIKeyFile == "" {
		return errors.New("api.api_key or api.api_key_file is required")
	}
	if !strings.HasPrefix(c.API.WSURL, "ws://") && !strings.HasPrefix(c.API.WSURL, "wss://") {
		return fmt.Errorf("api.ws_url must start with ws:// or wss://, got %q", c.API.WSURL)
	}

	switch c.Pricing.Source {
	case PricingSourcePostgres:
	case PricingSourceSQLite:
		if c.Pricing.SQLitePath == "" {
			return errors.New("pricing.sqlite_path is required for sqlite source")
		}
	default:
		return fmt.Errorf("pricing.source must be %q or %q, got %q", PricingSourcePostgres, PricingSourceSQLite, c.Pricing.Source)
	}

	if c.UsesPostgres() {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	if c.Bidding.ContentionCooldown < 0 {
		return errors.New("bidding.contention_cooldown must be >= 0")
	}
	if c.Bidding.MaxContentionRetries < 1 {
		return errors.New("bidding.max_contention_retries must be >= 1")
	}
	if c.Bidding.MaxEscalations < 1 {
		return errors.New("bidding.max_escalations must be >= 1")
	}

	if c.Filters.MinBalance < 0 {
		return errors.New("filters.min_balance must be >= 0")
	}
	if c.Filters.PerPage < 1 {
		return errors.New("filters.per_page must be >= 1")
	}

	if c.Dispatch.MaxConcurrency < 1 {
		return errors.New("dispatch.max_concurrency must be >= 1")
	}
	if c.Dispatch.QueueSize < 1 {
		return errors.New("dispatch.queue_size must be >= 1")
	}

	if c.Reconnect.ReconnectDelay < 0 || c.Reconnect.StartupRetryDelay < 0 {
		return errors.New("reconnect delays must be >= 0")
	}
	if c.Reconnect.MaxInitAttempts < 0 {
		return errors.New("reconnect.max_init_attempts must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BatchSize < 1 {
		return errors.New("audit.batch_size must be >= 1")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
