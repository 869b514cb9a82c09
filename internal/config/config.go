package config

import "time"

// BidderConfig is the root configuration for a bidder instance.
type BidderConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	API        APIConfig        `yaml:"api"`
	Database   DatabaseConfig   `yaml:"database"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Bidding    BiddingConfig    `yaml:"bidding"`
	Filters    FiltersConfig    `yaml:"filters"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Connection ConnectionConfig `yaml:"connection"`
	Audit      AuditConfig      `yaml:"audit"`
	Poller     PollerConfig     `yaml:"poller"`
	Logging    LoggingConfig    `yaml:"logging"`
	Health     HealthConfig     `yaml:"health"`
}

// InstanceConfig identifies this bidder.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds marketplace API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	WSPath     string        `yaml:"ws_path"`
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // Alternative to api_key
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"` // GET requests only
}

// DatabaseConfig holds the Postgres connection used for price references and the audit log.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PricingConfig selects the reference price backend.
type PricingConfig struct {
	Source     string `yaml:"source"` // "postgres" or "sqlite"
	SQLitePath string `yaml:"sqlite_path"`
	Query      string `yaml:"query"` // Postgres lookup, $1 = market name
}

// BiddingConfig bounds the bid negotiation loop.
type BiddingConfig struct {
	ContentionCooldown   time.Duration `yaml:"contention_cooldown"`
	MaxContentionRetries int           `yaml:"max_contention_retries"`
	MaxEscalations       int           `yaml:"max_escalations"`
}

// FiltersConfig shapes the stream subscription filter.
type FiltersConfig struct {
	MinBalance    int64  `yaml:"min_balance"` // Minor units
	PerPage       int    `yaml:"per_page"`
	Auction       string `yaml:"auction"`
	PriceMaxAbove int64  `yaml:"price_max_above"`
}

// DispatchConfig holds event dispatcher settings.
type DispatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"` // Per-batch item handlers in flight
	QueueSize      int `yaml:"queue_size"`      // Initial capacity of the event queue
}

// ReconnectConfig holds supervisor delays.
type ReconnectConfig struct {
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	StartupRetryDelay time.Duration `yaml:"startup_retry_delay"`
	MaxInitAttempts   int           `yaml:"max_init_attempts"` // 0 = retry forever
}

// ConnectionConfig holds stream transport settings.
type ConnectionConfig struct {
	PingTimeout  time.Duration `yaml:"ping_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BufferSize   int           `yaml:"buffer_size"`
}

// AuditConfig holds bid audit writer settings.
type AuditConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// PollerConfig holds auction reconciler settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"` // Negative disables reconciliation
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// HealthConfig holds health server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// UsesPostgres reports whether any component needs the Postgres pool.
func (c *BidderConfig) UsesPostgres() bool {
	return c.Pricing.Source == PricingSourcePostgres || c.Audit.Enabled
}
