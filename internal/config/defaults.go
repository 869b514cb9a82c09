package config

import "time"

// Pricing sources.
const (
	PricingSourcePostgres = "postgres"
	PricingSourceSQLite   = "sqlite"
)

// Default values for optional configuration fields.
const (
	DefaultRestURL              = "https://csgoempire.com/api/v2"
	DefaultWSURL                = "wss://trade.csgoempire.com"
	DefaultWSPath               = "/s/"
	DefaultAPITimeout           = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultPricingSource        = PricingSourcePostgres
	DefaultSQLitePath           = "data/prices.db"
	DefaultPriceQuery           = "SELECT p.price_empire FROM item_prices p JOIN items i ON p.item_id = i.id WHERE i.market_hash_name = $1 LIMIT 1"
	DefaultContentionCooldown   = 1 * time.Second
	DefaultMaxContentionRetries = 10
	DefaultMaxEscalations       = 50
	DefaultMinBalance           = 3000
	DefaultPerPage              = 2500
	DefaultAuctionFilter        = "yes"
	DefaultPriceMaxAbove        = 20
	DefaultMaxConcurrency       = 64
	DefaultQueueSize            = 256
	DefaultReconnectDelay       = 5 * time.Second
	DefaultStartupRetryDelay    = 180 * time.Second
	DefaultPingTimeout          = 60 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultBufferSize           = 1000
	DefaultAuditBatchSize       = 100
	DefaultAuditFlushInterval   = 5 * time.Second
	DefaultPollInterval         = 1 * time.Minute
	DefaultLogLevel             = "info"
	DefaultLogFile              = "logs/application.log"
	DefaultLogMaxSizeMB         = 10
	DefaultLogMaxBackups        = 3
	DefaultLogMaxAgeDays        = 28
	DefaultHealthPort           = 8080
)

func (c *BidderConfig) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.WSPath == "" {
		c.API.WSPath = DefaultWSPath
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// Pricing defaults
	if c.Pricing.Source == "" {
		c.Pricing.Source = DefaultPricingSource
	}
	if c.Pricing.SQLitePath == "" {
		c.Pricing.SQLitePath = DefaultSQLitePath
	}
	if c.Pricing.Query == "" {
		c.Pricing.Query = DefaultPriceQuery
	}

	// Bidding defaults
	if c.Bidding.ContentionCooldown == 0 {
		c.Bidding.ContentionCooldown = DefaultContentionCooldown
	}
	if c.Bidding.MaxContentionRetries == 0 {
		c.Bidding.MaxContentionRetries = DefaultMaxContentionRetries
	}
	if c.Bidding.MaxEscalations == 0 {
		c.Bidding.MaxEscalations = DefaultMaxEscalations
	}

	// Filters defaults
	if c.Filters.MinBalance == 0 {
		c.Filters.MinBalance = DefaultMinBalance
	}
	if c.Filters.PerPage == 0 {
		c.Filters.PerPage = DefaultPerPage
	}
	if c.Filters.Auction == "" {
		c.Filters.Auction = DefaultAuctionFilter
	}
	if c.Filters.PriceMaxAbove == 0 {
		c.Filters.PriceMaxAbove = DefaultPriceMaxAbove
	}

	// Dispatch defaults
	if c.Dispatch.MaxConcurrency == 0 {
		c.Dispatch.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Dispatch.QueueSize == 0 {
		c.Dispatch.QueueSize = DefaultQueueSize
	}

	// Reconnect defaults
	if c.Reconnect.ReconnectDelay == 0 {
		c.Reconnect.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Reconnect.StartupRetryDelay == 0 {
		c.Reconnect.StartupRetryDelay = DefaultStartupRetryDelay
	}

	// Connection defaults
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Audit defaults
	if c.Audit.BatchSize == 0 {
		c.Audit.BatchSize = DefaultAuditBatchSize
	}
	if c.Audit.FlushInterval == 0 {
		c.Audit.FlushInterval = DefaultAuditFlushInterval
	}

	// Poller: a negative interval disables it, zero means default.
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.File == "" {
		c.Logging.File = DefaultLogFile
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
