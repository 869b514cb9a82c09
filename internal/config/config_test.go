package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-bidder
api:
  rest_url: https://example.test/api/v2
  ws_url: wss://trade.example.test
  api_key: key-123
database:
  postgres:
    host: localhost
    port: 5432
    name: prices
    user: testuser
    password: testpass
bidding:
  contention_cooldown: 250ms
  max_contention_retries: 4
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-bidder" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-bidder")
	}
	if cfg.API.RestURL != "https://example.test/api/v2" {
		t.Errorf("API.RestURL = %q, want %q", cfg.API.RestURL, "https://example.test/api/v2")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
	if cfg.Bidding.ContentionCooldown != 250*time.Millisecond {
		t.Errorf("Bidding.ContentionCooldown = %v, want %v", cfg.Bidding.ContentionCooldown, 250*time.Millisecond)
	}
	if cfg.Bidding.MaxContentionRetries != 4 {
		t.Errorf("Bidding.MaxContentionRetries = %d, want 4", cfg.Bidding.MaxContentionRetries)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_EMPIRE_API_KEY", "secret-key")
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-bidder
api:
  api_key: ${TEST_EMPIRE_API_KEY}
database:
  postgres:
    host: localhost
    name: prices
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.APIKey != "secret-key" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "secret-key")
	}
	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-bidder
api:
  api_key: key
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("API.RestURL = %q, want default %q", cfg.API.RestURL, DefaultRestURL)
	}
	if cfg.API.WSPath != DefaultWSPath {
		t.Errorf("API.WSPath = %q, want default %q", cfg.API.WSPath, DefaultWSPath)
	}
	if cfg.Bidding.ContentionCooldown != DefaultContentionCooldown {
		t.Errorf("Bidding.ContentionCooldown = %v, want default %v", cfg.Bidding.ContentionCooldown, DefaultContentionCooldown)
	}
	if cfg.Filters.MinBalance != DefaultMinBalance {
		t.Errorf("Filters.MinBalance = %d, want default %d", cfg.Filters.MinBalance, DefaultMinBalance)
	}
	if cfg.Filters.PerPage != DefaultPerPage {
		t.Errorf("Filters.PerPage = %d, want default %d", cfg.Filters.PerPage, DefaultPerPage)
	}
	if cfg.Reconnect.ReconnectDelay != 5*time.Second {
		t.Errorf("Reconnect.ReconnectDelay = %v, want 5s", cfg.Reconnect.ReconnectDelay)
	}
	if cfg.Reconnect.StartupRetryDelay != 180*time.Second {
		t.Errorf("Reconnect.StartupRetryDelay = %v, want 180s", cfg.Reconnect.StartupRetryDelay)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Pricing.Source != PricingSourcePostgres {
		t.Errorf("Pricing.Source = %q, want %q", cfg.Pricing.Source, PricingSourcePostgres)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want default %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestLoadAndValidate_SQLiteWithoutDatabase(t *testing.T) {
	yaml := `
instance:
  id: test-bidder
api:
  api_key_file: /run/secrets/empire_api_key
pricing:
  source: sqlite
  sqlite_path: prices.db
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.API.APIKeyFile != "/run/secrets/empire_api_key" {
		t.Errorf("API.APIKeyFile = %q, want %q", cfg.API.APIKeyFile, "/run/secrets/empire_api_key")
	}
	if cfg.UsesPostgres() {
		t.Error("UsesPostgres() = true, want false for sqlite pricing without audit")
	}
}

func TestValidate(t *testing.T) {
	valid := func() BidderConfig {
		cfg := BidderConfig{
			Instance: InstanceConfig{ID: "test"},
			API:      APIConfig{APIKey: "key"},
			Database: DatabaseConfig{
				Postgres: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass"},
			},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*BidderConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *BidderConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing api key",
			mutate:  func(c *BidderConfig) { c.API.APIKey = "" },
			wantErr: "api.api_key or api.api_key_file is required",
		},
		{
			name:    "bad ws url",
			mutate:  func(c *BidderConfig) { c.API.WSURL = "https://trade.example.test" },
			wantErr: `api.ws_url must start with ws:// or wss://, got "https://trade.example.test"`,
		},
		{
			name:    "unknown pricing source",
			mutate:  func(c *BidderConfig) { c.Pricing.Source = "redis" },
			wantErr: `pricing.source must be "postgres" or "sqlite", got "redis"`,
		},
		{
			name:    "missing postgres password",
			mutate:  func(c *BidderConfig) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password is required",
		},
		{
			name: "sqlite pricing skips postgres checks",
			mutate: func(c *BidderConfig) {
				c.Pricing.Source = PricingSourceSQLite
				c.Database.Postgres = DBConfig{}
			},
			wantErr: "",
		},
		{
			name: "audit requires postgres",
			mutate: func(c *BidderConfig) {
				c.Pricing.Source = PricingSourceSQLite
				c.Audit.Enabled = true
				c.Database.Postgres.Host = ""
			},
			wantErr: "database.postgres.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *BidderConfig) {
				c.Database.Postgres.MaxConns = 5
				c.Database.Postgres.MinConns = 10
			},
			wantErr: "database.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "negative max init attempts",
			mutate:  func(c *BidderConfig) { c.Reconnect.MaxInitAttempts = -1 },
			wantErr: "reconnect.max_init_attempts must be >= 0",
		},
		{
			name:    "bad health port",
			mutate:  func(c *BidderConfig) { c.Health.Port = 70000 },
			wantErr: "health.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "valid config",
			mutate:  func(c *BidderConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
