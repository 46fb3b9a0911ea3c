// Package config defines the top-level configuration for the poolbet backend
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by POOLBET_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Wallet   WalletConfig   `toml:"wallet"`
	Oracle   OracleConfig   `toml:"oracle"`
	Fees     FeesConfig     `toml:"fees"`
	Market   MarketConfig   `toml:"market"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
	StreamMaxLen    int    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters for the settlement
// archive. Archival is disabled when Bucket is empty.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// WalletConfig holds parameters for the external custody wallet service.
type WalletConfig struct {
	BaseURL   string   `toml:"base_url"`
	APIKey    string   `toml:"api_key"`
	TimeoutMS int      `toml:"timeout_ms"`
	Timeout   duration `toml:"timeout"`
}

// OracleConfig holds parameters for the token price oracle service.
type OracleConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// FeesConfig holds the default fee schedule. Rates are decimal strings
// (e.g. "0.025" for 2.5%) so fee math never passes through binary floats.
// Callers may still supply explicit rates per bet.
type FeesConfig struct {
	PlatformFeeRate string `toml:"platform_fee_rate"`
	CreatorFeeRate  string `toml:"creator_fee_rate"`
}

// PlatformRate parses the platform fee rate.
func (f FeesConfig) PlatformRate() (decimal.Decimal, error) {
	return decimal.NewFromString(f.PlatformFeeRate)
}

// CreatorRate parses the creator fee rate.
func (f FeesConfig) CreatorRate() (decimal.Decimal, error) {
	return decimal.NewFromString(f.CreatorFeeRate)
}

// MarketConfig holds market creation parameters.
type MarketConfig struct {
	// SeedLiquidity is the baseline liquidity each pool is seeded with at
	// market creation. Must be positive: pools may never be zero.
	SeedLiquidity string `toml:"seed_liquidity"`
	// MaxBetRetries bounds the optimistic-concurrency retry loop for a
	// single bet placement.
	MaxBetRetries int `toml:"max_bet_retries"`
}

// Seed parses the pool seed liquidity.
func (m MarketConfig) Seed() (decimal.Decimal, error) {
	return decimal.NewFromString(m.SeedLiquidity)
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults. Values from
// the TOML file and environment are layered on top.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "poolbet",
			User:          "poolbet",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			PoolSize:        10,
			MaxRetries:      3,
			CacheTTLMinutes: 5,
			StreamMaxLen:    10000,
		},
		Wallet: WalletConfig{
			Timeout: duration{10 * time.Second},
		},
		Oracle: OracleConfig{
			Timeout: duration{5 * time.Second},
		},
		Fees: FeesConfig{
			PlatformFeeRate: "0.025",
			CreatorFeeRate:  "0.01",
		},
		Market: MarketConfig{
			SeedLiquidity: "1000.00",
			MaxBetRetries: 3,
		},
		Server: ServerConfig{
			Port:            8080,
			RateLimit:       60,
			RateLimitWindow: duration{time.Minute},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for fatal inconsistencies. It is called
// once at startup after Load.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "") {
		return fmt.Errorf("config: postgres requires dsn or host+database")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis addr is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}

	platform, err := c.Fees.PlatformRate()
	if err != nil {
		return fmt.Errorf("config: platform_fee_rate: %w", err)
	}
	creator, err := c.Fees.CreatorRate()
	if err != nil {
		return fmt.Errorf("config: creator_fee_rate: %w", err)
	}
	if platform.IsNegative() || creator.IsNegative() {
		return fmt.Errorf("config: fee rates must be non-negative")
	}
	if platform.Add(creator).GreaterThanOrEqual(decimal.New(1, 0)) {
		return fmt.Errorf("config: fee rates must sum to less than 1")
	}

	seed, err := c.Market.Seed()
	if err != nil {
		return fmt.Errorf("config: seed_liquidity: %w", err)
	}
	if !seed.IsPositive() {
		return fmt.Errorf("config: seed_liquidity must be positive")
	}
	if c.Market.MaxBetRetries < 1 {
		return fmt.Errorf("config: max_bet_retries must be at least 1")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}

	return nil
}
