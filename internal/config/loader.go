package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POOLBET_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POOLBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POOLBET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POOLBET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POOLBET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POOLBET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POOLBET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POOLBET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POOLBET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POOLBET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POOLBET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POOLBET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POOLBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POOLBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POOLBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POOLBET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POOLBET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POOLBET_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "POOLBET_REDIS_CACHE_TTL_MINUTES")
	setInt(&cfg.Redis.StreamMaxLen, "POOLBET_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "POOLBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POOLBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "POOLBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POOLBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POOLBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POOLBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POOLBET_S3_FORCE_PATH_STYLE")

	// ── Wallet / Oracle ──
	setStr(&cfg.Wallet.BaseURL, "POOLBET_WALLET_BASE_URL")
	setStr(&cfg.Wallet.APIKey, "POOLBET_WALLET_API_KEY")
	setDuration(&cfg.Wallet.Timeout, "POOLBET_WALLET_TIMEOUT")
	setStr(&cfg.Oracle.BaseURL, "POOLBET_ORACLE_BASE_URL")
	setDuration(&cfg.Oracle.Timeout, "POOLBET_ORACLE_TIMEOUT")

	// ── Fees / Market ──
	setStr(&cfg.Fees.PlatformFeeRate, "POOLBET_FEES_PLATFORM_FEE_RATE")
	setStr(&cfg.Fees.CreatorFeeRate, "POOLBET_FEES_CREATOR_FEE_RATE")
	setStr(&cfg.Market.SeedLiquidity, "POOLBET_MARKET_SEED_LIQUIDITY")
	setInt(&cfg.Market.MaxBetRetries, "POOLBET_MARKET_MAX_BET_RETRIES")

	// ── Server ──
	setInt(&cfg.Server.Port, "POOLBET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POOLBET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POOLBET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "POOLBET_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "POOLBET_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POOLBET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POOLBET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POOLBET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POOLBET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "POOLBET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
