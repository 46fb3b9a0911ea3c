package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/poolbet/poolbet/internal/blob/s3"
	"github.com/poolbet/poolbet/internal/cache/redis"
	"github.com/poolbet/poolbet/internal/config"
	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/notify"
	"github.com/poolbet/poolbet/internal/platform/oracle"
	"github.com/poolbet/poolbet/internal/platform/wallet"
	"github.com/poolbet/poolbet/internal/store/postgres"
)

// Dependencies bundles everything the API surface needs. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	MarketStore domain.MarketStore
	BetStore    domain.BetStore
	UserStore   domain.UserStore

	// Redis-backed infrastructure
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// External platform clients
	Wallet domain.WalletService
	Oracle domain.PriceOracle // nil when no oracle is configured

	// Settlement archive; both nil when no bucket is configured.
	Archiver   domain.Archiver
	BlobReader domain.BlobReader

	// Notifications
	Notifier *notify.Notifier

	// DB is the raw postgres client, exposed for health checks.
	DB *postgres.Client
}

// Wire constructs the concrete dependency implementations from the
// configuration and returns them with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.DB = pgClient
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.BetStore = postgres.NewBetStore(pool)
	deps.UserStore = postgres.NewUserStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("wire: redis close", slog.String("error", err.Error()))
		}
	})

	cacheTTL := time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute
	deps.MarketCache = redis.NewMarketCache(redisClient, cacheTTL)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient, int64(cfg.Redis.StreamMaxLen))

	// --- Custody wallet ---
	deps.Wallet = wallet.New(cfg.Wallet.BaseURL, cfg.Wallet.APIKey, cfg.Wallet.Timeout.Duration)

	// --- Price oracle (optional) ---
	if cfg.Oracle.BaseURL != "" {
		deps.Oracle = oracle.New(cfg.Oracle.BaseURL, cfg.Oracle.Timeout.Duration)
	}

	// --- Settlement archive (optional) ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
