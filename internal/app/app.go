// Package app owns the application lifecycle: it wires the stores, caches,
// platform clients, and services together, starts the HTTP server and the
// WebSocket hub, and tears everything down on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poolbet/poolbet/internal/config"
	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/server"
	"github.com/poolbet/poolbet/internal/server/handler"
	"github.com/poolbet/poolbet/internal/server/ws"
	"github.com/poolbet/poolbet/internal/service"
)

// shutdownGrace bounds how long in-flight requests may drain on shutdown.
const shutdownGrace = 15 * time.Second

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the API server and the WebSocket hub,
// and blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	defer cleanup()

	seed, err := a.cfg.Market.Seed()
	if err != nil {
		return fmt.Errorf("app: seed liquidity: %w", err)
	}
	platformRate, err := a.cfg.Fees.PlatformRate()
	if err != nil {
		return fmt.Errorf("app: platform fee rate: %w", err)
	}
	creatorRate, err := a.cfg.Fees.CreatorRate()
	if err != nil {
		return fmt.Errorf("app: creator fee rate: %w", err)
	}
	feeCfg := domain.FeeConfig{
		PlatformFeeRate: platformRate,
		CreatorFeeRate:  creatorRate,
	}
	if err := feeCfg.Validate(); err != nil {
		return fmt.Errorf("app: fee config: %w", err)
	}

	markets := service.NewMarketService(deps.MarketStore, deps.MarketCache, seed, a.logger)
	bets := service.NewBetService(
		deps.MarketStore, deps.BetStore, deps.MarketCache, deps.SignalBus,
		deps.Wallet, a.cfg.Market.MaxBetRetries, a.logger,
	)
	settlement := service.NewSettlementService(
		deps.MarketStore, deps.BetStore, deps.MarketCache, deps.LockManager,
		deps.SignalBus, deps.Archiver, deps.Notifier, a.logger,
	)
	claims := service.NewClaimService(deps.BetStore, deps.SignalBus, a.logger)

	hub := ws.NewHub(deps.SignalBus, a.logger)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateLimitWindow.Duration,
		},
		server.Handlers{
			Health:  handler.NewHealthHandler(deps.DB, a.logger),
			Markets: handler.NewMarketHandler(markets, settlement, deps.BlobReader, a.logger),
			Bets:    handler.NewBetHandler(bets, deps.Oracle, feeCfg, a.logger),
			Claims:  handler.NewClaimHandler(claims, a.logger),
			Users:   handler.NewUserHandler(deps.UserStore, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("app: ws hub: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.logger.Info("application stopped")
	return nil
}
