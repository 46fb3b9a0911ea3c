package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// MarketService handles market creation and read paths.
type MarketService struct {
	markets domain.MarketStore
	cache   domain.MarketCache
	seed    decimal.Decimal
	logger  *slog.Logger
	now     func() time.Time
}

// NewMarketService creates a MarketService. seed is the baseline liquidity
// each pool is created with; it must be positive (validated at config load).
func NewMarketService(
	markets domain.MarketStore,
	cache domain.MarketCache,
	seed decimal.Decimal,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		cache:   cache,
		seed:    seed,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateMarket opens a new market with both pools seeded at the configured
// baseline liquidity, so pricing is defined from the first bet.
func (s *MarketService) CreateMarket(ctx context.Context, question string, creatorID int64, endsAt time.Time) (domain.Market, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Market{}, fmt.Errorf("market_service: empty question: %w", domain.ErrInvalidAmount)
	}
	if !endsAt.After(s.now()) {
		return domain.Market{}, fmt.Errorf("market_service: end date in the past: %w", domain.ErrMarketInactive)
	}

	half := decimal.New(5, -1)
	m := domain.Market{
		Question:  question,
		CreatorID: creatorID,
		YesPool:   s.seed,
		NoPool:    s.seed,
		YesPrice:  half,
		NoPrice:   half,
		EndsAt:    endsAt,
	}

	created, err := s.markets.Create(ctx, m)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.Int64("market_id", created.ID),
		slog.Int64("creator_id", creatorID),
		slog.String("seed", s.seed.StringFixed(domain.CurrencyScale)),
		slog.Time("ends_at", endsAt),
	)

	return created, nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a miss.
func (s *MarketService) GetMarket(ctx context.Context, id int64) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %d: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.Int64("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return m, nil
}

// ListOpen returns unresolved markets directly from the persistent store.
func (s *MarketService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListOpen(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list open: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}
