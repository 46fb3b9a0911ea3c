// Package service composes the domain stores, caches, and external
// collaborators into the operations exposed by the API layer.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// BetService is the bet ledger: it validates a stake against current market
// state, prices it, and persists the bet together with the market's pool
// update.
type BetService struct {
	markets    domain.MarketStore
	bets       domain.BetStore
	cache      domain.MarketCache
	bus        domain.SignalBus
	wallet     domain.WalletService
	logger     *slog.Logger
	maxRetries int
	now        func() time.Time
}

// NewBetService creates a BetService. maxRetries bounds the optimistic
// retry loop on pool-version conflicts; values below 1 are clamped to 1.
func NewBetService(
	markets domain.MarketStore,
	bets domain.BetStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	wallet domain.WalletService,
	maxRetries int,
	logger *slog.Logger,
) *BetService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &BetService{
		markets:    markets,
		bets:       bets,
		cache:      cache,
		bus:        bus,
		wallet:     wallet,
		logger:     logger,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// PlaceBet validates, prices, and persists a stake on one side of a market.
//
// The gross stake is debited from the user's custody wallet before anything
// is written; the ledger write itself is one transaction (bet insert plus
// conditional pool update). A pool-version conflict re-reads the market and
// retries the pricing against the fresh snapshot, up to the retry budget.
func (s *BetService) PlaceBet(
	ctx context.Context,
	userID, marketID int64,
	side bool,
	grossAmount decimal.Decimal,
	feeCfg domain.FeeConfig,
) (domain.Bet, error) {
	split, err := domain.SplitFees(grossAmount, feeCfg)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: split fees: %w", err)
	}

	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: load market %d: %w", marketID, err)
	}
	if !market.Active(s.now()) {
		return domain.Bet{}, fmt.Errorf("bet_service: market %d: %w", marketID, domain.ErrMarketInactive)
	}

	// Custody transfer first; the ledger only records stakes the wallet
	// has actually collected.
	transferRef, err := s.wallet.Debit(ctx, userID, grossAmount)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: wallet debit: %w", err)
	}

	placed, err := s.placeWithRetry(ctx, userID, market, side, grossAmount, split)
	if err != nil {
		// The wallet already holds the stake; hand it back.
		if refundErr := s.wallet.Refund(ctx, userID, grossAmount, transferRef); refundErr != nil {
			s.logger.ErrorContext(ctx, "bet_service: refund after failed placement",
				slog.Int64("user_id", userID),
				slog.String("transfer_ref", transferRef),
				slog.String("error", refundErr.Error()),
			)
		}
		return domain.Bet{}, err
	}

	if cacheErr := s.cache.Invalidate(ctx, marketID); cacheErr != nil {
		s.logger.WarnContext(ctx, "bet_service: cache invalidate failed",
			slog.Int64("market_id", marketID),
			slog.String("error", cacheErr.Error()),
		)
	}

	s.publishBetPlaced(ctx, placed)

	s.logger.InfoContext(ctx, "bet_service: bet placed",
		slog.Int64("bet_id", placed.ID),
		slog.Int64("market_id", marketID),
		slog.Int64("user_id", userID),
		slog.String("side", domain.SideLabel(side)),
		slog.String("gross", grossAmount.StringFixed(domain.CurrencyScale)),
		slog.String("net", placed.NetContribution.StringFixed(domain.CurrencyScale)),
		slog.String("price", placed.Price.StringFixed(domain.PriceScale)),
	)

	return placed, nil
}

// placeWithRetry runs the price-and-write cycle, re-reading the market on
// each version conflict.
func (s *BetService) placeWithRetry(
	ctx context.Context,
	userID int64,
	market domain.Market,
	side bool,
	grossAmount decimal.Decimal,
	split domain.FeeSplit,
) (domain.Bet, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		quote := domain.PriceBet(market, side, split.NetContribution)

		bet := domain.Bet{
			MarketID:        market.ID,
			UserID:          userID,
			Side:            side,
			GrossAmount:     grossAmount,
			PlatformFee:     split.PlatformFee,
			CreatorFee:      split.CreatorFee,
			NetContribution: split.NetContribution,
			Price:           quote.Price,
		}
		update := domain.MarketUpdate{
			MarketID:         market.ID,
			ExpectedVersion:  market.Version,
			YesPool:          quote.NewYesPool,
			NoPool:           quote.NewNoPool,
			YesPrice:         quote.NewYesPrice,
			NoPrice:          quote.NewNoPrice,
			VolumeDelta:      split.NetContribution,
			ParticipantDelta: 1,
		}

		placed, err := s.bets.Place(ctx, bet, update)
		if err == nil {
			return placed, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return domain.Bet{}, fmt.Errorf("bet_service: place bet: %w", err)
		}

		s.logger.DebugContext(ctx, "bet_service: pool version conflict, retrying",
			slog.Int64("market_id", market.ID),
			slog.Int("attempt", attempt+1),
		)

		market, err = s.markets.GetByID(ctx, market.ID)
		if err != nil {
			return domain.Bet{}, fmt.Errorf("bet_service: reload market %d: %w", market.ID, err)
		}
		if !market.Active(s.now()) {
			return domain.Bet{}, fmt.Errorf("bet_service: market %d: %w", market.ID, domain.ErrMarketInactive)
		}
	}

	return domain.Bet{}, fmt.Errorf("bet_service: retry budget exhausted after %d attempts: %w",
		s.maxRetries, domain.ErrConcurrencyConflict)
}

func (s *BetService) publishBetPlaced(ctx context.Context, bet domain.Bet) {
	evt, _ := json.Marshal(map[string]any{
		"event":     "bet_placed",
		"bet_id":    bet.ID,
		"market_id": bet.MarketID,
		"side":      domain.SideLabel(bet.Side),
		"net":       bet.NetContribution.StringFixed(domain.CurrencyScale),
		"price":     bet.Price.StringFixed(domain.PriceScale),
		"timestamp": bet.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, "bets", evt); err != nil {
		s.logger.WarnContext(ctx, "bet_service: publish bet event failed",
			slog.Int64("bet_id", bet.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, "stream:bets", evt); err != nil {
		s.logger.WarnContext(ctx, "bet_service: append bet stream failed",
			slog.Int64("bet_id", bet.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ListByMarket returns bets for a market with pagination.
func (s *BetService) ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	bets, err := s.bets.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("bet_service: list by market %d: %w", marketID, err)
	}
	return bets, nil
}
