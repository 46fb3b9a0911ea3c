package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
	"github.com/poolbet/poolbet/internal/notify"
)

// settleLockTTL bounds how long a settlement advisory lock can outlive a
// crashed holder.
const settleLockTTL = 30 * time.Second

// SettlementService resolves markets and settles their bets.
type SettlementService struct {
	markets  domain.MarketStore
	bets     domain.BetStore
	cache    domain.MarketCache
	locks    domain.LockManager
	bus      domain.SignalBus
	archiver domain.Archiver // optional
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewSettlementService creates a SettlementService. archiver may be nil when
// no blob storage is configured.
func NewSettlementService(
	markets domain.MarketStore,
	bets domain.BetStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	archiver domain.Archiver,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		markets:  markets,
		bets:     bets,
		cache:    cache,
		locks:    locks,
		bus:      bus,
		archiver: archiver,
		notifier: notifier,
		logger:   logger,
	}
}

// ResolveMarket declares the market's outcome and settles every bet on it.
//
// Idempotence rests entirely on the store's conditional resolved-flag
// transition: a second call gets domain.ErrAlreadyResolved and changes
// nothing. The redis lock in front of it is advisory, shedding duplicate
// settlement work under concurrent calls; a caller that loses the lock race
// gets the retryable domain.ErrConcurrencyConflict and, on retry, the
// authoritative ErrAlreadyResolved.
func (s *SettlementService) ResolveMarket(ctx context.Context, marketID int64, outcome bool) error {
	unlock, err := s.locks.Acquire(ctx, fmt.Sprintf("market:settle:%d", marketID), settleLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("settlement: market %d is being settled: %w",
				marketID, domain.ErrConcurrencyConflict)
		}
		return fmt.Errorf("settlement: acquire lock for market %d: %w", marketID, err)
	}
	defer unlock()

	resolutions, err := s.markets.Resolve(ctx, marketID, outcome, func(bets []domain.Bet) []domain.BetResolution {
		return domain.SettleBets(bets, outcome)
	})
	if err != nil {
		return fmt.Errorf("settlement: resolve market %d: %w", marketID, err)
	}

	if cacheErr := s.cache.Invalidate(ctx, marketID); cacheErr != nil {
		s.logger.WarnContext(ctx, "settlement: cache invalidate failed",
			slog.Int64("market_id", marketID),
			slog.String("error", cacheErr.Error()),
		)
	}

	winners := 0
	for _, r := range resolutions {
		if r.Payout.IsPositive() {
			winners++
		}
	}

	s.publishResolved(ctx, marketID, outcome, len(resolutions), winners)
	s.notifyResolved(ctx, marketID, outcome, len(resolutions), winners)
	s.archiveSettlement(ctx, marketID)

	s.logger.InfoContext(ctx, "settlement: market resolved",
		slog.Int64("market_id", marketID),
		slog.String("outcome", domain.SideLabel(outcome)),
		slog.Int("bets", len(resolutions)),
		slog.Int("winners", winners),
	)

	return nil
}

func (s *SettlementService) publishResolved(ctx context.Context, marketID int64, outcome bool, bets, winners int) {
	evt, _ := json.Marshal(map[string]any{
		"event":     "market_resolved",
		"market_id": marketID,
		"outcome":   domain.SideLabel(outcome),
		"bets":      bets,
		"winners":   winners,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.bus.Publish(ctx, "markets", evt); err != nil {
		s.logger.WarnContext(ctx, "settlement: publish resolution event failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, "stream:settlements", evt); err != nil {
		s.logger.WarnContext(ctx, "settlement: append settlement stream failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SettlementService) notifyResolved(ctx context.Context, marketID int64, outcome bool, bets, winners int) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, "market_resolved", fmt.Sprintf(
		"Market %d resolved %s: %d bets settled, %d winners",
		marketID, domain.SideLabel(outcome), bets, winners,
	))
}

// archiveSettlement uploads the settled market and its bets to blob storage.
// Best-effort: archival never participates in, or fails, the resolution.
func (s *SettlementService) archiveSettlement(ctx context.Context, marketID int64) {
	if s.archiver == nil {
		return
	}

	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		s.logger.WarnContext(ctx, "settlement: archive load market failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return
	}
	bets, err := s.bets.ListByMarket(ctx, marketID, domain.ListOpts{})
	if err != nil {
		s.logger.WarnContext(ctx, "settlement: archive load bets failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return
	}

	path, err := s.archiver.ArchiveSettlement(ctx, market, bets)
	if err != nil {
		s.logger.WarnContext(ctx, "settlement: archive upload failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.InfoContext(ctx, "settlement: archived",
		slog.Int64("market_id", marketID),
		slog.String("path", path),
	)
}
