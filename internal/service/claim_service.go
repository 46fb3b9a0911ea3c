package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// ClaimService lets a winning bettor pull a resolved payout into their
// balance exactly once.
type ClaimService struct {
	bets   domain.BetStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewClaimService creates a ClaimService.
func NewClaimService(bets domain.BetStore, bus domain.SignalBus, logger *slog.Logger) *ClaimService {
	return &ClaimService{
		bets:   bets,
		bus:    bus,
		logger: logger,
	}
}

// ClaimWinnings credits the bet's payout to the user's balance and returns
// the new balance. The claimed flag transition and the credit are one
// transaction in the store; concurrent claims on the same bet produce
// exactly one success, the rest get domain.ErrAlreadyClaimed.
func (s *ClaimService) ClaimWinnings(ctx context.Context, userID, betID int64) (decimal.Decimal, error) {
	newBalance, err := s.bets.Claim(ctx, betID, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("claim_service: claim bet %d: %w", betID, err)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":     "winnings_claimed",
		"bet_id":    betID,
		"user_id":   userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if pubErr := s.bus.Publish(ctx, "claims", evt); pubErr != nil {
		s.logger.WarnContext(ctx, "claim_service: publish claim event failed",
			slog.Int64("bet_id", betID),
			slog.String("error", pubErr.Error()),
		)
	}

	s.logger.InfoContext(ctx, "claim_service: winnings claimed",
		slog.Int64("bet_id", betID),
		slog.Int64("user_id", userID),
		slog.String("new_balance", newBalance.StringFixed(domain.CurrencyScale)),
	)

	return newBalance, nil
}

// GetUnclaimedWinnings returns the user's resolved, unclaimed, positive
// payouts and their total.
func (s *ClaimService) GetUnclaimedWinnings(ctx context.Context, userID int64) (domain.UnclaimedWinnings, error) {
	bets, err := s.bets.ListUnclaimed(ctx, userID)
	if err != nil {
		return domain.UnclaimedWinnings{}, fmt.Errorf("claim_service: list unclaimed for user %d: %w", userID, err)
	}

	total := decimal.Zero
	for _, b := range bets {
		if b.Payout.Valid {
			total = total.Add(b.Payout.Decimal)
		}
	}

	if bets == nil {
		bets = []domain.Bet{}
	}
	return domain.UnclaimedWinnings{
		TotalAmount: total,
		Bets:        bets,
	}, nil
}
