package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolbet/poolbet/internal/domain"
)

func TestClaimWinnings(t *testing.T) {
	bets := newFakeBetStore()
	now := time.Now()
	bets.bets[1] = domain.Bet{
		ID:         1,
		MarketID:   5,
		UserID:     7,
		Side:       domain.SideYes,
		Resolved:   true,
		Payout:     decimal.NewNullDecimal(dec("213.33")),
		ResolvedAt: &now,
	}
	bus := newFakeBus()

	svc := NewClaimService(bets, bus, testLogger())

	balance, err := svc.ClaimWinnings(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("713.33")), "balance %s", balance)
	assert.True(t, bets.bets[1].Claimed)
	assert.Len(t, bus.published["claims"], 1)

	// The second claim hits the already-flipped flag.
	_, err = svc.ClaimWinnings(context.Background(), 7, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
	assert.Len(t, bus.published["claims"], 1, "a failed claim publishes nothing")
}

func TestClaimWinningsWrongUser(t *testing.T) {
	bets := newFakeBetStore()
	bets.bets[1] = domain.Bet{
		ID:       1,
		UserID:   7,
		Resolved: true,
		Payout:   decimal.NewNullDecimal(dec("10.00")),
	}

	svc := NewClaimService(bets, newFakeBus(), testLogger())

	_, err := svc.ClaimWinnings(context.Background(), 8, 1)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, bets.bets[1].Claimed)
}

func TestClaimWinningsBetNotFound(t *testing.T) {
	svc := NewClaimService(newFakeBetStore(), newFakeBus(), testLogger())

	_, err := svc.ClaimWinnings(context.Background(), 7, 99)
	assert.ErrorIs(t, err, domain.ErrBetNotFound)
}

func TestGetUnclaimedWinnings(t *testing.T) {
	bets := newFakeBetStore()
	bets.unclaimed = []domain.Bet{
		{ID: 1, UserID: 7, Payout: decimal.NewNullDecimal(dec("213.33"))},
		{ID: 2, UserID: 7, Payout: decimal.NewNullDecimal(dec("106.67"))},
	}

	svc := NewClaimService(bets, newFakeBus(), testLogger())

	winnings, err := svc.GetUnclaimedWinnings(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, winnings.TotalAmount.Equal(dec("320.00")), "total %s", winnings.TotalAmount)
	assert.Len(t, winnings.Bets, 2)
}

func TestGetUnclaimedWinningsEmpty(t *testing.T) {
	svc := NewClaimService(newFakeBetStore(), newFakeBus(), testLogger())

	winnings, err := svc.GetUnclaimedWinnings(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, winnings.TotalAmount.IsZero())
	assert.NotNil(t, winnings.Bets, "empty result is an empty slice, not null")
	assert.Empty(t, winnings.Bets)
}
