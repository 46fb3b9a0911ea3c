package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolbet/poolbet/internal/domain"
)

func TestPlaceBet(t *testing.T) {
	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))
	cache := &fakeCache{}
	bus := newFakeBus()
	wallet := &fakeWallet{}

	svc := NewBetService(markets, bets, cache, bus, wallet, 3, testLogger())

	bet, err := svc.PlaceBet(context.Background(), 7, 1, domain.SideYes, dec("100.00"), testFees())
	require.NoError(t, err)

	assert.Equal(t, int64(7), bet.UserID)
	assert.Equal(t, domain.SideYes, bet.Side)
	assert.True(t, bet.PlatformFee.Equal(dec("2.50")), "platform fee %s", bet.PlatformFee)
	assert.True(t, bet.CreatorFee.Equal(dec("1.00")), "creator fee %s", bet.CreatorFee)
	assert.True(t, bet.NetContribution.Equal(dec("96.50")), "net %s", bet.NetContribution)
	assert.True(t, bet.Price.Equal(dec("0.5")), "price %s", bet.Price)

	// Only the chosen pool grows, by the net contribution.
	assert.True(t, bets.lastUpdate.YesPool.Equal(dec("1096.50")), "yes pool %s", bets.lastUpdate.YesPool)
	assert.True(t, bets.lastUpdate.NoPool.Equal(dec("1000.00")), "no pool %s", bets.lastUpdate.NoPool)
	assert.Equal(t, int64(1), bets.lastUpdate.ExpectedVersion)
	assert.True(t, bets.lastUpdate.YesPrice.Add(bets.lastUpdate.NoPrice).Equal(dec("1")),
		"prices must sum to one")

	// Stake collected, cache dropped, events out.
	assert.Len(t, wallet.debits, 1)
	assert.Empty(t, wallet.refunds)
	assert.Equal(t, []int64{1}, cache.invalidated)
	assert.Len(t, bus.published["bets"], 1)
	assert.Len(t, bus.streamed["stream:bets"], 1)
}

func TestPlaceBetRejectsInvalidAmount(t *testing.T) {
	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))
	wallet := &fakeWallet{}

	svc := NewBetService(markets, bets, &fakeCache{}, newFakeBus(), wallet, 3, testLogger())

	for _, amount := range []string{"0", "-5.00"} {
		_, err := svc.PlaceBet(context.Background(), 7, 1, domain.SideYes, dec(amount), testFees())
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %s", amount)
	}
	assert.Empty(t, wallet.debits, "invalid stakes must never reach the wallet")
	assert.Zero(t, bets.placeCalls)
}

func TestPlaceBetInactiveMarket(t *testing.T) {
	ended := openMarket(1, "1000.00")
	ended.EndsAt = time.Now().Add(-time.Hour)

	resolved := openMarket(2, "1000.00")
	resolved.Resolved = true

	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets, ended, resolved)
	wallet := &fakeWallet{}

	svc := NewBetService(markets, bets, &fakeCache{}, newFakeBus(), wallet, 3, testLogger())

	for _, id := range []int64{1, 2} {
		_, err := svc.PlaceBet(context.Background(), 7, id, domain.SideNo, dec("10.00"), testFees())
		assert.ErrorIs(t, err, domain.ErrMarketInactive, "market %d", id)
	}
	assert.Empty(t, wallet.debits)
}

func TestPlaceBetMarketNotFound(t *testing.T) {
	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets)

	svc := NewBetService(markets, bets, &fakeCache{}, newFakeBus(), &fakeWallet{}, 3, testLogger())

	_, err := svc.PlaceBet(context.Background(), 7, 99, domain.SideYes, dec("10.00"), testFees())
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestPlaceBetWalletDebitFails(t *testing.T) {
	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))
	wallet := &fakeWallet{debitErr: domain.ErrInsufficientBalance}

	svc := NewBetService(markets, bets, &fakeCache{}, newFakeBus(), wallet, 3, testLogger())

	_, err := svc.PlaceBet(context.Background(), 7, 1, domain.SideYes, dec("10.00"), testFees())
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Zero(t, bets.placeCalls, "ledger must not be touched when the debit fails")
}

func TestPlaceBetRetriesOnVersionConflict(t *testing.T) {
	bets := newFakeBetStore()
	bets.conflictsLeft = 2
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))

	svc := NewBetService(markets, bets, &fakeCache{}, newFakeBus(), &fakeWallet{}, 3, testLogger())

	bet, err := svc.PlaceBet(context.Background(), 7, 1, domain.SideYes, dec("100.00"), testFees())
	require.NoError(t, err)
	assert.Equal(t, 3, bets.placeCalls, "two conflicts then success")
	assert.True(t, bet.NetContribution.Equal(dec("96.50")))
}

func TestPlaceBetRetryBudgetExhausted(t *testing.T) {
	bets := newFakeBetStore()
	bets.conflictsLeft = 10
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))
	wallet := &fakeWallet{}

	svc := NewBetService(markets, bets, &fakeCache{}, newFakeBus(), wallet, 3, testLogger())

	_, err := svc.PlaceBet(context.Background(), 7, 1, domain.SideYes, dec("100.00"), testFees())
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 3, bets.placeCalls, "retry budget bounds the attempts")

	// The stake was debited up front; a failed placement hands it back.
	assert.Equal(t, []string{"transfer-1"}, wallet.refunds)
}

func TestPlaceBetRefundsOnStoreError(t *testing.T) {
	bets := newFakeBetStore()
	bets.placeErr = assert.AnError
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))
	wallet := &fakeWallet{}

	svc := NewBetService(markets, bets, &fakeCache{}, newFakeBus(), wallet, 3, testLogger())

	_, err := svc.PlaceBet(context.Background(), 7, 1, domain.SideYes, dec("100.00"), testFees())
	require.Error(t, err)
	assert.Equal(t, []string{"transfer-1"}, wallet.refunds)
}
