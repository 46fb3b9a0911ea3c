package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolbet/poolbet/internal/domain"
)

func seedBet(bets *fakeBetStore, marketID, userID int64, side bool, net string) domain.Bet {
	bets.nextID++
	b := domain.Bet{
		ID:              bets.nextID,
		MarketID:        marketID,
		UserID:          userID,
		Side:            side,
		GrossAmount:     dec(net),
		NetContribution: dec(net),
		Price:           dec("0.5"),
	}
	bets.bets[b.ID] = b
	return b
}

func TestResolveMarketSettlesBets(t *testing.T) {
	bets := newFakeBetStore()
	m := openMarket(1, "1000.00")
	m.YesPool = dec("1120.00")
	m.NoPool = dec("1200.00")
	markets := newFakeMarketStore(bets, m)

	winner1 := seedBet(bets, 1, 10, domain.SideYes, "80.00")
	winner2 := seedBet(bets, 1, 11, domain.SideYes, "40.00")
	loser := seedBet(bets, 1, 12, domain.SideNo, "200.00")

	cache := &fakeCache{}
	bus := newFakeBus()
	locks := &fakeLocks{}
	archiver := &fakeArchiver{}

	svc := NewSettlementService(markets, bets, cache, locks, bus, archiver, nil, testLogger())

	require.NoError(t, svc.ResolveMarket(context.Background(), 1, true))

	// Winners split the total pool pro rata; losers are closed out.
	assert.True(t, bets.bets[winner1.ID].Payout.Decimal.Equal(dec("213.33")),
		"winner1 payout %s", bets.bets[winner1.ID].Payout.Decimal)
	assert.True(t, bets.bets[winner2.ID].Payout.Decimal.Equal(dec("106.67")),
		"winner2 payout %s", bets.bets[winner2.ID].Payout.Decimal)
	assert.True(t, bets.bets[loser.ID].Payout.Decimal.Equal(decimal.Zero))
	assert.True(t, bets.bets[loser.ID].Claimed, "losing bets close at resolution")
	assert.False(t, bets.bets[winner1.ID].Claimed)

	resolved := markets.markets[1]
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.Outcome)
	assert.True(t, *resolved.Outcome)

	assert.Equal(t, []string{"market:settle:1"}, locks.acquired)
	assert.Equal(t, 1, locks.unlocked)
	assert.Equal(t, []int64{1}, cache.invalidated)
	assert.Len(t, bus.published["markets"], 1)
	assert.Len(t, bus.streamed["stream:settlements"], 1)
	assert.Equal(t, 1, archiver.calls)
}

func TestResolveMarketIdempotent(t *testing.T) {
	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))
	bus := newFakeBus()

	svc := NewSettlementService(markets, bets, &fakeCache{}, &fakeLocks{}, bus, nil, nil, testLogger())

	require.NoError(t, svc.ResolveMarket(context.Background(), 1, false))

	err := svc.ResolveMarket(context.Background(), 1, false)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	assert.Len(t, bus.published["markets"], 1, "a repeat resolution publishes nothing")
}

func TestResolveMarketNotFound(t *testing.T) {
	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets)

	svc := NewSettlementService(markets, bets, &fakeCache{}, &fakeLocks{}, newFakeBus(), nil, nil, testLogger())

	err := svc.ResolveMarket(context.Background(), 42, true)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestResolveMarketLockHeld(t *testing.T) {
	bets := newFakeBetStore()
	markets := newFakeMarketStore(bets, openMarket(1, "1000.00"))

	svc := NewSettlementService(markets, bets, &fakeCache{}, &fakeLocks{held: true}, newFakeBus(), nil, nil, testLogger())

	err := svc.ResolveMarket(context.Background(), 1, true)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.False(t, markets.markets[1].Resolved, "losing the lock race settles nothing")
}

func TestResolveMarketNoWinners(t *testing.T) {
	bets := newFakeBetStore()
	m := openMarket(1, "1000.00")
	markets := newFakeMarketStore(bets, m)

	b := seedBet(bets, 1, 10, domain.SideNo, "50.00")

	svc := NewSettlementService(markets, bets, &fakeCache{}, &fakeLocks{}, newFakeBus(), nil, nil, testLogger())

	require.NoError(t, svc.ResolveMarket(context.Background(), 1, true))

	settled := bets.bets[b.ID]
	assert.True(t, settled.Payout.Decimal.Equal(decimal.Zero))
	assert.True(t, settled.Claimed, "with no winners every bet closes with zero payout")
}
