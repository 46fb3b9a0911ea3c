package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bet(id int64, side bool, net string) Bet {
	return Bet{ID: id, Side: side, NetContribution: dec(net)}
}

// Winners hold 80.00 and 40.00, losers sum to 200.00. The entire 320.00 pool
// goes to the winners pro rata.
func TestSettleBets_ProportionalPayouts(t *testing.T) {
	bets := []Bet{
		bet(1, SideYes, "80.00"),
		bet(2, SideYes, "40.00"),
		bet(3, SideNo, "150.00"),
		bet(4, SideNo, "50.00"),
	}

	results := SettleBets(bets, true)
	require.Len(t, results, 4)

	byID := map[int64]BetResolution{}
	for _, r := range results {
		byID[r.BetID] = r
	}

	assert.True(t, byID[1].Payout.Equal(dec("213.33")), "winner1 = %s", byID[1].Payout)
	assert.True(t, byID[2].Payout.Equal(dec("106.67")), "winner2 = %s", byID[2].Payout)
	assert.False(t, byID[1].Claimed)
	assert.False(t, byID[2].Claimed)

	// Losers retrieve nothing and are claimed in the same step.
	assert.True(t, byID[3].Payout.IsZero())
	assert.True(t, byID[4].Payout.IsZero())
	assert.True(t, byID[3].Claimed)
	assert.True(t, byID[4].Claimed)

	sum := byID[1].Payout.Add(byID[2].Payout)
	assert.True(t, sum.Equal(dec("320.00")), "payout sum = %s", sum)
}

func TestSettleBets_NoWinners(t *testing.T) {
	bets := []Bet{
		bet(1, SideNo, "75.00"),
		bet(2, SideNo, "25.00"),
	}

	results := SettleBets(bets, true)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.True(t, r.Payout.IsZero(), "bet %d payout = %s", r.BetID, r.Payout)
		assert.True(t, r.Claimed, "bet %d should be claimed", r.BetID)
	}
}

func TestSettleBets_SoleWinnerTakesWholePool(t *testing.T) {
	bets := []Bet{
		bet(1, SideNo, "60.00"),
		bet(2, SideYes, "15.00"),
	}

	results := SettleBets(bets, false)
	byID := map[int64]BetResolution{}
	for _, r := range results {
		byID[r.BetID] = r
	}

	assert.True(t, byID[1].Payout.Equal(dec("75.00")), "payout = %s", byID[1].Payout)
	assert.True(t, byID[2].Payout.IsZero())
}

// Pool conservation: total paid out never exceeds total staked (net), up to
// one cent of rounding per winner.
func TestSettleBets_PoolConservation(t *testing.T) {
	cases := [][]Bet{
		{bet(1, SideYes, "0.01"), bet(2, SideYes, "0.02"), bet(3, SideNo, "99.97")},
		{bet(1, SideYes, "33.33"), bet(2, SideYes, "33.33"), bet(3, SideYes, "33.34"), bet(4, SideNo, "100.00")},
		{bet(1, SideNo, "7.77"), bet(2, SideYes, "13.13"), bet(3, SideNo, "250.01")},
	}

	for i, bets := range cases {
		totalStaked := decimal.Zero
		winners := 0
		for _, b := range bets {
			totalStaked = totalStaked.Add(b.NetContribution)
			if b.Won(true) {
				winners++
			}
		}

		paid := decimal.Zero
		for _, r := range SettleBets(bets, true) {
			paid = paid.Add(r.Payout)
		}

		tolerance := decimal.New(int64(winners), -CurrencyScale)
		assert.True(t, paid.Sub(totalStaked).Abs().LessThanOrEqual(tolerance),
			"case %d: paid %s vs staked %s", i, paid, totalStaked)
	}
}

func TestSettleBets_Empty(t *testing.T) {
	assert.Empty(t, SettleBets(nil, true))
}
