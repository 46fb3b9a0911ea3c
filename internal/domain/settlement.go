package domain

import (
	"github.com/shopspring/decimal"
)

// SettleFunc computes settlement results for a market's bets. The postgres
// store invokes it inside the resolution transaction, after the resolved
// flag has been conditionally flipped, so the computed results are applied
// atomically with the guard.
type SettleFunc func(bets []Bet) []BetResolution

// SettleBets partitions a resolved market's bets into winners and losers and
// computes proportional payouts. The entire pool, winners' and losers' net
// contributions combined, is redistributed to winners in proportion to their
// net contribution. Losers are resolved with payout 0 and marked claimed
// immediately.
//
// If nobody backed the winning side, nothing is distributed: every bet is
// resolved with payout 0 and marked claimed.
func SettleBets(bets []Bet, outcome bool) []BetResolution {
	totalWinning := decimal.Zero
	totalPool := decimal.Zero
	for _, b := range bets {
		totalPool = totalPool.Add(b.NetContribution)
		if b.Won(outcome) {
			totalWinning = totalWinning.Add(b.NetContribution)
		}
	}

	results := make([]BetResolution, 0, len(bets))
	for _, b := range bets {
		if totalWinning.IsZero() || !b.Won(outcome) {
			results = append(results, BetResolution{
				BetID:   b.ID,
				Payout:  decimal.Zero,
				Claimed: true,
			})
			continue
		}

		// payout = netContribution / totalWinningPool * totalPool, at
		// full precision before the final currency rounding.
		payout := b.NetContribution.Mul(totalPool).DivRound(totalWinning, CurrencyScale)
		results = append(results, BetResolution{
			BetID:   b.ID,
			Payout:  payout,
			Claimed: false,
		})
	}
	return results
}
