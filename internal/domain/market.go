// Package domain defines the core types, errors, and pure pricing and
// settlement arithmetic of the binary prediction-market platform. All money
// values are fixed-point decimals: currency amounts carry 2 decimal places,
// probabilities 4. Intermediate math is done at full decimal precision.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CurrencyScale is the number of decimal places for USD amounts.
	CurrencyScale = 2

	// PriceScale is the number of decimal places for implied probabilities.
	PriceScale = 4
)

// Market is a binary-outcome prediction market priced by a pool-based AMM.
// Both pools are seeded with non-zero baseline liquidity at creation and may
// only grow, so pricing is always defined.
type Market struct {
	ID               int64           `json:"id"`
	Question         string          `json:"question"`
	CreatorID        int64           `json:"creator_id"`
	YesPool          decimal.Decimal `json:"yes_pool"`
	NoPool           decimal.Decimal `json:"no_pool"`
	YesPrice         decimal.Decimal `json:"yes_price"`
	NoPrice          decimal.Decimal `json:"no_price"`
	TotalVolume      decimal.Decimal `json:"total_volume"`
	ParticipantCount int64           `json:"participant_count"`
	Resolved         bool            `json:"resolved"`
	Outcome          *bool           `json:"outcome,omitempty"`
	// Version guards the read-modify-write cycle on pool state. Every pool
	// update is conditional on the version observed at read time.
	Version   int64     `json:"version"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the market still accepts bets at the given time.
func (m Market) Active(now time.Time) bool {
	return !m.Resolved && now.Before(m.EndsAt)
}

// Pool returns the pool backing the given side (true = YES).
func (m Market) Pool(side bool) decimal.Decimal {
	if side {
		return m.YesPool
	}
	return m.NoPool
}

// MarketUpdate carries the post-bet pool state written back by the bet
// ledger. The write succeeds only if the market row still has
// ExpectedVersion; otherwise the store reports ErrConcurrencyConflict and
// the caller re-reads and retries.
type MarketUpdate struct {
	MarketID         int64
	ExpectedVersion  int64
	YesPool          decimal.Decimal
	NoPool           decimal.Decimal
	YesPrice         decimal.Decimal
	NoPrice          decimal.Decimal
	VolumeDelta      decimal.Decimal
	ParticipantDelta int64
}
