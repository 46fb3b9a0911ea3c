package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bet side constants. A side is a bool throughout the core: true backs YES.
const (
	SideYes = true
	SideNo  = false
)

// SideLabel renders a bet side for logs and API payloads.
func SideLabel(side bool) string {
	if side {
		return "yes"
	}
	return "no"
}

// Bet is a single stake on one side of a market.
//
// NetContribution is the pool-accounting unit: the gross stake minus fees.
// It is not a discrete share token and there is no secondary redemption.
// Payout is set exactly once, at resolution, and never recomputed. Claimed
// is a one-way transition; a losing bet is claimed immediately at resolution
// because there is nothing to retrieve.
type Bet struct {
	ID              int64               `json:"id"`
	MarketID        int64               `json:"market_id"`
	UserID          int64               `json:"user_id"`
	Side            bool                `json:"side"`
	GrossAmount     decimal.Decimal     `json:"gross_amount"`
	PlatformFee     decimal.Decimal     `json:"platform_fee"`
	CreatorFee      decimal.Decimal     `json:"creator_fee"`
	NetContribution decimal.Decimal     `json:"net_contribution"`
	Price           decimal.Decimal     `json:"price"` // implied probability at placement, 4 dp
	Resolved        bool                `json:"resolved"`
	Payout          decimal.NullDecimal `json:"payout,omitempty"` // null until resolved
	Claimed         bool                `json:"claimed"`
	CreatedAt       time.Time           `json:"created_at"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty"`
}

// UnclaimedWinnings aggregates a user's resolved, unclaimed, positive
// payouts.
type UnclaimedWinnings struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	Bets        []Bet           `json:"bets"`
}

// Won reports whether the bet backed the winning side of a resolved market.
func (b Bet) Won(outcome bool) bool {
	return b.Side == outcome
}

// BetResolution is the settlement result for one bet, applied atomically
// with the market's resolved-flag transition.
type BetResolution struct {
	BetID   int64
	Payout  decimal.Decimal
	Claimed bool
}
