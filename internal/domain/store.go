package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists markets.
type MarketStore interface {
	Create(ctx context.Context, m Market) (Market, error)
	GetByID(ctx context.Context, id int64) (Market, error)
	ListOpen(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)

	// Resolve flips resolved false→true and settles every bet on the
	// market in one transaction. The conditional transition on the
	// resolved flag is the sole guard against double resolution: if the
	// market is already resolved it returns ErrAlreadyResolved and
	// touches nothing. The settle function receives the market's bets
	// and returns their resolutions.
	Resolve(ctx context.Context, marketID int64, outcome bool, settle SettleFunc) ([]BetResolution, error)
}

// BetStore persists bets and the atomic transitions on them.
type BetStore interface {
	// Place inserts the bet and applies the market pool update as one
	// transaction. The pool write is conditional on update.ExpectedVersion;
	// on a version mismatch nothing is written and ErrConcurrencyConflict
	// is returned so the caller can re-read and retry.
	Place(ctx context.Context, bet Bet, update MarketUpdate) (Bet, error)

	GetByID(ctx context.Context, id int64) (Bet, error)
	ListByMarket(ctx context.Context, marketID int64, opts ListOpts) ([]Bet, error)
	ListUnclaimed(ctx context.Context, userID int64) ([]Bet, error)

	// Claim transitions claimed false→true for exactly one row and
	// credits the payout to the user's balance in the same transaction,
	// returning the new balance. A lost race on the conditional
	// transition surfaces as ErrAlreadyClaimed.
	Claim(ctx context.Context, betID, userID int64) (decimal.Decimal, error)
}

// UserStore persists users and balances.
type UserStore interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
}
