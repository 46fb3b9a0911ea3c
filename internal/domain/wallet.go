package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// WalletService is the external custody collaborator. The bet ledger only
// proceeds once the wallet has confirmed and performed the debit of the
// gross stake.
type WalletService interface {
	// Debit withdraws amount (USD) from the user's custody wallet and
	// returns a transfer reference. Returns ErrInsufficientBalance when
	// the wallet cannot cover the amount.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) (string, error)

	// Refund returns a previously debited amount, referencing the
	// transfer that collected it. Used when the ledger write fails after
	// a successful debit.
	Refund(ctx context.Context, userID int64, amount decimal.Decimal, transferRef string) error
}

// PriceOracle maps a token symbol to its USD price. It is used upstream of
// the core to convert token-denominated stakes into the USD gross amounts
// the ledger operates on; the core itself is currency-agnostic.
type PriceOracle interface {
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
