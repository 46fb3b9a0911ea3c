package domain

import (
	"github.com/shopspring/decimal"
)

// Quote is the price offered for a stake and the pool state after the
// stake's net contribution is applied.
type Quote struct {
	// Odds is the payout multiple offered for the chosen side, computed
	// from the pool state before this bet: (yesPool+noPool)/sidePool.
	Odds decimal.Decimal

	// Price is the implied probability recorded on the bet: 1/Odds,
	// rounded to PriceScale.
	Price decimal.Decimal

	NewYesPool  decimal.Decimal
	NewNoPool   decimal.Decimal
	NewYesPrice decimal.Decimal
	NewNoPrice  decimal.Decimal
}

// PriceBet computes the quote for placing netContribution on the given side
// of the market. Only the chosen side's pool grows; the other pool is
// untouched. The updated prices are derived from the same updated totals, so
// NewYesPrice+NewNoPrice is exactly 1. Pools can never reach zero: they are
// seeded non-zero at creation and only ever increase.
func PriceBet(m Market, side bool, netContribution decimal.Decimal) Quote {
	total := m.YesPool.Add(m.NoPool)
	sidePool := m.Pool(side)

	// Odds from the pre-bet snapshot; recorded price is its reciprocal,
	// i.e. sidePool/total.
	odds := total.DivRound(sidePool, PriceScale*2)
	price := sidePool.DivRound(total, PriceScale)

	newYes := m.YesPool
	newNo := m.NoPool
	if side {
		newYes = newYes.Add(netContribution)
	} else {
		newNo = newNo.Add(netContribution)
	}

	newTotal := newYes.Add(newNo)
	newYesPrice := newYes.DivRound(newTotal, PriceScale)
	// Complement keeps the two prices summing to exactly 1 after rounding.
	newNoPrice := decimal.New(1, 0).Sub(newYesPrice)

	return Quote{
		Odds:        odds,
		Price:       price,
		NewYesPool:  newYes,
		NewNoPool:   newNo,
		NewYesPrice: newYesPrice,
		NewNoPrice:  newNoPrice,
	}
}
