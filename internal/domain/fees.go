package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeConfig holds the fee rates applied to a gross stake. Rates are
// fractions, e.g. 0.025 for 2.5%. The rates are always supplied externally
// (per bet or from configuration); nothing in the core hard-codes a
// schedule.
type FeeConfig struct {
	PlatformFeeRate decimal.Decimal `json:"platform_fee_rate"`
	CreatorFeeRate  decimal.Decimal `json:"creator_fee_rate"`
}

// Validate checks that both rates are non-negative and sum to less than 1.
func (c FeeConfig) Validate() error {
	if c.PlatformFeeRate.IsNegative() || c.CreatorFeeRate.IsNegative() {
		return fmt.Errorf("fee rates must be non-negative: %w", ErrInvalidAmount)
	}
	if c.PlatformFeeRate.Add(c.CreatorFeeRate).GreaterThanOrEqual(decimal.New(1, 0)) {
		return fmt.Errorf("fee rates must sum to less than 1: %w", ErrInvalidAmount)
	}
	return nil
}

// FeeSplit is the decomposition of a gross stake into fees and the net pool
// contribution.
type FeeSplit struct {
	PlatformFee     decimal.Decimal
	CreatorFee      decimal.Decimal
	NetContribution decimal.Decimal
}

// SplitFees decomposes a gross stake. Fees are rounded to currency scale;
// the net contribution is the exact remainder so the three parts always sum
// back to the gross amount. Rejects non-positive stakes with
// ErrInvalidAmount.
func SplitFees(grossAmount decimal.Decimal, cfg FeeConfig) (FeeSplit, error) {
	if !grossAmount.IsPositive() {
		return FeeSplit{}, fmt.Errorf("gross amount %s: %w", grossAmount, ErrInvalidAmount)
	}
	if err := cfg.Validate(); err != nil {
		return FeeSplit{}, err
	}

	platformFee := grossAmount.Mul(cfg.PlatformFeeRate).Round(CurrencyScale)
	creatorFee := grossAmount.Mul(cfg.CreatorFeeRate).Round(CurrencyScale)
	net := grossAmount.Sub(platformFee).Sub(creatorFee)

	if !net.IsPositive() {
		return FeeSplit{}, fmt.Errorf("stake consumed by fees: %w", ErrInvalidAmount)
	}

	return FeeSplit{
		PlatformFee:     platformFee,
		CreatorFee:      creatorFee,
		NetContribution: net,
	}, nil
}
