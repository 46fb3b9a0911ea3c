package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSplitFees_TenTenSchedule(t *testing.T) {
	split, err := SplitFees(dec("100.00"), FeeConfig{
		PlatformFeeRate: dec("0.10"),
		CreatorFeeRate:  dec("0.10"),
	})
	require.NoError(t, err)

	assert.True(t, split.PlatformFee.Equal(dec("10.00")), "platform fee = %s", split.PlatformFee)
	assert.True(t, split.CreatorFee.Equal(dec("10.00")), "creator fee = %s", split.CreatorFee)
	assert.True(t, split.NetContribution.Equal(dec("80.00")), "net = %s", split.NetContribution)
}

func TestSplitFees_DefaultSchedule(t *testing.T) {
	split, err := SplitFees(dec("200.00"), FeeConfig{
		PlatformFeeRate: dec("0.025"),
		CreatorFeeRate:  dec("0.01"),
	})
	require.NoError(t, err)

	assert.True(t, split.PlatformFee.Equal(dec("5.00")))
	assert.True(t, split.CreatorFee.Equal(dec("2.00")))
	assert.True(t, split.NetContribution.Equal(dec("193.00")))
}

func TestSplitFees_PartsSumToGross(t *testing.T) {
	cfg := FeeConfig{PlatformFeeRate: dec("0.025"), CreatorFeeRate: dec("0.01")}
	for _, gross := range []string{"0.03", "1.99", "33.33", "10000.01"} {
		split, err := SplitFees(dec(gross), cfg)
		require.NoError(t, err, "gross %s", gross)

		sum := split.PlatformFee.Add(split.CreatorFee).Add(split.NetContribution)
		assert.True(t, sum.Equal(dec(gross)), "gross %s: parts sum to %s", gross, sum)
	}
}

func TestSplitFees_RejectsNonPositive(t *testing.T) {
	cfg := FeeConfig{PlatformFeeRate: dec("0.10"), CreatorFeeRate: dec("0.10")}

	_, err := SplitFees(decimal.Zero, cfg)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = SplitFees(dec("-5.00"), cfg)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSplitFees_RejectsBadRates(t *testing.T) {
	_, err := SplitFees(dec("10.00"), FeeConfig{
		PlatformFeeRate: dec("-0.01"),
		CreatorFeeRate:  dec("0.01"),
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = SplitFees(dec("10.00"), FeeConfig{
		PlatformFeeRate: dec("0.60"),
		CreatorFeeRate:  dec("0.40"),
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
