package s3blob

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolbet/poolbet/internal/domain"
)

func TestSettlementArchivePath(t *testing.T) {
	at := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "settlements/2026-08/market-42.jsonl", domain.SettlementArchivePath(42, at))
}

func TestMarshalSettlement(t *testing.T) {
	outcome := true
	m := domain.Market{
		ID:          7,
		Question:    "Will it rain tomorrow?",
		Resolved:    true,
		Outcome:     &outcome,
		YesPool:     decimal.RequireFromString("1080.00"),
		NoPool:      decimal.RequireFromString("1000.00"),
		TotalVolume: decimal.RequireFromString("100.00"),
	}
	bets := []domain.Bet{
		{
			ID:              1,
			UserID:          11,
			Side:            domain.SideYes,
			GrossAmount:     decimal.RequireFromString("100.00"),
			PlatformFee:     decimal.RequireFromString("2.50"),
			CreatorFee:      decimal.RequireFromString("1.00"),
			NetContribution: decimal.RequireFromString("96.50"),
			Price:           decimal.RequireFromString("0.5000"),
			Payout:          decimal.NewNullDecimal(decimal.RequireFromString("193.00")),
			Claimed:         false,
		},
	}

	buf, err := marshalSettlement(m, bets, time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	sc := bufio.NewScanner(bytes.NewReader(buf))

	require.True(t, sc.Scan())
	var header map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &header))
	assert.Equal(t, "settlement", header["kind"])
	assert.Equal(t, float64(7), header["market_id"])
	assert.Equal(t, true, header["outcome"])
	assert.Equal(t, float64(1), header["bet_count"])

	require.True(t, sc.Scan())
	var line map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
	assert.Equal(t, "bet", line["kind"])
	assert.Equal(t, "yes", line["side"])
	assert.Equal(t, "193", line["payout"])

	assert.False(t, sc.Scan())
}
