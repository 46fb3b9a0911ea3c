package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	platform, err := cfg.Fees.PlatformRate()
	require.NoError(t, err)
	assert.Equal(t, "0.025", platform.String())

	seed, err := cfg.Market.Seed()
	require.NoError(t, err)
	assert.True(t, seed.IsPositive())
}

func TestValidate_RejectsBadFeeRates(t *testing.T) {
	cfg := Defaults()
	cfg.Fees.PlatformFeeRate = "0.6"
	cfg.Fees.CreatorFeeRate = "0.5"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Fees.PlatformFeeRate = "not-a-number"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroSeed(t *testing.T) {
	cfg := Defaults()
	cfg.Market.SeedLiquidity = "0"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	assert.Error(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POOLBET_FEES_PLATFORM_FEE_RATE", "0.10")
	t.Setenv("POOLBET_SERVER_PORT", "9090")
	t.Setenv("POOLBET_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "0.10", cfg.Fees.PlatformFeeRate)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}
