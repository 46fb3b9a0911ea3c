package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolbet/poolbet/internal/domain"
)

func TestCreateMarket(t *testing.T) {
	markets := newFakeMarketStore(nil)
	svc := NewMarketService(markets, &fakeCache{}, dec("1000.00"), testLogger())

	endsAt := time.Now().Add(48 * time.Hour)
	m, err := svc.CreateMarket(context.Background(), "  Will it rain tomorrow?  ", 3, endsAt)
	require.NoError(t, err)

	assert.Equal(t, "Will it rain tomorrow?", m.Question)
	assert.Equal(t, int64(3), m.CreatorID)
	assert.True(t, m.YesPool.Equal(dec("1000.00")), "yes pool %s", m.YesPool)
	assert.True(t, m.NoPool.Equal(dec("1000.00")), "no pool %s", m.NoPool)
	assert.True(t, m.YesPrice.Equal(dec("0.5")))
	assert.True(t, m.NoPrice.Equal(dec("0.5")))
	assert.False(t, m.Resolved)
}

func TestCreateMarketValidation(t *testing.T) {
	markets := newFakeMarketStore(nil)
	svc := NewMarketService(markets, &fakeCache{}, dec("1000.00"), testLogger())

	_, err := svc.CreateMarket(context.Background(), "   ", 3, time.Now().Add(time.Hour))
	assert.Error(t, err, "blank question")

	_, err = svc.CreateMarket(context.Background(), "Valid question?", 3, time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, domain.ErrMarketInactive, "end date in the past")

	assert.Empty(t, markets.markets)
}

func TestGetMarketCacheMiss(t *testing.T) {
	m := openMarket(1, "1000.00")
	markets := newFakeMarketStore(nil, m)
	cache := &fakeCache{}

	svc := NewMarketService(markets, cache, dec("1000.00"), testLogger())

	got, err := svc.GetMarket(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, 1, markets.getCalls)
	assert.Equal(t, 1, cache.sets, "a miss back-fills the cache")

	// Second read is served from the cache.
	_, err = svc.GetMarket(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, markets.getCalls)
}

func TestGetMarketNotFound(t *testing.T) {
	svc := NewMarketService(newFakeMarketStore(nil), &fakeCache{}, dec("1000.00"), testLogger())

	_, err := svc.GetMarket(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}
