package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gw-currency-rates/internal/feed"
)

func TestMarketsCacheTTL(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	c := NewMarketsCache(300 * time.Second)
	c.now = func() time.Time { return now }

	_, ok := c.Top(1)
	assert.False(t, ok, "empty cache is never fresh")

	c.Set([]feed.MarketCoin{
		{ID: "bitcoin", MarketCapRank: 1},
		{ID: "ethereum", MarketCapRank: 2},
		{ID: "tether", MarketCapRank: 3},
	})

	top, ok := c.Top(2)
	assert.True(t, ok)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, []string{top[0].ID, top[1].ID})

	all, ok := c.Top(10)
	assert.True(t, ok)
	assert.Len(t, all, 3)

	now = now.Add(301 * time.Second)
	_, ok = c.Top(1)
	assert.False(t, ok, "expired after TTL")
}

func TestMarketsCacheReturnsCopy(t *testing.T) {
	c := NewMarketsCache(time.Minute)
	c.Set([]feed.MarketCoin{{ID: "bitcoin"}})

	top, ok := c.Top(1)
	assert.True(t, ok)
	top[0].ID = "changed"

	again, _ := c.Top(1)
	assert.Equal(t, "bitcoin", again[0].ID)

	c.Clear()
	_, ok = c.Top(1)
	assert.False(t, ok)
}
