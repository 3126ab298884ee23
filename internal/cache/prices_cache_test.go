package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPricesCacheTTL(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	c := NewPricesCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	_, ok := c.Get()
	assert.False(t, ok, "empty cache is never fresh")

	c.Set(map[string]float64{"bitcoin": 65000, "ethereum": 3400})

	prices, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, 65000.0, prices["bitcoin"])

	now = now.Add(4 * time.Minute)
	price, ok := c.GetPrice("ethereum")
	assert.True(t, ok)
	assert.Equal(t, 3400.0, price)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get()
	assert.False(t, ok, "expired after TTL")
}

func TestPricesCacheReturnsCopy(t *testing.T) {
	c := NewPricesCache(time.Minute)
	source := map[string]float64{"bitcoin": 1}
	c.Set(source)
	source["bitcoin"] = 2

	prices, ok := c.Get()
	assert.True(t, ok)
	prices["bitcoin"] = 3

	price, _ := c.GetPrice("bitcoin")
	assert.Equal(t, 1.0, price)
}

func TestPricesCacheClear(t *testing.T) {
	c := NewPricesCache(time.Minute)
	c.Set(map[string]float64{"bitcoin": 1})
	c.Clear()

	_, ok := c.GetPrice("bitcoin")
	assert.False(t, ok)
}
