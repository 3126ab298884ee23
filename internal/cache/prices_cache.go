package cache

import (
	"sync"
	"time"
)

// PricesCache кеш цен криптовалют в долларах
type PricesCache struct {
	prices map[string]float64
	mu     sync.RWMutex
	ttl    time.Duration
	lastUp time.Time
	now    func() time.Time
}

// NewPricesCache создает новый кеш
func NewPricesCache(ttl time.Duration) *PricesCache {
	return &PricesCache{
		prices: make(map[string]float64),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Set сохраняет цены в кеш
func (c *PricesCache) Set(prices map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prices = make(map[string]float64, len(prices))
	for k, v := range prices {
		c.prices[k] = v
	}
	c.lastUp = c.now()
}

// Get возвращает копию цен, если они актуальны
func (c *PricesCache) Get() (map[string]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.freshLocked() {
		return nil, false
	}

	pricesCopy := make(map[string]float64, len(c.prices))
	for k, v := range c.prices {
		pricesCopy[k] = v
	}

	return pricesCopy, true
}

// GetPrice возвращает цену одной монеты
func (c *PricesCache) GetPrice(id string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.freshLocked() {
		return 0, false
	}

	price, exists := c.prices[id]
	return price, exists
}

// Clear очищает кеш
func (c *PricesCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prices = make(map[string]float64)
	c.lastUp = time.Time{}
}

func (c *PricesCache) freshLocked() bool {
	return !c.lastUp.IsZero() && c.now().Sub(c.lastUp) <= c.ttl && len(c.prices) > 0
}
