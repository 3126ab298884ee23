package cache

import (
	"sync"
	"time"

	"gw-currency-rates/internal/feed"
)

// MarketsCache кеш рейтинга монет по капитализации.
// Хранит один загруженный список, запросы берут его префикс.
type MarketsCache struct {
	coins  []feed.MarketCoin
	mu     sync.RWMutex
	ttl    time.Duration
	lastUp time.Time
	now    func() time.Time
}

// NewMarketsCache создает новый кеш рейтинга
func NewMarketsCache(ttl time.Duration) *MarketsCache {
	return &MarketsCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Set сохраняет рейтинг в кеш
func (c *MarketsCache) Set(coins []feed.MarketCoin) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.coins = append([]feed.MarketCoin(nil), coins...)
	c.lastUp = c.now()
}

// Top возвращает не больше limit первых монет, если кеш актуален
func (c *MarketsCache) Top(limit int) ([]feed.MarketCoin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastUp.IsZero() || c.now().Sub(c.lastUp) > c.ttl || len(c.coins) == 0 {
		return nil, false
	}
	if limit > len(c.coins) {
		limit = len(c.coins)
	}

	return append([]feed.MarketCoin(nil), c.coins[:limit]...), true
}

// Clear очищает кеш
func (c *MarketsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.coins = nil
	c.lastUp = time.Time{}
}
