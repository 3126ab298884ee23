package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultCoins монеты, которые показывает бот
var DefaultCoins = []string{"bitcoin", "ethereum"}

const defaultMarketsURL = "https://api.coingecko.com/api/v3/coins/markets"

// MaxMarketsLimit наибольший размер страницы coins/markets
const MaxMarketsLimit = 250

// MarketCoin строка рейтинга монет по капитализации
type MarketCoin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
}

// CoinGeckoClient клиент simple/price API CoinGecko
type CoinGeckoClient struct {
	baseURL    string
	marketsURL string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewCoinGeckoClient создает клиента CoinGecko
func NewCoinGeckoClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *CoinGeckoClient {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = "https://api.coingecko.com/api/v3/simple/price"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CoinGeckoClient{
		baseURL:    trimmed,
		marketsURL: defaultMarketsURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchUSDPrices возвращает цены монет в долларах по идентификатору CoinGecko
func (c *CoinGeckoClient) FetchUSDPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	endpoint := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create prices request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request prices: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prices API returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode prices response: %w", err)
	}

	prices := make(map[string]float64, len(ids))
	for _, id := range ids {
		raw, ok := payload[id]["usd"]
		if !ok {
			c.logger.Warnf("Price missing for %s", id)
			continue
		}
		price, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse price for %s: %w", id, err)
		}
		prices[id] = price.InexactFloat64()
	}

	return prices, nil
}

// WithMarketsURL задает адрес coins/markets; пустая строка оставляет адрес по умолчанию
func (c *CoinGeckoClient) WithMarketsURL(marketsURL string) *CoinGeckoClient {
	if trimmed := strings.TrimSpace(marketsURL); trimmed != "" {
		c.marketsURL = trimmed
	}
	return c
}

// FetchTopMarkets возвращает первые limit монет по рыночной капитализации в долларах
func (c *CoinGeckoClient) FetchTopMarkets(ctx context.Context, limit int) ([]MarketCoin, error) {
	if limit <= 0 || limit > MaxMarketsLimit {
		return nil, fmt.Errorf("markets limit must be between 1 and %d, got %d", MaxMarketsLimit, limit)
	}

	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("page", "1")
	query.Set("sparkline", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.marketsURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create markets request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request markets: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("markets API returned status %d", resp.StatusCode)
	}

	var coins []MarketCoin
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, fmt.Errorf("failed to decode markets response: %w", err)
	}

	if len(coins) > limit {
		coins = coins[:limit]
	}
	c.logger.Debugf("Fetched %d market coins", len(coins))
	return coins, nil
}
