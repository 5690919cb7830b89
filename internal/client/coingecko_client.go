package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"balance_tracker/internal/infrastructure/httpclient"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultCoinGeckoBaseURL is the public CoinGecko API.
const DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient resolves native coin prices via simple/price. Quotes are cached for ttl.
type CoinGeckoClient struct {
	exec    Executor
	policy  httpclient.RetryPolicy
	baseURL string
	apiKey  string
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewCoinGeckoClient creates a CoinGeckoClient. A non-positive ttl disables caching.
func NewCoinGeckoClient(exec Executor, policy httpclient.RetryPolicy, baseURL, apiKey string, ttl time.Duration, logger *zap.Logger) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	c := &CoinGeckoClient{
		exec:    exec,
		policy:  policy,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger.Named("CoinGeckoClient"),
	}
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

// GetUSDPrices returns the USD price of each CoinGecko id. Unknown ids are omitted.
func (c *CoinGeckoClient) GetUSDPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(tickers))
	var missing []string
	seen := make(map[string]bool, len(tickers))
	for _, ticker := range tickers {
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		if c.cache != nil {
			if cached, ok := c.cache.Get(ticker); ok {
				prices[ticker] = cached.(decimal.Decimal)
				continue
			}
		}
		missing = append(missing, ticker)
	}
	if len(missing) == 0 {
		return prices, nil
	}
	sort.Strings(missing)

	query := url.Values{}
	query.Set("ids", strings.Join(missing, ","))
	query.Set("vs_currencies", "usd")
	req := httpclient.Request{URL: c.baseURL + "/simple/price?" + query.Encode()}
	if c.apiKey != "" {
		req.Headers = map[string]string{"x-cg-demo-api-key": c.apiKey}
	}

	body, err := c.exec.Do(ctx, c.policy, req)
	if err != nil {
		return nil, fmt.Errorf("coingecko prices: %w", err)
	}
	var resp map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CoinGecko response: %w", err)
	}

	for _, ticker := range missing {
		quote, ok := resp[ticker]["usd"]
		if !ok {
			c.logger.Warn("CoinGecko has no USD quote", zap.String("ticker", ticker))
			continue
		}
		prices[ticker] = quote
		if c.cache != nil {
			c.cache.SetDefault(ticker, quote)
		}
	}
	return prices, nil
}
