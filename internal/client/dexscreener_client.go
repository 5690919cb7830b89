package client

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"balance_tracker/internal/entity"
	"balance_tracker/internal/infrastructure/httpclient"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultDEXScreenerBaseURL is the public DEX Screener API.
const DefaultDEXScreenerBaseURL = "https://api.dexscreener.com"

// Executor sends a request under a retry policy and returns the body of a successful answer.
type Executor interface {
	Do(ctx context.Context, policy httpclient.RetryPolicy, req httpclient.Request) ([]byte, error)
}

// DEXScreenerClient queries token pairs across all chains DEX Screener indexes.
type DEXScreenerClient struct {
	exec                Executor
	policy              httpclient.RetryPolicy
	baseURL             string
	logger              *zap.Logger
	maxTokensPerRequest int
}

// NewDEXScreenerClient creates a new DEXScreenerClient.
func NewDEXScreenerClient(exec Executor, policy httpclient.RetryPolicy, baseURL string, maxTokensPerRequest int, logger *zap.Logger) *DEXScreenerClient {
	if baseURL == "" {
		baseURL = DefaultDEXScreenerBaseURL
	}
	if maxTokensPerRequest <= 0 {
		maxTokensPerRequest = 30
	}
	return &DEXScreenerClient{
		exec:                exec,
		policy:              policy,
		baseURL:             strings.TrimRight(baseURL, "/"),
		logger:              logger.Named("DEXScreenerClient"),
		maxTokensPerRequest: maxTokensPerRequest,
	}
}

// MaxTokensPerRequest is the largest address batch accepted by GetTokenPairs.
func (c *DEXScreenerClient) MaxTokensPerRequest() int {
	return c.maxTokensPerRequest
}

// GetTokenPairs returns every pair listed for the given token addresses.
func (c *DEXScreenerClient) GetTokenPairs(ctx context.Context, tokenAddresses []string) ([]entity.PairData, error) {
	if len(tokenAddresses) == 0 {
		return nil, fmt.Errorf("tokenAddresses cannot be empty")
	}
	if len(tokenAddresses) > c.maxTokensPerRequest {
		c.logger.Warn("Number of token addresses exceeds maxTokensPerRequest",
			zap.Int("requestedCount", len(tokenAddresses)),
			zap.Int("maxAllowed", c.maxTokensPerRequest))
		return nil, fmt.Errorf("number of token addresses (%d) exceeds max tokens per request (%d)", len(tokenAddresses), c.maxTokensPerRequest)
	}

	requestURL := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, strings.Join(tokenAddresses, ","))
	c.logger.Debug("Requesting token pairs from DEX Screener", zap.String("url", requestURL))

	rawBody, err := c.exec.Do(ctx, c.policy, httpclient.Request{URL: requestURL})
	if err != nil {
		return nil, err
	}

	// обычно приходит обёртка {"schemaVersion":..,"pairs":[..]}, но встречается и голый массив
	if trimmed := bytes.TrimSpace(rawBody); len(trimmed) > 0 && trimmed[0] == '[' {
		var directPairs []entity.PairData
		if err := json.Unmarshal(trimmed, &directPairs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal DEX Screener response from %s: %w", requestURL, err)
		}
		c.logger.Debug("Unmarshalled DEX Screener response (direct array)", zap.Int("pairCount", len(directPairs)))
		return directPairs, nil
	}

	var wrapper entity.DEXTokenPair
	if err := json.Unmarshal(rawBody, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DEX Screener response from %s: %w", requestURL, err)
	}
	if len(wrapper.Pairs) == 0 {
		c.logger.Debug("DEX Screener returned no pairs", zap.Strings("tokens", tokenAddresses))
	}
	return wrapper.Pairs, nil
}
