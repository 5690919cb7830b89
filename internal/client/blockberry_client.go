package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/infrastructure/httpclient"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBlockberryBaseURL is the public Blockberry API.
const DefaultBlockberryBaseURL = "https://api.blockberry.one"

// DefaultBlockberrySpacing is the minimum gap between Sui requests on the free plan.
const DefaultBlockberrySpacing = 3 * time.Second

var suiObjectsPayload = []byte(`{"objectTypes":["coin","nft"]}`)

// BlockberryClient reads Sui account objects. Requests are spaced by a limiter because the free plan allows
// one call every few seconds.
type BlockberryClient struct {
	exec    Executor
	policy  httpclient.RetryPolicy
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewBlockberryClient creates a BlockberryClient. A zero spacing disables the limiter.
func NewBlockberryClient(exec Executor, policy httpclient.RetryPolicy, baseURL, apiKey string, spacing time.Duration, logger *zap.Logger) *BlockberryClient {
	if baseURL == "" {
		baseURL = DefaultBlockberryBaseURL
	}
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}
	return &BlockberryClient{
		exec:    exec,
		policy:  policy,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("BlockberryClient"),
	}
}

type suiObjectsResponse struct {
	Coins []entity.SuiCoin `json:"coins"`
}

// GetSuiCoins returns the coins owned by wallet.
func (c *BlockberryClient) GetSuiCoins(ctx context.Context, wallet string) ([]entity.SuiCoin, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestURL := fmt.Sprintf("%s/sui/v1/accounts/%s/objects", c.baseURL, url.PathEscape(wallet))
	body, err := c.exec.Do(ctx, c.policy, httpclient.Request{
		Method:  "POST",
		URL:     requestURL,
		Headers: map[string]string{"x-api-key": c.apiKey},
		Body:    suiObjectsPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("sui objects of %s: %w", wallet, err)
	}

	var resp suiObjectsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Blockberry response for %s: %w", wallet, err)
	}
	c.logger.Debug("Fetched Sui coins", zap.String("wallet", wallet), zap.Int("coins", len(resp.Coins)))
	return resp.Coins, nil
}
