package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/infrastructure/httpclient"
	"balance_tracker/internal/pkg/utils"

	"go.uber.org/zap"
)

const (
	DefaultMoralisEVMBaseURL    = "https://deep-index.moralis.io/api/v2.2"
	DefaultMoralisSolanaBaseURL = "https://solana-gateway.moralis.io"

	moralisPageLimit         = 100
	moralisWalletsPerRequest = 25
)

// MoralisConfig holds the Moralis endpoints and credentials.
type MoralisConfig struct {
	APIKey        string
	EVMBaseURL    string
	SolanaBaseURL string
	SolanaNetwork string // mainnet или devnet
}

// MoralisClient serves EVM token balances, EVM native balances and Solana portfolios.
type MoralisClient struct {
	exec   Executor
	policy httpclient.RetryPolicy
	cfg    MoralisConfig
	logger *zap.Logger
}

// NewMoralisClient creates a MoralisClient. policy should treat 429 as fatal: Moralis answers it once the daily quota is spent.
func NewMoralisClient(exec Executor, policy httpclient.RetryPolicy, cfg MoralisConfig, logger *zap.Logger) *MoralisClient {
	if cfg.EVMBaseURL == "" {
		cfg.EVMBaseURL = DefaultMoralisEVMBaseURL
	}
	if cfg.SolanaBaseURL == "" {
		cfg.SolanaBaseURL = DefaultMoralisSolanaBaseURL
	}
	if cfg.SolanaNetwork == "" {
		cfg.SolanaNetwork = "mainnet"
	}
	cfg.EVMBaseURL = strings.TrimRight(cfg.EVMBaseURL, "/")
	cfg.SolanaBaseURL = strings.TrimRight(cfg.SolanaBaseURL, "/")
	return &MoralisClient{exec: exec, policy: policy, cfg: cfg, logger: logger.Named("MoralisClient")}
}

func (c *MoralisClient) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	requestURL := endpoint
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	body, err := c.exec.Do(ctx, c.policy, httpclient.Request{
		URL:     requestURL,
		Headers: map[string]string{"X-API-Key": c.cfg.APIKey},
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal Moralis response from %s: %w", endpoint, err)
	}
	return nil
}

type moralisWalletBalances struct {
	Chain          string `json:"chain"`
	WalletBalances []struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
	} `json:"wallet_balances"`
}

// GetNativeBalances returns the native balance in wei of every wallet on chain, keyed by lower-cased address.
func (c *MoralisClient) GetNativeBalances(ctx context.Context, chain string, wallets []string) (map[string]string, error) {
	balances := make(map[string]string, len(wallets))
	for _, batch := range utils.BatchStrings(wallets, moralisWalletsPerRequest) {
		query := url.Values{}
		query.Set("chain", chain)
		for _, w := range batch {
			query.Add("wallet_addresses", w)
		}

		var resp []moralisWalletBalances
		if err := c.get(ctx, c.cfg.EVMBaseURL+"/wallets/balances", query, &resp); err != nil {
			return nil, fmt.Errorf("native balances on %s: %w", chain, err)
		}
		for _, block := range resp {
			for _, wb := range block.WalletBalances {
				balances[strings.ToLower(wb.Address)] = wb.Balance
			}
		}
	}
	c.logger.Debug("Fetched native balances", zap.String("chain", chain), zap.Int("wallets", len(balances)))
	return balances, nil
}

type moralisTokenPage struct {
	Cursor string                   `json:"cursor"`
	Result []entity.EVMTokenBalance `json:"result"`
}

// GetWalletTokens lists the tokens of wallet on chain, spam excluded, following the pagination cursor.
func (c *MoralisClient) GetWalletTokens(ctx context.Context, chain, wallet string) ([]entity.EVMTokenBalance, error) {
	endpoint := fmt.Sprintf("%s/wallets/%s/tokens", c.cfg.EVMBaseURL, url.PathEscape(wallet))
	var tokens []entity.EVMTokenBalance
	cursor := ""
	for {
		query := url.Values{}
		query.Set("chain", chain)
		query.Set("exclude_spam", "true")
		query.Set("limit", fmt.Sprint(moralisPageLimit))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var page moralisTokenPage
		if err := c.get(ctx, endpoint, query, &page); err != nil {
			return nil, fmt.Errorf("tokens of %s on %s: %w", wallet, chain, err)
		}
		tokens = append(tokens, page.Result...)
		if page.Cursor == "" || len(page.Result) == 0 {
			break
		}
		cursor = page.Cursor
	}
	c.logger.Debug("Fetched wallet tokens", zap.String("chain", chain), zap.String("wallet", wallet), zap.Int("tokens", len(tokens)))
	return tokens, nil
}

// GetSolanaPortfolio returns the SPL tokens and SOL balance of wallet.
func (c *MoralisClient) GetSolanaPortfolio(ctx context.Context, wallet string) (*entity.SolanaPortfolio, error) {
	endpoint := fmt.Sprintf("%s/account/%s/%s/portfolio", c.cfg.SolanaBaseURL, c.cfg.SolanaNetwork, url.PathEscape(wallet))
	query := url.Values{}
	query.Set("limit", fmt.Sprint(moralisPageLimit))

	var portfolio entity.SolanaPortfolio
	if err := c.get(ctx, endpoint, query, &portfolio); err != nil {
		return nil, fmt.Errorf("solana portfolio of %s: %w", wallet, err)
	}
	return &portfolio, nil
}
