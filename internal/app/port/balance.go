package port

import (
	"context"

	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// NativeBalanceSource returns native coin balances (wei, as decimal strings) keyed by lower-cased wallet.
// Wallets the source knows nothing about may be omitted from the result.
type NativeBalanceSource interface {
	GetNativeBalances(ctx context.Context, chain string, wallets []string) (map[string]string, error)
}

// EVMTokenSource lists every token, native coin included, held by a wallet on one EVM chain.
type EVMTokenSource interface {
	GetWalletTokens(ctx context.Context, chain, wallet string) ([]entity.EVMTokenBalance, error)
}

// SolanaPortfolioSource returns SPL holdings and the SOL balance of a wallet.
type SolanaPortfolioSource interface {
	GetSolanaPortfolio(ctx context.Context, wallet string) (*entity.SolanaPortfolio, error)
}

// SuiCoinSource returns the coin objects owned by a Sui account.
type SuiCoinSource interface {
	GetSuiCoins(ctx context.Context, wallet string) ([]entity.SuiCoin, error)
}

// NativePriceSource resolves USD prices for CoinGecko ids.
// Ids without a quote are absent from the result.
type NativePriceSource interface {
	GetUSDPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}
