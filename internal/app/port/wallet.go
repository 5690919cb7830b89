package port

import (
	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// WalletProvider defines the interface for fetching wallet addresses.
type WalletProvider interface {
	GetWallets() ([]entity.Wallet, error)
}

// HoldingsProvider returns manually tracked balances keyed by token address.
type HoldingsProvider interface {
	GetHoldings() (map[string]decimal.Decimal, error)
}
