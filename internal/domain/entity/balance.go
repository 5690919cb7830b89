package entity

import "github.com/shopspring/decimal"

// SolanaPortfolio is the per-wallet portfolio returned by the Solana balance source.
type SolanaPortfolio struct {
	NativeBalance SolanaNativeBalance `json:"nativeBalance"`
	Tokens        []SolanaToken       `json:"tokens"`
}

// SolanaNativeBalance holds the SOL balance in lamports and in whole SOL.
type SolanaNativeBalance struct {
	Lamports string          `json:"lamports"`
	Solana   decimal.Decimal `json:"solana"`
}

// SolanaToken is an SPL token holding; Amount is already scaled by the mint decimals.
type SolanaToken struct {
	Mint     string          `json:"mint"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	Amount   decimal.Decimal `json:"amount"`
	Decimals int32           `json:"decimals"`
}

// SuiCoin is a coin object owned by a Sui account. TotalBalance is in base units.
type SuiCoin struct {
	CoinType     string          `json:"coinType"`
	CoinName     string          `json:"coinName"`
	CoinSymbol   string          `json:"coinSymbol"`
	TotalBalance decimal.Decimal `json:"totalBalance"`
	Decimals     int32           `json:"decimals"`
}

// Amount converts the base-unit balance to whole coins.
func (c SuiCoin) Amount() decimal.Decimal {
	return c.TotalBalance.Shift(-c.Decimals)
}

// EVMTokenBalance is one token (or the native coin) held by a wallet on an EVM chain.
type EVMTokenBalance struct {
	TokenAddress     string          `json:"token_address"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	Decimals         int32           `json:"decimals"`
	BalanceFormatted decimal.Decimal `json:"balance_formatted"`
	NativeToken      bool            `json:"native_token"`
	PossibleSpam     bool            `json:"possible_spam"`
}

// LedgerAddress is the key of this holding in the ledger: native coins are keyed by the chain identifier.
func (b EVMTokenBalance) LedgerAddress(chain string) string {
	if b.NativeToken {
		return chain
	}
	return b.TokenAddress
}
