package entity

import "github.com/shopspring/decimal"

// PriceQuote is the market data resolved for one token address from its best trading pair.
type PriceQuote struct {
	Address   string
	Name      string
	Symbol    string
	Chain     string
	Price     decimal.Decimal
	Liquidity decimal.Decimal
	MarketCap decimal.Decimal
	Link      string
	Dex       string
}

// Apply copies the market fields of the quote onto a ledger entry.
func (q PriceQuote) Apply(info *TokenInfo) {
	info.Price = q.Price
	info.Liquidity = q.Liquidity
	info.MarketCap = q.MarketCap
	info.Link = q.Link
	info.Dex = q.Dex
}
