package entity

import "github.com/shopspring/decimal"

// DEXTokenPair is the wrapped response of the latest/dex/tokens endpoint.
type DEXTokenPair struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairData `json:"pairs"` // null when none of the requested tokens has a pair
}

// PairData contains detailed information about a trading pair.
// Numeric fields are decoded straight into decimals to keep the upstream precision.
type PairData struct {
	ChainID       string          `json:"chainId"`
	DexID         string          `json:"dexId"`
	URL           string          `json:"url"`
	PairAddress   string          `json:"pairAddress"`
	BaseToken     DEXToken        `json:"baseToken"`
	QuoteToken    DEXToken        `json:"quoteToken"`
	PriceNative   string          `json:"priceNative"`
	PriceUsd      string          `json:"priceUsd"`
	Volume        PairVolume      `json:"volume"`
	Liquidity     *DEXLiquidity   `json:"liquidity"` // Pointer to handle potential nulls
	Fdv           decimal.Decimal `json:"fdv"`
	MarketCap     decimal.Decimal `json:"marketCap"`
	PairCreatedAt int64           `json:"pairCreatedAt"`
}

// DEXToken represents a token in a trading pair.
type DEXToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// DEXLiquidity represents the liquidity information for a pair.
type DEXLiquidity struct {
	Usd   decimal.Decimal `json:"usd"`
	Base  decimal.Decimal `json:"base"`
	Quote decimal.Decimal `json:"quote"`
}

// PairVolume represents trading volume in USD over different periods.
type PairVolume struct {
	M5  decimal.Decimal `json:"m5"`
	H1  decimal.Decimal `json:"h1"`
	H6  decimal.Decimal `json:"h6"`
	H24 decimal.Decimal `json:"h24"`
}

// LiquidityUSD returns the pair liquidity, zero when the pair reports none.
func (p *PairData) LiquidityUSD() decimal.Decimal {
	if p.Liquidity == nil {
		return decimal.Zero
	}
	return p.Liquidity.Usd
}
