package entity

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Chain tags used as TokenInfo.Chain for the non-EVM sources.
// EVM entries carry the Moralis chain identifier (eth, bsc, base, ...).
const (
	ChainSolana = "solana"
	ChainSui    = "sui"
)

// SolanaNativeAddress is the ledger key for native SOL (the wrapped SOL mint, lower-cased).
const SolanaNativeAddress = "so11111111111111111111111111111111111111112"

// UnknownWallet is the synthetic wallet key holding manually tracked balances.
const UnknownWallet = "unknown"

// DivisionPlaces is the number of decimal places kept by the slippage divisions.
const DivisionPlaces = 28

var (
	decimalOne = decimal.NewFromInt(1)
	decimalTwo = decimal.NewFromInt(2)
)

// TokenInfo is one ledger entry: the aggregated holding of a single token address across all tracked wallets.
type TokenInfo struct {
	Address   string
	Name      string
	Symbol    string
	Chain     string
	Balances  map[string]decimal.Decimal
	Price     decimal.Decimal
	Liquidity decimal.Decimal
	MarketCap decimal.Decimal
	Link      string
	Dex       string
}

// NewTokenInfo creates an entry with an empty balance map and zero pricing.
func NewTokenInfo(address, name, symbol, chain string) *TokenInfo {
	return &TokenInfo{
		Address:  address,
		Name:     name,
		Symbol:   symbol,
		Chain:    chain,
		Balances: make(map[string]decimal.Decimal),
	}
}

// Balance returns the exact sum of all wallet balances.
func (t *TokenInfo) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range t.Balances {
		total = total.Add(amount)
	}
	return total
}

// Value is Balance * Price.
func (t *TokenInfo) Value() decimal.Decimal {
	return t.Balance().Mul(t.Price)
}

// RealValue discounts Value by the slippage of selling the whole position into half of the pool liquidity.
// Without liquidity data it equals Value. The result is not clamped.
func (t *TokenInfo) RealValue() decimal.Decimal {
	value := t.Value()
	if t.Liquidity.IsZero() {
		return value
	}

	available := t.Liquidity.DivRound(decimalTwo, DivisionPlaces)
	slippage := decimalOne.Sub(available.Sub(value).DivRound(available, DivisionPlaces)).DivRound(decimalTwo, DivisionPlaces)
	return value.Mul(decimalOne.Sub(slippage))
}

// SetBalance overwrites the balance held by wallet.
func (t *TokenInfo) SetBalance(wallet string, amount decimal.Decimal) {
	if t.Balances == nil {
		t.Balances = make(map[string]decimal.Decimal)
	}
	t.Balances[wallet] = amount
}

// HasHoldings reports whether any wallet holds a non-zero amount.
func (t *TokenInfo) HasHoldings() bool {
	for _, amount := range t.Balances {
		if !amount.IsZero() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entry.
func (t *TokenInfo) Clone() *TokenInfo {
	c := *t
	c.Balances = make(map[string]decimal.Decimal, len(t.Balances))
	for wallet, amount := range t.Balances {
		c.Balances[wallet] = amount
	}
	return &c
}

// Ledger maps token address to its entry.
type Ledger map[string]*TokenInfo

// Upsert applies the merge rule: create the entry on first sight, otherwise overwrite (never add to) the balance of
// the given wallet. Zero amounts are ignored so empty holdings never enter the ledger.
func (l Ledger) Upsert(address, name, symbol, chain, wallet string, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	info, ok := l[address]
	if !ok {
		info = NewTokenInfo(address, name, symbol, chain)
		l[address] = info
	}
	info.SetBalance(wallet, amount)
}

// Clone deep-copies every entry.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for address, info := range l {
		out[address] = info.Clone()
	}
	return out
}

// Addresses returns the ledger keys in lexical order.
func (l Ledger) Addresses() []string {
	addresses := make([]string, 0, len(l))
	for address := range l {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// TotalRealValue sums RealValue over all entries.
func (l Ledger) TotalRealValue() decimal.Decimal {
	total := decimal.Zero
	for _, info := range l {
		total = total.Add(info.RealValue())
	}
	return total
}

// RealValueByChain sums RealValue per chain tag.
func (l Ledger) RealValueByChain() map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, info := range l {
		totals[info.Chain] = totals[info.Chain].Add(info.RealValue())
	}
	return totals
}
