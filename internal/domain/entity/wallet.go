package entity

import "github.com/shopspring/decimal"

// WalletKind identifies which balance source serves a wallet.
type WalletKind string

const (
	WalletKindEVM    WalletKind = "evm"
	WalletKindSolana WalletKind = "solana"
	WalletKindSui    WalletKind = "sui"
)

// Wallet is a tracked address.
type Wallet struct {
	Address string
	Kind    WalletKind
}

// WalletSet groups tracked addresses by source.
type WalletSet struct {
	EVM    []string
	Solana []string
	Sui    []string
}

// Add appends a wallet to the matching list unless it is already present.
func (s *WalletSet) Add(w Wallet) {
	var list *[]string
	switch w.Kind {
	case WalletKindEVM:
		list = &s.EVM
	case WalletKindSolana:
		list = &s.Solana
	case WalletKindSui:
		list = &s.Sui
	default:
		return
	}
	for _, existing := range *list {
		if existing == w.Address {
			return
		}
	}
	*list = append(*list, w.Address)
}

// Len is the total number of tracked wallets.
func (s WalletSet) Len() int {
	return len(s.EVM) + len(s.Solana) + len(s.Sui)
}

// TrackingPlan is everything one polling cycle needs to know about what to track and how to report it.
type TrackingPlan struct {
	Wallets        WalletSet
	Networks       []NetworkDefinition
	ManualHoldings map[string]decimal.Decimal
	MinValueUSD    decimal.Decimal
	HideBalances   bool
	Verbose        bool
}

// ChainIdentifiers lists the tracked EVM chain ids in configuration order.
func (p *TrackingPlan) ChainIdentifiers() []string {
	ids := make([]string, 0, len(p.Networks))
	for _, n := range p.Networks {
		ids = append(ids, n.Identifier)
	}
	return ids
}

// IsNativeKey reports whether address is the ledger key of a tracked EVM native coin.
func (p *TrackingPlan) IsNativeKey(address string) bool {
	for _, n := range p.Networks {
		if n.Identifier == address {
			return true
		}
	}
	return false
}
