package entity

// NativeSource selects where native balances for change detection are read from.
type NativeSource string

const (
	NativeSourceMoralis NativeSource = "moralis"
	NativeSourceRPC     NativeSource = "rpc"
)

// NetworkDefinition holds the configuration for a tracked EVM network.
// Identifier is the Moralis chain id; it doubles as the ledger chain tag and as the ledger key of the native coin.
type NetworkDefinition struct {
	Identifier         string       `json:"identifier" yaml:"identifier"`
	Name               string       `json:"name" yaml:"name"`
	ChainID            uint64       `json:"chainId" yaml:"chainId"`
	NativeSymbol       string       `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals           int32        `json:"decimals" yaml:"decimals"`
	GeckoTicker        string       `json:"geckoTicker" yaml:"geckoTicker"` // id для CoinGecko simple/price
	DEXScreenerChainID string       `json:"dexScreenerChainId" yaml:"dexScreenerChainId"`
	PrimaryRPCURL      string       `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs    []string     `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	NativeSource       NativeSource `json:"nativeSource" yaml:"nativeSource"`
}

// RPCURLs returns the primary RPC endpoint followed by the fallbacks.
func (n NetworkDefinition) RPCURLs() []string {
	urls := make([]string, 0, 1+len(n.FallbackRPCURLs))
	if n.PrimaryRPCURL != "" {
		urls = append(urls, n.PrimaryRPCURL)
	}
	return append(urls, n.FallbackRPCURLs...)
}
