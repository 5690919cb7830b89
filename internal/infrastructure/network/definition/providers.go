package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
)

// NetworkDefinitionProvider resolves the configured EVM networks against the known definitions.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	activeNetworkDefs []entity.NetworkDefinition
}

// Predefined network definitions, keyed by Moralis chain id
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:            1,
		Name:               "Ethereum Mainnet",
		Identifier:         "eth",
		NativeSymbol:       "ETH",
		Decimals:           18,
		GeckoTicker:        "ethereum",
		DEXScreenerChainID: "ethereum",
		PrimaryRPCURL:      "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
	}
	BSC = entity.NetworkDefinition{
		ChainID:            56,
		Name:               "BNB Smart Chain",
		Identifier:         "bsc",
		NativeSymbol:       "BNB",
		Decimals:           18,
		GeckoTicker:        "binancecoin",
		DEXScreenerChainID: "bsc",
		PrimaryRPCURL:      "https://1rpc.io/bnb",
		FallbackRPCURLs:    []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
	}
	Polygon = entity.NetworkDefinition{
		ChainID:            137,
		Name:               "Polygon PoS",
		Identifier:         "polygon",
		NativeSymbol:       "POL",
		Decimals:           18,
		GeckoTicker:        "polygon-ecosystem-token",
		DEXScreenerChainID: "polygon",
		PrimaryRPCURL:      "https://polygon-rpc.com/",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:            42161,
		Name:               "Arbitrum One",
		Identifier:         "arbitrum",
		NativeSymbol:       "ETH",
		Decimals:           18,
		GeckoTicker:        "ethereum",
		DEXScreenerChainID: "arbitrum",
		PrimaryRPCURL:      "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:    []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:            43114,
		Name:               "Avalanche C-Chain",
		Identifier:         "avalanche",
		NativeSymbol:       "AVAX",
		Decimals:           18,
		GeckoTicker:        "avalanche-2",
		DEXScreenerChainID: "avalanche",
		PrimaryRPCURL:      "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:    []string{"https://avalanche.public-rpc.com", "https://rpc.ankr.com/avalanche"},
	}
	Base = entity.NetworkDefinition{
		ChainID:            8453,
		Name:               "Base Mainnet",
		Identifier:         "base",
		NativeSymbol:       "ETH",
		Decimals:           18,
		GeckoTicker:        "ethereum",
		DEXScreenerChainID: "base",
		PrimaryRPCURL:      "https://1rpc.io/base",
		FallbackRPCURLs:    []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
	}
	Blast = entity.NetworkDefinition{
		ChainID:            81457,
		Name:               "Blast Mainnet",
		Identifier:         "blast",
		NativeSymbol:       "ETH",
		Decimals:           18,
		GeckoTicker:        "ethereum",
		DEXScreenerChainID: "blast",
		PrimaryRPCURL:      "https://rpc.ankr.com/blast",
		FallbackRPCURLs:    []string{"https://blast.blockpi.network/v1/rpc/public", "https://blastl2-mainnet.public.blastapi.io"},
	}
	Fantom = entity.NetworkDefinition{
		ChainID:            250,
		Name:               "Fantom Opera",
		Identifier:         "fantom",
		NativeSymbol:       "FTM",
		Decimals:           18,
		GeckoTicker:        "fantom",
		DEXScreenerChainID: "fantom",
		PrimaryRPCURL:      "https://1rpc.io/ftm",
		FallbackRPCURLs:    []string{"https://fantom.publicnode.com", "https://rpc.ankr.com/fantom"},
	}
	Gnosis = entity.NetworkDefinition{
		ChainID:            100,
		Name:               "Gnosis Chain",
		Identifier:         "gnosis",
		NativeSymbol:       "xDAI",
		Decimals:           18,
		GeckoTicker:        "xdai",
		DEXScreenerChainID: "gnosischain",
		PrimaryRPCURL:      "https://0xrpc.io/gno",
		FallbackRPCURLs:    []string{"https://rpc.ankr.com/gnosis", "https://gnosis.publicnode.com"},
	}
	Linea = entity.NetworkDefinition{
		ChainID:            59144,
		Name:               "Linea Mainnet",
		Identifier:         "linea",
		NativeSymbol:       "ETH",
		Decimals:           18,
		GeckoTicker:        "ethereum",
		DEXScreenerChainID: "linea",
		PrimaryRPCURL:      "https://rpc.linea.build",
		FallbackRPCURLs:    []string{"https://linea.blockpi.network/v1/rpc/public"},
	}
	Mantle = entity.NetworkDefinition{
		ChainID:            5000,
		Name:               "Mantle Network",
		Identifier:         "mantle",
		NativeSymbol:       "MNT",
		Decimals:           18,
		GeckoTicker:        "mantle",
		DEXScreenerChainID: "mantle",
		PrimaryRPCURL:      "https://rpc.mantle.xyz",
	}
	Optimism = entity.NetworkDefinition{
		ChainID:            10,
		Name:               "OP Mainnet",
		Identifier:         "optimism",
		NativeSymbol:       "ETH",
		Decimals:           18,
		GeckoTicker:        "ethereum",
		DEXScreenerChainID: "optimism",
		PrimaryRPCURL:      "https://op-pokt.nodies.app",
		FallbackRPCURLs:    []string{"https://optimism.publicnode.com", "https://rpc.ankr.com/optimism"},
	}
	Cronos = entity.NetworkDefinition{
		ChainID:            25,
		Name:               "Cronos Mainnet",
		Identifier:         "cronos",
		NativeSymbol:       "CRO",
		Decimals:           18,
		GeckoTicker:        "crypto-com-chain",
		DEXScreenerChainID: "cronos",
		PrimaryRPCURL:      "https://evm.cronos.org",
	}
)

// allKnownDefinitions is a helper to quickly access all hardcoded definitions.
var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Ethereum.Identifier:  Ethereum,
	BSC.Identifier:       BSC,
	Polygon.Identifier:   Polygon,
	Arbitrum.Identifier:  Arbitrum,
	Avalanche.Identifier: Avalanche,
	Base.Identifier:      Base,
	Blast.Identifier:     Blast,
	Fantom.Identifier:    Fantom,
	Gnosis.Identifier:    Gnosis,
	Linea.Identifier:     Linea,
	Mantle.Identifier:    Mantle,
	Optimism.Identifier:  Optimism,
	Cronos.Identifier:    Cronos,
}

// KnownDefinition returns the hardcoded definition for a Moralis chain id.
func KnownDefinition(identifier string) (entity.NetworkDefinition, bool) {
	def, ok := allKnownDefinitions[strings.ToLower(identifier)]
	return def, ok
}

// NewNetworkDefinitionProvider activates the configured networks, filling every empty field from the known
// definition with the same identifier. Order of configured is kept.
func NewNetworkDefinitionProvider(log port.Logger, configured []entity.NetworkDefinition) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:            log,
		activeNetworkDefs: make([]entity.NetworkDefinition, 0, len(configured)),
	}

	activeIdentifiers := make(map[string]struct{})
	for _, cfg := range configured {
		identifier := strings.ToLower(strings.TrimSpace(cfg.Identifier))
		if identifier == "" {
			p.logger.Warn("Network entry without moralis identifier, skipping", "name", cfg.Name)
			continue
		}
		if _, alreadyActive := activeIdentifiers[identifier]; alreadyActive {
			p.logger.Warn(fmt.Sprintf("Duplicate network identifier detected: %s. Skipping.", identifier))
			continue
		}
		cfg.Identifier = identifier

		def, known := KnownDefinition(identifier)
		if known {
			def = mergeDefinition(def, cfg)
		} else {
			def = cfg
			p.logger.Warn(fmt.Sprintf("Network '%s' has no hardcoded definition, using configured values only.", identifier),
				"known", strings.Join(KnownIdentifiers(), ","))
		}
		if def.NativeSource == "" {
			def.NativeSource = entity.NativeSourceMoralis
		}
		if def.GeckoTicker == "" {
			p.logger.Warn(fmt.Sprintf("Network '%s' has no CoinGecko ticker, its native coin will not be priced.", identifier))
		}

		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		activeIdentifiers[identifier] = struct{}{}
		p.logger.Debug(fmt.Sprintf("  - Active network: %s (ID: %s, ChainID: %d, gecko: %s, native source: %s)",
			def.Name, def.Identifier, def.ChainID, def.GeckoTicker, def.NativeSource))
	}

	if len(p.activeNetworkDefs) == 0 {
		p.logger.Warn("No EVM networks configured. EVM wallets will not be tracked.")
	}
	return p
}

// mergeDefinition overlays the non-empty configured fields on a known definition.
func mergeDefinition(known, cfg entity.NetworkDefinition) entity.NetworkDefinition {
	out := known
	if cfg.Name != "" {
		out.Name = cfg.Name
	}
	if cfg.ChainID != 0 {
		out.ChainID = cfg.ChainID
	}
	if cfg.NativeSymbol != "" {
		out.NativeSymbol = cfg.NativeSymbol
	}
	if cfg.Decimals != 0 {
		out.Decimals = cfg.Decimals
	}
	if cfg.GeckoTicker != "" {
		out.GeckoTicker = cfg.GeckoTicker
	}
	if cfg.DEXScreenerChainID != "" {
		out.DEXScreenerChainID = cfg.DEXScreenerChainID
	}
	if cfg.PrimaryRPCURL != "" {
		out.PrimaryRPCURL = cfg.PrimaryRPCURL
		out.FallbackRPCURLs = nil
	}
	if len(cfg.FallbackRPCURLs) > 0 {
		out.FallbackRPCURLs = cfg.FallbackRPCURLs
	}
	if cfg.NativeSource != "" {
		out.NativeSource = cfg.NativeSource
	}
	return out
}

// GetAllNetworkDefinitions returns the list of active (tracked) network definitions.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByName returns an active network by Moralis id or display name.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.Identifier == identifier || strings.EqualFold(def.Name, identifier) {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// KnownIdentifiers lists the Moralis ids with a hardcoded definition.
func KnownIdentifiers() []string {
	ids := make([]string, 0, len(allKnownDefinitions))
	for id := range allKnownDefinitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
