package port

import (
	"context"

	"balance_tracker/internal/domain/entity"
)

// BlockchainClient defines the interface for interacting with an EVM network over JSON-RPC.
type BlockchainClient interface {
	// GetNativeBalances fetches native balances of all wallets in one batch.
	GetNativeBalances(ctx context.Context, items []entity.NativeBalanceRequestItem) ([]entity.NativeBalanceResultItem, error)

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all known network definitions.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a definition by Moralis id or display name.
	// Возвращает определение и true, если найдено, иначе false.
	GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool)
}

// BlockchainClientProvider defines the interface for providing blockchain clients.
type BlockchainClientProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (BlockchainClient, error)
}
