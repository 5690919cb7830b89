package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	defaultProviderConnectionTimeout = 10 * time.Second
)

// EVMClientProvider caches one RPC client per network and serves native balances for change detection.
// Networks configured with the moralis native source, and every RPC failure, go to the fallback source.
type EVMClientProvider struct {
	clients           map[string]port.BlockchainClient
	mu                sync.Mutex
	definitions       port.NetworkDefinitionProvider
	fallback          port.NativeBalanceSource
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	dial              func(entity.NetworkDefinition, time.Duration, time.Duration) (port.BlockchainClient, error)
}

// NewEVMClientProvider creates a new EVMClientProvider.
func NewEVMClientProvider(
	definitions port.NetworkDefinitionProvider,
	fallback port.NativeBalanceSource,
	rpcCallTimeout time.Duration,
	logger port.Logger,
) *EVMClientProvider {
	if rpcCallTimeout <= 0 {
		rpcCallTimeout = 10 * time.Second
	}
	return &EVMClientProvider{
		clients:           make(map[string]port.BlockchainClient),
		definitions:       definitions,
		fallback:          fallback,
		logger:            logger,
		connectionTimeout: defaultProviderConnectionTimeout,
		rpcCallTimeout:    rpcCallTimeout,
		dial:              NewEVMClient,
	}
}

// GetClient retrieves a blockchain client for the given network definition.
// It caches clients to avoid reconnecting repeatedly.
func (p *EVMClientProvider) GetClient(netDef entity.NetworkDefinition) (port.BlockchainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clientKey := netDef.Identifier + "|" + strings.Join(netDef.RPCURLs(), ",")
	if client, exists := p.clients[clientKey]; exists {
		return client, nil
	}

	p.logger.Info("Creating new EVM client", "network", netDef.Identifier, "rpc_primary", netDef.PrimaryRPCURL)
	newClient, err := p.dial(netDef, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", netDef.Identifier, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", netDef.Identifier, err)
	}

	p.clients[clientKey] = newClient
	return newClient, nil
}

// GetNativeBalances implements port.NativeBalanceSource. Balances are wei decimal strings keyed by lower-cased wallet.
func (p *EVMClientProvider) GetNativeBalances(ctx context.Context, chain string, wallets []string) (map[string]string, error) {
	def, ok := p.definitions.GetNetworkDefinitionByName(chain)
	if !ok || def.NativeSource != entity.NativeSourceRPC {
		return p.fallback.GetNativeBalances(ctx, chain, wallets)
	}

	balances, err := p.fetchRPC(ctx, def, wallets)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("RPC native balances failed, using fallback source", "network", chain, "error", err)
		return p.fallback.GetNativeBalances(ctx, chain, wallets)
	}
	return balances, nil
}

func (p *EVMClientProvider) fetchRPC(ctx context.Context, def entity.NetworkDefinition, wallets []string) (map[string]string, error) {
	client, err := p.GetClient(def)
	if err != nil {
		return nil, err
	}

	items := make([]entity.NativeBalanceRequestItem, len(wallets))
	for i, w := range wallets {
		items[i] = entity.NativeBalanceRequestItem{ID: strconv.Itoa(i), WalletAddress: w}
	}
	results, err := client.GetNativeBalances(ctx, items)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]string, len(results))
	total := decimal.Zero
	for _, r := range results {
		if r.Error != nil {
			return nil, r.Error
		}
		balances[strings.ToLower(r.WalletAddress)] = r.Balance.String()
		total = total.Add(utils.FormatBigInt(r.Balance, def.Decimals))
	}
	p.logger.Debug("Native balances via RPC", "network", def.Identifier, "wallets", len(balances),
		"total", total.String()+" "+def.NativeSymbol)
	return balances, nil
}

// Close closes every cached client.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, c := range p.clients {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
		delete(p.clients, key)
	}
}
