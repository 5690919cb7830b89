package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EVMClient implements the port.BlockchainClient interface for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	netDef         entity.NetworkDefinition
	rpcCallTimeout time.Duration
}

// NewEVMClient dials the first reachable RPC endpoint of the network.
func NewEVMClient(netDef entity.NetworkDefinition, connectionTimeout time.Duration, rpcCallTimeout time.Duration) (port.BlockchainClient, error) {
	rpcURLs := netDef.RPCURLs()
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("network %s has no RPC endpoints", netDef.Identifier)
	}
	var lastErr error

	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)

		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return &EVMClient{ethClient: client, netDef: netDef, rpcCallTimeout: rpcCallTimeout}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// GetNativeBalances fetches the native balance of every wallet in one JSON-RPC batch.
func (c *EVMClient) GetNativeBalances(ctx context.Context, requests []entity.NativeBalanceRequestItem) ([]entity.NativeBalanceResultItem, error) {
	if len(requests) == 0 {
		return []entity.NativeBalanceResultItem{}, nil
	}

	batchElems := make([]rpc.BatchElem, len(requests))
	results := make([]entity.NativeBalanceResultItem, len(requests))

	for i, reqItem := range requests {
		results[i] = entity.NativeBalanceResultItem{
			RequestID:     reqItem.ID,
			WalletAddress: reqItem.WalletAddress,
		}
		batchElems[i] = rpc.BatchElem{
			Method: "eth_getBalance",
			Args:   []interface{}{common.HexToAddress(reqItem.WalletAddress), "latest"},
			Result: new(*hexutil.Big), // eth_getBalance returns hexutil.Big
		}
	}

	rpcCallCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	if err := c.ethClient.Client().BatchCallContext(rpcCallCtx, batchElems); err != nil {
		return results, fmt.Errorf("RPC batch call failed: %w", err)
	}

	for i, elem := range batchElems {
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("failed to fetch native balance on %s (wallet %s): %w",
				c.netDef.Identifier, requests[i].WalletAddress, elem.Error)
			continue
		}
		if result, ok := elem.Result.(**hexutil.Big); ok && result != nil && *result != nil {
			results[i].Balance = (*big.Int)(*result)
		} else {
			results[i].Balance = big.NewInt(0)
		}
	}
	return results, nil
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}
