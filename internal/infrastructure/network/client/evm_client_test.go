package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"balance_tracker/internal/domain/entity"
	networkdefinition "balance_tracker/internal/infrastructure/network/definition"
	"balance_tracker/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "0x00000000000000000000000000000000000000aa"
	walletB = "0x00000000000000000000000000000000000000bb"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newRPCServer answers eth_getBalance batches from balances (lower-cased address -> hex quantity).
// Unknown addresses get a JSON-RPC error.
func newRPCServer(t *testing.T, balances map[string]string, batches *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(batches, 1)
		var reqs []rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := make([]map[string]any, len(reqs))
		for i, rq := range reqs {
			var addr string
			_ = json.Unmarshal(rq.Params[0], &addr)
			item := map[string]any{"jsonrpc": "2.0", "id": rq.ID}
			if bal, ok := balances[strings.ToLower(addr)]; ok && rq.Method == "eth_getBalance" {
				item["result"] = bal
			} else {
				item["error"] = map[string]any{"code": -32000, "message": "unknown account"}
			}
			resp[i] = item
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEVMClient_GetNativeBalances_Batch(t *testing.T) {
	var batches int32
	srv := newRPCServer(t, map[string]string{walletA: "0xde0b6b3a7640000", walletB: "0x0"}, &batches)
	defer srv.Close()

	c, err := NewEVMClient(entity.NetworkDefinition{Identifier: "eth", PrimaryRPCURL: srv.URL}, time.Second, time.Second)
	require.NoError(t, err)

	results, err := c.GetNativeBalances(context.Background(), []entity.NativeBalanceRequestItem{
		{ID: "1", WalletAddress: walletA},
		{ID: "2", WalletAddress: walletB},
		{ID: "3", WalletAddress: "0x00000000000000000000000000000000000000cc"},
	})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&batches))
	assert.Equal(t, "1000000000000000000", results[0].Balance.String())
	assert.Equal(t, "0", results[1].Balance.String())
	assert.Error(t, results[2].Error)
	assert.Equal(t, "eth", c.Definition().Identifier)
}

func TestNewEVMClient_NoEndpoints(t *testing.T) {
	_, err := NewEVMClient(entity.NetworkDefinition{Identifier: "eth"}, time.Second, time.Second)
	assert.Error(t, err)
}

type fallbackSource struct {
	calls []string
}

func (f *fallbackSource) GetNativeBalances(_ context.Context, chain string, wallets []string) (map[string]string, error) {
	f.calls = append(f.calls, chain)
	out := make(map[string]string, len(wallets))
	for _, w := range wallets {
		out[strings.ToLower(w)] = "42"
	}
	return out, nil
}

func TestEVMClientProvider_GetNativeBalances_Routing(t *testing.T) {
	var batches int32
	srv := newRPCServer(t, map[string]string{walletA: "0x10"}, &batches)
	defer srv.Close()

	log := logger.NewSlogAdapter("test")
	defs := networkdefinition.NewNetworkDefinitionProvider(log, []entity.NetworkDefinition{
		{Identifier: "eth", PrimaryRPCURL: srv.URL, NativeSource: entity.NativeSourceRPC},
		{Identifier: "bsc"},
	})
	fallback := &fallbackSource{}
	p := NewEVMClientProvider(defs, fallback, time.Second, log)
	defer p.Close()

	rpcBalances, err := p.GetNativeBalances(context.Background(), "eth", []string{"0x" + strings.ToUpper(walletA[2:])})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{walletA: "16"}, rpcBalances)

	moralisBalances, err := p.GetNativeBalances(context.Background(), "bsc", []string{walletA})
	require.NoError(t, err)
	assert.Equal(t, "42", moralisBalances[walletA])
	assert.Equal(t, []string{"bsc"}, fallback.calls)

	// unknown account -> RPC error -> fallback
	_, err = p.GetNativeBalances(context.Background(), "eth", []string{walletB})
	require.NoError(t, err)
	assert.Equal(t, []string{"bsc", "eth"}, fallback.calls)

	first, err := p.GetClient(defs.GetAllNetworkDefinitions()[0])
	require.NoError(t, err)
	second, err := p.GetClient(defs.GetAllNetworkDefinitions()[0])
	require.NoError(t, err)
	assert.Same(t, first, second)
}
