package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"balance_tracker/internal/infrastructure/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const wrappedPairs = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "solana",
      "dexId": "raydium",
      "url": "https://dexscreener.com/solana/pair1",
      "pairAddress": "pair1",
      "baseToken": {"address": "MintA", "name": "Alpha", "symbol": "ALP"},
      "quoteToken": {"address": "So11111111111111111111111111111111111111112", "name": "Wrapped SOL", "symbol": "SOL"},
      "priceUsd": "0.01234567890123456789",
      "volume": {"h24": 12345.67},
      "liquidity": {"usd": 98765.4321, "base": 1, "quote": 2},
      "fdv": 1000000,
      "marketCap": 987654
    }
  ]
}`

func TestDEXScreenerClient_GetTokenPairs_Wrapped(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(wrappedPairs))
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(newTestExecutor(), httpclient.DefaultPolicy("dexscreener", testBackoff), srv.URL, 30, zap.NewNop())
	pairs, err := c.GetTokenPairs(context.Background(), []string{"MintA", "MintB"})

	require.NoError(t, err)
	assert.Equal(t, "/latest/dex/tokens/MintA,MintB", path)
	require.Len(t, pairs, 1)
	p := pairs[0]
	assert.Equal(t, "raydium", p.DexID)
	assert.Equal(t, "0.01234567890123456789", p.PriceUsd)
	assert.Equal(t, "98765.4321", p.LiquidityUSD().String())
	assert.Equal(t, "12345.67", p.Volume.H24.String())
	assert.Equal(t, "987654", p.MarketCap.String())
}

func TestDEXScreenerClient_GetTokenPairs_NullPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":null}`))
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(newTestExecutor(), httpclient.DefaultPolicy("dexscreener", testBackoff), srv.URL, 30, zap.NewNop())
	pairs, err := c.GetTokenPairs(context.Background(), []string{"MintA"})

	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestDEXScreenerClient_GetTokenPairs_DirectArrayWithoutLiquidity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"chainId":"base","dexId":"aerodrome","baseToken":{"address":"0xabc"},"priceUsd":"2"}]`))
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(newTestExecutor(), httpclient.DefaultPolicy("dexscreener", testBackoff), srv.URL, 30, zap.NewNop())
	pairs, err := c.GetTokenPairs(context.Background(), []string{"0xabc"})

	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Liquidity)
	assert.True(t, pairs[0].LiquidityUSD().IsZero())
}

func TestDEXScreenerClient_GetTokenPairs_RetriesRateLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(wrappedPairs))
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(newTestExecutor(), httpclient.DefaultPolicy("dexscreener", testBackoff), srv.URL, 30, zap.NewNop())
	pairs, err := c.GetTokenPairs(context.Background(), []string{"MintA"})

	require.NoError(t, err)
	assert.Len(t, pairs, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestDEXScreenerClient_GetTokenPairs_RejectsOversizedBatch(t *testing.T) {
	c := NewDEXScreenerClient(newTestExecutor(), httpclient.DefaultPolicy("dexscreener", testBackoff), "http://unused", 2, zap.NewNop())

	_, err := c.GetTokenPairs(context.Background(), []string{"a", "b", "c"})
	assert.Error(t, err)

	_, err = c.GetTokenPairs(context.Background(), nil)
	assert.Error(t, err)
}
