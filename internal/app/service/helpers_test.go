package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"balance_tracker/internal/domain/entity"
	dex_types "balance_tracker/internal/entity"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func priced(address, chain, wallet, balance, price string) *entity.TokenInfo {
	info := entity.NewTokenInfo(address, strings.ToUpper(address), strings.ToUpper(address), chain)
	info.SetBalance(wallet, dec(balance))
	info.Price = dec(price)
	return info
}

func ledgerOf(entries ...*entity.TokenInfo) entity.Ledger {
	l := entity.Ledger{}
	for _, e := range entries {
		l[e.Address] = e
	}
	return l
}

// fakeNativeSource answers GetNativeBalances from a chain -> wallet -> balance table.
type fakeNativeSource struct {
	mu       sync.Mutex
	balances entity.NativeSnapshot
	err      error
	calls    []string
}

func (f *fakeNativeSource) GetNativeBalances(_ context.Context, chain string, wallets []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chain)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string)
	for _, w := range wallets {
		if b, ok := f.balances[chain][strings.ToLower(w)]; ok {
			out[w] = b
		}
	}
	return out, nil
}

type memNativeStore struct {
	mu       sync.Mutex
	snapshot entity.NativeSnapshot
	saves    int
	saveErr  error
}

func (s *memNativeStore) LoadNative(context.Context) (entity.NativeSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return entity.NativeSnapshot{}, nil
	}
	return s.snapshot, nil
}

func (s *memNativeStore) SaveNative(_ context.Context, snapshot entity.NativeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.snapshot = snapshot
	return nil
}

type fakeEVMSource struct {
	mu     sync.Mutex
	tokens map[string][]entity.EVMTokenBalance // key chain+"/"+wallet
	calls  []string
}

func (f *fakeEVMSource) GetWalletTokens(_ context.Context, chain, wallet string) ([]entity.EVMTokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chain+"/"+wallet)
	return f.tokens[chain+"/"+wallet], nil
}

func (f *fakeEVMSource) sortedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

type fakeSolanaSource struct {
	portfolios map[string]*entity.SolanaPortfolio
	err        error
}

func (f *fakeSolanaSource) GetSolanaPortfolio(_ context.Context, wallet string) (*entity.SolanaPortfolio, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.portfolios[wallet], nil
}

type fakeSuiSource struct {
	coins map[string][]entity.SuiCoin
}

func (f *fakeSuiSource) GetSuiCoins(_ context.Context, wallet string) ([]entity.SuiCoin, error) {
	return f.coins[wallet], nil
}

type fakeNativePrices struct {
	prices map[string]decimal.Decimal
}

func (f *fakeNativePrices) GetUSDPrices(_ context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := f.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

// fakeDEXScreener returns the pairs registered for each requested address, optionally only from the n-th call.
type fakeDEXScreener struct {
	mu        sync.Mutex
	pairs     map[string][]dex_types.PairData
	availFrom map[string]int
	requests  [][]string
	err       error
}

func (f *fakeDEXScreener) GetTokenPairs(_ context.Context, addresses []string) ([]dex_types.PairData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, append([]string(nil), addresses...))
	if f.err != nil {
		return nil, f.err
	}
	round := len(f.requests)
	var out []dex_types.PairData
	for _, a := range addresses {
		if from, ok := f.availFrom[a]; ok && round < from {
			continue
		}
		out = append(out, f.pairs[a]...)
	}
	return out, nil
}

func pair(address, chain, dex, price, liquidity, volume string) dex_types.PairData {
	p := dex_types.PairData{
		ChainID:   chain,
		DexID:     dex,
		URL:       "https://dexscreener.com/" + chain + "/" + dex + "-" + address,
		BaseToken: dex_types.DEXToken{Address: address, Name: "Name " + address, Symbol: strings.ToUpper(address)},
		PriceUsd:  price,
		Volume:    dex_types.PairVolume{H24: dec(volume)},
		MarketCap: dec("1000000"),
	}
	if liquidity != "" {
		p.Liquidity = &dex_types.DEXLiquidity{Usd: dec(liquidity)}
	}
	return p
}

var errUpstream = errors.New("upstream down")
