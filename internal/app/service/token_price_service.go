package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	dex_types "balance_tracker/internal/entity"
	"balance_tracker/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PriceResolverOptions tunes the DEX Screener lookups.
type PriceResolverOptions struct {
	BatchSize     int // адресов в одном запросе, DEX Screener принимает не больше 30
	MaxConcurrent int
	Retries       int // повторные запросы только для ненайденных токенов
	Rand          *rand.Rand
}

// tokenPriceServiceImpl implements port.TokenPriceService
type tokenPriceServiceImpl struct {
	dexscreenerClient port.DEXScreenerClient
	logger            port.Logger
	opts              PriceResolverOptions
	rndMu             sync.Mutex
}

// NewTokenPriceService creates a new instance of tokenPriceServiceImpl.
func NewTokenPriceService(dsc port.DEXScreenerClient, l port.Logger, opts PriceResolverOptions) port.TokenPriceService {
	if opts.BatchSize <= 0 || opts.BatchSize > 30 {
		opts.BatchSize = 30
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &tokenPriceServiceImpl{dexscreenerClient: dsc, logger: l, opts: opts}
}

// ResolvePrices implements port.TokenPriceService.
func (s *tokenPriceServiceImpl) ResolvePrices(ctx context.Context, addresses []string) (map[string]entity.PriceQuote, []string, error) {
	found := make(map[string]entity.PriceQuote, len(addresses))
	pending := dedupe(addresses)

	for attempt := 0; attempt <= s.opts.Retries && len(pending) > 0; attempt++ {
		if attempt > 0 {
			s.logger.Debug("Retrying tokens without price", "attempt", attempt, "tokens", len(pending))
		}
		pairs, err := s.fetchPairs(ctx, pending)
		if err != nil {
			return nil, nil, err
		}
		quotes, notFound := FindTokens(pending, pairs)
		for address, q := range quotes {
			found[address] = q
		}
		pending = notFound
	}

	if len(pending) > 0 {
		s.logger.Warn("No price found for tokens", "count", len(pending), "tokens", pending)
	}
	s.logger.Info("Token prices resolved", "found", len(found), "notFound", len(pending))
	return found, pending, nil
}

// fetchPairs queries all addresses in shuffled batches; DEX Screener answers differ with the address order.
func (s *tokenPriceServiceImpl) fetchPairs(ctx context.Context, addresses []string) ([]dex_types.PairData, error) {
	s.rndMu.Lock()
	shuffled := utils.ShuffledCopy(addresses, s.opts.Rand)
	s.rndMu.Unlock()

	batches := utils.BatchStrings(shuffled, s.opts.BatchSize)
	results := make([][]dex_types.PairData, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrent)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			pairs, err := s.dexscreenerClient.GetTokenPairs(gctx, batch)
			if err != nil {
				return fmt.Errorf("token pairs batch %d/%d: %w", i+1, len(batches), err)
			}
			results[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []dex_types.PairData
	for _, pairs := range results {
		all = append(all, pairs...)
	}
	return all, nil
}

// SelectBestPair picks, among the pairs whose base token is address, the one with the highest USD liquidity.
// When the best liquidity is zero the highest 24h volume wins instead. Ties keep the first pair.
func SelectBestPair(pairs []dex_types.PairData, address string) (*dex_types.PairData, bool) {
	var candidates []*dex_types.PairData
	for i := range pairs {
		if strings.EqualFold(pairs[i].BaseToken.Address, address) {
			candidates = append(candidates, &pairs[i])
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.LiquidityUSD().GreaterThan(best.LiquidityUSD()) {
			best = p
		}
	}
	if !best.LiquidityUSD().IsZero() {
		return best, true
	}

	best = candidates[0]
	for _, p := range candidates[1:] {
		if p.Volume.H24.GreaterThan(best.Volume.H24) {
			best = p
		}
	}
	return best, true
}

// FindTokens builds a quote for every address with a usable best pair. Addresses without a pair, or whose pair
// has a zero, empty or malformed price, are returned as not found.
func FindTokens(addresses []string, pairs []dex_types.PairData) (map[string]entity.PriceQuote, []string) {
	found := make(map[string]entity.PriceQuote)
	var notFound []string
	for _, address := range addresses {
		pair, ok := SelectBestPair(pairs, address)
		if !ok {
			notFound = append(notFound, address)
			continue
		}
		price, err := decimal.NewFromString(pair.PriceUsd)
		if err != nil || price.IsZero() {
			notFound = append(notFound, address)
			continue
		}
		found[address] = entity.PriceQuote{
			Address:   address,
			Name:      pair.BaseToken.Name,
			Symbol:    pair.BaseToken.Symbol,
			Chain:     pair.ChainID,
			Price:     price,
			Liquidity: pair.LiquidityUSD(),
			MarketCap: pair.MarketCap,
			Link:      pair.URL,
			Dex:       pair.DexID,
		}
	}
	sort.Strings(notFound)
	return found, notFound
}

// PriceTargets lists the addresses to price: every ledger token except EVM native coins (priced by CoinGecko),
// plus every manual holding.
func PriceTargets(ledger entity.Ledger, plan *entity.TrackingPlan) []string {
	targets := make([]string, 0, len(ledger)+len(plan.ManualHoldings))
	for address := range ledger {
		if !plan.IsNativeKey(address) {
			targets = append(targets, address)
		}
	}
	for address := range plan.ManualHoldings {
		if _, inLedger := ledger[address]; !inLedger && !plan.IsNativeKey(address) {
			targets = append(targets, address)
		}
	}
	sort.Strings(targets)
	return targets
}

// ApplyPriceQuotes writes resolved quotes onto the ledger and materializes manual holdings under the "unknown"
// wallet. An unresolved manual token is rebuilt from its previous entry when there is one, so the previous price
// can carry over.
func ApplyPriceQuotes(ledger entity.Ledger, quotes map[string]entity.PriceQuote, manual map[string]decimal.Decimal, previous entity.Ledger) {
	for address, q := range quotes {
		amount, isManual := manual[address]
		info, inLedger := ledger[address]
		switch {
		case inLedger:
			q.Apply(info)
			if isManual {
				info.SetBalance(entity.UnknownWallet, amount)
			}
		case isManual:
			info = entity.NewTokenInfo(address, q.Name, q.Symbol, q.Chain)
			q.Apply(info)
			info.SetBalance(entity.UnknownWallet, amount)
			ledger[address] = info
		}
	}

	for address, amount := range manual {
		if _, resolved := quotes[address]; resolved {
			continue
		}
		if info, inLedger := ledger[address]; inLedger {
			info.SetBalance(entity.UnknownWallet, amount)
			continue
		}
		old, known := previous[address]
		if !known {
			continue
		}
		info := old.Clone()
		info.Balances = map[string]decimal.Decimal{entity.UnknownWallet: amount}
		ledger[address] = info
	}

	for address, info := range ledger {
		if !info.HasHoldings() {
			delete(ledger, address)
		}
	}
}

// CarryForwardPrices patches fresh prices with the previous snapshot. A zero price takes the previous market data.
// A switch to another dex whose pair is shallower than the previous one is undone.
func CarryForwardPrices(ledger, previous entity.Ledger) (carried, kept int) {
	for address, info := range ledger {
		old, ok := previous[address]
		if !ok {
			continue
		}
		switch {
		case info.Price.IsZero():
			restoreMarket(info, old)
			carried++
		case old.Dex != "" && info.Dex != old.Dex && old.Liquidity.GreaterThan(info.Liquidity):
			restoreMarket(info, old)
			kept++
		}
	}
	return carried, kept
}

func restoreMarket(info, old *entity.TokenInfo) {
	info.Price = old.Price
	info.Liquidity = old.Liquidity
	info.MarketCap = old.MarketCap
	info.Dex = old.Dex
	if old.Link != "" {
		info.Link = old.Link
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
