package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// AggregateResult is the merged ledger of one cycle before price enrichment.
type AggregateResult struct {
	Ledger       entity.Ledger
	Flagged      map[string][]string
	NativePrices map[string]decimal.Decimal
}

// Aggregator fetches every balance source and merges the answers into one ledger.
type Aggregator struct {
	solana                port.SolanaPortfolioSource
	sui                   port.SuiCoinSource
	evm                   port.EVMTokenSource
	nativePrices          port.NativePriceSource
	detector              *ChangeDetector
	logger                port.Logger
	maxConcurrentRoutines int
}

// NewAggregator creates an Aggregator. maxRoutines bounds the parallel EVM token fetches.
func NewAggregator(
	sol port.SolanaPortfolioSource,
	sui port.SuiCoinSource,
	evm port.EVMTokenSource,
	np port.NativePriceSource,
	detector *ChangeDetector,
	l port.Logger,
	maxRoutines int,
) *Aggregator {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &Aggregator{
		solana:                sol,
		sui:                   sui,
		evm:                   evm,
		nativePrices:          np,
		detector:              detector,
		logger:                l,
		maxConcurrentRoutines: maxRoutines,
	}
}

type evmFetch struct {
	chain, wallet string
	tokens        []entity.EVMTokenBalance
}

// Aggregate runs the Solana, Sui, EVM and native price fetches concurrently and merges them once all finished.
// previous is read only.
func (a *Aggregator) Aggregate(ctx context.Context, plan *entity.TrackingPlan, previous entity.Ledger) (*AggregateResult, error) {
	g, gctx := errgroup.WithContext(ctx)

	solPortfolios := make(map[string]*entity.SolanaPortfolio, len(plan.Wallets.Solana))
	g.Go(func() error {
		for _, wallet := range plan.Wallets.Solana {
			p, err := a.solana.GetSolanaPortfolio(gctx, wallet)
			if err != nil {
				return err
			}
			solPortfolios[wallet] = p
		}
		return nil
	})

	suiCoins := make(map[string][]entity.SuiCoin, len(plan.Wallets.Sui))
	g.Go(func() error {
		for _, wallet := range plan.Wallets.Sui {
			coins, err := a.sui.GetSuiCoins(gctx, wallet)
			if err != nil {
				return err
			}
			suiCoins[wallet] = coins
		}
		return nil
	})

	var (
		flagged    map[string][]string
		carried    entity.Ledger
		evmMu      sync.Mutex
		evmResults []evmFetch
	)
	chains := plan.ChainIdentifiers()
	g.Go(func() error {
		var err error
		flagged, err = a.detector.Detect(gctx, chains, plan.Wallets.EVM)
		if err != nil {
			return err
		}
		carried = CarryForwardEVM(previous, flagged, plan.Wallets.EVM)

		fetches, fctx := errgroup.WithContext(gctx)
		fetches.SetLimit(a.maxConcurrentRoutines)
		for _, chain := range chains {
			for _, wallet := range flagged[chain] {
				chain, wallet := chain, wallet
				fetches.Go(func() error {
					tokens, err := a.evm.GetWalletTokens(fctx, chain, wallet)
					if err != nil {
						return err
					}
					evmMu.Lock()
					evmResults = append(evmResults, evmFetch{chain: chain, wallet: wallet, tokens: tokens})
					evmMu.Unlock()
					return nil
				})
			}
		}
		return fetches.Wait()
	})

	var nativePrices map[string]decimal.Decimal
	g.Go(func() error {
		tickers := make([]string, 0, len(plan.Networks))
		for _, n := range plan.Networks {
			if n.GeckoTicker != "" {
				tickers = append(tickers, n.GeckoTicker)
			}
		}
		if len(tickers) == 0 {
			return nil
		}
		var err error
		nativePrices, err = a.nativePrices.GetUSDPrices(gctx, tickers)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate balances: %w", err)
	}

	// слияние только после завершения всех запросов
	ledger := carried
	if ledger == nil {
		ledger = entity.Ledger{}
	}
	for _, f := range evmResults {
		MergeEVMTokens(ledger, f.chain, f.wallet, f.tokens)
	}
	for _, wallet := range plan.Wallets.Solana {
		MergeSolanaPortfolio(ledger, wallet, solPortfolios[wallet])
	}
	for _, wallet := range plan.Wallets.Sui {
		MergeSuiCoins(ledger, wallet, suiCoins[wallet])
	}
	ApplyNativePrices(ledger, plan.Networks, nativePrices)

	a.logger.Info("Balances aggregated",
		"tokens", len(ledger),
		"solanaWallets", len(solPortfolios),
		"suiWallets", len(suiCoins),
		"evmRefetches", len(evmResults))
	return &AggregateResult{Ledger: ledger, Flagged: flagged, NativePrices: nativePrices}, nil
}

// CarryForwardEVM keeps the previous EVM entries of configured wallets that were not flagged. Balances of flagged
// wallets, of wallets no longer configured and of the manual "unknown" wallet are removed, entries left empty are
// dropped, and only chains present in flagged (the configured chains) survive.
func CarryForwardEVM(previous entity.Ledger, flagged map[string][]string, configured []string) entity.Ledger {
	keep := make(map[string]struct{}, len(configured))
	for _, w := range configured {
		keep[strings.ToLower(w)] = struct{}{}
	}

	carried := entity.Ledger{}
	for address, info := range previous {
		wallets, tracked := flagged[info.Chain]
		if !tracked {
			continue
		}
		c := info.Clone()
		for wallet := range c.Balances {
			if _, ok := keep[wallet]; !ok {
				delete(c.Balances, wallet)
			}
		}
		for _, w := range wallets {
			delete(c.Balances, w)
		}
		if c.HasHoldings() {
			carried[address] = c
		}
	}
	return carried
}

// MergeSolanaPortfolio merges one wallet's Solana portfolio. Native SOL is keyed by the wrapped SOL mint.
func MergeSolanaPortfolio(ledger entity.Ledger, wallet string, p *entity.SolanaPortfolio) {
	if p == nil {
		return
	}
	for _, t := range p.Tokens {
		ledger.Upsert(t.Mint, t.Name, t.Symbol, entity.ChainSolana, wallet, t.Amount)
	}
	ledger.Upsert(entity.SolanaNativeAddress, "Solana", "SOL", entity.ChainSolana, wallet, p.NativeBalance.Solana)
}

// MergeEVMTokens merges one wallet's holdings on chain. The native coin is keyed by the chain id.
func MergeEVMTokens(ledger entity.Ledger, chain, wallet string, tokens []entity.EVMTokenBalance) {
	for _, t := range tokens {
		ledger.Upsert(t.LedgerAddress(chain), t.Name, t.Symbol, chain, wallet, t.BalanceFormatted)
	}
}

// MergeSuiCoins merges one Sui account's coins.
func MergeSuiCoins(ledger entity.Ledger, wallet string, coins []entity.SuiCoin) {
	for _, c := range coins {
		ledger.Upsert(c.CoinType, c.CoinName, c.CoinSymbol, entity.ChainSui, wallet, c.Amount())
	}
}

// ApplyNativePrices sets the CoinGecko price on each EVM native entry whose network has a quote.
func ApplyNativePrices(ledger entity.Ledger, networks []entity.NetworkDefinition, prices map[string]decimal.Decimal) {
	for _, n := range networks {
		price, ok := prices[n.GeckoTicker]
		if !ok {
			continue
		}
		if info, held := ledger[n.Identifier]; held {
			info.Price = price
		}
	}
}
