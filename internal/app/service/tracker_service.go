package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/pkg/metrics"

	"github.com/shopspring/decimal"
)

// TrackerOptions holds the orchestrator settings that do not come from the per-cycle plan.
type TrackerOptions struct {
	Location *time.Location
	Now      func() time.Time
}

// TrackerServiceImpl implements port.TrackerService: one cycle fetches, reconciles, prices, reports and persists.
type TrackerServiceImpl struct {
	plans      port.PlanProvider
	aggregator *Aggregator
	prices     port.TokenPriceService
	snapshots  port.SnapshotStore
	history    port.HistoryStore
	sinks      []port.ReportSink
	display    port.ReportSink
	logger     port.Logger
	metrics    *metrics.Metrics
	opts       TrackerOptions

	mu   sync.RWMutex
	last *entity.CycleResult
}

// NewTrackerService creates a new instance of TrackerServiceImpl.
// display receives reports only in verbose cycles; sinks receive every report.
func NewTrackerService(
	plans port.PlanProvider,
	aggregator *Aggregator,
	prices port.TokenPriceService,
	snapshots port.SnapshotStore,
	history port.HistoryStore,
	sinks []port.ReportSink,
	display port.ReportSink,
	l port.Logger,
	m *metrics.Metrics,
	opts TrackerOptions,
) *TrackerServiceImpl {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &TrackerServiceImpl{
		plans:      plans,
		aggregator: aggregator,
		prices:     prices,
		snapshots:  snapshots,
		history:    history,
		sinks:      sinks,
		display:    display,
		logger:     l,
		metrics:    m,
		opts:       opts,
	}
}

// LastResult implements port.TrackerService.
func (s *TrackerServiceImpl) LastResult() *entity.CycleResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunCycle implements port.TrackerService. Nothing is persisted when any step fails.
func (s *TrackerServiceImpl) RunCycle(ctx context.Context) (*entity.CycleResult, error) {
	started := s.opts.Now()
	result, err := s.runCycle(ctx, started)
	duration := s.opts.Now().Sub(started)
	if err != nil {
		s.metrics.RecordCycle("error", duration)
		return nil, err
	}
	result.Duration = duration
	s.metrics.RecordCycle("ok", duration)

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()
	return result, nil
}

func (s *TrackerServiceImpl) runCycle(ctx context.Context, takenAt time.Time) (*entity.CycleResult, error) {
	plan, err := s.plans.Plan()
	if err != nil {
		return nil, fmt.Errorf("load tracking plan: %w", err)
	}
	previous, err := s.snapshots.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}
	s.logger.Debug("Cycle started", "wallets", plan.Wallets.Len(), "chains", len(plan.Networks), "previousTokens", len(previous.Tokens))

	agg, err := s.aggregator.Aggregate(ctx, plan, previous.Tokens)
	if err != nil {
		return nil, err
	}
	ledger := agg.Ledger

	var (
		quotes     map[string]entity.PriceQuote
		unresolved []string
	)
	if targets := PriceTargets(ledger, plan); len(targets) > 0 {
		quotes, unresolved, err = s.prices.ResolvePrices(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("resolve prices: %w", err)
		}
	}
	ApplyPriceQuotes(ledger, quotes, plan.ManualHoldings, previous.Tokens)
	carried, kept := CarryForwardPrices(ledger, previous.Tokens)
	if carried+kept > 0 {
		s.logger.Info("Previous market data reused", "zeroPrice", carried, "shallowerDex", kept)
	}

	previousTotal := decimal.Zero
	if last, ok, err := s.history.Last(ctx); err != nil {
		return nil, fmt.Errorf("load portfolio history: %w", err)
	} else if ok {
		previousTotal = last.ValueUSD
	}

	report := BuildReport(takenAt, previous.Tokens, ledger, previousTotal, ReportOptions{
		MinValueUSD:  plan.MinValueUSD,
		HideBalances: plan.HideBalances,
		Location:     s.opts.Location,
	})

	snapshot := entity.NewSnapshot(ledger, takenAt)
	if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.history.Append(ctx, entity.HistoryPoint{Timestamp: takenAt.Unix(), ValueUSD: report.Total}); err != nil {
		return nil, fmt.Errorf("append portfolio history: %w", err)
	}

	s.publish(ctx, report, plan.Verbose)

	refetched := make(map[string]int, len(agg.Flagged))
	for chain, wallets := range agg.Flagged {
		refetched[chain] = len(wallets)
	}
	s.metrics.RecordRefetch(agg.Flagged)
	s.metrics.RecordLedger(len(ledger), len(unresolved), report.Total, ledger.RealValueByChain())

	s.logger.Info("Cycle finished",
		"tokens", len(ledger),
		"unresolved", len(unresolved),
		"total", report.Total.StringFixed(2),
		"change", report.Change.StringFixed(2))

	return &entity.CycleResult{
		Snapshot:         snapshot,
		Report:           report,
		Unresolved:       unresolved,
		WalletsRefetched: refetched,
	}, nil
}

func (s *TrackerServiceImpl) publish(ctx context.Context, report *entity.Report, verbose bool) {
	if verbose && s.display != nil {
		if err := s.display.Publish(ctx, report); err != nil {
			s.logger.Warn("Failed to display report", "error", err)
		}
	}
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			s.logger.Error("Failed to publish report", "error", err)
		}
	}
}

// Run executes cycles every interval until stop is closed, ctx is cancelled or a cycle fails fatally.
// A closed stop lets the running cycle finish; ctx cancellation aborts it.
func (s *TrackerServiceImpl) Run(ctx context.Context, stop <-chan struct{}, interval time.Duration) error {
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if entity.IsFatal(err) {
				return err
			}
			s.logger.Error("Cycle failed, retrying at next interval", "error", err)
		}

		timer := time.NewTimer(interval)
		select {
		case <-stop:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
