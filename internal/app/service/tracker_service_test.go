package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	dex_types "balance_tracker/internal/entity"
	"balance_tracker/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPlan struct {
	plan *entity.TrackingPlan
	err  error
}

func (p *staticPlan) Plan() (*entity.TrackingPlan, error) { return p.plan, p.err }

type memSnapshotStore struct {
	mu       sync.Mutex
	snapshot *entity.Snapshot
	saves    int
}

func (s *memSnapshotStore) LoadSnapshot(context.Context) (*entity.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return entity.EmptySnapshot(), nil
	}
	return s.snapshot, nil
}

func (s *memSnapshotStore) SaveSnapshot(_ context.Context, snapshot *entity.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.snapshot = snapshot
	return nil
}

type memHistory struct {
	points []entity.HistoryPoint
}

func (h *memHistory) Append(_ context.Context, p entity.HistoryPoint) error {
	h.points = append(h.points, p)
	return nil
}

func (h *memHistory) Last(context.Context) (entity.HistoryPoint, bool, error) {
	if len(h.points) == 0 {
		return entity.HistoryPoint{}, false, nil
	}
	return h.points[len(h.points)-1], true, nil
}

func (h *memHistory) List(_ context.Context, limit int) ([]entity.HistoryPoint, error) {
	if limit <= 0 || limit > len(h.points) {
		return h.points, nil
	}
	return h.points[len(h.points)-limit:], nil
}

type recordingSink struct {
	reports []*entity.Report
	err     error
}

func (s *recordingSink) Publish(_ context.Context, r *entity.Report) error {
	s.reports = append(s.reports, r)
	return s.err
}

type trackerFixture struct {
	plan      *staticPlan
	sol       *fakeSolanaSource
	dex       *fakeDEXScreener
	snapshots *memSnapshotStore
	history   *memHistory
	sink      *recordingSink
	display   *recordingSink
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	svc       *TrackerServiceImpl
}

func newTrackerFixture() *trackerFixture {
	f := &trackerFixture{
		plan: &staticPlan{plan: &entity.TrackingPlan{
			Wallets: entity.WalletSet{Solana: []string{"solw"}},
		}},
		sol: &fakeSolanaSource{portfolios: map[string]*entity.SolanaPortfolio{
			"solw": solPortfolio("0", entity.SolanaToken{Mint: "minta", Name: "Alpha", Symbol: "ALP", Amount: dec("100")}),
		}},
		dex: &fakeDEXScreener{pairs: map[string][]dex_types.PairData{
			"minta": {pair("minta", "solana", "raydium", "0.5", "1000", "10")},
		}},
		snapshots: &memSnapshotStore{},
		history:   &memHistory{},
		sink:      &recordingSink{},
		display:   &recordingSink{},
		registry:  prometheus.NewRegistry(),
	}
	f.metrics = metrics.NewMetrics("test", f.registry)

	detector := NewChangeDetector(&fakeNativeSource{}, &memNativeStore{}, nopLogger{})
	agg := NewAggregator(f.sol, &fakeSuiSource{}, &fakeEVMSource{}, &fakeNativePrices{}, detector, nopLogger{}, 2)
	prices := NewTokenPriceService(f.dex, nopLogger{}, PriceResolverOptions{Retries: 3})
	clock := reportTime
	f.svc = NewTrackerService(f.plan, agg, prices, f.snapshots, f.history, []port.ReportSink{f.sink}, f.display,
		nopLogger{}, f.metrics, TrackerOptions{Location: time.UTC, Now: func() time.Time { return clock }})
	return f
}

func TestTrackerService_RunCycle_SlippageEndToEnd(t *testing.T) {
	f := newTrackerFixture()

	res, err := f.svc.RunCycle(context.Background())

	require.NoError(t, err)
	entry := res.Snapshot.Tokens["minta"]
	require.NotNil(t, entry)
	assert.True(t, entry.Value().Equal(dec("50")))
	assert.True(t, entry.RealValue().Equal(dec("47.5")), "got %s", entry.RealValue())
	assert.True(t, res.Report.Total.Equal(dec("47.5")))
	assert.Empty(t, res.Unresolved)

	assert.Equal(t, 1, f.snapshots.saves)
	require.Len(t, f.history.points, 1)
	assert.Equal(t, reportTime.Unix(), f.history.points[0].Timestamp)
	assert.True(t, f.history.points[0].ValueUSD.Equal(dec("47.5")))
	assert.Len(t, f.sink.reports, 1)
	assert.Empty(t, f.display.reports)
	assert.Same(t, res, f.svc.LastResult())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 47.5, testutil.ToFloat64(f.metrics.PortfolioValue))
}

func TestTrackerService_RunCycle_ZeroPriceCarriesPrevious(t *testing.T) {
	f := newTrackerFixture()
	_, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	f.dex.pairs["minta"] = []dex_types.PairData{pair("minta", "solana", "orca", "0", "5", "1")}
	res, err := f.svc.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"minta"}, res.Unresolved)
	entry := res.Snapshot.Tokens["minta"]
	assert.True(t, entry.Price.Equal(dec("0.5")))
	assert.Equal(t, "raydium", entry.Dex)
	assert.True(t, res.Report.Change.IsZero())
	require.Len(t, f.history.points, 2)
}

func TestTrackerService_RunCycle_VerboseDisplays(t *testing.T) {
	f := newTrackerFixture()
	f.plan.plan.Verbose = true

	_, err := f.svc.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Len(t, f.display.reports, 1)
	assert.Len(t, f.sink.reports, 1)
}

func TestTrackerService_RunCycle_SinkErrorDoesNotFailCycle(t *testing.T) {
	f := newTrackerFixture()
	f.sink.err = errors.New("telegram down")

	_, err := f.svc.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, f.snapshots.saves)
}

func TestTrackerService_RunCycle_FailureSavesNothing(t *testing.T) {
	f := newTrackerFixture()
	f.sol.err = errUpstream

	_, err := f.svc.RunCycle(context.Background())

	require.ErrorIs(t, err, errUpstream)
	assert.Zero(t, f.snapshots.saves)
	assert.Empty(t, f.history.points)
	assert.Empty(t, f.sink.reports)
	assert.Nil(t, f.svc.LastResult())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CyclesTotal.WithLabelValues("error")))
}

func TestTrackerService_Run_StopsAfterCurrentCycle(t *testing.T) {
	f := newTrackerFixture()
	stop := make(chan struct{})
	close(stop)

	err := f.svc.Run(context.Background(), stop, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, f.snapshots.saves)
}

func TestTrackerService_Run_ContinuesAfterTransientFailure(t *testing.T) {
	f := newTrackerFixture()
	f.plan.err = errors.New("config unreadable")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := f.svc.Run(ctx, make(chan struct{}), time.Millisecond)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, testutil.ToFloat64(f.metrics.CyclesTotal.WithLabelValues("error")), 1.0)
}

func TestTrackerService_Run_FatalErrorStops(t *testing.T) {
	f := newTrackerFixture()
	f.sol.err = &entity.UpstreamError{Source: "moralis", StatusCode: 401, Fatal: true}

	err := f.svc.Run(context.Background(), make(chan struct{}), time.Millisecond)

	require.Error(t, err)
	assert.True(t, entity.IsFatal(err))
}
