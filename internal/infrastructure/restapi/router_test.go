package restapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"balance_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type stubTracker struct {
	result *entity.CycleResult
}

func (s *stubTracker) RunCycle(context.Context) (*entity.CycleResult, error) {
	return s.result, nil
}

func (s *stubTracker) LastResult() *entity.CycleResult {
	return s.result
}

type stubHistory struct {
	points    []entity.HistoryPoint
	err       error
	lastLimit int
}

func (s *stubHistory) Append(context.Context, entity.HistoryPoint) error { return nil }

func (s *stubHistory) Last(context.Context) (entity.HistoryPoint, bool, error) {
	return entity.HistoryPoint{}, false, nil
}

func (s *stubHistory) List(_ context.Context, limit int) ([]entity.HistoryPoint, error) {
	s.lastLimit = limit
	return s.points, s.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleResult() *entity.CycleResult {
	ledger := entity.Ledger{}
	ledger.Upsert("small", "Small", "SML", "eth", "0xw", dec("1"))
	ledger.Upsert("big", "Big", "BIG", entity.ChainSolana, "w", dec("100"))
	ledger["small"].Price = dec("2")
	ledger["big"].Price = dec("0.5")
	ledger["big"].Liquidity = dec("1000")

	takenAt := time.Unix(1700000000, 0).UTC()
	return &entity.CycleResult{
		Snapshot: entity.NewSnapshot(ledger, takenAt),
		Report: &entity.Report{
			TakenAt: takenAt,
			Text:    "*report*",
			Total:   dec("49.5"),
			Chains: []entity.ChainSubtotal{
				{Chain: entity.ChainSolana, Value: dec("47.5"), Change: dec("47.5")},
				{Chain: "eth", Value: dec("2"), Change: dec("2")},
			},
		},
		Unresolved: []string{"ghost"},
	}
}

func serve(t *testing.T, tracker *stubTracker, history *stubHistory, target string) (int, map[string]any) {
	t.Helper()
	router := SetupRouter(NewPortfolioHandler(tracker, history, nopLogger{}), prometheus.NewRegistry())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestRouter_Healthz(t *testing.T) {
	code, body := serve(t, &stubTracker{}, &stubHistory{}, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_UnavailableBeforeFirstCycle(t *testing.T) {
	for _, target := range []string{"/api/v1/portfolio", "/api/v1/portfolio/chains", "/api/v1/report"} {
		code, body := serve(t, &stubTracker{}, &stubHistory{}, target)
		assert.Equal(t, http.StatusServiceUnavailable, code, target)
		assert.NotEmpty(t, body["status_message"], target)
	}
}

func TestRouter_Portfolio(t *testing.T) {
	code, body := serve(t, &stubTracker{result: sampleResult()}, &stubHistory{}, "/api/v1/portfolio")
	require.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "49.5", data["total"])
	assert.Equal(t, []any{"ghost"}, data["unresolved"])

	tokens := data["tokens"].([]any)
	require.Len(t, tokens, 2)
	first := tokens[0].(map[string]any)
	assert.Equal(t, "big", first["address"])
	assert.Equal(t, "50", first["value"])
	assert.Equal(t, "47.5", first["real_value"])
	assert.Equal(t, "small", tokens[1].(map[string]any)["address"])
}

func TestRouter_Chains(t *testing.T) {
	code, body := serve(t, &stubTracker{result: sampleResult()}, &stubHistory{}, "/api/v1/portfolio/chains")
	require.Equal(t, http.StatusOK, code)

	chains := body["data"].([]any)
	require.Len(t, chains, 2)
	assert.Equal(t, entity.ChainSolana, chains[0].(map[string]any)["chain"])
}

func TestRouter_Report(t *testing.T) {
	code, body := serve(t, &stubTracker{result: sampleResult()}, &stubHistory{}, "/api/v1/report")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "*report*", body["data"].(map[string]any)["text"])
}

func TestRouter_History(t *testing.T) {
	history := &stubHistory{points: []entity.HistoryPoint{
		{Timestamp: 100, ValueUSD: dec("1")},
		{Timestamp: 200, ValueUSD: dec("2.5")},
	}}

	code, body := serve(t, &stubTracker{}, history, "/api/v1/portfolio/history?limit=2")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, history.lastLimit)
	points := body["data"].([]any)
	require.Len(t, points, 2)
	assert.Equal(t, "2.5", points[1].(map[string]any)["valueUsd"])

	_, _ = serve(t, &stubTracker{}, history, "/api/v1/portfolio/history")
	assert.Equal(t, defaultHistoryLimit, history.lastLimit)
}

func TestRouter_HistoryErrors(t *testing.T) {
	code, _ := serve(t, &stubTracker{}, &stubHistory{}, "/api/v1/portfolio/history?limit=abc")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(t, &stubTracker{}, &stubHistory{err: errors.New("disk gone")}, "/api/v1/portfolio/history")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Inc()

	router := SetupRouter(NewPortfolioHandler(&stubTracker{}, &stubHistory{}, nopLogger{}), reg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "probe_total 1")
}

func init() {
	gin.SetMode(gin.TestMode)
}
