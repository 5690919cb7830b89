package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCycle("ok", time.Second)
		m.RecordRetry("moralis", "503")
		m.RecordRefetch(map[string][]string{"eth": {"0x1"}})
		m.RecordLedger(1, 0, decimal.NewFromInt(1), nil)
	})
}

func TestMetrics_RecordsOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordCycle("ok", 2*time.Second)
	m.RecordCycle("error", time.Second)
	m.RecordRetry("dexscreener", "429")
	m.RecordRetry("dexscreener", "429")
	m.RecordRefetch(map[string][]string{"eth": {"0x1", "0x2"}, "bsc": nil})
	m.RecordLedger(12, 3, decimal.RequireFromString("1500.25"), map[string]decimal.Decimal{"eth": decimal.NewFromInt(1000)})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRetries.WithLabelValues("dexscreener", "429")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WalletsRefetched.WithLabelValues("eth")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WalletsRefetched.WithLabelValues("bsc")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.LedgerTokens))
	assert.Equal(t, 1500.25, testutil.ToFloat64(m.PortfolioValue))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.ChainValue.WithLabelValues("eth")))
}
