package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSnapshotStore_LoadSnapshot_MissingIsEmpty(t *testing.T) {
	store := NewSnapshotStore(t.TempDir(), nopLogger{})

	snapshot, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.Tokens)
	assert.Equal(t, entity.SnapshotSchemaVersion, snapshot.SchemaVersion)
}

func TestSnapshotStore_RoundTripIsExact(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "nested"), nopLogger{})

	ledger := entity.Ledger{}
	ledger.Upsert("mint", "Token", "TKN", entity.ChainSolana, "w1", dec("0.123456789012345678901234"))
	ledger.Upsert("mint", "Token", "TKN", entity.ChainSolana, "w2", dec("100000000000000000000.1"))
	ledger["mint"].Price = dec("0.00000000000123456789")
	ledger["mint"].Liquidity = dec("98765432.109876543210")
	ledger["mint"].MarketCap = dec("1600000000")
	ledger["mint"].Link = "https://dexscreener.com/solana/pair"
	ledger["mint"].Dex = "raydium"
	takenAt := time.Unix(1700000000, 0)

	require.NoError(t, store.SaveSnapshot(ctx, entity.NewSnapshot(ledger, takenAt)))

	loaded, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Contains(t, loaded.Tokens, "mint")
	got := loaded.Tokens["mint"]
	want := ledger["mint"]

	assert.Equal(t, want.Price.String(), got.Price.String())
	assert.Equal(t, want.Liquidity.String(), got.Liquidity.String())
	assert.Equal(t, want.MarketCap.String(), got.MarketCap.String())
	for wallet, amount := range want.Balances {
		assert.Equal(t, amount.String(), got.Balances[wallet].String(), "wallet %s", wallet)
	}
	assert.Equal(t, "raydium", got.Dex)
	assert.Equal(t, takenAt.Unix(), loaded.TakenAt.Unix())
}

func TestSnapshotStore_ReadsLegacyFlatFile(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"mint": {"address": "mint", "name": "Token", "symbol": "TKN", "chain": "solana",
		"balances": {"w1": "2.5"}, "price": "1.1", "liquidity": "0", "market_cap": "0", "link": ""}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFileName), []byte(legacy), 0o644))

	snapshot, err := NewSnapshotStore(dir, nopLogger{}).LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.SchemaVersion)
	assert.Equal(t, "2.5", snapshot.Tokens["mint"].Balances["w1"].String())
}

func TestSnapshotStore_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFileName), []byte("{broken"), 0o644))

	_, err := NewSnapshotStore(dir, nopLogger{}).LoadSnapshot(context.Background())
	assert.Error(t, err)
}

func TestSnapshotStore_NativeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(t.TempDir(), nopLogger{})

	empty, err := store.LoadNative(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	native := entity.NativeSnapshot{"eth": {"0xabc": "1000000000000000000"}}
	require.NoError(t, store.SaveNative(ctx, native))

	loaded, err := store.LoadNative(ctx)
	require.NoError(t, err)
	assert.Equal(t, native, loaded)
}

func TestHistoryStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore(t.TempDir())

	_, ok, err := store.Last(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Append(ctx, entity.HistoryPoint{Timestamp: 100, ValueUSD: dec("10.5")}))
	require.NoError(t, store.Append(ctx, entity.HistoryPoint{Timestamp: 200, ValueUSD: dec("47.5")}))
	require.NoError(t, store.Append(ctx, entity.HistoryPoint{Timestamp: 300, ValueUSD: dec("0.000000001")}))

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.Equal(t, "100, 10.5\n200, 47.5\n300, 0.000000001\n", string(data))

	last, ok, err := store.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(300), last.Timestamp)

	points, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(200), points[0].Timestamp)
	assert.Equal(t, "47.5", points[0].ValueUSD.String())

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistoryStore_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFileName), []byte("1700000000, 1234.5678901234\n\n"), 0o644))

	last, ok, err := NewHistoryStore(dir).Last(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1234.5678901234", last.ValueUSD.String())
}

func TestHistoryStore_BadLineIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFileName), []byte("100, 1\nnonsense\n"), 0o644))

	_, err := NewHistoryStore(dir).List(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
