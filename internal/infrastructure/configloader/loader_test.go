package configloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"balance_tracker/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evmWallet    = "0x52908400098527886E0F7030069857D2E4169EE7"
	solanaWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	suiWallet    = "0x02A212DE6A9DFA3A69E22387ACFBAFBB1A9E591BD9D636E7895DCFC8DE05F331"
)

const sampleConfig = `
keys:
  moralis_api_key: file-key
  sui_api_key: sui-key
general:
  verbose: true
  min_value_usd: 10
  time_interval: 600
  data_path: /tmp/bt
telegram:
  bot_token: "123:abc"
  chat_id: "-100200"
  send_msg: true
evm_wallets:
  - address: ` + evmWallet + `
    name: main
solana_wallets:
  - address: ` + solanaWallet + `
sui_wallets:
  - address: "` + suiWallet + `"
evm_info:
  ethereum:
    moralis: eth
    gecko_ticker: ethereum
    ticker: ETH
  binance:
    moralis: BSC
    gecko_ticker: binancecoin
    ticker: BNB
    native_source: rpc
    rpc_url: https://bsc.example
unsupported_balances:
  somemint: [1.5, "2.25"]
`

func TestParse_Sample(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.Keys.MoralisAPIKey)
	assert.Equal(t, strings.ToLower(evmWallet), cfg.EVMWallets[0].Address)
	assert.Equal(t, "main", cfg.EVMWallets[0].Name)
	assert.Equal(t, solanaWallet, cfg.SolanaWallets[0].Address)
	assert.Equal(t, strings.ToLower(suiWallet), cfg.SuiWallets[0].Address)
	assert.Equal(t, 10*time.Minute, cfg.Interval())
	assert.Equal(t, "10", cfg.MinValueUSD().String())

	networks := cfg.Networks()
	require.Len(t, networks, 2)
	assert.Equal(t, "bsc", networks[0].Identifier)
	assert.Equal(t, entity.NativeSourceRPC, networks[0].NativeSource)
	assert.Equal(t, "https://bsc.example", networks[0].PrimaryRPCURL)
	assert.Equal(t, "eth", networks[1].Identifier)
	assert.Equal(t, "ethereum", networks[1].GeckoTicker)

	holdings, err := cfg.ManualHoldings()
	require.NoError(t, err)
	assert.Equal(t, "3.75", holdings["somemint"].String())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("general:\n  verbose: false\n"))
	require.NoError(t, err)

	assert.Equal(t, 3600, cfg.General.TimeInterval)
	assert.Equal(t, "data", cfg.General.DataPath)
	assert.Equal(t, "file", cfg.Storage.SnapshotDriver)
	assert.Equal(t, "file", cfg.Storage.HistoryDriver)
	assert.Equal(t, 60, cfg.Retry.BackoffSeconds)
	assert.Equal(t, 10, cfg.Retry.TelegramBackoffSeconds)
	assert.Equal(t, 3, cfg.Retry.PriceRetries)
	assert.Equal(t, 30, cfg.DEXScreener.MaxTokensPerBatchRequest)
	assert.Equal(t, "https://api.dexscreener.com", cfg.DEXScreener.BaseURL)
	assert.Equal(t, "baltracker.log", cfg.Logging.File)
	assert.Equal(t, time.Local, cfg.Location())
}

func TestParse_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("MORALIS_API_KEY", "env-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "999:env")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Keys.MoralisAPIKey)
	assert.Equal(t, "999:env", cfg.Telegram.BotToken)
	assert.Equal(t, "sui-key", cfg.Keys.SuiAPIKey)
}

func TestParse_InvalidWalletsAreReported(t *testing.T) {
	doc := `
evm_wallets:
  - address: 0x1234
solana_wallets:
  - address: "0OIl"
sui_wallets:
  - address: "0x02"
unsupported_balances:
  mint: ["abc"]
storage:
  history_driver: postgres
`
	_, err := Parse([]byte(doc))

	require.ErrorIs(t, err, ErrInvalidConfig)
	msg := err.Error()
	assert.Contains(t, msg, "evm_wallets[0]")
	assert.Contains(t, msg, "solana_wallets[0]")
	assert.Contains(t, msg, "sui_wallets[0]")
	assert.Contains(t, msg, "unsupported_balances[mint]")
	assert.Contains(t, msg, "storage.postgres.dsn")
}

func TestParse_TelegramRequiresCredentials(t *testing.T) {
	_, err := Parse([]byte("telegram:\n  send_msg: true\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.General.Verbose)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestConfig_MinSleepInterval(t *testing.T) {
	cfg := &Config{
		EVMWallets:    []WalletEntry{{Address: "a"}, {Address: "b"}},
		SolanaWallets: []WalletEntry{{Address: "s"}},
		EVMInfo:       map[string]EVMInfo{"x": {}, "y": {}, "z": {}},
	}
	// 7 requests per cycle, 4000 requests per day
	assert.Equal(t, 152, cfg.MinSleepInterval())

	assert.Zero(t, (&Config{}).MinSleepInterval())
}

func TestNormalizeSolanaAddress(t *testing.T) {
	addr, _, err := NormalizeSolanaAddress("  " + solanaWallet + " ")
	require.NoError(t, err)
	assert.Equal(t, solanaWallet, addr)

	_, _, err = NormalizeSolanaAddress("3yZe7d")
	assert.Error(t, err)
}
