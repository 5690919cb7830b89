package configloader

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"balance_tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// KeysConfig holds the API keys of the balance sources.
type KeysConfig struct {
	MoralisAPIKey string `yaml:"moralis_api_key"`
	SuiAPIKey     string `yaml:"sui_api_key"`
}

// GeneralConfig holds the polling and report settings.
type GeneralConfig struct {
	Verbose      bool    `yaml:"verbose"`
	MinValueUSD  float64 `yaml:"min_value_usd"`
	TimeInterval int     `yaml:"time_interval"` // seconds between cycles
	DataPath     string  `yaml:"data_path"`
	HideBalances bool    `yaml:"hide_balances"`
	Timezone     string  `yaml:"timezone"`
}

// TelegramConfig holds the bot settings.
type TelegramConfig struct {
	BaseURL         string `yaml:"base_url"`
	BotToken        string `yaml:"bot_token"`
	ChatID          string `yaml:"chat_id"`
	SendMsg         bool   `yaml:"send_msg"`
	EditLastMessage bool   `yaml:"edit_last_message"`
	Alerts          bool   `yaml:"alerts"`
}

// WalletEntry is a tracked address with optional labels.
type WalletEntry struct {
	Address  string `yaml:"address"`
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"`
}

// EVMInfo describes one tracked EVM chain. The map key in the file is a free-form label.
type EVMInfo struct {
	Moralis      string   `yaml:"moralis"`
	GeckoTicker  string   `yaml:"gecko_ticker"`
	Ticker       string   `yaml:"ticker"`
	RPCURL       string   `yaml:"rpc_url"`
	FallbackRPCs []string `yaml:"fallback_rpc_urls"`
	NativeSource string   `yaml:"native_source"` // moralis | rpc
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	File        string `yaml:"file"`
	Development bool   `yaml:"development"`
}

// ServerConfig holds the status API configuration.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// RedisConfig holds the redis snapshot store settings.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PostgresConfig holds the postgres history store settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	SnapshotDriver string         `yaml:"snapshot_driver"` // file | redis
	HistoryDriver  string         `yaml:"history_driver"`  // file | postgres
	Redis          RedisConfig    `yaml:"redis"`
	Postgres       PostgresConfig `yaml:"postgres"`
}

// KafkaConfig holds the report event publisher settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SentryConfig holds the fatal error reporting settings.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines  int `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds  int `yaml:"rpc_call_timeout_seconds"`
	RequestTimeoutSeconds  int `yaml:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

// RetryConfig holds the upstream backoff settings.
type RetryConfig struct {
	BackoffSeconds         int `yaml:"backoff_seconds"`
	TelegramBackoffSeconds int `yaml:"telegram_backoff_seconds"`
	PriceRetries           int `yaml:"price_retries"`
}

// EndpointsConfig overrides the upstream base URLs.
type EndpointsConfig struct {
	MoralisEVM    string `yaml:"moralis_evm"`
	MoralisSolana string `yaml:"moralis_solana"`
	SolanaNetwork string `yaml:"solana_network"`
	Blockberry    string `yaml:"blockberry"`
}

// DEXScreenerConfig holds the configuration for the DEX Screener client.
type DEXScreenerConfig struct {
	BaseURL                  string `yaml:"base_url"`
	MaxTokensPerBatchRequest int    `yaml:"max_tokens_per_batch_request"`
	MaxConcurrentRequests    int    `yaml:"max_concurrent_requests"`
}

// CoinGeckoConfig holds the configuration for the CoinGecko client.
type CoinGeckoConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// Config is the top-level configuration structure.
type Config struct {
	Keys                KeysConfig          `yaml:"keys"`
	General             GeneralConfig       `yaml:"general"`
	Telegram            TelegramConfig      `yaml:"telegram"`
	EVMWallets          []WalletEntry       `yaml:"evm_wallets"`
	SolanaWallets       []WalletEntry       `yaml:"solana_wallets"`
	SuiWallets          []WalletEntry       `yaml:"sui_wallets"`
	WalletsFile         string              `yaml:"wallets_file"`
	ManualHoldingsDir   string              `yaml:"manual_holdings_dir"`
	EVMInfo             map[string]EVMInfo  `yaml:"evm_info"`
	UnsupportedBalances map[string][]string `yaml:"unsupported_balances"`
	Logging             LoggingConfig       `yaml:"logging"`
	Server              ServerConfig        `yaml:"server"`
	Storage             StorageConfig       `yaml:"storage"`
	Kafka               KafkaConfig         `yaml:"kafka"`
	Sentry              SentryConfig        `yaml:"sentry"`
	Performance         PerformanceConfig   `yaml:"performance"`
	Retry               RetryConfig         `yaml:"retry"`
	Endpoints           EndpointsConfig     `yaml:"endpoints"`
	DEXScreener         DEXScreenerConfig   `yaml:"dexscreener"`
	CoinGecko           CoinGeckoConfig     `yaml:"coingecko"`
}

// envOverrides maps environment variables to the secrets they replace.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"MORALIS_API_KEY", func(c *Config, v string) { c.Keys.MoralisAPIKey = v }},
	{"SUI_API_KEY", func(c *Config, v string) { c.Keys.SuiAPIKey = v }},
	{"COINGECKO_API_KEY", func(c *Config, v string) { c.CoinGecko.APIKey = v }},
	{"TELEGRAM_BOT_TOKEN", func(c *Config, v string) { c.Telegram.BotToken = v }},
	{"TELEGRAM_CHAT_ID", func(c *Config, v string) { c.Telegram.ChatID = v }},
	{"SENTRY_DSN", func(c *Config, v string) { c.Sentry.DSN = v }},
	{"POSTGRES_DSN", func(c *Config, v string) { c.Storage.Postgres.DSN = v }},
	{"REDIS_PASSWORD", func(c *Config, v string) { c.Storage.Redis.Password = v }},
}

// Load reads the YAML configuration file, applies environment overrides and defaults, and validates it.
func Load(path string) (*Config, error) {
	logrus.Debugf("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			o.apply(&cfg, v)
		}
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.General.TimeInterval <= 0 {
		c.General.TimeInterval = 3600
		logrus.Infof("general.time_interval not set, defaulting to %d seconds", c.General.TimeInterval)
	}
	if c.General.DataPath == "" {
		c.General.DataPath = "data"
		logrus.Infof("general.data_path not set, defaulting to %s", c.General.DataPath)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = "baltracker.log"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Storage.SnapshotDriver == "" {
		c.Storage.SnapshotDriver = "file"
	}
	if c.Storage.HistoryDriver == "" {
		c.Storage.HistoryDriver = "file"
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "balance_tracker:"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "portfolio-reports"
	}

	// Default values for performance if not set
	if c.Performance.MaxConcurrentRoutines <= 0 {
		c.Performance.MaxConcurrentRoutines = 10
		logrus.Infof("performance.max_concurrent_routines not set, defaulting to %d", c.Performance.MaxConcurrentRoutines)
	}
	if c.Performance.RPCCallTimeoutSeconds <= 0 {
		c.Performance.RPCCallTimeoutSeconds = 10
	}
	if c.Performance.RequestTimeoutSeconds <= 0 {
		c.Performance.RequestTimeoutSeconds = 30
	}
	if c.Performance.ShutdownTimeoutSeconds <= 0 {
		c.Performance.ShutdownTimeoutSeconds = 30
	}

	if c.Retry.BackoffSeconds <= 0 {
		c.Retry.BackoffSeconds = 60
	}
	if c.Retry.TelegramBackoffSeconds <= 0 {
		c.Retry.TelegramBackoffSeconds = 10
	}
	if c.Retry.PriceRetries <= 0 {
		c.Retry.PriceRetries = 3
	}

	if c.Endpoints.MoralisEVM == "" {
		c.Endpoints.MoralisEVM = "https://deep-index.moralis.io/api/v2.2"
	}
	if c.Endpoints.MoralisSolana == "" {
		c.Endpoints.MoralisSolana = "https://solana-gateway.moralis.io"
	}
	if c.Endpoints.SolanaNetwork == "" {
		c.Endpoints.SolanaNetwork = "mainnet"
	}
	if c.Endpoints.Blockberry == "" {
		c.Endpoints.Blockberry = "https://api.blockberry.one"
	}
	if c.Telegram.BaseURL == "" {
		c.Telegram.BaseURL = "https://api.telegram.org"
	}

	// Apply default values for DEXScreener if not set
	if c.DEXScreener.BaseURL == "" {
		c.DEXScreener.BaseURL = "https://api.dexscreener.com"
		logrus.Infof("dexscreener.base_url not set, defaulting to %s", c.DEXScreener.BaseURL)
	}
	if c.DEXScreener.MaxTokensPerBatchRequest <= 0 || c.DEXScreener.MaxTokensPerBatchRequest > 30 {
		c.DEXScreener.MaxTokensPerBatchRequest = 30 // DEXScreener limit
		logrus.Infof("dexscreener.max_tokens_per_batch_request defaulting to %d", c.DEXScreener.MaxTokensPerBatchRequest)
	}
	if c.DEXScreener.MaxConcurrentRequests <= 0 {
		c.DEXScreener.MaxConcurrentRequests = 4
	}

	if c.CoinGecko.BaseURL == "" {
		c.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.CoinGecko.CacheTTLSeconds <= 0 {
		c.CoinGecko.CacheTTLSeconds = 60
	}
}

// Networks converts evm_info into network definitions, sorted by Moralis id.
func (c *Config) Networks() []entity.NetworkDefinition {
	defs := make([]entity.NetworkDefinition, 0, len(c.EVMInfo))
	for _, info := range c.EVMInfo {
		defs = append(defs, entity.NetworkDefinition{
			Identifier:      strings.ToLower(info.Moralis),
			NativeSymbol:    info.Ticker,
			GeckoTicker:     info.GeckoTicker,
			PrimaryRPCURL:   info.RPCURL,
			FallbackRPCURLs: info.FallbackRPCs,
			NativeSource:    entity.NativeSource(strings.ToLower(info.NativeSource)),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Identifier < defs[j].Identifier })
	return defs
}

// ManualHoldings sums the configured unsupported balances per token address.
func (c *Config) ManualHoldings() (map[string]decimal.Decimal, error) {
	holdings := make(map[string]decimal.Decimal, len(c.UnsupportedBalances))
	for address, amounts := range c.UnsupportedBalances {
		total := decimal.Zero
		for _, raw := range amounts {
			amount, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("unsupported_balances[%s]: invalid amount %q: %w", address, raw, err)
			}
			total = total.Add(amount)
		}
		holdings[address] = total
	}
	return holdings, nil
}

// MinValueUSD returns general.min_value_usd as a decimal.
func (c *Config) MinValueUSD() decimal.Decimal {
	return decimal.NewFromFloat(c.General.MinValueUSD)
}

// Interval returns general.time_interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.General.TimeInterval) * time.Second
}

// Location resolves general.timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.General.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.General.Timezone)
	if err != nil {
		logrus.Warnf("Unknown timezone %q, using local time: %v", c.General.Timezone, err)
		return time.Local
	}
	return loc
}

const (
	moralisDailyCU  = 40_000
	moralisCUPerReq = 10
	secondsPerDay   = 24 * 3600
)

// MinSleepInterval is the shortest cycle interval, in seconds, that keeps the Moralis wallet requests within the
// free daily compute-unit budget. It is 0 when no Moralis wallet request is made.
func (c *Config) MinSleepInterval() int {
	requests := len(c.EVMWallets)*len(c.EVMInfo) + len(c.SolanaWallets)
	if requests == 0 {
		return 0
	}
	requestsPerDay := float64(moralisDailyCU) / moralisCUPerReq
	cycles := requestsPerDay / float64(requests)
	return int(math.Floor(secondsPerDay/cycles)) + 1
}
