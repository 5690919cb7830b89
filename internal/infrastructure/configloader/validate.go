package configloader

import (
	"errors"
	"fmt"
	"strings"

	"balance_tracker/internal/domain/entity"

	"filippo.io/edwards25519"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks wallet addresses and backend settings. EVM and Sui addresses are lower-cased in place.
func (c *Config) Validate() error {
	var errs []error

	for i, w := range c.EVMWallets {
		addr, err := NormalizeEVMAddress(w.Address)
		if err != nil {
			errs = append(errs, fmt.Errorf("evm_wallets[%d]: %w", i, err))
			continue
		}
		c.EVMWallets[i].Address = addr
	}
	for i, w := range c.SolanaWallets {
		addr, onCurve, err := NormalizeSolanaAddress(w.Address)
		if err != nil {
			errs = append(errs, fmt.Errorf("solana_wallets[%d]: %w", i, err))
			continue
		}
		if !onCurve {
			logrus.Warnf("solana_wallets[%d] %s is not an ed25519 public key, it looks like a program-derived address", i, addr)
		}
		c.SolanaWallets[i].Address = addr
	}
	for i, w := range c.SuiWallets {
		addr, err := NormalizeSuiAddress(w.Address)
		if err != nil {
			errs = append(errs, fmt.Errorf("sui_wallets[%d]: %w", i, err))
			continue
		}
		c.SuiWallets[i].Address = addr
	}

	seen := make(map[string]string, len(c.EVMInfo))
	for label, info := range c.EVMInfo {
		id := strings.ToLower(strings.TrimSpace(info.Moralis))
		if id == "" {
			errs = append(errs, fmt.Errorf("evm_info[%s]: moralis chain id is required", label))
			continue
		}
		if other, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("evm_info[%s]: moralis chain id %q already used by %s", label, id, other))
		}
		seen[id] = label
		switch entity.NativeSource(strings.ToLower(info.NativeSource)) {
		case "", entity.NativeSourceMoralis, entity.NativeSourceRPC:
		default:
			errs = append(errs, fmt.Errorf("evm_info[%s]: unknown native_source %q", label, info.NativeSource))
		}
	}

	if _, err := c.ManualHoldings(); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.SnapshotDriver {
	case "file":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr is required for the redis snapshot driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.snapshot_driver: unknown driver %q", c.Storage.SnapshotDriver))
	}
	switch c.Storage.HistoryDriver {
	case "file":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn is required for the postgres history driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.history_driver: unknown driver %q", c.Storage.HistoryDriver))
	}

	if (c.Telegram.SendMsg || c.Telegram.Alerts) && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram.bot_token and telegram.chat_id are required when send_msg or alerts is on"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// NormalizeEVMAddress checks a 0x-prefixed 20-byte hex address and lower-cases it.
func NormalizeEVMAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return "", fmt.Errorf("%q is not an EVM address", address)
	}
	return strings.ToLower(address), nil
}

// NormalizeSolanaAddress checks that address base58-decodes to 32 bytes. onCurve is false for off-curve
// (program-derived) addresses.
func NormalizeSolanaAddress(address string) (normalized string, onCurve bool, err error) {
	address = strings.TrimSpace(address)
	raw, err := base58.Decode(address)
	if err != nil {
		return "", false, fmt.Errorf("%q is not base58: %w", address, err)
	}
	if len(raw) != 32 {
		return "", false, fmt.Errorf("%q decodes to %d bytes, want 32", address, len(raw))
	}
	_, curveErr := new(edwards25519.Point).SetBytes(raw)
	return address, curveErr == nil, nil
}

// NormalizeSuiAddress checks a 0x-prefixed 32-byte hex address and lower-cases it.
func NormalizeSuiAddress(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	raw, err := hexutil.Decode(address)
	if err != nil {
		return "", fmt.Errorf("%q is not hex: %w", address, err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("%q is %d bytes, want 32", address, len(raw))
	}
	return address, nil
}
