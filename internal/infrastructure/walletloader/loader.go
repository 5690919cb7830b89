package walletloader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/infrastructure/configloader"
)

// WalletFileLoader implements the port.WalletProvider interface by loading wallets from a file.
// Each line is "[evm|solana|sui] <address>"; a bare 0x address is an EVM wallet and # starts a comment.
type WalletFileLoader struct {
	filePath   string
	loggerInfo func(msg string, args ...any)
}

// NewWalletFileLoader creates a new WalletFileLoader.
func NewWalletFileLoader(filePath string, loggerInfo func(msg string, args ...any)) port.WalletProvider {
	return &WalletFileLoader{
		filePath:   filePath,
		loggerInfo: loggerInfo,
	}
}

// GetWallets reads wallet addresses from the configured file path. A missing file yields no wallets.
func (l *WalletFileLoader) GetWallets() ([]entity.Wallet, error) {
	if l.filePath == "" {
		return nil, nil
	}
	file, err := os.Open(l.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if l.loggerInfo != nil {
				l.loggerInfo("Wallet file does not exist, no extra wallets loaded", "path", l.filePath)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open wallet file %s: %w", l.filePath, err)
	}
	defer file.Close()

	var wallets []entity.Wallet
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		wallet, err := parseLine(fields)
		if err != nil {
			return nil, fmt.Errorf("wallet file %s line %d: %w", l.filePath, lineNum, err)
		}
		wallets = append(wallets, wallet)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet file %s: %w", l.filePath, err)
	}

	if l.loggerInfo != nil {
		l.loggerInfo("Wallets loaded successfully from file", "count", len(wallets), "path", l.filePath)
	}
	return wallets, nil
}

func parseLine(fields []string) (entity.Wallet, error) {
	var kind entity.WalletKind
	var address string
	switch len(fields) {
	case 1:
		kind, address = entity.WalletKindEVM, fields[0]
	case 2:
		kind, address = entity.WalletKind(strings.ToLower(fields[0])), fields[1]
	default:
		return entity.Wallet{}, fmt.Errorf("expected \"[kind] address\", got %d fields", len(fields))
	}

	var err error
	switch kind {
	case entity.WalletKindEVM:
		address, err = configloader.NormalizeEVMAddress(address)
	case entity.WalletKindSolana:
		address, _, err = configloader.NormalizeSolanaAddress(address)
	case entity.WalletKindSui:
		address, err = configloader.NormalizeSuiAddress(address)
	default:
		return entity.Wallet{}, fmt.Errorf("unknown wallet kind %q", kind)
	}
	if err != nil {
		return entity.Wallet{}, err
	}
	return entity.Wallet{Address: address, Kind: kind}, nil
}
