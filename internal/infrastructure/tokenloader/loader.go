package tokenloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"balance_tracker/internal/app/port"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// holdingRecord is one entry of a manual holdings file: a token address and the amounts held off-chain or in
// wallets no source can read.
type holdingRecord struct {
	Address  string            `json:"address"`
	Balances []decimal.Decimal `json:"balances"`
}

// HoldingsFileLoader implements port.HoldingsProvider over a directory of JSON files.
type HoldingsFileLoader struct {
	dirPath    string
	loggerInfo func(msg string, args ...any)
	loggerWarn func(msg string, args ...any)
}

// NewHoldingsLoader creates a new HoldingsFileLoader.
func NewHoldingsLoader(dirPath string, loggerInfo func(msg string, args ...any), loggerWarn func(msg string, args ...any)) port.HoldingsProvider {
	return &HoldingsFileLoader{
		dirPath:    dirPath,
		loggerInfo: loggerInfo,
		loggerWarn: loggerWarn,
	}
}

// GetHoldings scans the directory and sums the amounts of every address over all *.json files.
// A missing directory yields no holdings; an unreadable or malformed file is skipped with a warning.
func (l *HoldingsFileLoader) GetHoldings() (map[string]decimal.Decimal, error) {
	holdings := make(map[string]decimal.Decimal)
	if l.dirPath == "" {
		return holdings, nil
	}

	files, err := os.ReadDir(l.dirPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return holdings, nil
		}
		return nil, fmt.Errorf("failed to read holdings directory %s: %w", l.dirPath, err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}
		names = append(names, file.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		filePath := filepath.Join(l.dirPath, name)
		data, err := os.ReadFile(filePath)
		if err != nil {
			l.warn("Failed to read holdings file, skipping file.", "path", filePath, "error", err)
			continue
		}

		var records []holdingRecord
		if err := json.Unmarshal(data, &records); err != nil {
			l.warn("Failed to unmarshal holdings from file, skipping file.", "path", filePath, "error", err)
			continue
		}

		loaded := 0
		for _, rec := range records {
			address := strings.TrimSpace(rec.Address)
			if address == "" {
				l.warn("Holding without address, skipping.", "path", filePath)
				continue
			}
			total := holdings[address]
			for _, amount := range rec.Balances {
				total = total.Add(amount)
			}
			holdings[address] = total
			loaded++
		}
		if l.loggerInfo != nil {
			l.loggerInfo("Manual holdings loaded from file", "file", name, "count", loaded)
		}
	}
	return holdings, nil
}

func (l *HoldingsFileLoader) warn(msg string, args ...any) {
	if l.loggerWarn != nil {
		l.loggerWarn(msg, args...)
	}
}
