package provider

import (
	"balance_tracker/internal/app/port"
	"balance_tracker/internal/infrastructure/configloader"
	"balance_tracker/internal/infrastructure/tokenloader"

	"github.com/shopspring/decimal"
)

type holdingsProviderImpl struct {
	cfg    *configloader.Config
	dir    port.HoldingsProvider
	logger port.Logger
}

// NewHoldingsProvider sums config unsupported_balances with the manual holdings directory.
func NewHoldingsProvider(cfg *configloader.Config, logger port.Logger) port.HoldingsProvider {
	return &holdingsProviderImpl{
		cfg:    cfg,
		dir:    tokenloader.NewHoldingsLoader(cfg.ManualHoldingsDir, logger.Debug, logger.Warn),
		logger: logger,
	}
}

// GetHoldings returns the manual amount per token address.
func (p *holdingsProviderImpl) GetHoldings() (map[string]decimal.Decimal, error) {
	holdings, err := p.cfg.ManualHoldings()
	if err != nil {
		return nil, err
	}
	fromDir, err := p.dir.GetHoldings()
	if err != nil {
		p.logger.Error("Failed to load manual holdings", "directory", p.cfg.ManualHoldingsDir, "error", err)
		return nil, err
	}
	for address, amount := range fromDir {
		holdings[address] = holdings[address].Add(amount)
	}
	for address, amount := range holdings {
		if amount.IsZero() {
			delete(holdings, address)
		}
	}
	return holdings, nil
}
