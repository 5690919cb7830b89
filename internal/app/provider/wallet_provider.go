package provider

import (
	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/infrastructure/configloader"
	"balance_tracker/internal/infrastructure/walletloader"
)

type walletProviderImpl struct {
	cfg    *configloader.Config
	file   port.WalletProvider
	logger port.Logger
}

// NewWalletProvider combines the wallets listed in the config with the ones in its wallets_file.
func NewWalletProvider(cfg *configloader.Config, logger port.Logger) port.WalletProvider {
	return &walletProviderImpl{
		cfg:    cfg,
		file:   walletloader.NewWalletFileLoader(cfg.WalletsFile, logger.Debug),
		logger: logger,
	}
}

// GetWallets returns config wallets first, then file wallets.
func (p *walletProviderImpl) GetWallets() ([]entity.Wallet, error) {
	wallets := make([]entity.Wallet, 0, len(p.cfg.EVMWallets)+len(p.cfg.SolanaWallets)+len(p.cfg.SuiWallets))
	for _, w := range p.cfg.EVMWallets {
		wallets = append(wallets, entity.Wallet{Address: w.Address, Kind: entity.WalletKindEVM})
	}
	for _, w := range p.cfg.SolanaWallets {
		wallets = append(wallets, entity.Wallet{Address: w.Address, Kind: entity.WalletKindSolana})
	}
	for _, w := range p.cfg.SuiWallets {
		wallets = append(wallets, entity.Wallet{Address: w.Address, Kind: entity.WalletKindSui})
	}

	fromFile, err := p.file.GetWallets()
	if err != nil {
		p.logger.Error("Failed to load wallets", "path", p.cfg.WalletsFile, "error", err)
		return nil, err
	}
	wallets = append(wallets, fromFile...)
	p.logger.Debug("Wallets loaded successfully", "count", len(wallets), "fromFile", len(fromFile))
	return wallets, nil
}
