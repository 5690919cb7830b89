package provider

import (
	"fmt"
	"sync"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/infrastructure/configloader"
	networkdefinition "balance_tracker/internal/infrastructure/network/definition"
)

// PlanProvider rebuilds the tracking plan from the config file on every call, so wallet and holding edits apply
// without a restart. It also serves the active network definitions of the last good plan.
type PlanProvider struct {
	configPath   string
	forceVerbose bool
	logger       port.Logger
	load         func(string) (*configloader.Config, error)
	mu           sync.RWMutex
	current      *entity.TrackingPlan
	networkDefs  *networkdefinition.NetworkDefinitionProvider
}

// NewPlanProvider creates a PlanProvider. forceVerbose turns verbose output on regardless of the config.
func NewPlanProvider(configPath string, forceVerbose bool, logger port.Logger) *PlanProvider {
	return &PlanProvider{
		configPath:   configPath,
		forceVerbose: forceVerbose,
		logger:       logger,
		load:         configloader.Load,
	}
}

// Plan implements port.PlanProvider. An invalid reload keeps the previous plan; it is an error only when there is
// no previous plan.
func (p *PlanProvider) Plan() (*entity.TrackingPlan, error) {
	plan, defs, err := p.build()
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		if p.current == nil {
			return nil, err
		}
		p.logger.Error("Config reload failed, keeping previous plan", "path", p.configPath, "error", err)
		return p.current, nil
	}
	p.current = plan
	p.networkDefs = defs
	return plan, nil
}

func (p *PlanProvider) build() (*entity.TrackingPlan, *networkdefinition.NetworkDefinitionProvider, error) {
	cfg, err := p.load(p.configPath)
	if err != nil {
		return nil, nil, err
	}

	wallets, err := NewWalletProvider(cfg, p.logger).GetWallets()
	if err != nil {
		return nil, nil, fmt.Errorf("load wallets: %w", err)
	}
	holdings, err := NewHoldingsProvider(cfg, p.logger).GetHoldings()
	if err != nil {
		return nil, nil, fmt.Errorf("load manual holdings: %w", err)
	}
	defs := networkdefinition.NewNetworkDefinitionProvider(p.logger, cfg.Networks())

	plan := &entity.TrackingPlan{
		Networks:       defs.GetAllNetworkDefinitions(),
		ManualHoldings: holdings,
		MinValueUSD:    cfg.MinValueUSD(),
		HideBalances:   cfg.General.HideBalances,
		Verbose:        cfg.General.Verbose || p.forceVerbose,
	}
	for _, w := range wallets {
		plan.Wallets.Add(w)
	}
	return plan, defs, nil
}

// GetAllNetworkDefinitions implements port.NetworkDefinitionProvider for the last good plan.
func (p *PlanProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.networkDefs == nil {
		return nil
	}
	return p.networkDefs.GetAllNetworkDefinitions()
}

// GetNetworkDefinitionByName implements port.NetworkDefinitionProvider for the last good plan.
func (p *PlanProvider) GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.networkDefs == nil {
		return entity.NetworkDefinition{}, false
	}
	return p.networkDefs.GetNetworkDefinitionByName(nameOrIdentifier)
}
