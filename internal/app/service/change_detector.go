package service

import (
	"context"
	"fmt"
	"strings"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
)

// ChangedWallets decides which EVM wallets need a token refetch on each chain.
// A wallet is flagged when the previous observation has no (or an empty) balance for it, or when the current
// balance string differs from the previous one. A wallet missing from current counts as "" and is flagged.
// Every chain is present in the result, with an empty list when nothing changed.
func ChangedWallets(chains, wallets []string, current, previous entity.NativeSnapshot) map[string][]string {
	lowered := make([]string, 0, len(wallets))
	seen := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		w = strings.ToLower(w)
		if !seen[w] {
			seen[w] = true
			lowered = append(lowered, w)
		}
	}

	flagged := make(map[string][]string, len(chains))
	for _, chain := range chains {
		flagged[chain] = []string{}
		for _, wallet := range lowered {
			prev := previous[chain][wallet]
			if prev == "" || current[chain][wallet] != prev {
				flagged[chain] = append(flagged[chain], wallet)
			}
		}
	}
	return flagged
}

// ChangeDetector fetches fresh native balances, compares them with the stored observation and replaces it.
type ChangeDetector struct {
	source port.NativeBalanceSource
	store  port.NativeSnapshotStore
	logger port.Logger
}

// NewChangeDetector creates a ChangeDetector.
func NewChangeDetector(source port.NativeBalanceSource, store port.NativeSnapshotStore, l port.Logger) *ChangeDetector {
	return &ChangeDetector{source: source, store: store, logger: l}
}

// Detect returns the wallets to refetch per chain. The fresh observation is persisted before returning,
// whether or not anything changed.
func (d *ChangeDetector) Detect(ctx context.Context, chains, wallets []string) (map[string][]string, error) {
	if len(wallets) == 0 || len(chains) == 0 {
		return ChangedWallets(chains, nil, nil, nil), nil
	}

	current := make(entity.NativeSnapshot, len(chains))
	for _, chain := range chains {
		balances, err := d.source.GetNativeBalances(ctx, chain, wallets)
		if err != nil {
			return nil, fmt.Errorf("fetch native balances: %w", err)
		}
		lowered := make(map[string]string, len(balances))
		for w, b := range balances {
			lowered[strings.ToLower(w)] = b
		}
		current[chain] = lowered
	}

	previous, err := d.store.LoadNative(ctx)
	if err != nil {
		return nil, fmt.Errorf("load native snapshot: %w", err)
	}
	if err := d.store.SaveNative(ctx, current); err != nil {
		return nil, fmt.Errorf("save native snapshot: %w", err)
	}

	flagged := ChangedWallets(chains, wallets, current, previous)
	for _, chain := range chains {
		if n := len(flagged[chain]); n > 0 {
			d.logger.Debug("Native balance moved, wallets will be refetched", "chain", chain, "wallets", n)
		}
	}
	return flagged, nil
}
