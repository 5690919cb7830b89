package port

import (
	"context"

	"balance_tracker/internal/domain/entity"
)

// TrackerService runs polling cycles and exposes the outcome of the last successful one.
type TrackerService interface {
	// RunCycle executes one full fetch, reconcile, price and persist pass.
	RunCycle(ctx context.Context) (*entity.CycleResult, error)

	// LastResult returns the last successful cycle, or nil before the first one completes.
	LastResult() *entity.CycleResult
}
