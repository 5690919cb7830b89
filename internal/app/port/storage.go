package port

import (
	"context"

	"balance_tracker/internal/domain/entity"
)

// SnapshotStore persists the token ledger between cycles. Load returns an empty snapshot when nothing is stored yet.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (*entity.Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *entity.Snapshot) error
}

// NativeSnapshotStore persists the native balances observed by change detection.
type NativeSnapshotStore interface {
	LoadNative(ctx context.Context) (entity.NativeSnapshot, error)
	SaveNative(ctx context.Context, snapshot entity.NativeSnapshot) error
}

// HistoryStore keeps the portfolio total of every cycle.
type HistoryStore interface {
	Append(ctx context.Context, point entity.HistoryPoint) error
	// Last returns the most recent point and false when the history is empty.
	Last(ctx context.Context) (entity.HistoryPoint, bool, error)
	// List returns up to limit most recent points, oldest first. A limit <= 0 returns everything.
	List(ctx context.Context, limit int) ([]entity.HistoryPoint, error)
}
