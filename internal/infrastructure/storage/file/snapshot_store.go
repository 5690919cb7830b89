package filestore

import (
	"context"
	"fmt"
	"path/filepath"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/pkg/utils"
)

const (
	SnapshotFileName       = "token_balances.json"
	NativeSnapshotFileName = ".native_balances.json"
	HistoryFileName        = "portfolio.csv"
)

// SnapshotStore keeps the ledger and the native observation as JSON files in the data directory.
type SnapshotStore struct {
	snapshotPath string
	nativePath   string
	logger       port.Logger
}

var (
	_ port.SnapshotStore       = (*SnapshotStore)(nil)
	_ port.NativeSnapshotStore = (*SnapshotStore)(nil)
)

// NewSnapshotStore creates a SnapshotStore rooted at dataPath.
func NewSnapshotStore(dataPath string, logger port.Logger) *SnapshotStore {
	return &SnapshotStore{
		snapshotPath: filepath.Join(dataPath, SnapshotFileName),
		nativePath:   filepath.Join(dataPath, NativeSnapshotFileName),
		logger:       logger,
	}
}

// LoadSnapshot reads the previous ledger. A missing file is the empty snapshot.
func (s *SnapshotStore) LoadSnapshot(_ context.Context) (*entity.Snapshot, error) {
	data, ok, err := utils.ReadFileIfExists(s.snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.snapshotPath, err)
	}
	if !ok {
		s.logger.Info("No previous snapshot, starting empty", "path", s.snapshotPath)
		return entity.EmptySnapshot(), nil
	}

	snapshot, err := entity.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.snapshotPath, err)
	}
	if snapshot.SchemaVersion < entity.SnapshotSchemaVersion {
		s.logger.Info("Upgrading legacy snapshot", "path", s.snapshotPath, "schemaVersion", snapshot.SchemaVersion)
	}
	return snapshot, nil
}

// SaveSnapshot replaces the ledger file atomically.
func (s *SnapshotStore) SaveSnapshot(_ context.Context, snapshot *entity.Snapshot) error {
	data, err := entity.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := utils.WriteFileAtomic(s.snapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.Debug("Snapshot saved", "path", s.snapshotPath, "tokens", len(snapshot.Tokens))
	return nil
}

// LoadNative reads the last native-balance observation. A missing file is an empty observation.
func (s *SnapshotStore) LoadNative(_ context.Context) (entity.NativeSnapshot, error) {
	data, ok, err := utils.ReadFileIfExists(s.nativePath)
	if err != nil {
		return nil, fmt.Errorf("read native snapshot %s: %w", s.nativePath, err)
	}
	if !ok {
		return entity.NativeSnapshot{}, nil
	}
	return entity.DecodeNativeSnapshot(data)
}

// SaveNative replaces the native-balance file atomically.
func (s *SnapshotStore) SaveNative(_ context.Context, snapshot entity.NativeSnapshot) error {
	data, err := entity.EncodeNativeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode native snapshot: %w", err)
	}
	if err := utils.WriteFileAtomic(s.nativePath, data, 0o644); err != nil {
		return fmt.Errorf("save native snapshot: %w", err)
	}
	return nil
}
