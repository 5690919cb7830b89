package redisstore

import (
	"context"
	"errors"
	"fmt"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKey = "snapshot"
	nativeKey   = "native"
)

// Options configures the redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SnapshotStore keeps the encoded ledger and native observation under two keys.
type SnapshotStore struct {
	client *redis.Client
	prefix string
	logger port.Logger
}

var (
	_ port.SnapshotStore       = (*SnapshotStore)(nil)
	_ port.NativeSnapshotStore = (*SnapshotStore)(nil)
)

// NewSnapshotStore connects and pings the server.
func NewSnapshotStore(ctx context.Context, opts Options, logger port.Logger) (*SnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return &SnapshotStore{client: client, prefix: opts.KeyPrefix, logger: logger}, nil
}

// LoadSnapshot returns the empty snapshot when the key does not exist.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (*entity.Snapshot, error) {
	data, err := s.client.Get(ctx, s.prefix+snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		s.logger.Info("No previous snapshot in redis, starting empty", "key", s.prefix+snapshotKey)
		return entity.EmptySnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return entity.DecodeSnapshot(data)
}

// SaveSnapshot overwrites the snapshot key.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *entity.Snapshot) error {
	data, err := entity.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// LoadNative returns an empty observation when the key does not exist.
func (s *SnapshotStore) LoadNative(ctx context.Context) (entity.NativeSnapshot, error) {
	data, err := s.client.Get(ctx, s.prefix+nativeKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.NativeSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get native snapshot: %w", err)
	}
	return entity.DecodeNativeSnapshot(data)
}

// SaveNative overwrites the native key.
func (s *SnapshotStore) SaveNative(ctx context.Context, snapshot entity.NativeSnapshot) error {
	data, err := entity.EncodeNativeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode native snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+nativeKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set native snapshot: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
