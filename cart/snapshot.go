package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gofalre.io/storefront/models"
)

// ErrSnapshotNotFound is returned when no snapshot exists for the customer.
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

// SnapshotStore persists whole-cart snapshots to durable key-value storage.
// Writes always overwrite the full snapshot; carts stay small enough that
// delta writes are not worth the complexity.
type SnapshotStore interface {
	Load(ctx context.Context, customerID string) (models.Cart, error)
	Save(ctx context.Context, customerID string, items models.Cart) error
}

// snapshotTTL matches the active-cart lifetime: an untouched cart expires
// after a week.
const snapshotTTL = 7 * 24 * time.Hour

var _ SnapshotStore = (*RedisSnapshotStore)(nil)

// RedisSnapshotStore keeps cart snapshots in Redis under cart:<customerID>.
type RedisSnapshotStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisSnapshotStore(client *redis.Client, logger *zap.Logger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		logger: logger,
	}
}

func (s *RedisSnapshotStore) Load(ctx context.Context, customerID string) (models.Cart, error) {
	raw, err := s.client.Get(ctx, snapshotKey(customerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart snapshot: %w", err)
	}

	var items models.Cart
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}

	return items, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, customerID string, items models.Cart) error {
	if items == nil {
		items = models.Cart{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKey(customerID), raw, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to write cart snapshot: %w", err)
	}

	return nil
}

func snapshotKey(customerID string) string {
	return fmt.Sprintf("cart:%s", customerID)
}

var _ SnapshotStore = (*MemorySnapshotStore)(nil)

// MemorySnapshotStore is an in-process SnapshotStore for tests and local
// development.
type MemorySnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string][]byte
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[string][]byte),
	}
}

func (s *MemorySnapshotStore) Load(_ context.Context, customerID string) (models.Cart, error) {
	s.mu.Lock()
	raw, ok := s.snapshots[customerID]
	s.mu.Unlock()

	if !ok {
		return nil, ErrSnapshotNotFound
	}

	var items models.Cart
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}

	return items, nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, customerID string, items models.Cart) error {
	if items == nil {
		items = models.Cart{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}

	s.mu.Lock()
	s.snapshots[customerID] = raw
	s.mu.Unlock()

	return nil
}
