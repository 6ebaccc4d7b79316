// Package cart implements the customer cart: an in-memory item list that is
// the source of truth for the session, mirrored to durable key-value storage
// after every mutation so it survives reloads.
//
// Two processes sharing one customer's snapshot slot race on
// read-modify-write; the last writer wins. That is a known limitation of the
// snapshot contract, not something the store tries to lock around.
package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"gofalre.io/storefront/models"
)

// Subscriber is notified synchronously after every mutation with a copy of
// the current cart.
type Subscriber func(items models.Cart)

// Store owns a single customer's cart. All mutations persist a full snapshot
// and then notify subscribers. Snapshot failures are absorbed: the in-memory
// state remains authoritative for the rest of the session.
type Store struct {
	customerID string
	snapshots  SnapshotStore
	logger     *zap.Logger

	mu          sync.Mutex
	items       models.Cart
	subscribers map[uint64]Subscriber
	nextSubID   uint64
}

// NewStore hydrates the store from the customer's persisted snapshot. A
// missing or unreadable snapshot yields an empty cart.
func NewStore(ctx context.Context, customerID string, snapshots SnapshotStore, logger *zap.Logger) *Store {
	s := &Store{
		customerID:  customerID,
		snapshots:   snapshots,
		logger:      logger,
		subscribers: make(map[uint64]Subscriber),
	}

	items, err := snapshots.Load(ctx, customerID)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			logger.Warn("Failed to load cart snapshot, starting empty",
				zap.String("customer_id", customerID), zap.Error(err))
		}
		items = models.Cart{}
	}
	s.items = items

	return s
}

// AddItem merges the item into the cart: an existing product id has its
// quantity incremented, a new one is appended. Quantities below 1 are
// normalized to 1.
func (s *Store) AddItem(ctx context.Context, item models.CartItem, quantity uint64) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = quantity
		s.items = append(s.items, item)
	}
	s.afterMutationLocked(ctx)

	return nil
}

// UpdateQuantity sets the item's quantity, clamping values below 1 to 1.
// Lines are only removed through RemoveItem, never by driving the quantity
// down. Unknown ids are a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, id uint64, quantity uint64) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = quantity
			s.afterMutationLocked(ctx)
			return
		}
	}
	s.mu.Unlock()
}

// RemoveItem filters the item out by product id. Removing an absent id is a
// no-op.
func (s *Store) RemoveItem(ctx context.Context, id uint64) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.afterMutationLocked(ctx)
			return
		}
	}
	s.mu.Unlock()
}

// Clear empties the cart and persists the empty snapshot. Called after a
// confirmed order submission and on logout.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = models.Cart{}
	s.afterMutationLocked(ctx)
}

// Items returns a copy of the current cart.
func (s *Store) Items() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// TotalQuantity sums the quantities of all lines, used for the badge count.
func (s *Store) TotalQuantity() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.TotalQuantity()
}

// TotalPrice returns the cart total rounded to two decimal places.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.TotalPrice()
}

// Subscribe registers fn to run after every mutation. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// afterMutationLocked persists the snapshot and notifies subscribers. It must
// be called with the mutex held and releases it: subscribers run outside the
// lock so they may call back into the store.
func (s *Store) afterMutationLocked(ctx context.Context) {
	items := s.items.Clone()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if err := s.snapshots.Save(ctx, s.customerID, items); err != nil {
		s.logger.Warn("Failed to persist cart snapshot, in-memory cart remains authoritative",
			zap.String("customer_id", s.customerID), zap.Error(err))
	}

	for _, fn := range subs {
		fn(items)
	}
}
