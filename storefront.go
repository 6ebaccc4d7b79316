// Package storefront wires the cart store, the checkout orchestrator, and
// the external collaborators (relational storage, durable key-value storage,
// hosted payments, object storage, payment-event bus) into one service.
package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/checkout"
	"gofalre.io/storefront/driver"
	"gofalre.io/storefront/event"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/order"
	"gofalre.io/storefront/payment"
	"gofalre.io/storefront/product"
	"gofalre.io/storefront/storage"
)

type Service interface {
	GetCart(ctx context.Context, customerID string) models.Cart
	CartSummary(ctx context.Context, customerID string) (quantity uint64, total float64)
	AddItemToCart(ctx context.Context, customerID string, item models.CartItem, quantity uint64) error
	UpdateCartItemQuantity(ctx context.Context, customerID string, productID, quantity uint64)
	RemoveItemFromCart(ctx context.Context, customerID string, productID uint64)
	ClearCart(ctx context.Context, customerID string)
	SubscribeToCart(ctx context.Context, customerID string, fn cart.Subscriber) func()

	Checkout(ctx context.Context, identity *models.Identity, method enum.PaymentType, check *checkout.CheckDeposit) (*checkout.Outcome, error)

	ListProducts(ctx context.Context, identity *models.Identity, limit, offset uint64) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID uint64) (*models.Product, error)
	GetOrder(ctx context.Context, orderID uint64) (*models.Order, error)
	ListOrders(ctx context.Context, customerID string, limit, offset uint64) ([]*models.Order, error)

	ProcessEvent(ctx context.Context, event *stripe.Event) error
}

type service struct {
	snapshots cart.SnapshotStore
	order     order.Repository
	product   product.Repository
	event     event.Repository

	transactionManager *driver.TransactionManager
	orchestrator       *checkout.Orchestrator
	eventManager       *EventManager
	workerPool         *WorkerPool

	logger *zap.Logger

	mu     sync.Mutex
	stores map[string]*cart.Store
}

func NewService(
	snapshots cart.SnapshotStore, orders order.Repository, products product.Repository, events event.Repository,
	tm *driver.TransactionManager,
	payments payment.SessionClient, objects storage.ObjectStore,
	natsConn *nats.Conn,
	cfg checkout.Config,
	logger *zap.Logger) Service {
	s := &service{
		snapshots:          snapshots,
		order:              orders,
		product:            products,
		event:              events,
		transactionManager: tm,
		logger:             logger,
		stores:             make(map[string]*cart.Store),
	}
	s.orchestrator = checkout.NewOrchestrator(&txOrderWriter{tm: tm, orders: orders}, payments, objects, cfg, logger)
	s.eventManager = NewEventManager(natsConn, logger)
	s.workerPool = NewWorkerPool(10, s, logger)
	s.registerEventHandlers()

	if natsConn != nil {
		if err := s.eventManager.SubscribeToEvents(s.workerPool); err != nil {
			logger.Error("Failed to subscribe to events", zap.Error(err))
		}
	}

	return s
}

// storeFor returns the customer's cart store, hydrating it from the durable
// snapshot on first use.
func (s *service) storeFor(ctx context.Context, customerID string) *cart.Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[customerID]; ok {
		return store
	}

	store := cart.NewStore(ctx, customerID, s.snapshots, s.logger)
	s.stores[customerID] = store
	return store
}

func (s *service) GetCart(ctx context.Context, customerID string) models.Cart {
	return s.storeFor(ctx, customerID).Items()
}

func (s *service) CartSummary(ctx context.Context, customerID string) (uint64, float64) {
	store := s.storeFor(ctx, customerID)
	return store.TotalQuantity(), store.TotalPrice()
}

func (s *service) AddItemToCart(ctx context.Context, customerID string, item models.CartItem, quantity uint64) error {
	return s.storeFor(ctx, customerID).AddItem(ctx, item, quantity)
}

func (s *service) UpdateCartItemQuantity(ctx context.Context, customerID string, productID, quantity uint64) {
	s.storeFor(ctx, customerID).UpdateQuantity(ctx, productID, quantity)
}

func (s *service) RemoveItemFromCart(ctx context.Context, customerID string, productID uint64) {
	s.storeFor(ctx, customerID).RemoveItem(ctx, productID)
}

func (s *service) ClearCart(ctx context.Context, customerID string) {
	s.storeFor(ctx, customerID).Clear(ctx)
}

func (s *service) SubscribeToCart(ctx context.Context, customerID string, fn cart.Subscriber) func() {
	return s.storeFor(ctx, customerID).Subscribe(fn)
}

func (s *service) Checkout(ctx context.Context, identity *models.Identity, method enum.PaymentType, check *checkout.CheckDeposit) (*checkout.Outcome, error) {
	var store *cart.Store
	if identity != nil && identity.ID != "" {
		store = s.storeFor(ctx, identity.ID)
	} else {
		// The orchestrator refuses unauthenticated submissions; hand it an
		// anonymous store so the guard fires without touching any snapshot.
		store = cart.NewStore(ctx, "", cart.NewMemorySnapshotStore(), s.logger)
	}

	return s.orchestrator.Submit(ctx, store, method, identity, check)
}

func (s *service) ListProducts(ctx context.Context, identity *models.Identity, limit, offset uint64) ([]*models.Product, error) {
	if identity != nil && identity.ID != "" {
		return s.product.ListForCustomer(ctx, nil, identity.ID, limit, offset)
	}
	return s.product.List(ctx, nil, limit, offset)
}

func (s *service) GetProduct(ctx context.Context, productID uint64) (*models.Product, error) {
	return s.product.GetByID(ctx, nil, productID)
}

func (s *service) GetOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	orderModel, err := s.order.GetOrder(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.order.ListOrderItems(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	orderModel.Items = items
	return orderModel, nil
}

func (s *service) ListOrders(ctx context.Context, customerID string, limit, offset uint64) ([]*models.Order, error) {
	orders, err := s.order.ListOrders(ctx, nil, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// txOrderWriter runs the two-phase order insert inside one transaction so a
// failed line-item write never leaves a headless order behind.
type txOrderWriter struct {
	tm     *driver.TransactionManager
	orders order.Repository
}

func (w *txOrderWriter) CreateOrder(ctx context.Context, orderModel *models.Order) error {
	if err := orderModel.Validate(); err != nil {
		return fmt.Errorf("invalid order data: %w", err)
	}

	return w.tm.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		return w.orders.CreateOrder(ctx, tx, orderModel)
	})
}
