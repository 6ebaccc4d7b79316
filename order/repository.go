package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"gofalre.io/storefront/driver"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup.
	ErrOrderNotFound = errors.New("order not found")

	// ErrHeaderInsertFailed marks a failure writing the order header.
	ErrHeaderInsertFailed = errors.New("order header insert failed")

	// ErrItemsInsertFailed marks a failure writing the order line items after
	// the header was already written. Callers must be able to tell the two
	// phases apart.
	ErrItemsInsertFailed = errors.New("order items insert failed")
)

var _ Repository = (*repository)(nil)

type Repository interface {
	CreateOrder(ctx context.Context, tx pgx.Tx, order *models.Order) error
	GetOrder(ctx context.Context, tx pgx.Tx, orderID uint64) (*models.Order, error)
	GetOrderByPaymentIntentID(ctx context.Context, tx pgx.Tx, paymentIntentID string) (*models.Order, error)
	ListOrders(ctx context.Context, tx pgx.Tx, userID string, limit, offset uint64) ([]*models.Order, error)
	ListOrderItems(ctx context.Context, tx pgx.Tx, orderID uint64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, tx pgx.Tx, orderID uint64, status enum.OrderStatus) error
	SetPaymentIntentID(ctx context.Context, tx pgx.Tx, orderID uint64, paymentIntentID string) error
}

type repository struct {
	conn   driver.PostgresPool
	logger *zap.Logger
}

func NewRepository(conn driver.PostgresPool, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		logger: logger,
	}
}

// queryRunner is the subset of pgx.Tx / pgxpool.Pool the repository needs,
// so every method can run against either the pool or an open transaction.
type queryRunner interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (r *repository) q(tx pgx.Tx) queryRunner {
	if tx != nil {
		return tx
	}
	return r.conn
}

// CreateOrder writes the order header and its line items as two sequential
// inserts. Run it inside a TransactionManager transaction so a failed item
// insert does not leave a headless order behind.
func (r *repository) CreateOrder(ctx context.Context, tx pgx.Tx, order *models.Order) error {
	now := time.Now()
	err := r.q(tx).QueryRow(ctx, `
		INSERT INTO orders (user_id, status, total, payment_type, check_image_url, payment_intent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`,
		order.UserID, string(order.Status), order.Total, string(order.PaymentType),
		order.CheckImageURL, order.PaymentIntentID, now,
	).Scan(&order.ID)
	if err != nil {
		r.logger.Error("Failed to insert order header", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrHeaderInsertFailed, err)
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	batch := &pgx.Batch{}
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, name, image, unit_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.OrderID, item.ProductID, item.Name, item.Image, item.UnitPrice, item.Quantity, item.Subtotal,
		)
	}

	results := r.q(tx).SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			r.logger.Warn("Failed to close order items batch", zap.Error(err))
		}
	}()

	for range order.Items {
		if _, err := results.Exec(); err != nil {
			r.logger.Error("Failed to insert order items",
				zap.Uint64("order_id", order.ID), zap.Error(err))
			return fmt.Errorf("%w: %v", ErrItemsInsertFailed, err)
		}
	}

	return nil
}

func (r *repository) GetOrder(ctx context.Context, tx pgx.Tx, orderID uint64) (*models.Order, error) {
	return r.getOrderBy(ctx, tx, `WHERE id = $1`, orderID)
}

func (r *repository) GetOrderByPaymentIntentID(ctx context.Context, tx pgx.Tx, paymentIntentID string) (*models.Order, error) {
	return r.getOrderBy(ctx, tx, `WHERE payment_intent_id = $1`, paymentIntentID)
}

func (r *repository) getOrderBy(ctx context.Context, tx pgx.Tx, where string, arg any) (*models.Order, error) {
	var o models.Order
	err := r.q(tx).QueryRow(ctx, `
		SELECT id, user_id, status, total, payment_type, check_image_url, payment_intent_id, created_at, updated_at
		FROM orders `+where,
		arg,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.PaymentType, &o.CheckImageURL,
		&o.PaymentIntentID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get order", zap.Error(err))
		return nil, err
	}

	return &o, nil
}

func (r *repository) ListOrders(ctx context.Context, tx pgx.Tx, userID string, limit, offset uint64) ([]*models.Order, error) {
	if limit == 0 {
		limit = 50
	}

	rows, err := r.q(tx).Query(ctx, `
		SELECT id, user_id, status, total, payment_type, check_image_url, payment_intent_id, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.PaymentType,
			&o.CheckImageURL, &o.PaymentIntentID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}

	return orders, rows.Err()
}

func (r *repository) ListOrderItems(ctx context.Context, tx pgx.Tx, orderID uint64) ([]models.OrderItem, error) {
	rows, err := r.q(tx).Query(ctx, `
		SELECT id, order_id, product_id, name, image, unit_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`,
		orderID)
	if err != nil {
		r.logger.Error("Failed to list order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name,
			&item.Image, &item.UnitPrice, &item.Quantity, &item.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *repository) UpdateOrderStatus(ctx context.Context, tx pgx.Tx, orderID uint64, status enum.OrderStatus) error {
	tag, err := r.q(tx).Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status))
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *repository) SetPaymentIntentID(ctx context.Context, tx pgx.Tx, orderID uint64, paymentIntentID string) error {
	tag, err := r.q(tx).Exec(ctx, `
		UPDATE orders SET payment_intent_id = $2, updated_at = now() WHERE id = $1`,
		orderID, paymentIntentID)
	if err != nil {
		r.logger.Error("Failed to set payment intent id", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
