package product

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"gofalre.io/storefront/driver"
	"gofalre.io/storefront/models"
)

// ErrProductNotFound is returned when no product matches the lookup.
var ErrProductNotFound = errors.New("product not found")

var _ Repository = (*repository)(nil)

type Repository interface {
	List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Product, error)
	// ListForCustomer lists products with the customer's negotiated prices
	// applied where one exists, falling back to the list price.
	ListForCustomer(ctx context.Context, tx pgx.Tx, userID string, limit, offset uint64) ([]*models.Product, error)
	GetByID(ctx context.Context, tx pgx.Tx, id uint64) (*models.Product, error)
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

type queryRunner interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *repository) q(tx pgx.Tx) queryRunner {
	if tx != nil {
		return tx
	}
	return r.conn
}

func (r *repository) List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Product, error) {
	if limit == 0 {
		limit = 100
	}

	rows, err := r.q(tx).Query(ctx, `
		SELECT id, name, description, image, price, category, tags, barcode, inventory, created_at, updated_at
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *repository) ListForCustomer(ctx context.Context, tx pgx.Tx, userID string, limit, offset uint64) ([]*models.Product, error) {
	if limit == 0 {
		limit = 100
	}

	rows, err := r.q(tx).Query(ctx, `
		SELECT p.id, p.name, p.description, p.image,
		       COALESCE(upp.custom_price, p.price) AS price,
		       p.category, p.tags, p.barcode, p.inventory, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN user_product_prices upp
		       ON upp.barcode = p.barcode AND upp.user_id = $1
		ORDER BY p.name
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list products for customer",
			zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *repository) GetByID(ctx context.Context, tx pgx.Tx, id uint64) (*models.Product, error) {
	var p models.Product
	err := r.q(tx).QueryRow(ctx, `
		SELECT id, name, description, image, price, category, tags, barcode, inventory, created_at, updated_at
		FROM products
		WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price, &p.Category,
		&p.Tags, &p.Barcode, &p.Inventory, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get product", zap.Uint64("product_id", id), zap.Error(err))
		return nil, err
	}

	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]*models.Product, error) {
	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price,
			&p.Category, &p.Tags, &p.Barcode, &p.Inventory, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}

	return products, rows.Err()
}
