package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maisonlune/boutique-api/internal/db"
)

// Store persists order snapshots.
type Store struct {
	db db.DBTX
}

// NewStore constructs an order store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{db: dbtx}
}

// WithTx returns a store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const orderColumns = `
	id, user_id, status, subtotal, tax, shipping_cost, discount_amount, total,
	coupon_code, coupon_discount_type, estimated_delivery_days, created_at
`

const createOrder = `
INSERT INTO orders (
	user_id, status, subtotal, tax, shipping_cost, discount_amount, total,
	coupon_code, coupon_discount_type, estimated_delivery_days
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

// CreateOrder inserts the order snapshot row.
func (s *Store) CreateOrder(ctx context.Context, o Order) (Order, error) {
	row := s.db.QueryRow(ctx, createOrder,
		o.UserID, o.Status, o.Subtotal, o.Tax, o.ShippingCost, o.DiscountAmount, o.Total,
		o.CouponCode, o.CouponDiscountType, o.EstimatedDeliveryDays,
	)
	return scanOrder(row)
}

const createItem = `
INSERT INTO order_items (order_id, product_id, name, slug, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// CreateItems inserts the snapshotted order lines.
func (s *Store) CreateItems(ctx context.Context, orderID uuid.UUID, items []Item) error {
	for _, it := range items {
		_, err := s.db.Exec(ctx, createItem,
			orderID, it.ProductID, it.Name, it.Slug, it.UnitPrice, it.Quantity, it.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

// GetOrder loads one order snapshot.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(s.db.QueryRow(ctx, getOrder, id))
}

const listItems = `
SELECT id, order_id, product_id, name, slug, unit_price, quantity, line_total
FROM order_items
WHERE order_id = $1
ORDER BY created_at
`

// ListItems returns the snapshotted lines of an order.
func (s *Store) ListItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := s.db.Query(ctx, listItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Slug,
			&it.UnitPrice, &it.Quantity, &it.LineTotal)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

const listByUser = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

// ListByUser returns a user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	rows, err := s.db.Query(ctx, listByUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.ShippingCost,
		&o.DiscountAmount, &o.Total, &o.CouponCode, &o.CouponDiscountType,
		&o.EstimatedDeliveryDays, &o.CreatedAt,
	)
	return o, err
}
