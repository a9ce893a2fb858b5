package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/maisonlune/boutique-api/internal/db"
)

// Store persists carts and cart items.
type Store struct {
	db db.DBTX
}

// NewStore constructs a cart store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{db: dbtx}
}

const cartColumns = `id, user_id, coupon_code, expires_at, created_at, updated_at`

const createCart = `
INSERT INTO carts (user_id, expires_at)
VALUES ($1, $2)
RETURNING ` + cartColumns

// CreateCart inserts an empty cart.
func (s *Store) CreateCart(ctx context.Context, userID *uuid.UUID, expiresAt time.Time) (Cart, error) {
	return scanCart(s.db.QueryRow(ctx, createCart, userID, expiresAt))
}

const getCart = `
SELECT ` + cartColumns + `
FROM carts
WHERE id = $1 AND expires_at > now()
`

// GetCart loads a live cart. Expired carts behave as missing.
func (s *Store) GetCart(ctx context.Context, id uuid.UUID) (Cart, error) {
	return scanCart(s.db.QueryRow(ctx, getCart, id))
}

const getCartByUser = `
SELECT ` + cartColumns + `
FROM carts
WHERE user_id = $1 AND expires_at > now()
ORDER BY updated_at DESC
LIMIT 1
`

// GetCartByUser loads the newest live cart for a user.
func (s *Store) GetCartByUser(ctx context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(s.db.QueryRow(ctx, getCartByUser, userID))
}

const touchCart = `
UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1
`

// TouchCart extends a cart's lifetime after a mutation.
func (s *Store) TouchCart(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := s.db.Exec(ctx, touchCart, id, expiresAt)
	return err
}

const setCoupon = `
UPDATE carts SET coupon_code = $2, updated_at = now() WHERE id = $1
`

// SetCoupon pins or clears the coupon code on a cart.
func (s *Store) SetCoupon(ctx context.Context, id uuid.UUID, code *string) error {
	_, err := s.db.Exec(ctx, setCoupon, id, code)
	return err
}

const upsertItem = `
INSERT INTO cart_items (cart_id, product_id, name, slug, quantity)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cart_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
`

// UpsertItem adds quantity to a line, creating it on first add.
func (s *Store) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, name, slug string, quantity int) error {
	_, err := s.db.Exec(ctx, upsertItem, cartID, productID, name, slug, quantity)
	return err
}

const updateItemQuantity = `
UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2
`

// UpdateItemQuantity sets a line's quantity. It reports whether the line existed.
func (s *Store) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (bool, error) {
	tag, err := s.db.Exec(ctx, updateItemQuantity, cartID, productID, quantity)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const deleteItem = `
DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2
`

// DeleteItem removes a line. It reports whether the line existed.
func (s *Store) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, deleteItem, cartID, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const listItems = `
SELECT ci.id, ci.product_id, p.category_id, ci.name, ci.slug, p.price, ci.quantity
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at
`

// ListItems returns cart lines with unit prices joined live from the catalog.
func (s *Store) ListItems(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := s.db.Query(ctx, listItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		err := rows.Scan(&it.ID, &it.ProductID, &it.CategoryID, &it.Name, &it.Slug, &it.UnitPrice, &it.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanCart(row interface{ Scan(dest ...any) error }) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.CouponCode, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
