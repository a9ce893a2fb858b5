package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maisonlune/boutique-api/internal/db"
	"github.com/maisonlune/boutique-api/internal/money"
)

// Store persists products and categories.
type Store struct {
	db db.DBTX
}

// NewStore constructs a catalog store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{db: dbtx}
}

const productColumns = `
	id, name, slug, description, price, category_id, is_active, created_at, updated_at
`

const getProductByID = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`

// GetProductByID loads a single product.
func (s *Store) GetProductByID(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(s.db.QueryRow(ctx, getProductByID, id))
}

const getProductBySlug = `
SELECT ` + productColumns + `
FROM products
WHERE slug = $1
`

// GetProductBySlug loads a single product by its URL slug.
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	return scanProduct(s.db.QueryRow(ctx, getProductBySlug, slug))
}

const listProductsByIDs = `
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1)
`

// ListProductsByIDs loads the given products in one round trip. Missing ids
// are simply absent from the result.
func (s *Store) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, listProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

const listProducts = `
SELECT ` + productColumns + `
FROM products
WHERE is_active
ORDER BY name
LIMIT $1 OFFSET $2
`

// ListProducts returns active products ordered by name.
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := s.db.Query(ctx, listProducts, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

const countProducts = `
SELECT count(*) FROM products WHERE is_active
`

// CountProducts returns the number of active products.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, countProducts).Scan(&n)
	return n, err
}

const updateProductPrice = `
UPDATE products
SET price = $2, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

// UpdateProductPrice sets a product's catalog price.
func (s *Store) UpdateProductPrice(ctx context.Context, id uuid.UUID, price money.Money) (Product, error) {
	return scanProduct(s.db.QueryRow(ctx, updateProductPrice, id, price))
}

const listCategories = `
SELECT id, name, slug FROM categories ORDER BY name
`

// ListCategories returns all categories.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price,
		&p.CategoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var p Product
		err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price,
			&p.CategoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
