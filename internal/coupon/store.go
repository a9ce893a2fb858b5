package coupon

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maisonlune/boutique-api/internal/db"
)

// Store persists coupons and usage rows.
type Store struct {
	db db.DBTX
}

// NewStore constructs a coupon store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{db: dbtx}
}

// WithTx returns a store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

const couponColumns = `
	id, code, description, discount_type, discount_value,
	buy_mode, buy_target_id, get_target_id, buy_quantity, get_quantity, max_free_quantity,
	is_active, total_usage_limit, customer_usage_limit,
	start_at, end_at, minimum_amount,
	applicable_products, applicable_categories, applicable_users,
	created_at, updated_at
`

const getCouponByCode = `
SELECT ` + couponColumns + `
FROM coupons
WHERE code = $1
`

// GetCouponByCode loads a coupon by its upper-case code.
func (s *Store) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(s.db.QueryRow(ctx, getCouponByCode, code))
}

const getCouponByCodeForUpdate = getCouponByCode + ` FOR UPDATE`

// GetCouponByCodeForUpdate loads a coupon and locks its row until the
// surrounding transaction commits.
func (s *Store) GetCouponByCodeForUpdate(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(s.db.QueryRow(ctx, getCouponByCodeForUpdate, code))
}

const countUsage = `
SELECT count(*) FROM coupon_usages WHERE coupon_id = $1
`

// CountUsage returns the total number of redemptions for a coupon.
func (s *Store) CountUsage(ctx context.Context, couponID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, countUsage, couponID).Scan(&n)
	return n, err
}

const countUsageByUser = `
SELECT count(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2
`

// CountUsageByUser returns the number of redemptions by one customer.
func (s *Store) CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, countUsageByUser, couponID, userID).Scan(&n)
	return n, err
}

const insertUsage = `
INSERT INTO coupon_usages (coupon_id, order_id, user_id)
VALUES ($1, $2, $3)
ON CONFLICT (coupon_id, order_id) DO NOTHING
`

// InsertUsage records one redemption. The (coupon, order) pair is unique so
// replays of the same checkout are idempotent.
func (s *Store) InsertUsage(ctx context.Context, arg InsertUsageParams) error {
	_, err := s.db.Exec(ctx, insertUsage, arg.CouponID, arg.OrderID, arg.UserID)
	return err
}

const createCoupon = `
INSERT INTO coupons (
	code, description, discount_type, discount_value,
	buy_mode, buy_target_id, get_target_id, buy_quantity, get_quantity, max_free_quantity,
	is_active, total_usage_limit, customer_usage_limit,
	start_at, end_at, minimum_amount,
	applicable_products, applicable_categories, applicable_users
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
RETURNING ` + couponColumns

// CreateCoupon inserts a new coupon rule.
func (s *Store) CreateCoupon(ctx context.Context, c Coupon) (Coupon, error) {
	row := s.db.QueryRow(ctx, createCoupon,
		c.Code, c.Description, c.DiscountType, c.DiscountValue,
		buyModeParam(c.BuyMode), c.BuyTargetID, c.GetTargetID,
		c.BuyQuantity, c.GetQuantity, c.MaxFreeQuantity,
		c.IsActive, c.TotalUsageLimit, c.CustomerUsageLimit,
		c.StartAt, c.EndAt, c.MinimumAmount,
		uuidsJSON(c.ApplicableProducts), uuidsJSON(c.ApplicableCategories), uuidsJSON(c.ApplicableUsers),
	)
	return scanCoupon(row)
}

const updateCoupon = `
UPDATE coupons SET
	description = $2,
	discount_type = $3,
	discount_value = $4,
	buy_mode = $5,
	buy_target_id = $6,
	get_target_id = $7,
	buy_quantity = $8,
	get_quantity = $9,
	max_free_quantity = $10,
	is_active = $11,
	total_usage_limit = $12,
	customer_usage_limit = $13,
	start_at = $14,
	end_at = $15,
	minimum_amount = $16,
	applicable_products = $17,
	applicable_categories = $18,
	applicable_users = $19,
	updated_at = now()
WHERE code = $1
RETURNING ` + couponColumns

// UpdateCoupon mutates an existing coupon identified by code. The code itself
// never changes once usages may reference it.
func (s *Store) UpdateCoupon(ctx context.Context, c Coupon) (Coupon, error) {
	row := s.db.QueryRow(ctx, updateCoupon,
		c.Code, c.Description, c.DiscountType, c.DiscountValue,
		buyModeParam(c.BuyMode), c.BuyTargetID, c.GetTargetID,
		c.BuyQuantity, c.GetQuantity, c.MaxFreeQuantity,
		c.IsActive, c.TotalUsageLimit, c.CustomerUsageLimit,
		c.StartAt, c.EndAt, c.MinimumAmount,
		uuidsJSON(c.ApplicableProducts), uuidsJSON(c.ApplicableCategories), uuidsJSON(c.ApplicableUsers),
	)
	return scanCoupon(row)
}

const deleteCoupon = `
DELETE FROM coupons WHERE code = $1
`

// DeleteCoupon removes a coupon. Usage rows survive deletion so historical
// orders keep their redemption records.
func (s *Store) DeleteCoupon(ctx context.Context, code string) (bool, error) {
	tag, err := s.db.Exec(ctx, deleteCoupon, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const listCoupons = `
SELECT ` + couponColumns + `
FROM coupons
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

// ListCoupons returns coupons ordered newest first.
func (s *Store) ListCoupons(ctx context.Context, limit, offset int) ([]Coupon, error) {
	rows, err := s.db.Query(ctx, listCoupons, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (Coupon, error) {
	var (
		c        Coupon
		buyMode  *string
		products []byte
		cats     []byte
		users    []byte
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue,
		&buyMode, &c.BuyTargetID, &c.GetTargetID, &c.BuyQuantity, &c.GetQuantity, &c.MaxFreeQuantity,
		&c.IsActive, &c.TotalUsageLimit, &c.CustomerUsageLimit,
		&c.StartAt, &c.EndAt, &c.MinimumAmount,
		&products, &cats, &users,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Coupon{}, err
	}
	if buyMode != nil {
		mode := BuyMode(*buyMode)
		c.BuyMode = &mode
	}
	if c.ApplicableProducts, err = uuidsFromJSON(products); err != nil {
		return Coupon{}, fmt.Errorf("decode applicable products: %w", err)
	}
	if c.ApplicableCategories, err = uuidsFromJSON(cats); err != nil {
		return Coupon{}, fmt.Errorf("decode applicable categories: %w", err)
	}
	if c.ApplicableUsers, err = uuidsFromJSON(users); err != nil {
		return Coupon{}, fmt.Errorf("decode applicable users: %w", err)
	}
	return c, nil
}

func buyModeParam(mode *BuyMode) *string {
	if mode == nil {
		return nil
	}
	v := string(*mode)
	return &v
}

// Applicable lists are loosely-shaped JSON at rest; the boundary decodes them
// into strongly-typed UUID slices.
func uuidsJSON(ids []uuid.UUID) []byte {
	if len(ids) == 0 {
		return nil
	}
	raw, _ := json.Marshal(ids)
	return raw
}

func uuidsFromJSON(raw []byte) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
