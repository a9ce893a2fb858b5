package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/maisonlune/boutique-api/internal/cart"
	"github.com/maisonlune/boutique-api/internal/catalog"
	"github.com/maisonlune/boutique-api/internal/common"
	"github.com/maisonlune/boutique-api/internal/coupon"
	"github.com/maisonlune/boutique-api/internal/money"
	"github.com/maisonlune/boutique-api/internal/obs"
	"github.com/maisonlune/boutique-api/internal/order"
	"github.com/maisonlune/boutique-api/internal/settings"
)

// ErrEmptyCart is returned when checkout runs against a cart with no items.
var ErrEmptyCart = common.NewAppError("EMPTY_CART", "cart has no items", 422, nil)

// ErrOrderNotFound is returned when a retry targets a missing order.
var ErrOrderNotFound = common.NewAppError("NOT_FOUND", "order not found", 404, nil)

// Service aggregates tax, shipping and coupon results into quotes and turns
// committed quotes into immutable order snapshots.
type Service struct {
	Pool        *pgxpool.Pool
	Carts       *cart.Service
	Catalog     *catalog.Service
	Coupons     *coupon.Service
	CouponStore *coupon.Store
	Settings    *settings.Service
	Orders      *order.Store
	Logger      zerolog.Logger
	Metrics     *obs.DomainMetrics
}

// Request identifies the cart to price and an optional coupon override. When
// Code is empty the cart's pinned coupon, if any, applies.
type Request struct {
	CartID uuid.UUID
	UserID *uuid.UUID
	Code   string
}

// Quote prices a cart without committing anything. The coupon, when present,
// is validated read-only.
func (s *Service) Quote(ctx context.Context, req Request) (Quote, error) {
	lines, code, userID, err := s.loadCart(ctx, req)
	if err != nil {
		return Quote{}, err
	}
	taxCfg, shipCfg, err := s.loadSettings(ctx)
	if err != nil {
		return Quote{}, err
	}
	q := Compute(lines, taxCfg, shipCfg)
	if code != "" {
		in := CouponInput(lines, Subtotal(lines), q.ShippingCost, userID)
		res, err := s.Coupons.Validate(ctx, code, in)
		if err != nil {
			return Quote{}, err
		}
		q = q.ApplyCoupon(res)
	}
	return q.Round(), nil
}

// Create prices the cart and persists the result as an order in one
// transaction. The coupon is re-validated under a row lock inside the same
// transaction as the usage insert, so limits cannot be oversold.
func (s *Service) Create(ctx context.Context, req Request) (order.View, error) {
	start := time.Now()
	lines, code, userID, err := s.loadCart(ctx, req)
	if err != nil {
		return order.View{}, err
	}
	taxCfg, shipCfg, err := s.loadSettings(ctx)
	if err != nil {
		return order.View{}, err
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return order.View{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := Compute(lines, taxCfg, shipCfg)
	var couponRes coupon.Result
	if code != "" {
		in := CouponInput(lines, Subtotal(lines), q.ShippingCost, userID)
		couponRes, err = s.Coupons.ValidateLocked(ctx, s.CouponStore.WithTx(tx), code, in)
		if err != nil {
			return order.View{}, err
		}
		q = q.ApplyCoupon(couponRes)
	}
	q = q.Round()

	created, err := s.Orders.WithTx(tx).CreateOrder(ctx, orderSnapshot(q, userID))
	if err != nil {
		return order.View{}, err
	}
	items := snapshotItems(lines)
	if err := s.Orders.WithTx(tx).CreateItems(ctx, created.ID, items); err != nil {
		return order.View{}, err
	}
	if couponRes.Valid {
		err = s.CouponStore.WithTx(tx).InsertUsage(ctx, coupon.InsertUsageParams{
			CouponID: couponRes.Coupon.ID,
			OrderID:  created.ID,
			UserID:   userID,
		})
		if err != nil {
			return order.View{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return order.View{}, err
	}

	if err := s.Carts.RemoveCoupon(ctx, req.CartID); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
		s.Logger.Warn().Err(err).Msg("clearing cart coupon after checkout failed")
	}
	if s.Metrics != nil {
		s.Metrics.OrdersCreated.Inc()
		s.Metrics.CheckoutDur.Observe(obs.DurationMillis(time.Since(start)))
	}
	for i := range items {
		items[i].OrderID = created.ID
	}
	return order.View{Order: created, Items: items}, nil
}

// RetryQuote re-prices a stored order's lines against the current catalog and
// settings and returns a fresh quote. The stored snapshot never changes.
func (s *Service) RetryQuote(ctx context.Context, orderID uuid.UUID) (Quote, error) {
	stored, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, ErrOrderNotFound
		}
		return Quote{}, err
	}
	storedItems, err := s.Orders.ListItems(ctx, orderID)
	if err != nil {
		return Quote{}, err
	}
	if len(storedItems) == 0 {
		return Quote{}, ErrEmptyCart
	}

	ids := make([]uuid.UUID, 0, len(storedItems))
	for _, it := range storedItems {
		ids = append(ids, it.ProductID)
	}
	current, err := s.Catalog.PriceProducts(ctx, ids)
	if err != nil {
		return Quote{}, err
	}
	lines := make([]Line, 0, len(storedItems))
	for _, it := range storedItems {
		line := Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			Slug:      it.Slug,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
		// delisted products keep their snapshot price
		if p, ok := current[it.ProductID]; ok {
			line.UnitPrice = p.Price
			line.CategoryID = p.CategoryID
		}
		lines = append(lines, line)
	}

	taxCfg, shipCfg, err := s.loadSettings(ctx)
	if err != nil {
		return Quote{}, err
	}
	q := Compute(lines, taxCfg, shipCfg)
	if stored.CouponCode != nil {
		in := CouponInput(lines, Subtotal(lines), q.ShippingCost, stored.UserID)
		res, err := s.Coupons.Validate(ctx, *stored.CouponCode, in)
		if err != nil {
			return Quote{}, err
		}
		q = q.ApplyCoupon(res)
	}
	return q.Round(), nil
}

func (s *Service) loadCart(ctx context.Context, req Request) ([]Line, string, *uuid.UUID, error) {
	view, err := s.Carts.Get(ctx, req.CartID)
	if err != nil {
		return nil, "", nil, err
	}
	if len(view.Items) == 0 {
		return nil, "", nil, ErrEmptyCart
	}
	lines := make([]Line, 0, len(view.Items))
	for _, it := range view.Items {
		lines = append(lines, Line{
			ProductID:  it.ProductID,
			CategoryID: it.CategoryID,
			Name:       it.Name,
			Slug:       it.Slug,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
		})
	}
	code := strings.TrimSpace(req.Code)
	if code == "" && view.Cart.CouponCode != nil {
		code = *view.Cart.CouponCode
	}
	userID := req.UserID
	if userID == nil {
		userID = view.Cart.UserID
	}
	return lines, code, userID, nil
}

func (s *Service) loadSettings(ctx context.Context) (settings.Tax, settings.Shipping, error) {
	taxCfg, err := s.Settings.Tax(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("tax settings unreadable, using defaults")
	}
	shipCfg, err := s.Settings.Shipping(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("shipping settings unreadable, using defaults")
	}
	return taxCfg, shipCfg, nil
}

// orderSnapshot maps a rounded quote onto the write-once order row. The
// coupon code and discount type are both kept so the order stays
// self-describing after the coupon itself is edited or deleted.
func orderSnapshot(q Quote, userID *uuid.UUID) order.Order {
	return order.Order{
		UserID:                userID,
		Status:                order.StatusPending,
		Subtotal:              q.Subtotal,
		Tax:                   q.Tax,
		ShippingCost:          q.ShippingCost,
		DiscountAmount:        q.DiscountAmount,
		Total:                 q.Total,
		CouponCode:            q.CouponCode,
		CouponDiscountType:    q.CouponDiscountType,
		EstimatedDeliveryDays: q.EstimatedDeliveryDays,
	}
}

func snapshotItems(lines []Line) []order.Item {
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Slug:      l.Slug,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: money.RoundCurrency(l.UnitPrice.Mul(money.FromInt(int64(l.Quantity)))),
		})
	}
	return items
}
