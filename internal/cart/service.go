package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/maisonlune/boutique-api/internal/catalog"
	"github.com/maisonlune/boutique-api/internal/common"
	"github.com/maisonlune/boutique-api/internal/coupon"
	"github.com/maisonlune/boutique-api/internal/money"
)

// ErrCartNotFound is returned when a cart is missing or expired.
var ErrCartNotFound = common.NewAppError("CART_NOT_FOUND", "cart not found", 404, nil)

// ErrItemNotFound is returned when a cart line does not exist.
var ErrItemNotFound = common.NewAppError("ITEM_NOT_FOUND", "cart item not found", 404, nil)

// ErrProductUnavailable is returned when a product cannot be added to a cart.
var ErrProductUnavailable = common.NewAppError("PRODUCT_UNAVAILABLE", "product not available", 422, nil)

// Service owns cart mutations. Every mutation touches the cart's TTL so
// active carts stay alive.
type Service struct {
	Store   *Store
	Catalog *catalog.Service
	Coupons *coupon.Service
	TTL     time.Duration
	Logger  zerolog.Logger
}

func (s *Service) expiry() time.Time {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return time.Now().Add(ttl)
}

// Ensure returns the user's live cart, creating one when none exists.
// Anonymous callers always get a fresh cart.
func (s *Service) Ensure(ctx context.Context, userID *uuid.UUID) (Cart, error) {
	if userID != nil {
		c, err := s.Store.GetCartByUser(ctx, *userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, err
		}
	}
	return s.Store.CreateCart(ctx, userID, s.expiry())
}

// Get loads a cart with its priced items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	c, err := s.Store.GetCart(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrCartNotFound
		}
		return View{}, err
	}
	items, err := s.Store.ListItems(ctx, id)
	if err != nil {
		return View{}, err
	}
	return View{Cart: c, Items: items, Subtotal: subtotal(items)}, nil
}

// AddItem snapshots the product's name and slug onto a new line and extends
// the cart TTL.
func (s *Service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (View, error) {
	if quantity <= 0 {
		return View{}, common.NewAppError("BAD_REQUEST", "quantity must be positive", 400, nil)
	}
	if _, err := s.Store.GetCart(ctx, cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrCartNotFound
		}
		return View{}, err
	}
	priced, err := s.Catalog.PriceProducts(ctx, []uuid.UUID{productID})
	if err != nil {
		return View{}, err
	}
	p, ok := priced[productID]
	if !ok || !p.IsActive {
		return View{}, ErrProductUnavailable
	}
	if err := s.Store.UpsertItem(ctx, cartID, productID, p.Name, p.Slug, quantity); err != nil {
		return View{}, err
	}
	return s.finishMutation(ctx, cartID)
}

// UpdateQuantity sets a line quantity; zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (View, error) {
	if quantity < 0 {
		return View{}, common.NewAppError("BAD_REQUEST", "quantity must not be negative", 400, nil)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, cartID, productID)
	}
	found, err := s.Store.UpdateItemQuantity(ctx, cartID, productID, quantity)
	if err != nil {
		return View{}, err
	}
	if !found {
		return View{}, ErrItemNotFound
	}
	return s.finishMutation(ctx, cartID)
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (View, error) {
	found, err := s.Store.DeleteItem(ctx, cartID, productID)
	if err != nil {
		return View{}, err
	}
	if !found {
		return View{}, ErrItemNotFound
	}
	return s.finishMutation(ctx, cartID)
}

// ApplyCoupon validates the code against the current cart contents and pins
// it when valid. The checkout transaction re-validates before redemption, so
// a pinned code is a convenience, not a reservation.
func (s *Service) ApplyCoupon(ctx context.Context, cartID uuid.UUID, code string, userID *uuid.UUID) (coupon.Result, error) {
	view, err := s.Get(ctx, cartID)
	if err != nil {
		return coupon.Result{}, err
	}
	in := CouponInput(view, userID)
	res, err := s.Coupons.Validate(ctx, code, in)
	if err != nil {
		return coupon.Result{}, err
	}
	if !res.Valid {
		return res, nil
	}
	if err := s.Store.SetCoupon(ctx, cartID, &res.Coupon.Code); err != nil {
		return coupon.Result{}, err
	}
	if err := s.Store.TouchCart(ctx, cartID, s.expiry()); err != nil {
		s.Logger.Warn().Err(err).Msg("cart ttl touch failed")
	}
	return res, nil
}

// RemoveCoupon clears any pinned code.
func (s *Service) RemoveCoupon(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.Store.GetCart(ctx, cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartNotFound
		}
		return err
	}
	return s.Store.SetCoupon(ctx, cartID, nil)
}

func (s *Service) finishMutation(ctx context.Context, cartID uuid.UUID) (View, error) {
	if err := s.Store.TouchCart(ctx, cartID, s.expiry()); err != nil {
		s.Logger.Warn().Err(err).Msg("cart ttl touch failed")
	}
	return s.Get(ctx, cartID)
}

// CouponInput converts a cart view into the coupon engine's cart context.
func CouponInput(view View, userID *uuid.UUID) coupon.Input {
	in := coupon.Input{
		Subtotal: view.Subtotal,
		UserID:   userID,
	}
	if userID == nil {
		in.UserID = view.Cart.UserID
	}
	for _, it := range view.Items {
		in.Items = append(in.Items, coupon.Item{
			ProductID:  it.ProductID,
			CategoryID: it.CategoryID,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
		})
	}
	return in
}

func subtotal(items []Item) money.Money {
	total := money.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(money.FromInt(int64(it.Quantity))))
	}
	return total
}
