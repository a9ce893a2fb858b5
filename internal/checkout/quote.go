package checkout

import (
	"github.com/google/uuid"

	"github.com/maisonlune/boutique-api/internal/coupon"
	"github.com/maisonlune/boutique-api/internal/money"
	"github.com/maisonlune/boutique-api/internal/settings"
	"github.com/maisonlune/boutique-api/internal/shipping"
	"github.com/maisonlune/boutique-api/internal/tax"
)

// Line is one priced checkout line.
type Line struct {
	ProductID  uuid.UUID   `json:"productId"`
	CategoryID *uuid.UUID  `json:"categoryId,omitempty"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	UnitPrice  money.Money `json:"unitPrice"`
	Quantity   int         `json:"quantity"`
}

// Quote is the aggregated pricing result. Figures stay at full precision
// until Round, which materialises them for a response or an order snapshot.
type Quote struct {
	Subtotal              money.Money          `json:"subtotal"`
	Tax                   money.Money          `json:"tax"`
	ShippingCost          money.Money          `json:"shippingCost"`
	DiscountAmount        money.Money          `json:"discountAmount"`
	Total                 money.Money          `json:"total"`
	CouponCode            *string              `json:"couponCode,omitempty"`
	CouponDiscountType    *coupon.DiscountType `json:"couponDiscountType,omitempty"`
	CouponMessage         string               `json:"couponMessage,omitempty"`
	EstimatedDeliveryDays int                  `json:"estimatedDeliveryDays"`

	shippingWaived bool
}

// Subtotal sums the lines as entered, before any tax back-calculation.
// Coupon minimums and percentages evaluate against this figure because it is
// the amount the customer sees.
func Subtotal(lines []Line) money.Money {
	raw := money.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		raw = raw.Add(l.UnitPrice.Mul(money.FromInt(int64(l.Quantity))))
	}
	return raw
}

// Compute aggregates lines into a quote: raw subtotal, tax breakdown with the
// exclusive subtotal backed out in included mode, shipping against the
// exclusive subtotal, no coupon yet.
func Compute(lines []Line, taxCfg settings.Tax, shipCfg settings.Shipping) Quote {
	raw := Subtotal(lines)
	exclusive := raw
	if taxCfg.TaxIncluded {
		exclusive = tax.PriceWithoutTax(raw, taxCfg.DefaultTaxRate)
	}
	shippingCost := shipping.Cost(exclusive, shipCfg)
	bd := tax.ForCartWithShipping(raw, shippingCost, taxCfg.DefaultTaxRate, taxCfg.TaxIncluded)
	return Quote{
		Subtotal:              bd.Subtotal,
		Tax:                   bd.Tax,
		ShippingCost:          shippingCost,
		DiscountAmount:        money.Zero,
		Total:                 bd.Total,
		EstimatedDeliveryDays: shipCfg.EstimatedDeliveryDays,
	}
}

// ApplyCoupon folds a validation result into the quote. Invalid results only
// attach the user-facing message; checkout proceeds without the discount.
// FREE_SHIPPING waives the shipping charge and reports it as the discount;
// other types reduce the total, floored at zero.
func (q Quote) ApplyCoupon(res coupon.Result) Quote {
	if res.Coupon != nil {
		q.CouponCode = &res.Coupon.Code
		t := res.Coupon.DiscountType
		q.CouponDiscountType = &t
	}
	if !res.Valid {
		q.CouponMessage = res.Message
		q.CouponCode = nil
		q.CouponDiscountType = nil
		return q
	}
	if res.Coupon.DiscountType == coupon.DiscountFreeShip {
		q.DiscountAmount = q.ShippingCost
		q.Total = q.Total.Sub(q.ShippingCost)
		q.ShippingCost = money.Zero
		q.shippingWaived = true
		return q
	}
	applied := money.Min(money.ClampNonNegative(res.DiscountAmount), q.Total)
	q.DiscountAmount = applied
	q.Total = q.Total.Sub(applied)
	return q
}

// Round materialises the quote at currency precision. Each figure rounds
// once; tax is then recomputed from the rounded figures so that
// total == subtotal + tax + shippingCost - discount holds exactly. A waived
// shipping charge is reported as the discount but no longer participates in
// the sum, so it is excluded from the recomputation.
func (q Quote) Round() Quote {
	q.Subtotal = money.RoundCurrency(q.Subtotal)
	q.ShippingCost = money.RoundCurrency(q.ShippingCost)
	q.DiscountAmount = money.RoundCurrency(q.DiscountAmount)
	q.Total = money.RoundCurrency(money.ClampNonNegative(q.Total))

	applied := q.DiscountAmount
	if q.shippingWaived {
		applied = money.Zero
	}
	q.Tax = q.Total.Sub(q.Subtotal).Sub(q.ShippingCost).Add(applied)
	return q
}

// CouponInput builds the coupon engine context for a set of checkout lines.
func CouponInput(lines []Line, subtotal, shippingCost money.Money, userID *uuid.UUID) coupon.Input {
	in := coupon.Input{
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		UserID:       userID,
	}
	for _, l := range lines {
		in.Items = append(in.Items, coupon.Item{
			ProductID:  l.ProductID,
			CategoryID: l.CategoryID,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
		})
	}
	return in
}
