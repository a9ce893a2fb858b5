package tax

import (
	"github.com/shopspring/decimal"

	"github.com/maisonlune/boutique-api/internal/money"
)

var one = decimal.NewFromInt(1)

// Breakdown holds the tax-exclusive subtotal, the tax component and the
// payable total for a cart.
type Breakdown struct {
	Subtotal money.Money `json:"subtotal"`
	Tax      money.Money `json:"tax"`
	Total    money.Money `json:"total"`
}

// PriceWithoutTax backs the tax component out of a tax-included price.
func PriceWithoutTax(priceWithTax, rate money.Money) money.Money {
	return priceWithTax.Div(one.Add(rate))
}

// PriceWithTax adds the tax component to a tax-exclusive price.
func PriceWithTax(priceWithoutTax, rate money.Money) money.Money {
	return priceWithoutTax.Mul(one.Add(rate))
}

// Amount returns the tax portion of a price. When included is true the price
// already carries the tax and the portion is backed out; otherwise the tax is
// added on top.
func Amount(price, rate money.Money, included bool) money.Money {
	if included {
		return price.Sub(PriceWithoutTax(price, rate))
	}
	return price.Mul(rate)
}

// ForCart computes the breakdown for a cart subtotal. In included mode the
// input is treated as tax-included and the exclusive subtotal is backed out
// so that Subtotal + Tax equals the original amount.
func ForCart(subtotal, rate money.Money, included bool) Breakdown {
	if included {
		exclusive := PriceWithoutTax(subtotal, rate)
		return Breakdown{
			Subtotal: exclusive,
			Tax:      subtotal.Sub(exclusive),
			Total:    subtotal,
		}
	}
	taxAmount := subtotal.Mul(rate)
	return Breakdown{
		Subtotal: subtotal,
		Tax:      taxAmount,
		Total:    subtotal.Add(taxAmount),
	}
}

// ForCartWithShipping folds a shipping cost into the cart breakdown. Shipping
// is a separate additive cost: it never participates in the included-tax
// back-calculation, but the total always sums exclusive subtotal, tax and
// shipping.
func ForCartWithShipping(subtotal, shipping, rate money.Money, included bool) Breakdown {
	bd := ForCart(subtotal, rate, included)
	bd.Total = bd.Total.Add(shipping)
	return bd
}
