package shipping

import (
	"github.com/maisonlune/boutique-api/internal/money"
	"github.com/maisonlune/boutique-api/internal/settings"
)

// Cost returns the shipping charge for a cart subtotal. The threshold, when
// configured, waives shipping at or above it; the subtotal is expected to be
// tax-exclusive so the free-shipping boundary does not move with the tax mode.
func Cost(subtotal money.Money, cfg settings.Shipping) money.Money {
	if cfg.FreeShippingThreshold != nil && subtotal.GreaterThanOrEqual(*cfg.FreeShippingThreshold) {
		return money.Zero
	}
	return money.ClampNonNegative(cfg.DefaultShippingCost)
}
