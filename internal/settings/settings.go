package settings

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maisonlune/boutique-api/internal/common"
	"github.com/maisonlune/boutique-api/internal/money"
)

// Storage keys for the pricing configuration blobs.
const (
	KeyTax      = "tax"
	KeyShipping = "shipping"
)

var one = decimal.NewFromInt(1)

// TaxRule narrows the tax rate for a category or a single product.
type TaxRule struct {
	Scope   string          `json:"scope" validate:"required,oneof=category product"`
	ID      uuid.UUID       `json:"id" validate:"required"`
	TaxRate decimal.Decimal `json:"taxRate"`
}

// Tax is the tax configuration blob stored under KeyTax.
type Tax struct {
	DefaultTaxRate decimal.Decimal `json:"defaultTaxRate"`
	TaxIncluded    bool            `json:"taxIncluded"`
	Rules          []TaxRule       `json:"rules,omitempty"`
}

// ShippingRule narrows shipping cost per region.
type ShippingRule struct {
	Region string          `json:"region" validate:"required"`
	Cost   decimal.Decimal `json:"cost"`
}

// Shipping is the shipping configuration blob stored under KeyShipping.
type Shipping struct {
	DefaultShippingCost   decimal.Decimal  `json:"defaultShippingCost"`
	FreeShippingThreshold *decimal.Decimal `json:"freeShippingThreshold,omitempty"`
	EstimatedDeliveryDays int              `json:"estimatedDeliveryDays" validate:"min=1"`
	Rules                 []ShippingRule   `json:"rules,omitempty"`
}

// DefaultTax returns the configuration applied when no tax row exists.
func DefaultTax() Tax {
	return Tax{
		DefaultTaxRate: decimal.NewFromFloat(0.20),
		TaxIncluded:    true,
	}
}

// DefaultShipping returns the configuration applied when no shipping row exists.
func DefaultShipping() Shipping {
	return Shipping{
		DefaultShippingCost:   money.Zero,
		EstimatedDeliveryDays: 3,
	}
}

// Validate rejects out-of-range tax configuration. Range enforcement happens
// here, at update time, never inside the calculators.
func (t Tax) Validate() error {
	if err := validRate(t.DefaultTaxRate); err != nil {
		return common.NewAppError("INVALID_SETTINGS",
			fmt.Sprintf("defaultTaxRate: %v", err), http.StatusUnprocessableEntity, err)
	}
	for i, rule := range t.Rules {
		if err := validRate(rule.TaxRate); err != nil {
			return common.NewAppError("INVALID_SETTINGS",
				fmt.Sprintf("rules[%d].taxRate: %v", i, err), http.StatusUnprocessableEntity, err)
		}
	}
	return nil
}

// Validate rejects negative costs and sub-day delivery estimates.
func (s Shipping) Validate() error {
	if s.DefaultShippingCost.IsNegative() {
		return common.NewAppError("INVALID_SETTINGS",
			"defaultShippingCost must not be negative", http.StatusUnprocessableEntity, nil)
	}
	if s.FreeShippingThreshold != nil && s.FreeShippingThreshold.IsNegative() {
		return common.NewAppError("INVALID_SETTINGS",
			"freeShippingThreshold must not be negative", http.StatusUnprocessableEntity, nil)
	}
	if s.EstimatedDeliveryDays < 1 {
		return common.NewAppError("INVALID_SETTINGS",
			"estimatedDeliveryDays must be at least 1", http.StatusUnprocessableEntity, nil)
	}
	for i, rule := range s.Rules {
		if rule.Cost.IsNegative() {
			return common.NewAppError("INVALID_SETTINGS",
				fmt.Sprintf("rules[%d].cost must not be negative", i), http.StatusUnprocessableEntity, nil)
		}
	}
	return nil
}

func validRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return fmt.Errorf("rate %s outside [0, 1]", rate)
	}
	return nil
}
