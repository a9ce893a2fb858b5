package coupon

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maisonlune/boutique-api/internal/money"
)

// DiscountType enumerates how a coupon reduces the payable amount.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
	DiscountFreeShip    DiscountType = "FREE_SHIPPING"
	DiscountBuyXGetY    DiscountType = "BUY_X_GET_Y"
)

// BuyMode qualifies BUY_X_GET_Y coupons.
type BuyMode string

const (
	BuyModeCategory        BuyMode = "CATEGORY"
	BuyModeProduct         BuyMode = "PRODUCT"
	BuyModeConditionalFree BuyMode = "CONDITIONAL_FREE"
)

// Coupon is a discount rule keyed by an upper-case code. The code is the
// coupon's identity: once usages reference it, it never changes.
type Coupon struct {
	ID                   uuid.UUID        `json:"id"`
	Code                 string           `json:"code"`
	Description          string           `json:"description,omitempty"`
	DiscountType         DiscountType     `json:"discountType"`
	DiscountValue        decimal.Decimal  `json:"discountValue"`
	BuyMode              *BuyMode         `json:"buyMode,omitempty"`
	BuyTargetID          *uuid.UUID       `json:"buyTargetId,omitempty"`
	GetTargetID          *uuid.UUID       `json:"getTargetId,omitempty"`
	BuyQuantity          int              `json:"buyQuantity,omitempty"`
	GetQuantity          int              `json:"getQuantity,omitempty"`
	MaxFreeQuantity      *int             `json:"maxFreeQuantity,omitempty"`
	IsActive             bool             `json:"isActive"`
	TotalUsageLimit      *int             `json:"totalUsageLimit,omitempty"`
	CustomerUsageLimit   int              `json:"customerUsageLimit"`
	StartAt              *time.Time       `json:"startDate,omitempty"`
	EndAt                *time.Time       `json:"endDate,omitempty"`
	MinimumAmount        *decimal.Decimal `json:"minimumAmount,omitempty"`
	ApplicableProducts   []uuid.UUID      `json:"applicableProducts,omitempty"`
	ApplicableCategories []uuid.UUID      `json:"applicableCategories,omitempty"`
	ApplicableUsers      []uuid.UUID      `json:"applicableUsers,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// Usage records one redemption tying a coupon to a user and an order.
// Rows are written at checkout completion and never mutated.
type Usage struct {
	ID       uuid.UUID  `json:"id"`
	CouponID uuid.UUID  `json:"couponId"`
	OrderID  uuid.UUID  `json:"orderId"`
	UserID   *uuid.UUID `json:"userId,omitempty"`
	UsedAt   time.Time  `json:"usedAt"`
}

// ValidateStructure checks the cross-field consistency rules enforced before
// a coupon is persisted.
func (c Coupon) ValidateStructure() error {
	if c.Code == "" {
		return errors.New("code is required")
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue.LessThanOrEqual(money.Zero) || c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New("percentage discountValue must be in (0, 100]")
		}
	case DiscountFixedAmount:
		if c.DiscountValue.LessThanOrEqual(money.Zero) {
			return errors.New("fixed amount discountValue must be positive")
		}
	case DiscountFreeShip:
	case DiscountBuyXGetY:
		if c.BuyMode == nil {
			return errors.New("buyMode is required for BUY_X_GET_Y coupons")
		}
		switch *c.BuyMode {
		case BuyModeCategory, BuyModeProduct:
			if c.BuyTargetID == nil || c.GetTargetID == nil {
				return errors.New("buyTargetId and getTargetId are required")
			}
			if *c.BuyTargetID == *c.GetTargetID {
				return errors.New("buyTargetId and getTargetId must differ")
			}
			if c.BuyQuantity <= 0 || c.GetQuantity <= 0 {
				return errors.New("buyQuantity and getQuantity must be positive")
			}
		case BuyModeConditionalFree:
			if c.GetTargetID == nil {
				return errors.New("getTargetId is required for CONDITIONAL_FREE coupons")
			}
			if c.BuyTargetID == nil && c.MinimumAmount == nil {
				return errors.New("CONDITIONAL_FREE requires buyTargetId or minimumAmount")
			}
		default:
			return errors.New("invalid buyMode")
		}
	default:
		return errors.New("invalid discountType")
	}
	if c.MaxFreeQuantity != nil && *c.MaxFreeQuantity <= 0 {
		return errors.New("maxFreeQuantity must be positive when set")
	}
	if c.TotalUsageLimit != nil && *c.TotalUsageLimit <= 0 {
		return errors.New("totalUsageLimit must be positive when set")
	}
	if c.CustomerUsageLimit < 0 {
		return errors.New("customerUsageLimit must not be negative")
	}
	if c.MinimumAmount != nil && c.MinimumAmount.IsNegative() {
		return errors.New("minimumAmount must not be negative")
	}
	if c.StartAt != nil && c.EndAt != nil && c.EndAt.Before(*c.StartAt) {
		return errors.New("endDate must not precede startDate")
	}
	return nil
}
