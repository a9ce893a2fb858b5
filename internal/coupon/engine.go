package coupon

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maisonlune/boutique-api/internal/money"
)

// Reason identifies why a coupon failed validation. Reasons are stable
// machine-readable codes; Message carries the user-facing text.
type Reason string

const (
	ReasonCodeNotFound         Reason = "CODE_NOT_FOUND"
	ReasonInactive             Reason = "INACTIVE"
	ReasonNotYetValid          Reason = "NOT_YET_VALID"
	ReasonExpired              Reason = "EXPIRED"
	ReasonBelowMinimum         Reason = "BELOW_MINIMUM"
	ReasonUsageLimitReached    Reason = "USAGE_LIMIT_REACHED"
	ReasonNotApplicableToCart  Reason = "NOT_APPLICABLE_TO_CART"
	ReasonNotApplicableToUser  Reason = "NOT_APPLICABLE_TO_USER"
	ReasonCustomerLimitReached Reason = "CUSTOMER_LIMIT_REACHED"
)

var reasonMessages = map[Reason]string{
	ReasonCodeNotFound:         "This coupon code does not exist.",
	ReasonInactive:             "This coupon is no longer active.",
	ReasonNotYetValid:          "This coupon is not valid yet.",
	ReasonExpired:              "This coupon has expired.",
	ReasonBelowMinimum:         "Your cart total does not meet the coupon minimum.",
	ReasonUsageLimitReached:    "This coupon has reached its usage limit.",
	ReasonNotApplicableToCart:  "This coupon does not apply to the items in your cart.",
	ReasonNotApplicableToUser:  "This coupon is not available for your account.",
	ReasonCustomerLimitReached: "You have already used this coupon.",
}

// Message returns the user-facing text for a reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "This coupon cannot be applied."
}

// ValidationError is a recoverable, user-facing rejection. Checkout proceeds
// without the coupon when one is returned.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return e.Reason.Message()
}

// Item is one cart line evaluated against a coupon rule.
type Item struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	UnitPrice  money.Money
	Quantity   int
}

// Input carries the cart context for one validation pass. TotalUsed and
// CustomerUsed are usage counts resolved by the service before Check runs.
type Input struct {
	Subtotal     money.Money
	ShippingCost money.Money
	Items        []Item
	UserID       *uuid.UUID
	Now          time.Time
	TotalUsed    int
	CustomerUsed int
}

var hundred = decimal.NewFromInt(100)

// Check runs the validation chain in order, short-circuiting on the first
// failure. Code lookup (step 1) happens in the service; the remaining steps
// live here so they are testable without storage.
func Check(c Coupon, in Input) *ValidationError {
	if !c.IsActive {
		return &ValidationError{Reason: ReasonInactive}
	}
	if c.StartAt != nil && in.Now.Before(*c.StartAt) {
		return &ValidationError{Reason: ReasonNotYetValid}
	}
	if c.EndAt != nil && in.Now.After(*c.EndAt) {
		return &ValidationError{Reason: ReasonExpired}
	}
	if c.MinimumAmount != nil && in.Subtotal.LessThan(*c.MinimumAmount) {
		return &ValidationError{Reason: ReasonBelowMinimum}
	}
	if c.TotalUsageLimit != nil && in.TotalUsed >= *c.TotalUsageLimit {
		return &ValidationError{Reason: ReasonUsageLimitReached}
	}
	if scoped(c) && !anyItemInScope(c, in.Items) {
		return &ValidationError{Reason: ReasonNotApplicableToCart}
	}
	if len(c.ApplicableUsers) > 0 {
		if in.UserID == nil || !containsUUID(c.ApplicableUsers, *in.UserID) {
			return &ValidationError{Reason: ReasonNotApplicableToUser}
		}
	}
	if c.CustomerUsageLimit > 0 && in.UserID != nil && in.CustomerUsed >= c.CustomerUsageLimit {
		return &ValidationError{Reason: ReasonCustomerLimitReached}
	}
	return nil
}

// Discount computes the discount amount for a coupon that passed Check.
func Discount(c Coupon, in Input) money.Money {
	switch c.DiscountType {
	case DiscountPercentage:
		d := in.Subtotal.Mul(c.DiscountValue).Div(hundred)
		return money.ClampNonNegative(money.Min(d, in.Subtotal))
	case DiscountFixedAmount:
		return money.ClampNonNegative(money.Min(c.DiscountValue, in.Subtotal))
	case DiscountFreeShip:
		return money.ClampNonNegative(in.ShippingCost)
	case DiscountBuyXGetY:
		return buyXGetY(c, in)
	}
	return money.Zero
}

func scoped(c Coupon) bool {
	return len(c.ApplicableProducts) > 0 || len(c.ApplicableCategories) > 0
}

func anyItemInScope(c Coupon, items []Item) bool {
	for _, it := range items {
		if containsUUID(c.ApplicableProducts, it.ProductID) {
			return true
		}
		if it.CategoryID != nil && containsUUID(c.ApplicableCategories, *it.CategoryID) {
			return true
		}
	}
	return false
}

func containsUUID(set []uuid.UUID, id uuid.UUID) bool {
	for _, el := range set {
		if el == id {
			return true
		}
	}
	return false
}

func buyXGetY(c Coupon, in Input) money.Money {
	if c.BuyMode == nil {
		return money.Zero
	}
	if *c.BuyMode == BuyModeConditionalFree {
		return conditionalFree(c, in)
	}
	if c.BuyTargetID == nil || c.GetTargetID == nil || c.BuyQuantity <= 0 || c.GetQuantity <= 0 {
		return money.Zero
	}
	byProduct := *c.BuyMode == BuyModeProduct
	var bought int
	var candidates []money.Money
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			continue
		}
		if matchesTarget(it, *c.BuyTargetID, byProduct) {
			bought += it.Quantity
		}
		if matchesTarget(it, *c.GetTargetID, byProduct) {
			for i := 0; i < it.Quantity; i++ {
				candidates = append(candidates, it.UnitPrice)
			}
		}
	}
	triggers := bought / c.BuyQuantity
	if triggers <= 0 || len(candidates) == 0 {
		return money.Zero
	}
	allowed := triggers * c.GetQuantity
	if c.MaxFreeQuantity != nil && allowed > *c.MaxFreeQuantity {
		allowed = *c.MaxFreeQuantity
	}
	return sumCheapest(candidates, allowed)
}

func conditionalFree(c Coupon, in Input) money.Money {
	if c.GetTargetID == nil {
		return money.Zero
	}
	qualifies := false
	if c.BuyTargetID != nil {
		for _, it := range in.Items {
			if matchesEither(it, *c.BuyTargetID) {
				qualifies = true
				break
			}
		}
	}
	if !qualifies && c.MinimumAmount != nil && in.Subtotal.GreaterThanOrEqual(*c.MinimumAmount) {
		qualifies = true
	}
	if !qualifies {
		return money.Zero
	}
	var candidates []money.Money
	for _, it := range in.Items {
		if it.Quantity <= 0 || !matchesEither(it, *c.GetTargetID) {
			continue
		}
		for i := 0; i < it.Quantity; i++ {
			candidates = append(candidates, it.UnitPrice)
		}
	}
	allowed := len(candidates)
	if c.MaxFreeQuantity != nil && *c.MaxFreeQuantity < allowed {
		allowed = *c.MaxFreeQuantity
	}
	return sumCheapest(candidates, allowed)
}

func matchesTarget(it Item, target uuid.UUID, byProduct bool) bool {
	if byProduct {
		return it.ProductID == target
	}
	return it.CategoryID != nil && *it.CategoryID == target
}

func matchesEither(it Item, target uuid.UUID) bool {
	return it.ProductID == target || (it.CategoryID != nil && *it.CategoryID == target)
}

// sumCheapest frees the cheapest eligible units first so the discount is
// bounded deterministically when more units qualify than the allowance.
func sumCheapest(prices []money.Money, allowed int) money.Money {
	if allowed <= 0 || len(prices) == 0 {
		return money.Zero
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	if allowed > len(prices) {
		allowed = len(prices)
	}
	total := money.Zero
	for _, p := range prices[:allowed] {
		total = total.Add(p)
	}
	return money.ClampNonNegative(total)
}
