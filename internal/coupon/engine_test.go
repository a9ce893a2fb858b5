package coupon

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/maisonlune/boutique-api/internal/money"
)

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func activeCoupon(t DiscountType, value string) Coupon {
	return Coupon{
		ID:            uuid.New(),
		Code:          "TEST",
		DiscountType:  t,
		DiscountValue: dec(value),
		IsActive:      true,
	}
}

func TestCheckOrder(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	user := uuid.New()
	otherUser := uuid.New()
	product := uuid.New()

	tests := []struct {
		name   string
		mutate func(*Coupon, *Input)
		want   Reason
	}{
		{
			name:   "inactive",
			mutate: func(c *Coupon, _ *Input) { c.IsActive = false },
			want:   ReasonInactive,
		},
		{
			name:   "not yet valid",
			mutate: func(c *Coupon, _ *Input) { c.StartAt = ptr(now.Add(time.Hour)) },
			want:   ReasonNotYetValid,
		},
		{
			name:   "expired",
			mutate: func(c *Coupon, _ *Input) { c.EndAt = ptr(now.Add(-time.Hour)) },
			want:   ReasonExpired,
		},
		{
			name:   "below minimum",
			mutate: func(c *Coupon, _ *Input) { c.MinimumAmount = ptr(dec("500")) },
			want:   ReasonBelowMinimum,
		},
		{
			name: "total usage limit reached",
			mutate: func(c *Coupon, in *Input) {
				c.TotalUsageLimit = ptr(3)
				in.TotalUsed = 3
			},
			want: ReasonUsageLimitReached,
		},
		{
			name: "not applicable to cart",
			mutate: func(c *Coupon, _ *Input) {
				c.ApplicableProducts = []uuid.UUID{uuid.New()}
			},
			want: ReasonNotApplicableToCart,
		},
		{
			name: "not applicable to user",
			mutate: func(c *Coupon, _ *Input) {
				c.ApplicableUsers = []uuid.UUID{otherUser}
			},
			want: ReasonNotApplicableToUser,
		},
		{
			name: "customer limit reached",
			mutate: func(c *Coupon, in *Input) {
				c.CustomerUsageLimit = 1
				in.CustomerUsed = 1
			},
			want: ReasonCustomerLimitReached,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := activeCoupon(DiscountPercentage, "10")
			in := Input{
				Subtotal: dec("100"),
				Items:    []Item{{ProductID: product, UnitPrice: dec("100"), Quantity: 1}},
				UserID:   &user,
				Now:      now,
			}
			tt.mutate(&c, &in)
			err := Check(c, in)
			require.NotNil(t, err)
			require.Equal(t, tt.want, err.Reason)
			require.NotEmpty(t, err.Error())
		})
	}
}

func TestCheckShortCircuitsInChainOrder(t *testing.T) {
	// an inactive, expired coupon reports INACTIVE, not EXPIRED
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := activeCoupon(DiscountPercentage, "10")
	c.IsActive = false
	c.EndAt = ptr(now.Add(-time.Hour))

	err := Check(c, Input{Subtotal: dec("100"), Now: now})
	require.NotNil(t, err)
	require.Equal(t, ReasonInactive, err.Reason)
}

func TestCheckPassesWithinWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := activeCoupon(DiscountPercentage, "10")
	c.StartAt = ptr(now.Add(-time.Hour))
	c.EndAt = ptr(now.Add(time.Hour))
	c.MinimumAmount = ptr(dec("50"))

	require.Nil(t, Check(c, Input{Subtotal: dec("50"), Now: now}))
}

func TestCheckScopeMatchesByCategory(t *testing.T) {
	category := uuid.New()
	c := activeCoupon(DiscountPercentage, "10")
	c.ApplicableCategories = []uuid.UUID{category}

	in := Input{
		Subtotal: dec("100"),
		Items:    []Item{{ProductID: uuid.New(), CategoryID: &category, UnitPrice: dec("100"), Quantity: 1}},
		Now:      time.Now(),
	}
	require.Nil(t, Check(c, in))
}

func TestDiscountPercentage(t *testing.T) {
	c := activeCoupon(DiscountPercentage, "10")
	got := Discount(c, Input{Subtotal: dec("1000")})
	require.True(t, got.Equal(dec("100")), "got %s", got)
}

func TestDiscountPercentageFullOff(t *testing.T) {
	c := activeCoupon(DiscountPercentage, "100")
	got := Discount(c, Input{Subtotal: dec("250")})
	require.True(t, got.Equal(dec("250")), "got %s", got)
}

func TestDiscountFixedClampedToSubtotal(t *testing.T) {
	c := activeCoupon(DiscountFixedAmount, "80")
	got := Discount(c, Input{Subtotal: dec("50")})
	require.True(t, got.Equal(dec("50")), "got %s", got)
}

func TestDiscountFreeShipping(t *testing.T) {
	c := activeCoupon(DiscountFreeShip, "0")
	got := Discount(c, Input{Subtotal: dec("500"), ShippingCost: dec("50")})
	require.True(t, got.Equal(dec("50")), "got %s", got)
}

func TestDiscountBuyXGetYProductMode(t *testing.T) {
	buy := uuid.New()
	get := uuid.New()
	c := activeCoupon(DiscountBuyXGetY, "0")
	c.BuyMode = ptr(BuyModeProduct)
	c.BuyTargetID = &buy
	c.GetTargetID = &get
	c.BuyQuantity = 2
	c.GetQuantity = 1

	in := Input{
		Items: []Item{
			{ProductID: buy, UnitPrice: dec("100"), Quantity: 4},
			{ProductID: get, UnitPrice: dec("30"), Quantity: 3},
		},
	}
	// 4 bought / buy 2 = 2 triggers, 2 units of the get product freed
	got := Discount(c, in)
	require.True(t, got.Equal(dec("60")), "got %s", got)
}

func TestDiscountBuyXGetYCappedByMaxFree(t *testing.T) {
	buy := uuid.New()
	get := uuid.New()
	c := activeCoupon(DiscountBuyXGetY, "0")
	c.BuyMode = ptr(BuyModeProduct)
	c.BuyTargetID = &buy
	c.GetTargetID = &get
	c.BuyQuantity = 1
	c.GetQuantity = 1
	c.MaxFreeQuantity = ptr(1)

	in := Input{
		Items: []Item{
			{ProductID: buy, UnitPrice: dec("100"), Quantity: 5},
			{ProductID: get, UnitPrice: dec("30"), Quantity: 5},
		},
	}
	got := Discount(c, in)
	require.True(t, got.Equal(dec("30")), "got %s", got)
}

func TestDiscountBuyXGetYFreesCheapestUnitsFirst(t *testing.T) {
	buyCat := uuid.New()
	getCat := uuid.New()
	c := activeCoupon(DiscountBuyXGetY, "0")
	c.BuyMode = ptr(BuyModeCategory)
	c.BuyTargetID = &buyCat
	c.GetTargetID = &getCat
	c.BuyQuantity = 1
	c.GetQuantity = 1

	in := Input{
		Items: []Item{
			{ProductID: uuid.New(), CategoryID: &buyCat, UnitPrice: dec("200"), Quantity: 1},
			{ProductID: uuid.New(), CategoryID: &getCat, UnitPrice: dec("90"), Quantity: 1},
			{ProductID: uuid.New(), CategoryID: &getCat, UnitPrice: dec("40"), Quantity: 1},
		},
	}
	// one trigger, the cheaper eligible unit is freed
	got := Discount(c, in)
	require.True(t, got.Equal(dec("40")), "got %s", got)
}

func TestDiscountBuyXGetYNoTriggerNoDiscount(t *testing.T) {
	buy := uuid.New()
	get := uuid.New()
	c := activeCoupon(DiscountBuyXGetY, "0")
	c.BuyMode = ptr(BuyModeProduct)
	c.BuyTargetID = &buy
	c.GetTargetID = &get
	c.BuyQuantity = 3
	c.GetQuantity = 1

	in := Input{
		Items: []Item{
			{ProductID: buy, UnitPrice: dec("100"), Quantity: 2},
			{ProductID: get, UnitPrice: dec("30"), Quantity: 1},
		},
	}
	require.True(t, Discount(c, in).IsZero())
}

func TestDiscountConditionalFreeByTrigger(t *testing.T) {
	trigger := uuid.New()
	gift := uuid.New()
	c := activeCoupon(DiscountBuyXGetY, "0")
	c.BuyMode = ptr(BuyModeConditionalFree)
	c.BuyTargetID = &trigger
	c.GetTargetID = &gift
	c.MaxFreeQuantity = ptr(1)

	in := Input{
		Subtotal: dec("120"),
		Items: []Item{
			{ProductID: trigger, UnitPrice: dec("100"), Quantity: 1},
			{ProductID: gift, UnitPrice: dec("20"), Quantity: 2},
		},
	}
	got := Discount(c, in)
	require.True(t, got.Equal(dec("20")), "got %s", got)
}

func TestDiscountConditionalFreeByMinimum(t *testing.T) {
	gift := uuid.New()
	c := activeCoupon(DiscountBuyXGetY, "0")
	c.BuyMode = ptr(BuyModeConditionalFree)
	c.GetTargetID = &gift
	c.MinimumAmount = ptr(dec("100"))

	in := Input{
		Subtotal: dec("150"),
		Items: []Item{
			{ProductID: uuid.New(), UnitPrice: dec("130"), Quantity: 1},
			{ProductID: gift, UnitPrice: dec("20"), Quantity: 1},
		},
	}
	got := Discount(c, in)
	require.True(t, got.Equal(dec("20")), "got %s", got)

	in.Subtotal = dec("90")
	require.True(t, Discount(c, in).IsZero())
}

func TestDiscountNeverNegative(t *testing.T) {
	c := activeCoupon(DiscountFreeShip, "0")
	got := Discount(c, Input{Subtotal: dec("100"), ShippingCost: money.Zero})
	require.True(t, got.IsZero())
}
