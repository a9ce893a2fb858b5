package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/maisonlune/boutique-api/internal/coupon"
	"github.com/maisonlune/boutique-api/internal/settings"
	"github.com/maisonlune/boutique-api/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func taxCfg(rate string, included bool) settings.Tax {
	return settings.Tax{DefaultTaxRate: dec(rate), TaxIncluded: included}
}

func shipCfg(cost string, threshold string, days int) settings.Shipping {
	cfg := settings.Shipping{DefaultShippingCost: dec(cost), EstimatedDeliveryDays: days}
	if threshold != "" {
		th := dec(threshold)
		cfg.FreeShippingThreshold = &th
	}
	return cfg
}

func requireEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(dec(want)), "want %s got %s", want, got)
}

func linesOf(prices ...string) []Line {
	var out []Line
	for _, p := range prices {
		out = append(out, Line{ProductID: uuid.New(), UnitPrice: dec(p), Quantity: 1})
	}
	return out
}

func TestComputeIncludedTax(t *testing.T) {
	q := Compute(linesOf("1000"), taxCfg("0.20", true), shipCfg("0", "", 3)).Round()
	requireEq(t, "833.33", q.Subtotal)
	requireEq(t, "166.67", q.Tax)
	requireEq(t, "0", q.ShippingCost)
	requireEq(t, "1000", q.Total)
	require.Equal(t, 3, q.EstimatedDeliveryDays)
}

func TestComputeExclusiveTax(t *testing.T) {
	q := Compute(linesOf("1000"), taxCfg("0.20", false), shipCfg("0", "", 3)).Round()
	requireEq(t, "1000", q.Subtotal)
	requireEq(t, "200", q.Tax)
	requireEq(t, "1200", q.Total)
}

func TestComputeShippingBelowThreshold(t *testing.T) {
	q := Compute(linesOf("100"), taxCfg("0.20", false), shipCfg("50", "500", 3)).Round()
	requireEq(t, "50", q.ShippingCost)
	requireEq(t, "170", q.Total)
}

func TestComputeShippingAtThreshold(t *testing.T) {
	q := Compute(linesOf("500"), taxCfg("0.20", false), shipCfg("50", "500", 3)).Round()
	requireEq(t, "0", q.ShippingCost)
	requireEq(t, "600", q.Total)
}

func TestThresholdComparesExclusiveSubtotal(t *testing.T) {
	// 600 tax-included at 20% backs out to 500, exactly at the threshold
	q := Compute(linesOf("600"), taxCfg("0.20", true), shipCfg("50", "500", 3)).Round()
	requireEq(t, "0", q.ShippingCost)
	requireEq(t, "600", q.Total)
}

func TestApplyPercentageCoupon(t *testing.T) {
	c := coupon.Coupon{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, DiscountValue: dec("10")}
	res := coupon.Result{Valid: true, Coupon: &c, DiscountAmount: dec("100")}

	q := Compute(linesOf("1000"), taxCfg("0.20", false), shipCfg("0", "", 3)).ApplyCoupon(res).Round()
	requireEq(t, "100", q.DiscountAmount)
	requireEq(t, "1100", q.Total)
	require.NotNil(t, q.CouponCode)
	require.Equal(t, "SAVE10", *q.CouponCode)
}

func TestApplyFreeShippingCoupon(t *testing.T) {
	c := coupon.Coupon{Code: "SHIPFREE", DiscountType: coupon.DiscountFreeShip}
	res := coupon.Result{Valid: true, Coupon: &c, DiscountAmount: dec("50")}

	q := Compute(linesOf("100"), taxCfg("0.20", false), shipCfg("50", "", 3)).ApplyCoupon(res).Round()
	requireEq(t, "0", q.ShippingCost)
	requireEq(t, "50", q.DiscountAmount)
	requireEq(t, "100", q.Subtotal)
	requireEq(t, "20", q.Tax)
	requireEq(t, "120", q.Total)
}

func TestApplyInvalidCouponKeepsQuote(t *testing.T) {
	res := coupon.Result{Valid: false, Reason: coupon.ReasonExpired, Message: "This coupon has expired."}

	q := Compute(linesOf("1000"), taxCfg("0.20", false), shipCfg("0", "", 3)).ApplyCoupon(res).Round()
	requireEq(t, "0", q.DiscountAmount)
	requireEq(t, "1200", q.Total)
	require.Nil(t, q.CouponCode)
	require.Equal(t, "This coupon has expired.", q.CouponMessage)
}

func TestApplyDiscountFlooredAtZero(t *testing.T) {
	c := coupon.Coupon{Code: "BIG", DiscountType: coupon.DiscountFixedAmount, DiscountValue: dec("5000")}
	res := coupon.Result{Valid: true, Coupon: &c, DiscountAmount: dec("5000")}

	q := Compute(linesOf("100"), taxCfg("0", false), shipCfg("0", "", 3)).ApplyCoupon(res).Round()
	requireEq(t, "0", q.Total)
	requireEq(t, "100", q.DiscountAmount)
}

func TestRoundedQuoteSatisfiesSumInvariant(t *testing.T) {
	cases := []struct {
		name     string
		lines    []Line
		tax      settings.Tax
		ship     settings.Shipping
		discount string
	}{
		{"included odd subtotal", linesOf("99.99", "49.95"), taxCfg("0.20", true), shipCfg("9.99", "", 3), "0"},
		{"exclusive with discount", linesOf("333.33"), taxCfg("0.0725", false), shipCfg("12.50", "", 5), "25"},
		{"free shipping threshold", linesOf("1250"), taxCfg("0.19", true), shipCfg("15", "1000", 2), "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Compute(tc.lines, tc.tax, tc.ship)
			if tc.discount != "0" {
				c := coupon.Coupon{Code: "X", DiscountType: coupon.DiscountFixedAmount, DiscountValue: dec(tc.discount)}
				q = q.ApplyCoupon(coupon.Result{Valid: true, Coupon: &c, DiscountAmount: dec(tc.discount)})
			}
			q = q.Round()
			sum := q.Subtotal.Add(q.Tax).Add(q.ShippingCost).Sub(q.DiscountAmount)
			if q.shippingWaived {
				sum = sum.Add(q.DiscountAmount)
			}
			require.True(t, q.Total.Equal(sum), "total %s != sum %s", q.Total, sum)
			require.False(t, q.Total.IsNegative())
		})
	}
}

func TestRoundIncludedTotalPreserved(t *testing.T) {
	q := Compute(linesOf("1000"), taxCfg("0.20", true), shipCfg("0", "", 3)).Round()
	requireEq(t, "1000", q.Total)
	requireEq(t, "1000", q.Subtotal.Add(q.Tax))
}

func TestComputeMatchesCartShippingBreakdown(t *testing.T) {
	for _, included := range []bool{true, false} {
		q := Compute(linesOf("250", "99.50"), taxCfg("0.20", included), shipCfg("12.50", "", 3))
		bd := tax.ForCartWithShipping(dec("349.50"), q.ShippingCost, dec("0.20"), included)
		require.True(t, q.Subtotal.Equal(bd.Subtotal), "included=%v", included)
		require.True(t, q.Tax.Equal(bd.Tax), "included=%v", included)
		require.True(t, q.Total.Equal(bd.Total), "included=%v", included)
	}
}

func TestOrderSnapshotKeepsCouponType(t *testing.T) {
	c := coupon.Coupon{Code: "SHIPFREE", DiscountType: coupon.DiscountFreeShip}
	res := coupon.Result{Valid: true, Coupon: &c, DiscountAmount: dec("50")}

	q := Compute(linesOf("100"), taxCfg("0.20", false), shipCfg("50", "", 3)).ApplyCoupon(res).Round()
	o := orderSnapshot(q, nil)
	require.NotNil(t, o.CouponCode)
	require.Equal(t, "SHIPFREE", *o.CouponCode)
	require.NotNil(t, o.CouponDiscountType)
	require.Equal(t, coupon.DiscountFreeShip, *o.CouponDiscountType)
	requireEq(t, "50", o.DiscountAmount)
	requireEq(t, "0", o.ShippingCost)
}

func TestOrderSnapshotInvalidCouponLeavesTypeUnset(t *testing.T) {
	res := coupon.Result{Valid: false, Reason: coupon.ReasonExpired, Message: "This coupon has expired."}

	q := Compute(linesOf("100"), taxCfg("0.20", false), shipCfg("0", "", 3)).ApplyCoupon(res).Round()
	o := orderSnapshot(q, nil)
	require.Nil(t, o.CouponCode)
	require.Nil(t, o.CouponDiscountType)
}

func TestCouponInputCarriesLines(t *testing.T) {
	cat := uuid.New()
	lines := []Line{{ProductID: uuid.New(), CategoryID: &cat, UnitPrice: dec("80"), Quantity: 2}}
	in := CouponInput(lines, dec("160"), dec("10"), nil)
	requireEq(t, "160", in.Subtotal)
	requireEq(t, "10", in.ShippingCost)
	require.Len(t, in.Items, 1)
	require.Equal(t, 2, in.Items[0].Quantity)
	require.Equal(t, &cat, in.Items[0].CategoryID)
}
