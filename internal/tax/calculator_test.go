package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/maisonlune/boutique-api/internal/money"
)

func TestRoundTrip(t *testing.T) {
	rates := []string{"0", "0.07", "0.20", "0.255", "1"}
	prices := []string{"0", "1", "99.99", "1000", "12345.67"}
	for _, r := range rates {
		rate := mustParse(t, r)
		for _, p := range prices {
			price := mustParse(t, p)
			back := PriceWithTax(PriceWithoutTax(price, rate), rate)
			diff := back.Sub(price).Abs()
			require.True(t, diff.LessThan(decimal.NewFromFloat(0.000001)),
				"round trip rate=%s price=%s got %s", r, p, back)
		}
	}
}

func TestForCartIncluded(t *testing.T) {
	bd := ForCart(decimal.NewFromInt(1000), mustParse(t, "0.20"), true)
	require.Equal(t, "833.33", money.RoundCurrency(bd.Subtotal).String())
	require.Equal(t, "166.67", money.RoundCurrency(bd.Tax).String())
	require.Equal(t, "1000", bd.Total.String())
	// exclusive + tax reconstructs the original amount exactly
	require.True(t, bd.Subtotal.Add(bd.Tax).Equal(decimal.NewFromInt(1000)))
}

func TestForCartExcluded(t *testing.T) {
	bd := ForCart(decimal.NewFromInt(1000), mustParse(t, "0.20"), false)
	require.Equal(t, "1000", bd.Subtotal.String())
	require.Equal(t, "200", bd.Tax.String())
	require.Equal(t, "1200", bd.Total.String())
}

func TestForCartIncludedTotalPreserved(t *testing.T) {
	subtotals := []string{"0", "49.99", "100", "1000", "99999.95"}
	rate := mustParse(t, "0.19")
	for _, s := range subtotals {
		sub := mustParse(t, s)
		bd := ForCart(sub, rate, true)
		require.True(t, bd.Total.Equal(sub), "included total must equal input for %s", s)
	}
}

func TestForCartWithShipping(t *testing.T) {
	rate := mustParse(t, "0.20")
	shipping := decimal.NewFromInt(50)

	included := ForCartWithShipping(decimal.NewFromInt(1000), shipping, rate, true)
	require.Equal(t, "1050", included.Total.String())
	require.Equal(t, "833.33", money.RoundCurrency(included.Subtotal).String())
	// shipping must not shrink through the back-calculation
	require.True(t, included.Subtotal.Add(included.Tax).Add(shipping).Equal(included.Total))

	excluded := ForCartWithShipping(decimal.NewFromInt(1000), shipping, rate, false)
	require.Equal(t, "1250", excluded.Total.String())
}

func TestAmount(t *testing.T) {
	rate := mustParse(t, "0.20")
	require.Equal(t, "200", Amount(decimal.NewFromInt(1000), rate, false).String())
	included := Amount(decimal.NewFromInt(1200), rate, true)
	require.Equal(t, "200", money.RoundCurrency(included).String())
}

func TestZeroRate(t *testing.T) {
	bd := ForCart(decimal.NewFromInt(500), decimal.Zero, true)
	require.Equal(t, "500", bd.Subtotal.String())
	require.True(t, bd.Tax.IsZero())
	require.Equal(t, "500", bd.Total.String())
}

func mustParse(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}
