package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSubtotalSumsLines(t *testing.T) {
	items := []Item{
		{UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		{UnitPrice: decimal.RequireFromString("49.99"), Quantity: 1},
	}
	got := subtotal(items)
	require.True(t, got.Equal(decimal.RequireFromString("249.99")), "got %s", got)
}

func TestCouponInputCarriesCartContext(t *testing.T) {
	cat := uuid.New()
	owner := uuid.New()
	view := View{
		Cart:     Cart{ID: uuid.New(), UserID: &owner},
		Subtotal: decimal.NewFromInt(300),
		Items: []Item{
			{ProductID: uuid.New(), CategoryID: &cat, UnitPrice: decimal.NewFromInt(150), Quantity: 2},
		},
	}

	in := CouponInput(view, nil)
	require.True(t, in.Subtotal.Equal(view.Subtotal))
	require.Len(t, in.Items, 1)
	require.Equal(t, view.Items[0].ProductID, in.Items[0].ProductID)
	require.Equal(t, &cat, in.Items[0].CategoryID)
	// the cart owner is used when no explicit user is given
	require.Equal(t, &owner, in.UserID)

	explicit := uuid.New()
	in = CouponInput(view, &explicit)
	require.Equal(t, &explicit, in.UserID)
}
