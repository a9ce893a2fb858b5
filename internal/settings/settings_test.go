package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows map[string][]byte
}

func (f *fakeQuerier) Get(_ context.Context, key string) ([]byte, error) {
	if raw, ok := f.rows[key]; ok {
		return raw, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeQuerier) Upsert(_ context.Context, key string, value []byte) error {
	if f.rows == nil {
		f.rows = map[string][]byte{}
	}
	f.rows[key] = value
	return nil
}

func TestTaxDefaultsWhenMissing(t *testing.T) {
	svc := NewService(&fakeQuerier{})
	cfg, err := svc.Tax(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0.2", cfg.DefaultTaxRate.String())
	require.True(t, cfg.TaxIncluded)
}

func TestShippingDefaultsWhenMissing(t *testing.T) {
	svc := NewService(&fakeQuerier{})
	cfg, err := svc.Shipping(context.Background())
	require.NoError(t, err)
	require.True(t, cfg.DefaultShippingCost.IsZero())
	require.Nil(t, cfg.FreeShippingThreshold)
	require.Equal(t, 3, cfg.EstimatedDeliveryDays)
}

func TestTaxRoundTripThroughStore(t *testing.T) {
	q := &fakeQuerier{}
	svc := NewService(q)
	in := Tax{DefaultTaxRate: decimal.NewFromFloat(0.07), TaxIncluded: false}
	require.NoError(t, svc.UpdateTax(context.Background(), in))

	out, err := svc.Tax(context.Background())
	require.NoError(t, err)
	require.True(t, out.DefaultTaxRate.Equal(in.DefaultTaxRate))
	require.False(t, out.TaxIncluded)
}

func TestUpdateTaxRejectsOutOfRangeRate(t *testing.T) {
	svc := NewService(&fakeQuerier{})
	err := svc.UpdateTax(context.Background(), Tax{DefaultTaxRate: decimal.NewFromFloat(1.5)})
	require.Error(t, err)
	err = svc.UpdateTax(context.Background(), Tax{DefaultTaxRate: decimal.NewFromFloat(-0.1)})
	require.Error(t, err)
}

func TestUpdateShippingRejections(t *testing.T) {
	svc := NewService(&fakeQuerier{})
	ctx := context.Background()

	err := svc.UpdateShipping(ctx, Shipping{
		DefaultShippingCost:   decimal.NewFromInt(-1),
		EstimatedDeliveryDays: 3,
	})
	require.Error(t, err, "negative cost must be rejected")

	err = svc.UpdateShipping(ctx, Shipping{
		DefaultShippingCost:   decimal.NewFromInt(10),
		EstimatedDeliveryDays: 0,
	})
	require.Error(t, err, "delivery days below 1 must be rejected")

	threshold := decimal.NewFromInt(-5)
	err = svc.UpdateShipping(ctx, Shipping{
		DefaultShippingCost:   decimal.NewFromInt(10),
		FreeShippingThreshold: &threshold,
		EstimatedDeliveryDays: 2,
	})
	require.Error(t, err, "negative threshold must be rejected")
}

func TestCorruptRowFallsBackToDefaults(t *testing.T) {
	q := &fakeQuerier{rows: map[string][]byte{KeyTax: []byte("{not json")}}
	svc := NewService(q)
	cfg, err := svc.Tax(context.Background())
	require.Error(t, err)
	require.Equal(t, "0.2", cfg.DefaultTaxRate.String(), "calculation still gets a usable config")
}

func TestShippingThresholdSerialisation(t *testing.T) {
	threshold := decimal.NewFromInt(300)
	cfg := Shipping{
		DefaultShippingCost:   decimal.NewFromInt(50),
		FreeShippingThreshold: &threshold,
		EstimatedDeliveryDays: 3,
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	var out Shipping
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotNil(t, out.FreeShippingThreshold)
	require.True(t, out.FreeShippingThreshold.Equal(threshold))
}
