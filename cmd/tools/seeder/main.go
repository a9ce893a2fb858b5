package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/maisonlune/boutique-api/internal/config"
	"github.com/maisonlune/boutique-api/internal/db"
	"github.com/maisonlune/boutique-api/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	seedSettings(ctx, pool)
	seedCatalog(ctx, pool)
	seedCoupons(ctx, pool)

	log.Println("seeding completed")
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("seeding settings...")
	threshold := decimal.NewFromInt(500)
	taxBlob, _ := json.Marshal(settings.Tax{
		DefaultTaxRate: decimal.RequireFromString("0.20"),
		TaxIncluded:    true,
	})
	shippingBlob, _ := json.Marshal(settings.Shipping{
		DefaultShippingCost:   decimal.NewFromInt(15),
		FreeShippingThreshold: &threshold,
		EstimatedDeliveryDays: 3,
	})
	upsert := `INSERT INTO settings (key, value) VALUES ($1, $2)
	           ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	mustExec(ctx, pool, upsert, settings.KeyTax, taxBlob)
	mustExec(ctx, pool, upsert, settings.KeyShipping, shippingBlob)
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("seeding catalog...")
	categories := []struct{ name, slug string }{
		{"Leather Goods", "leather-goods"},
		{"Silk & Scarves", "silk-scarves"},
		{"Fragrance", "fragrance"},
		{"Timepieces", "timepieces"},
	}
	for _, c := range categories {
		mustExec(ctx, pool,
			`INSERT INTO categories (name, slug) VALUES ($1, $2) ON CONFLICT (slug) DO NOTHING`,
			c.name, c.slug)
	}

	products := []struct {
		name, slug, category string
		price                string
	}{
		{"Grained Calfskin Tote", "grained-calfskin-tote", "leather-goods", "1850.00"},
		{"Card Holder", "card-holder", "leather-goods", "320.00"},
		{"Hand-Rolled Silk Scarf 90", "silk-scarf-90", "silk-scarves", "420.00"},
		{"Twill Pocket Square", "twill-pocket-square", "silk-scarves", "150.00"},
		{"Eau de Parfum 100ml", "eau-de-parfum-100", "fragrance", "240.00"},
		{"Travel Spray Refill", "travel-spray-refill", "fragrance", "85.00"},
		{"Automatic Chronograph", "automatic-chronograph", "timepieces", "6400.00"},
	}
	for _, p := range products {
		mustExec(ctx, pool, `
			INSERT INTO products (name, slug, price, category_id)
			SELECT $1, $2, $3, c.id FROM categories c WHERE c.slug = $4
			ON CONFLICT (slug) DO UPDATE SET price = EXCLUDED.price`,
			p.name, p.slug, decimal.RequireFromString(p.price), p.category)
	}
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("seeding coupons...")
	mustExec(ctx, pool, `
		INSERT INTO coupons (code, description, discount_type, discount_value, customer_usage_limit)
		VALUES ('SAVE10', '10% off your order', 'PERCENTAGE', 10, 0)
		ON CONFLICT (code) DO NOTHING`)
	mustExec(ctx, pool, `
		INSERT INTO coupons (code, description, discount_type, discount_value, minimum_amount)
		VALUES ('WELCOME50', '50 off orders over 500', 'FIXED_AMOUNT', 50, 500)
		ON CONFLICT (code) DO NOTHING`)
	mustExec(ctx, pool, `
		INSERT INTO coupons (code, description, discount_type, discount_value, customer_usage_limit)
		VALUES ('FREESHIP', 'free shipping', 'FREE_SHIPPING', 0, 1)
		ON CONFLICT (code) DO NOTHING`)
	mustExec(ctx, pool, `
		INSERT INTO coupons (
			code, description, discount_type, discount_value,
			buy_mode, buy_target_id, get_target_id, buy_quantity, get_quantity, max_free_quantity
		)
		SELECT 'SCARFDUO', 'buy a tote, a pocket square on us', 'BUY_X_GET_Y', 0,
		       'PRODUCT', b.id, g.id, 1, 1, 1
		FROM products b, products g
		WHERE b.slug = 'grained-calfskin-tote' AND g.slug = 'twill-pocket-square'
		ON CONFLICT (code) DO NOTHING`)
}

func mustExec(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) {
	if _, err := pool.Exec(ctx, sql, args...); err != nil {
		log.Fatalf("seed exec failed: %v", err)
	}
}
