package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	LogFormat          string
	LogLevel           string
	MetricsNamespace   string
	MetricsBuckets     string
	CurrencyCode       string

	CatalogCacheTTL time.Duration
	CartTTL         time.Duration

	// Defaults seeded into the settings table when no row exists yet.
	DefaultTaxRate        decimal.Decimal
	TaxIncluded           bool
	DefaultShippingCost   decimal.Decimal
	FreeShippingThreshold *decimal.Decimal
	EstimatedDeliveryDays int

	CouponRateLimit  int
	CouponRateWindow time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), "boutique"),
		MetricsBuckets:     k.String("METRICS_BUCKETS"),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "EUR"),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CartTTL:         parseDuration(k.String("CART_TTL"), "168h"),

		DefaultTaxRate:        parseDecimal(k.String("PRICING_DEFAULT_TAX_RATE"), "0.20"),
		TaxIncluded:           parseBoolDefault(k.String("PRICING_TAX_INCLUDED"), true),
		DefaultShippingCost:   parseDecimal(k.String("PRICING_DEFAULT_SHIPPING_COST"), "0"),
		FreeShippingThreshold: parseOptionalDecimal(k.String("PRICING_FREE_SHIPPING_THRESHOLD")),
		EstimatedDeliveryDays: parseInt(k.String("PRICING_ESTIMATED_DELIVERY_DAYS"), 3),

		CouponRateLimit:  parseInt(k.String("COUPON_RATE_LIMIT"), 30),
		CouponRateWindow: parseDuration(k.String("COUPON_RATE_WINDOW"), "1m"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var v int
	if _, err := fmt.Sscanf(trimmed, "%d", &v); err != nil {
		return fallback
	}
	return v
}

func parseDecimal(value, fallback string) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = fallback
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}

func parseOptionalDecimal(value string) *decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil
	}
	return &d
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
