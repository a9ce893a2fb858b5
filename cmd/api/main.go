package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/maisonlune/boutique-api/internal/cart"
	"github.com/maisonlune/boutique-api/internal/catalog"
	"github.com/maisonlune/boutique-api/internal/checkout"
	"github.com/maisonlune/boutique-api/internal/config"
	"github.com/maisonlune/boutique-api/internal/coupon"
	"github.com/maisonlune/boutique-api/internal/db"
	"github.com/maisonlune/boutique-api/internal/health"
	"github.com/maisonlune/boutique-api/internal/obs"
	"github.com/maisonlune/boutique-api/internal/order"
	"github.com/maisonlune/boutique-api/internal/ratelimit"
	"github.com/maisonlune/boutique-api/internal/settings"
	"github.com/maisonlune/boutique-api/internal/shipping"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()
	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
	domainMetrics := obs.NewDomainMetrics(cfg.MetricsNamespace, nil)

	settingsSvc := settings.NewService(settings.NewStore(pool))
	settingsSvc.Validate = validate
	settingsSvc.FallbackTax = settings.Tax{
		DefaultTaxRate: cfg.DefaultTaxRate,
		TaxIncluded:    cfg.TaxIncluded,
	}
	settingsSvc.FallbackShipping = settings.Shipping{
		DefaultShippingCost:   cfg.DefaultShippingCost,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		EstimatedDeliveryDays: cfg.EstimatedDeliveryDays,
	}
	settingsHandler := &settings.Handler{Svc: settingsSvc}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries: catalog.NewStore(pool),
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogSvc)

	couponStore := coupon.NewStore(pool)
	couponSvc := &coupon.Service{Q: couponStore}
	couponHandler := &coupon.Handler{
		Store:    couponStore,
		Svc:      couponSvc,
		Validate: validate,
		Metrics:  domainMetrics,
	}

	cartSvc := &cart.Service{
		Store:   cart.NewStore(pool),
		Catalog: catalogSvc,
		Coupons: couponSvc,
		TTL:     cfg.CartTTL,
		Logger:  logger,
	}
	cartHandler := &cart.Handler{Svc: cartSvc}

	shippingHandler := &shipping.Handler{Settings: settingsSvc, Logger: logger}

	orderStore := order.NewStore(pool)
	orderHandler := &order.Handler{Store: orderStore}

	checkoutSvc := &checkout.Service{
		Pool:        pool,
		Carts:       cartSvc,
		Catalog:     catalogSvc,
		Coupons:     couponSvc,
		CouponStore: couponStore,
		Settings:    settingsSvc,
		Orders:      orderStore,
		Logger:      logger,
		Metrics:     domainMetrics,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	couponLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:coupon:"},
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP,
			Window: cfg.CouponRateWindow,
			Max:    cfg.CouponRateLimit,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{
		Checker: readinessChecker{db: pool, redis: redisClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/categories", catalogHandler.Categories)
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.Product)

		v.With(couponLimit.Middleware).Post("/coupons/validate", couponHandler.ValidateCode)

		v.Post("/shipping/quote", shippingHandler.Quote)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Ensure)
			c.Get("/{id}", cartHandler.Get)
			c.Post("/{id}/items", cartHandler.AddItem)
			c.Patch("/{id}/items/{productId}", cartHandler.UpdateItem)
			c.Delete("/{id}/items/{productId}", cartHandler.RemoveItem)
			c.Post("/{id}/coupon", cartHandler.ApplyCoupon)
			c.Delete("/{id}/coupon", cartHandler.RemoveCoupon)
		})

		v.Post("/checkout", checkoutHandler.Create)
		v.Post("/checkout/quote", checkoutHandler.Quote)

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{id}", orderHandler.Get)
		v.Post("/orders/{id}/retry", checkoutHandler.Retry)

		v.Route("/admin", func(admin chi.Router) {
			admin.Get("/settings/{key}", settingsHandler.Get)
			admin.Put("/settings/{key}", settingsHandler.Update)
			admin.Put("/products/{id}/price", catalogHandler.UpdatePrice)
			admin.Get("/coupons", couponHandler.List)
			admin.Post("/coupons", couponHandler.Create)
			admin.Get("/coupons/{code}", couponHandler.Get)
			admin.Put("/coupons/{code}", couponHandler.Update)
			admin.Delete("/coupons/{code}", couponHandler.Delete)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
