package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/api/routes"
	"github.com/angelmondragon/bazaar-backend/internal/coupons"
	"github.com/angelmondragon/bazaar-backend/internal/inventory"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/internal/payouts"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/returns"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/internal/webhooks/provider"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/instance"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"instance":    instance.ID(cfg.Service.Kind),
		"serviceKind": cfg.Service.Kind,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()
	reg := prometheus.DefaultRegisterer
	orderMetrics := metrics.NewOrderMetrics(reg)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(conn),
		DB:         dbClient,
		Outbox:     outboxService,
		Metrics:    metrics.NewLedgerMetrics(reg),
		Logger:     logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	storeRepo := stores.NewRepository(conn)
	storeService, err := stores.NewService(storeRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}
	couponService, err := coupons.NewService(coupons.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	adjuster := inventory.NewAdjuster()
	orderRepo := orders.NewRepository(conn)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repository:    orderRepo,
		Stores:        storeRepo,
		Products:      products.NewRepository(conn),
		Coupons:       couponService,
		Inventory:     adjuster,
		DB:            dbClient,
		Outbox:        outboxService,
		Metrics:       orderMetrics,
		Logger:        logg,
		ShippingCents: cfg.Marketplace.ShippingFlatRateCents,
		CancelWindow:  cfg.Marketplace.CustomerCancelWindow,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Orders:    orderRepo,
		Stores:    storeRepo,
		Ledger:    ledgerService,
		Inventory: adjuster,
		DB:        dbClient,
		Outbox:    outboxService,
		Metrics:   orderMetrics,
		Logger:    logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Repository:     payouts.NewRepository(conn),
		Stores:         storeRepo,
		Ledger:         ledgerService,
		DB:             dbClient,
		Outbox:         outboxService,
		Logger:         logg,
		MinPayoutCents: cfg.Marketplace.MinPayoutCents,
		Cooldown:       cfg.Marketplace.PayoutCooldown,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	returnService, err := returns.NewService(returns.ServiceParams{
		Repository: returns.NewRepository(conn),
		Orders:     orderRepo,
		Stores:     storeRepo,
		Ledger:     ledgerService,
		Inventory:  adjuster,
		DB:         dbClient,
		Outbox:     outboxService,
		Logger:     logg,
		Window:     cfg.Marketplace.ReturnWindow,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	webhookService, err := provider.NewService(provider.ServiceParams{
		Payments: paymentService,
		Payouts:  payoutService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:           dbClient,
		Redis:        redisClient,
		Idempotency:  redisClient,
		RateLimiter:  redisClient,
		Gatherer:     prometheus.DefaultGatherer,
		Orders:       orderService,
		Payouts:      payoutService,
		Returns:      returnService,
		Ledger:       ledgerService,
		Stores:       storeService,
		Webhooks:     webhookService,
		WebhookGuard: guard,
	}, nil
}
