package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	ledgercontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/ledger"
	ordercontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/orders"
	payoutcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/payouts"
	returncontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/returns"
	webhookcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/webhooks"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/payouts"
	"github.com/angelmondragon/bazaar-backend/internal/returns"
	"github.com/angelmondragon/bazaar-backend/internal/webhooks/provider"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (redis.RateDecision, error)
}

type webhookGuard interface {
	Claim(ctx context.Context, consumer, eventID string) (idempotency.ClaimState, error)
	Confirm(ctx context.Context, consumer, eventID string) error
	Release(ctx context.Context, consumer, eventID string) error
}

// Dependencies are the collaborators the HTTP surface dispatches to. Nil
// infrastructure fields disable the feature they back.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	RateLimiter rateLimiter
	Gatherer    prometheus.Gatherer

	Orders       orders.Service
	Payouts      payouts.Service
	Returns      returns.Service
	Ledger       ledgercontrollers.Reader
	Stores       ledgercontrollers.OwnerChecker
	Webhooks     *provider.Service
	WebhookGuard webhookGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	writeLimit := middleware.WriteRateLimit(middleware.RateLimitPolicy{
		Name:   "api",
		Limit:  cfg.App.WriteRateLimit,
		Window: time.Minute,
	}, deps.RateLimiter, logg)
	idempotent := middleware.Idempotency(deps.Idempotency, middleware.DefaultIdempotencyTTL, logg)
	moneyMoving := middleware.Idempotency(deps.Idempotency, middleware.CriticalIdempotencyTTL, logg)

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		var svc webhookcontrollers.ProviderWebhookService
		if deps.Webhooks != nil {
			svc = deps.Webhooks
		}
		r.Post("/provider", webhookcontrollers.ProviderWebhook(svc, cfg.Webhook.ProviderSecret, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(auth.NewVerifier(cfg.JWT), logg))
		r.Use(writeLimit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActorKind(logg, enums.ActorCustomer, enums.ActorAdmin))
			r.With(moneyMoving).Post("/stores/{storeId}/orders", ordercontrollers.Create(deps.Orders, logg))
			r.With(idempotent).Post("/orders/{orderId}/returns", returncontrollers.Request(deps.Returns, logg))
		})

		r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		r.With(moneyMoving).Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.StoreContext(logg))

			r.With(idempotent).Patch("/orders/{orderId}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))

			r.With(moneyMoving).Post("/payouts", payoutcontrollers.Request(deps.Payouts, logg))
			r.Get("/payouts", payoutcontrollers.List(deps.Payouts, logg))

			r.Get("/balance", ledgercontrollers.Balance(deps.Stores, logg))
			r.Get("/ledger", ledgercontrollers.List(deps.Ledger, deps.Stores, logg))
			r.Get("/ledger/reconcile", ledgercontrollers.Reconcile(deps.Ledger, deps.Stores, logg))

			r.With(idempotent).Post("/returns/{returnId}/approve", returncontrollers.Approve(deps.Returns, logg))
			r.With(idempotent).Post("/returns/{returnId}/reject", returncontrollers.Reject(deps.Returns, logg))
			r.With(idempotent).Post("/returns/{returnId}/receive", returncontrollers.Receive(deps.Returns, logg))
			r.With(moneyMoving).Post("/returns/{returnId}/refund", returncontrollers.Refund(deps.Returns, logg))
		})
	})

	return r
}
