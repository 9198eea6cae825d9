package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradepost/tradepost-backend/api/controllers"
	ordercontrollers "github.com/tradepost/tradepost-backend/api/controllers/orders"
	webhookcontrollers "github.com/tradepost/tradepost-backend/api/controllers/webhooks"
	"github.com/tradepost/tradepost-backend/api/middleware"
	checkoutsvc "github.com/tradepost/tradepost-backend/internal/checkout"
	"github.com/tradepost/tradepost-backend/internal/delivery"
	"github.com/tradepost/tradepost-backend/internal/escrow"
	"github.com/tradepost/tradepost-backend/internal/ledger"
	ordersvc "github.com/tradepost/tradepost-backend/internal/orders"
	stripewebhook "github.com/tradepost/tradepost-backend/internal/webhooks/stripe"
	"github.com/tradepost/tradepost-backend/pkg/config"
	"github.com/tradepost/tradepost-backend/pkg/db"
	"github.com/tradepost/tradepost-backend/pkg/logger"
	"github.com/tradepost/tradepost-backend/pkg/redis"
	"github.com/tradepost/tradepost-backend/pkg/stripe"
)

type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *db.Client
	Redis        *redis.Client
	Stripe       *stripe.Client
	Checkout     checkoutsvc.Service
	Orders       ordersvc.Service
	Escrow       escrow.Service
	Delivery     delivery.Service
	Ledger       ledger.Service
	Webhook      *stripewebhook.Service
	WebhookDedup *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhook",
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.IPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(deps.DB, deps.Redis)))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, deps.Redis, logg))
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.Webhook, deps.Stripe, deps.WebhookDedup, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/purchases", ordercontrollers.Purchases(deps.Orders, logg))
			r.Get("/sales", ordercontrollers.Sales(deps.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
				r.Get("/ledger", ordercontrollers.Ledger(deps.Orders, deps.Ledger, logg))
				r.Post("/ship", ordercontrollers.Ship(deps.Delivery, logg))
				r.Post("/deliver", ordercontrollers.Deliver(deps.Delivery, logg))
				r.Post("/confirm", ordercontrollers.Confirm(deps.Delivery, logg))
			})
		})
	})

	r.Route("/api/admin/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Post("/{orderId}/release", ordercontrollers.Release(deps.Escrow, logg))
		r.Post("/{orderId}/refund", ordercontrollers.Refund(deps.Escrow, logg))
	})

	return r
}
