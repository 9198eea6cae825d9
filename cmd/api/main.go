package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradepost/tradepost-backend/api/routes"
	"github.com/tradepost/tradepost-backend/internal/authz"
	"github.com/tradepost/tradepost-backend/internal/checkout"
	"github.com/tradepost/tradepost-backend/internal/delivery"
	"github.com/tradepost/tradepost-backend/internal/escrow"
	"github.com/tradepost/tradepost-backend/internal/gateway"
	"github.com/tradepost/tradepost-backend/internal/ledger"
	"github.com/tradepost/tradepost-backend/internal/listings"
	"github.com/tradepost/tradepost-backend/internal/orders"
	"github.com/tradepost/tradepost-backend/internal/payouts"
	stripewebhook "github.com/tradepost/tradepost-backend/internal/webhooks/stripe"
	"github.com/tradepost/tradepost-backend/pkg/config"
	"github.com/tradepost/tradepost-backend/pkg/db"
	"github.com/tradepost/tradepost-backend/pkg/logger"
	"github.com/tradepost/tradepost-backend/pkg/migrate"
	"github.com/tradepost/tradepost-backend/pkg/redis"
	"github.com/tradepost/tradepost-backend/pkg/stripe"
)

const webhookDedupTTL = 24 * time.Hour

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	paymentGateway, err := gateway.NewStripeGateway(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	listingRepo := listings.NewRepository(dbClient.DB())
	payoutRepo := payouts.NewRepository(dbClient.DB())
	policy := authz.NewPolicy()

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		orderRepo,
		listingRepo,
		paymentGateway,
		dbClient,
		cfg.Checkout,
		cfg.Fees.PlatformBasisPoints,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orderRepo, listingRepo, policy)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	escrowService, err := escrow.NewService(escrow.ServiceParams{
		OrderRepo:         orderRepo,
		ListingRepo:       listingRepo,
		PayoutRepo:        payoutRepo,
		Gateway:           paymentGateway,
		Ledger:            ledgerService,
		Policy:            policy,
		TransactionRunner: dbClient,
		FeeBasisPoints:    cfg.Fees.PlatformBasisPoints,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}

	deliveryService, err := delivery.NewService(orderRepo, listingRepo, policy, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		OrderRepo:         orderRepo,
		ListingRepo:       listingRepo,
		Ledger:            ledgerService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookDedupTTL, "stripe_event")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Stripe:       stripeClient,
			Checkout:     checkoutService,
			Orders:       orderService,
			Escrow:       escrowService,
			Delivery:     deliveryService,
			Ledger:       ledgerService,
			Webhook:      webhookService,
			WebhookDedup: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
