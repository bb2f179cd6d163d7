package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/golacotv/golaco-backend/api/routes"
	"github.com/golacotv/golaco-backend/internal/checkout"
	"github.com/golacotv/golaco-backend/internal/earnings"
	"github.com/golacotv/golaco-backend/internal/goals"
	"github.com/golacotv/golaco-backend/internal/notifications"
	"github.com/golacotv/golaco-backend/internal/purchases"
	"github.com/golacotv/golaco-backend/internal/subscriptions"
	"github.com/golacotv/golaco-backend/internal/webhooks"
	pixwebhook "github.com/golacotv/golaco-backend/internal/webhooks/pix"
	stripewebhook "github.com/golacotv/golaco-backend/internal/webhooks/stripe"
	"github.com/golacotv/golaco-backend/pkg/config"
	"github.com/golacotv/golaco-backend/pkg/db"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/metrics"
	"github.com/golacotv/golaco-backend/pkg/migrate"
	"github.com/golacotv/golaco-backend/pkg/pix"
	"github.com/golacotv/golaco-backend/pkg/redis"
	"github.com/golacotv/golaco-backend/pkg/stripe"
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

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)
	notifier := notifications.NewLogNotifier(logg)

	var pixClient *pix.Client
	if cfg.Pix.Configured() {
		pixClient, err = pix.NewClient(context.Background(), cfg.Pix, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pix client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "pix rail not configured, pix checkouts disabled")
	}

	var stripeClient *stripe.Client
	if cfg.Stripe.Configured() {
		stripeClient, err = stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "stripe rail not configured, card checkouts disabled")
	}

	purchasesRepo := purchases.NewRepository(dbClient.DB())
	earningsRepo := earnings.NewRepository(dbClient.DB())
	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())
	goalsRepo := goals.NewRepository(dbClient.DB())

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Client:       dbClient,
		Repo:         purchasesRepo,
		EarningsRepo: earningsRepo,
		SubsRepo:     subscriptionsRepo,
		Logger:       logg,
		Notifier:     notifier,
		ReleaseGrace: cfg.Earnings.ReleaseGracePeriod,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Client: dbClient,
		Repo:   subscriptionsRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	goalService, err := goals.NewService(goals.ServiceParams{
		Client:       dbClient,
		Repo:         goalsRepo,
		EarningsRepo: earningsRepo,
		Logger:       logg,
		Notifier:     notifier,
		Metrics:      webhookMetrics,
		ReleaseGrace: cfg.Earnings.ReleaseGracePeriod,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create goal service", err)
		os.Exit(1)
	}

	earningsService, err := earnings.NewService(earnings.ServiceParams{
		Client:   dbClient,
		Repo:     earningsRepo,
		Logger:   logg,
		Notifier: notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings service", err)
		os.Exit(1)
	}

	checkoutParams := checkout.ServiceParams{
		Purchases: purchaseService,
		Goals:     goalService,
		Catalog:   purchasesRepo,
		Logger:    logg,
	}
	if pixClient != nil {
		checkoutParams.Pix = pixClient
	}
	if stripeClient != nil {
		checkoutParams.Stripe = stripeClient
	}
	checkoutService, err := checkout.NewService(checkoutParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookGuard, err := webhooks.NewGuard(webhooks.GuardParams{
		Repo:   webhooks.NewRepository(dbClient.DB()),
		Store:  redisClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	pixWebhookService, err := pixwebhook.NewService(pixwebhook.ServiceParams{
		Settlement:    purchaseService,
		Goals:         goalService,
		Subscriptions: subscriptionService,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pix webhook service", err)
		os.Exit(1)
	}

	var stripeWebhookService *stripewebhook.Service
	if stripeClient != nil {
		stripeWebhookService, err = stripewebhook.NewService(stripewebhook.ServiceParams{
			Settlement:    purchaseService,
			Goals:         goalService,
			Subscriptions: subscriptionService,
			Plans:         purchasesRepo,
			StripeClient:  stripeClient,
			Logger:        logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe webhook service", err)
			os.Exit(1)
		}
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Registry:       registry,
			WebhookMetrics: webhookMetrics,
			Purchases:      purchaseService,
			Earnings:       earningsService,
			Goals:          goalService,
			Checkout:       checkoutService,
			PixClient:      pixClient,
			StripeClient:   stripeClient,
			WebhookGuard:   webhookGuard,
			PixWebhooks:    pixWebhookService,
			StripeWebhook:  stripeWebhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
