package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/golacotv/golaco-backend/internal/cron"
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
	"github.com/golacotv/golaco-backend/pkg/redis"
	"github.com/golacotv/golaco-backend/pkg/stripe"
)

const lockKeyFormat = "golaco:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	notifier := notifications.NewLogNotifier(logg)

	purchasesRepo := purchases.NewRepository(dbClient.DB())
	earningsRepo := earnings.NewRepository(dbClient.DB())
	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())
	goalsRepo := goals.NewRepository(dbClient.DB())
	webhooksRepo := webhooks.NewRepository(dbClient.DB())

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
		ReleaseGrace: cfg.Earnings.ReleaseGracePeriod,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create goal service", err)
		os.Exit(1)
	}

	webhookGuard, err := webhooks.NewGuard(webhooks.GuardParams{
		Repo:   webhooksRepo,
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

	retryParams := cron.WebhookRetryJobParams{
		Logger: logg,
		Repo:   webhooksRepo,
		Guard:  webhookGuard,
		Pix:    pixWebhookService,
		Limit:  cfg.Cron.WebhookRetryBatch,
	}
	if cfg.Stripe.Configured() {
		stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe client", err)
			os.Exit(1)
		}
		stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
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
		retryParams.Stripe = stripeWebhookService
	} else {
		logg.Warn(context.Background(), "stripe rail not configured, stripe retries disabled")
	}

	retryJob, err := cron.NewWebhookRetryJob(retryParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook retry job", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger: logg,
		Repo:   subscriptionsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription expiry job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(retryJob, expiryJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
