package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/golacotv/golaco-backend/api/controllers"
	webhookcontrollers "github.com/golacotv/golaco-backend/api/controllers/webhooks"
	"github.com/golacotv/golaco-backend/api/middleware"
	checkoutsvc "github.com/golacotv/golaco-backend/internal/checkout"
	"github.com/golacotv/golaco-backend/internal/earnings"
	"github.com/golacotv/golaco-backend/internal/goals"
	"github.com/golacotv/golaco-backend/internal/purchases"
	"github.com/golacotv/golaco-backend/internal/webhooks"
	pixwebhook "github.com/golacotv/golaco-backend/internal/webhooks/pix"
	stripewebhook "github.com/golacotv/golaco-backend/internal/webhooks/stripe"
	"github.com/golacotv/golaco-backend/pkg/config"
	"github.com/golacotv/golaco-backend/pkg/db"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/metrics"
	"github.com/golacotv/golaco-backend/pkg/pix"
	"github.com/golacotv/golaco-backend/pkg/redis"
	"github.com/golacotv/golaco-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface is wired with.
// Payment rail clients may be nil; their endpoints then fail closed.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             *db.Client
	Redis          *redis.Client
	Registry       *prometheus.Registry
	WebhookMetrics *metrics.WebhookMetrics

	Purchases *purchases.Service
	Earnings  *earnings.Service
	Goals     *goals.Service
	Checkout  *checkoutsvc.Service

	PixClient    *pix.Client
	StripeClient *stripe.Client

	WebhookGuard  *webhooks.Guard
	PixWebhooks   *pixwebhook.Service
	StripeWebhook *stripewebhook.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/v1/plans", controllers.ListPlans(params.Purchases, logg))
		r.Get("/v1/tournaments/{tournamentId}/goals", controllers.TournamentGoals(params.Goals, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/pix", webhookcontrollers.PixWebhook(
			params.PixWebhooks, pixVerifierOrNil(params.PixClient), params.WebhookGuard, params.WebhookMetrics, logg))
		r.Post("/stripe", webhookcontrollers.StripeWebhook(
			params.StripeWebhook, stripeSecretsOrNil(params.StripeClient), params.WebhookGuard, params.WebhookMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/purchase", controllers.CheckoutPurchase(params.Checkout, logg))
			r.Post("/support", controllers.CheckoutSupport(params.Checkout, logg))
		})

		r.Get("/purchases/{purchaseId}", controllers.PurchaseDetail(params.Purchases, logg))
		r.Get("/users/{userId}/purchases", controllers.BuyerPurchases(params.Purchases, logg))

		r.Route("/earnings/{beneficiaryType}/{beneficiaryId}", func(r chi.Router) {
			r.Get("/summary", controllers.EarningsSummary(params.Earnings, logg))
			r.Get("/line-items", controllers.EarningsLineItems(params.Earnings, logg))
			r.Get("/withdrawals", controllers.ListWithdrawals(params.Earnings, logg))
			r.Post("/withdrawals", controllers.RequestWithdrawal(params.Earnings, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/withdrawals/{withdrawalId}/advance", controllers.AdvanceWithdrawal(params.Earnings, logg))
		r.Post("/earnings/line-items/{lineItemId}/paid", controllers.MarkLineItemPaid(params.Earnings, logg))
		r.Post("/tournaments/{tournamentId}/teams/{teamId}/goals/recalculate", controllers.RecalculateGoal(params.Goals, logg))
	})

	return r
}

// typed nils must not leak into the controllers' interface checks

func pixVerifierOrNil(client *pix.Client) interface {
	VerifySignature(payload []byte, header string) bool
} {
	if client == nil {
		return nil
	}
	return client
}

func stripeSecretsOrNil(client *stripe.Client) interface{ SigningSecret() string } {
	if client == nil {
		return nil
	}
	return client
}
