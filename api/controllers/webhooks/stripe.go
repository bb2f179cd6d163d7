package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v83"

	"github.com/golacotv/golaco-backend/api/responses"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/metrics"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeSecretSource interface {
	SigningSecret() string
}

// StripeWebhook handles Stripe payment and subscription events.
func StripeWebhook(svc StripeWebhookService, client stripeSecretSource, guard webhookGuard, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	provider := enums.PaymentGatewayStripe
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		m.IncReceived(string(provider))

		if svc == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "stripe rail is not configured"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			m.IncFailed(string(provider))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "stripe signature missing"))
			return
		}

		event, err := stripe.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			m.IncFailed(string(provider))
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}

		proceed, err := guard.Begin(ctx, provider, event.ID, string(event.Type), payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !proceed {
			m.IncDuplicate(string(provider))
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			m.IncFailed(string(provider))
			if markErr := guard.Fail(ctx, provider, event.ID, err); markErr != nil && logg != nil {
				logg.Error(ctx, "marking webhook event failed", markErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := guard.Complete(ctx, provider, event.ID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
