// Package webhooks exposes the provider callback endpoints. Each
// endpoint verifies the delivery, runs it through the exactly-once
// guard and only then hands it to its dispatcher.
package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/golacotv/golaco-backend/api/responses"
	pixwebhook "github.com/golacotv/golaco-backend/internal/webhooks/pix"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/metrics"
)

const pixSignatureHeader = "x-webhook-signature"

type PixWebhookService interface {
	HandleEvent(ctx context.Context, event *pixwebhook.Event) error
}

type webhookGuard interface {
	Begin(ctx context.Context, provider enums.PaymentGateway, providerEventID, eventType string, payload []byte) (bool, error)
	Complete(ctx context.Context, provider enums.PaymentGateway, providerEventID string) error
	Fail(ctx context.Context, provider enums.PaymentGateway, providerEventID string, cause error) error
}

type pixVerifier interface {
	VerifySignature(payload []byte, header string) bool
}

// PixWebhook handles Pix charge lifecycle callbacks.
func PixWebhook(svc PixWebhookService, verifier pixVerifier, guard webhookGuard, m *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	provider := enums.PaymentGatewayPix
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		m.IncReceived(string(provider))

		if svc == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotConfigured, "pix rail is not configured"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var event pixwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		// endpoint checks arrive unsigned and carry no event id; they
		// are acknowledged before the signature check and the guard
		if event.IsTestPing() {
			responses.WriteSuccess(w, nil)
			return
		}

		if !verifier.VerifySignature(payload, r.Header.Get(pixSignatureHeader)) {
			m.IncFailed(string(provider))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		dedupID := event.DedupID()
		proceed, err := guard.Begin(ctx, provider, dedupID, event.Event, payload)
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
			if markErr := guard.Fail(ctx, provider, dedupID, err); markErr != nil && logg != nil {
				logg.Error(ctx, "marking webhook event failed", markErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := guard.Complete(ctx, provider, dedupID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
