package cron

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"go.uber.org/multierr"

	pixwebhook "github.com/golacotv/golaco-backend/internal/webhooks/pix"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

const defaultRetryBatchSize = 100

// WebhookRetryJobParams configure the failed-delivery retry job.
type WebhookRetryJobParams struct {
	Logger *logger.Logger
	Repo   failedWebhookLister
	Guard  deliveryGuard
	Pix    pixDispatcher
	Stripe stripeDispatcher
	Limit  int
}

type failedWebhookLister interface {
	ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}

type deliveryGuard interface {
	Complete(ctx context.Context, provider enums.PaymentGateway, providerEventID string) error
	Fail(ctx context.Context, provider enums.PaymentGateway, providerEventID string, cause error) error
}

type pixDispatcher interface {
	HandleEvent(ctx context.Context, event *pixwebhook.Event) error
}

type stripeDispatcher interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// NewWebhookRetryJob builds the job that re-drives failed provider
// deliveries from their stored payloads. Either dispatcher may be nil
// when that payment rail is not configured; its rows are left for a
// later run.
func NewWebhookRetryJob(params WebhookRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("webhook repository required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("delivery guard required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultRetryBatchSize
	}
	return &webhookRetryJob{
		logg:   params.Logger,
		repo:   params.Repo,
		guard:  params.Guard,
		pix:    params.Pix,
		stripe: params.Stripe,
		limit:  limit,
	}, nil
}

type webhookRetryJob struct {
	logg   *logger.Logger
	repo   failedWebhookLister
	guard  deliveryGuard
	pix    pixDispatcher
	stripe stripeDispatcher
	limit  int
}

func (j *webhookRetryJob) Name() string { return "webhook-retry" }

func (j *webhookRetryJob) Run(ctx context.Context) error {
	logCtx := j.logg.WithField(ctx, "job", j.Name())
	events, err := j.repo.ListFailed(logCtx, j.limit)
	if err != nil {
		return fmt.Errorf("list failed webhook events: %w", err)
	}
	var errs error
	recovered := 0
	skipped := 0
	for i := range events {
		ok, err := j.retryEvent(logCtx, &events[i])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			recovered++
		} else {
			skipped++
		}
	}
	reportCtx := j.logg.WithFields(logCtx, map[string]any{
		"candidates": len(events),
		"recovered":  recovered,
		"skipped":    skipped,
	})
	j.logg.Info(reportCtx, "webhook retry loop complete")
	return errs
}

func (j *webhookRetryJob) retryEvent(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"provider":          event.Provider,
		"provider_event_id": event.ProviderEventID,
	})
	if len(event.Payload) == 0 {
		j.logg.Warn(logCtx, "failed delivery has no stored payload; cannot replay")
		return false, nil
	}
	var dispatchErr error
	switch event.Provider {
	case enums.PaymentGatewayPix:
		if j.pix == nil {
			return false, nil
		}
		var payload pixwebhook.Event
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			j.logg.Warn(logCtx, "stored pix payload does not parse; cannot replay")
			return false, nil
		}
		dispatchErr = j.pix.HandleEvent(logCtx, &payload)
	case enums.PaymentGatewayStripe:
		if j.stripe == nil {
			return false, nil
		}
		var payload stripe.Event
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			j.logg.Warn(logCtx, "stored stripe payload does not parse; cannot replay")
			return false, nil
		}
		dispatchErr = j.stripe.HandleEvent(logCtx, &payload)
	default:
		j.logg.Warn(logCtx, "failed delivery has unknown provider; cannot replay")
		return false, nil
	}
	if dispatchErr != nil {
		if err := j.guard.Fail(logCtx, event.Provider, event.ProviderEventID, dispatchErr); err != nil {
			j.logg.Error(logCtx, "failed to annotate webhook retry failure", err)
		}
		return false, fmt.Errorf("retry webhook %s/%s: %w", event.Provider, event.ProviderEventID, dispatchErr)
	}
	if err := j.guard.Complete(logCtx, event.Provider, event.ProviderEventID); err != nil {
		return false, fmt.Errorf("mark webhook %s/%s processed: %w", event.Provider, event.ProviderEventID, err)
	}
	j.logg.Info(logCtx, "failed delivery recovered")
	return true, nil
}
