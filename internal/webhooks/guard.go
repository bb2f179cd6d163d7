// Package webhooks implements the exactly-once guard every payment
// provider delivery passes through. The database unique index on
// (provider, provider_event_id) is authoritative; Redis only short-cuts
// retries of events that already processed successfully.
package webhooks

import (
	"context"
	"errors"
	"time"

	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/redis"
	"github.com/google/uuid"
)

const redisGuardTTL = 48 * time.Hour

// GuardParams groups dependencies for the delivery guard.
type GuardParams struct {
	Repo   Repository
	Store  redis.IdempotencyStore
	Logger *logger.Logger
}

// Guard decides whether a provider delivery should be processed.
type Guard struct {
	repo   Repository
	store  redis.IdempotencyStore
	logger *logger.Logger
}

// NewGuard builds a delivery guard. The Redis store is optional.
func NewGuard(params GuardParams) (*Guard, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Guard{repo: params.Repo, store: params.Store, logger: params.Logger}, nil
}

// Begin registers the delivery and reports whether it should proceed.
// A previously processed event returns proceed=false; a previously failed
// event proceeds again so provider retries can recover.
func (g *Guard) Begin(ctx context.Context, provider enums.PaymentGateway, providerEventID, eventType string, payload []byte) (bool, error) {
	if providerEventID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "provider event id is required")
	}

	if g.store != nil {
		key := g.store.IdempotencyKey(string(provider), providerEventID)
		if seen, err := g.store.Get(ctx, key); err == nil && seen != "" {
			return false, nil
		}
	}

	event := &models.WebhookEvent{
		ID:              uuid.New(),
		Provider:        provider,
		ProviderEventID: providerEventID,
		EventType:       eventType,
		Status:          enums.WebhookEventStatusProcessed,
		Payload:         payload,
	}
	inserted, err := g.repo.Insert(ctx, event)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording webhook event")
	}
	if inserted {
		return true, nil
	}

	existing, err := g.repo.FindByProviderEvent(ctx, provider, providerEventID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading webhook event")
	}
	if existing == nil {
		// conflicting row vanished between insert and load; process anyway
		return true, nil
	}
	if existing.Status == enums.WebhookEventStatusFailed {
		return true, nil
	}
	return false, nil
}

// Complete marks the delivery processed and primes the Redis fast path.
func (g *Guard) Complete(ctx context.Context, provider enums.PaymentGateway, providerEventID string) error {
	event, err := g.repo.FindByProviderEvent(ctx, provider, providerEventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading webhook event")
	}
	if event == nil {
		return nil
	}
	if event.Status != enums.WebhookEventStatusProcessed || event.ProcessingError != nil {
		event.Status = enums.WebhookEventStatusProcessed
		event.ProcessingError = nil
		if err := g.repo.Update(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking webhook event processed")
		}
	}

	if g.store != nil {
		key := g.store.IdempotencyKey(string(provider), providerEventID)
		if _, err := g.store.SetNX(ctx, key, "1", redisGuardTTL); err != nil {
			g.logger.Warn(ctx, "failed to prime webhook fast path")
		}
	}
	return nil
}

// Fail annotates the delivery so the next retry is allowed to reprocess.
func (g *Guard) Fail(ctx context.Context, provider enums.PaymentGateway, providerEventID string, cause error) error {
	event, err := g.repo.FindByProviderEvent(ctx, provider, providerEventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading webhook event")
	}
	if event == nil {
		return nil
	}

	msg := "processing failed"
	if cause != nil {
		msg = cause.Error()
	}
	event.Status = enums.WebhookEventStatusFailed
	event.ProcessingError = &msg
	if err := g.repo.Update(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking webhook event failed")
	}
	return nil
}
