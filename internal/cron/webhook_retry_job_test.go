package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v83"

	pixwebhook "github.com/golacotv/golaco-backend/internal/webhooks/pix"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

func TestWebhookRetryJobRecoversPixDelivery(t *testing.T) {
	paidAt := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(pixwebhook.Event{
		Event:   pixwebhook.EventChargeCompleted,
		EventID: "evt-1",
		Charge: &pixwebhook.Charge{
			CorrelationID: "chg-1",
			Status:        "COMPLETED",
			Value:         2000,
			PaidAt:        &paidAt,
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	repo := &fakeFailedLister{events: []models.WebhookEvent{{
		Provider:        enums.PaymentGatewayPix,
		ProviderEventID: "evt-1",
		Status:          enums.WebhookEventStatusFailed,
		Payload:         payload,
	}}}
	guard := &fakeDeliveryGuard{}
	pix := &fakePixDispatcher{}
	job := newWebhookRetryJob(t, repo, guard, pix, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pix.events) != 1 {
		t.Fatalf("expected one pix dispatch, got %d", len(pix.events))
	}
	if pix.events[0].EventID != "evt-1" {
		t.Fatalf("expected evt-1, got %s", pix.events[0].EventID)
	}
	if guard.completed != 1 || guard.failed != 0 {
		t.Fatalf("expected completed=1 failed=0, got %d/%d", guard.completed, guard.failed)
	}
}

func TestWebhookRetryJobRecoversStripeDelivery(t *testing.T) {
	payload, err := json.Marshal(map[string]any{
		"id":   "evt_2",
		"type": "payment_intent.succeeded",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	repo := &fakeFailedLister{events: []models.WebhookEvent{{
		Provider:        enums.PaymentGatewayStripe,
		ProviderEventID: "evt_2",
		Status:          enums.WebhookEventStatusFailed,
		Payload:         payload,
	}}}
	guard := &fakeDeliveryGuard{}
	stripeDisp := &fakeStripeDispatcher{}
	job := newWebhookRetryJob(t, repo, guard, nil, stripeDisp)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stripeDisp.events) != 1 {
		t.Fatalf("expected one stripe dispatch, got %d", len(stripeDisp.events))
	}
	if guard.completed != 1 {
		t.Fatalf("expected completed=1, got %d", guard.completed)
	}
}

func TestWebhookRetryJobAnnotatesRepeatedFailure(t *testing.T) {
	payload, _ := json.Marshal(pixwebhook.Event{Event: pixwebhook.EventChargeCompleted, EventID: "evt-3"})
	repo := &fakeFailedLister{events: []models.WebhookEvent{{
		Provider:        enums.PaymentGatewayPix,
		ProviderEventID: "evt-3",
		Status:          enums.WebhookEventStatusFailed,
		Payload:         payload,
	}}}
	guard := &fakeDeliveryGuard{}
	pix := &fakePixDispatcher{err: errors.New("settlement unavailable")}
	job := newWebhookRetryJob(t, repo, guard, pix, nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if guard.failed != 1 || guard.completed != 0 {
		t.Fatalf("expected failed=1 completed=0, got %d/%d", guard.failed, guard.completed)
	}
}

func TestWebhookRetryJobSkipsUnconfiguredRail(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"id": "evt_4", "type": "invoice.paid"})
	repo := &fakeFailedLister{events: []models.WebhookEvent{{
		Provider:        enums.PaymentGatewayStripe,
		ProviderEventID: "evt_4",
		Status:          enums.WebhookEventStatusFailed,
		Payload:         payload,
	}}}
	guard := &fakeDeliveryGuard{}
	job := newWebhookRetryJob(t, repo, guard, &fakePixDispatcher{}, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if guard.completed != 0 || guard.failed != 0 {
		t.Fatalf("expected untouched guard, got completed=%d failed=%d", guard.completed, guard.failed)
	}
}

func TestWebhookRetryJobSkipsEmptyPayload(t *testing.T) {
	repo := &fakeFailedLister{events: []models.WebhookEvent{{
		Provider:        enums.PaymentGatewayPix,
		ProviderEventID: "evt-5",
		Status:          enums.WebhookEventStatusFailed,
	}}}
	guard := &fakeDeliveryGuard{}
	pix := &fakePixDispatcher{}
	job := newWebhookRetryJob(t, repo, guard, pix, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pix.events) != 0 {
		t.Fatalf("expected no dispatch, got %d", len(pix.events))
	}
}

func newWebhookRetryJob(t *testing.T, repo *fakeFailedLister, guard *fakeDeliveryGuard, pix pixDispatcher, stripeDisp stripeDispatcher) Job {
	t.Helper()
	job, err := NewWebhookRetryJob(WebhookRetryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Repo:   repo,
		Guard:  guard,
		Pix:    pix,
		Stripe: stripeDisp,
	})
	if err != nil {
		t.Fatalf("NewWebhookRetryJob: %v", err)
	}
	return job
}

type fakeFailedLister struct {
	events []models.WebhookEvent
}

func (f *fakeFailedLister) ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	if limit > 0 && limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

type fakeDeliveryGuard struct {
	completed int
	failed    int
}

func (f *fakeDeliveryGuard) Complete(ctx context.Context, provider enums.PaymentGateway, providerEventID string) error {
	f.completed++
	return nil
}

func (f *fakeDeliveryGuard) Fail(ctx context.Context, provider enums.PaymentGateway, providerEventID string, cause error) error {
	f.failed++
	return nil
}

type fakePixDispatcher struct {
	events []*pixwebhook.Event
	err    error
}

func (f *fakePixDispatcher) HandleEvent(ctx context.Context, event *pixwebhook.Event) error {
	f.events = append(f.events, event)
	return f.err
}

type fakeStripeDispatcher struct {
	events []*stripe.Event
	err    error
}

func (f *fakeStripeDispatcher) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.events = append(f.events, event)
	return f.err
}
