package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golacotv/golaco-backend/internal/purchases"
	"github.com/golacotv/golaco-backend/internal/subscriptions"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
)

type stubSettlement struct {
	paidCalls   []purchases.SettleParams
	failedCalls []string
	paidErr     error
}

func (s *stubSettlement) SettlePaid(_ context.Context, params purchases.SettleParams) (*models.Purchase, error) {
	s.paidCalls = append(s.paidCalls, params)
	if s.paidErr != nil {
		return nil, s.paidErr
	}
	return &models.Purchase{Status: enums.PaymentStatusPaid}, nil
}

func (s *stubSettlement) SettleFailed(_ context.Context, _ enums.PaymentGateway, externalChargeID string) (*models.Purchase, error) {
	s.failedCalls = append(s.failedCalls, externalChargeID)
	return &models.Purchase{Status: enums.PaymentStatusFailed}, nil
}

type stubGoals struct {
	confirmed []string
	canceled  []string
}

func (s *stubGoals) ConfirmSupport(_ context.Context, externalID string, _ time.Time) (*models.TournamentTeamGoal, error) {
	s.confirmed = append(s.confirmed, externalID)
	return &models.TournamentTeamGoal{}, nil
}

func (s *stubGoals) CancelSupport(_ context.Context, externalID string) (*models.TournamentTeamGoal, error) {
	s.canceled = append(s.canceled, externalID)
	return &models.TournamentTeamGoal{}, nil
}

type stubSubscriptions struct {
	activations []subscriptions.ActivateParams
	deactivated []string
}

func (s *stubSubscriptions) ActivateOrExtend(_ context.Context, params subscriptions.ActivateParams) (*models.Subscription, error) {
	s.activations = append(s.activations, params)
	return &models.Subscription{Active: true}, nil
}

func (s *stubSubscriptions) Deactivate(_ context.Context, externalID string) error {
	s.deactivated = append(s.deactivated, externalID)
	return nil
}

type stubPlans struct {
	plan *models.Plan
}

func (s *stubPlans) FindPlan(_ context.Context, _ uuid.UUID) (*models.Plan, error) {
	return s.plan, nil
}

type stubStripeClient struct {
	sub *stripe.Subscription
}

func (s *stubStripeClient) GetSubscription(_ context.Context, _ string) (*stripe.Subscription, error) {
	return s.sub, nil
}

type dispatcherStubs struct {
	settlement *stubSettlement
	goals      *stubGoals
	subs       *stubSubscriptions
	plans      *stubPlans
	stripe     *stubStripeClient
}

func newStripeService(t *testing.T, stubs dispatcherStubs) *Service {
	t.Helper()
	if stubs.settlement == nil {
		stubs.settlement = &stubSettlement{}
	}
	if stubs.goals == nil {
		stubs.goals = &stubGoals{}
	}
	if stubs.subs == nil {
		stubs.subs = &stubSubscriptions{}
	}
	if stubs.plans == nil {
		stubs.plans = &stubPlans{plan: &models.Plan{ID: uuid.New()}}
	}
	if stubs.stripe == nil {
		stubs.stripe = &stubStripeClient{sub: &stripe.Subscription{}}
	}
	svc, err := NewService(ServiceParams{
		Settlement:    stubs.settlement,
		Goals:         stubs.goals,
		Subscriptions: stubs.subs,
		Plans:         stubs.plans,
		StripeClient:  stubs.stripe,
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func rawEvent(t *testing.T, eventType stripe.EventType, object any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("encoding event object: %v", err)
	}
	return &stripe.Event{
		ID:      "evt_" + uuid.NewString(),
		Type:    eventType,
		Created: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC).Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventSettlesPaymentIntent(t *testing.T) {
	settlement := &stubSettlement{}
	svc := newStripeService(t, dispatcherStubs{settlement: settlement})

	event := rawEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{"id": "pi_123"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settlement.paidCalls) != 1 {
		t.Fatalf("expected one settle call, got %d", len(settlement.paidCalls))
	}
	call := settlement.paidCalls[0]
	if call.Gateway != enums.PaymentGatewayStripe || call.ExternalChargeID != "pi_123" {
		t.Fatalf("unexpected settle params %+v", call)
	}
	if call.PaidAt.Unix() != event.Created {
		t.Fatalf("expected event time as paid time")
	}
}

func TestHandleEventRoutesSupportIntentToGoals(t *testing.T) {
	settlement := &stubSettlement{}
	goals := &stubGoals{}
	svc := newStripeService(t, dispatcherStubs{settlement: settlement, goals: goals})

	event := rawEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{
		"id":       "pi_support",
		"metadata": map[string]string{MetadataPurpose: PurposeGoalSupport},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(goals.confirmed) != 1 || goals.confirmed[0] != "pi_support" {
		t.Fatalf("expected support confirmation, got %v", goals.confirmed)
	}
	if len(settlement.paidCalls) != 0 {
		t.Fatalf("support intent must not settle a purchase")
	}
}

func TestHandleEventFailedIntent(t *testing.T) {
	settlement := &stubSettlement{}
	svc := newStripeService(t, dispatcherStubs{settlement: settlement})

	event := rawEvent(t, stripe.EventTypePaymentIntentPaymentFailed, map[string]any{"id": "pi_bad"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settlement.failedCalls) != 1 || settlement.failedCalls[0] != "pi_bad" {
		t.Fatalf("expected failed settlement, got %v", settlement.failedCalls)
	}
}

func TestHandleEventAcksUnknownIntent(t *testing.T) {
	settlement := &stubSettlement{paidErr: pkgerrors.New(pkgerrors.CodeNotFound, "no purchase for charge")}
	svc := newStripeService(t, dispatcherStubs{settlement: settlement})

	event := rawEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]any{"id": "pi_ghost"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown charge must be acknowledged: %v", err)
	}
}

func TestHandleEventRenewalExtendsSubscription(t *testing.T) {
	buyerID := uuid.New()
	planID := uuid.New()
	plan := &models.Plan{ID: planID, Recurring: true, Interval: enums.BillingIntervalMonth}
	subs := &stubSubscriptions{}
	client := &stubStripeClient{sub: &stripe.Subscription{
		ID: "sub_42",
		Metadata: map[string]string{
			MetadataBuyerID: buyerID.String(),
			MetadataPlanID:  planID.String(),
		},
	}}
	svc := newStripeService(t, dispatcherStubs{subs: subs, plans: &stubPlans{plan: plan}, stripe: client})

	event := rawEvent(t, stripe.EventTypeInvoicePaid, nil)
	event.Data.Object = map[string]any{
		"subscription":   "sub_42",
		"billing_reason": "subscription_cycle",
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs.activations) != 1 {
		t.Fatalf("expected one activation, got %d", len(subs.activations))
	}
	got := subs.activations[0]
	if got.BuyerID != buyerID || got.PlanID != planID || got.ExternalSubscriptionID != "sub_42" {
		t.Fatalf("unexpected activation params %+v", got)
	}
	if got.Period != plan.AccessPeriod() {
		t.Fatalf("expected plan access period, got %v", got.Period)
	}
}

func TestHandleEventSkipsFirstInvoice(t *testing.T) {
	subs := &stubSubscriptions{}
	svc := newStripeService(t, dispatcherStubs{subs: subs})

	event := rawEvent(t, stripe.EventTypeInvoicePaid, nil)
	event.Data.Object = map[string]any{
		"subscription":   "sub_42",
		"billing_reason": billingReasonSubscriptionCreate,
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs.activations) != 0 {
		t.Fatalf("first invoice settles on the payment intent path, not here")
	}
}

func TestHandleEventSupportRenewalConfirmsGoal(t *testing.T) {
	goals := &stubGoals{}
	client := &stubStripeClient{sub: &stripe.Subscription{
		ID:       "sub_support",
		Metadata: map[string]string{MetadataPurpose: PurposeGoalSupport},
	}}
	svc := newStripeService(t, dispatcherStubs{goals: goals, stripe: client})

	event := rawEvent(t, stripe.EventTypeInvoicePaid, nil)
	event.Data.Object = map[string]any{
		"subscription":   "sub_support",
		"billing_reason": "subscription_cycle",
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(goals.confirmed) != 1 || goals.confirmed[0] != "sub_support" {
		t.Fatalf("expected support confirmation, got %v", goals.confirmed)
	}
}

func TestHandleEventSubscriptionDeleted(t *testing.T) {
	subs := &stubSubscriptions{}
	svc := newStripeService(t, dispatcherStubs{subs: subs})

	event := rawEvent(t, stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{"id": "sub_gone"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs.deactivated) != 1 || subs.deactivated[0] != "sub_gone" {
		t.Fatalf("expected deactivation, got %v", subs.deactivated)
	}
}

func TestHandleEventSupportSubscriptionDeletedCancelsGoal(t *testing.T) {
	goals := &stubGoals{}
	subs := &stubSubscriptions{}
	svc := newStripeService(t, dispatcherStubs{goals: goals, subs: subs})

	event := rawEvent(t, stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{
		"id":       "sub_support",
		"metadata": map[string]string{MetadataPurpose: PurposeGoalSupport},
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(goals.canceled) != 1 || goals.canceled[0] != "sub_support" {
		t.Fatalf("expected support cancel, got %v", goals.canceled)
	}
	if len(subs.deactivated) != 0 {
		t.Fatalf("support subscriptions are not access subscriptions")
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	settlement := &stubSettlement{}
	svc := newStripeService(t, dispatcherStubs{settlement: settlement})

	event := rawEvent(t, "charge.refunded", map[string]any{"id": "ch_1"})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settlement.paidCalls)+len(settlement.failedCalls) != 0 {
		t.Fatalf("unrelated events must have no side effects")
	}
}
