// Package stripewebhook dispatches Stripe events into the settlement
// engine. One-time charges settle on the payment intent lifecycle;
// recurring plans and goal supports ride the invoice and subscription
// lifecycle instead.
package stripewebhook

import (
	"context"
	"encoding/json"
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

// Metadata keys stamped onto Stripe objects at checkout time. The
// dispatcher reads them back to route events without a local lookup
// table keyed by Stripe ids.
const (
	MetadataPurpose = "purpose"
	MetadataBuyerID = "buyer_id"
	MetadataPlanID  = "plan_id"

	PurposeGoalSupport = "goal_support"

	billingReasonSubscriptionCreate = "subscription_create"
)

type settlementService interface {
	SettlePaid(ctx context.Context, params purchases.SettleParams) (*models.Purchase, error)
	SettleFailed(ctx context.Context, gateway enums.PaymentGateway, externalChargeID string) (*models.Purchase, error)
}

type goalService interface {
	ConfirmSupport(ctx context.Context, externalID string, paidAt time.Time) (*models.TournamentTeamGoal, error)
	CancelSupport(ctx context.Context, externalID string) (*models.TournamentTeamGoal, error)
}

type subscriptionService interface {
	ActivateOrExtend(ctx context.Context, params subscriptions.ActivateParams) (*models.Subscription, error)
	Deactivate(ctx context.Context, externalID string) error
}

type planResolver interface {
	FindPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
}

type subscriptionFetcher interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// ServiceParams groups dependencies for the Stripe dispatcher.
type ServiceParams struct {
	Settlement    settlementService
	Goals         goalService
	Subscriptions subscriptionService
	Plans         planResolver
	StripeClient  subscriptionFetcher
	Logger        *logger.Logger
}

// Service routes Stripe events to the settlement, goal and
// subscription flows.
type Service struct {
	settlement settlementService
	goals      goalService
	subs       subscriptionService
	plans      planResolver
	stripe     subscriptionFetcher
	logger     *logger.Logger
}

// NewService builds a Stripe dispatcher.
func NewService(params ServiceParams) (*Service, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Goals == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "goal service required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan resolver required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		settlement: params.Settlement,
		goals:      params.Goals,
		subs:       params.Subscriptions,
		plans:      params.Plans,
		stripe:     params.StripeClient,
		logger:     params.Logger,
	}, nil
}

// HandleEvent processes one verified, deduplicated Stripe event.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logger.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		return s.handlePaymentIntentSucceeded(ctx, event)
	case stripe.EventTypePaymentIntentPaymentFailed:
		return s.handlePaymentIntentFailed(ctx, event)
	case stripe.EventTypeInvoicePaid:
		return s.handleInvoicePaid(ctx, event)
	case stripe.EventTypeInvoicePaymentFailed:
		// no state change until Stripe gives up and deletes the
		// subscription, which arrives as its own event
		s.logger.Warn(ctx, "stripe invoice payment failed")
		return nil
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	default:
		return nil
	}
}

func (s *Service) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	paidAt := eventTime(event)

	if intent.Metadata[MetadataPurpose] == PurposeGoalSupport {
		_, err := s.goals.ConfirmSupport(ctx, intent.ID, paidAt)
		return s.ackUnknown(ctx, err, "stripe support payment without matching presale")
	}

	_, err := s.settlement.SettlePaid(ctx, purchases.SettleParams{
		Gateway:          enums.PaymentGatewayStripe,
		ExternalChargeID: intent.ID,
		PaidAt:           paidAt,
	})
	return s.ackUnknown(ctx, err, "stripe payment without matching purchase")
}

func (s *Service) handlePaymentIntentFailed(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	if intent.Metadata[MetadataPurpose] == PurposeGoalSupport {
		// a failed support charge never activated; nothing to undo
		return nil
	}
	_, err := s.settlement.SettleFailed(ctx, enums.PaymentGatewayStripe, intent.ID)
	return s.ackUnknown(ctx, err, "stripe failure without matching purchase")
}

// handleInvoicePaid applies one paid billing cycle. The first invoice of
// a subscription is already settled by the payment intent path, so only
// renewal cycles extend access here.
func (s *Service) handleInvoicePaid(ctx context.Context, event *stripe.Event) error {
	subscriptionID := event.GetObjectValue("subscription")
	if subscriptionID == "" {
		// one-off invoices carry no subscription and settle elsewhere
		return nil
	}
	if event.GetObjectValue("billing_reason") == billingReasonSubscriptionCreate {
		return nil
	}

	stripeSub, err := s.stripe.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching stripe subscription")
	}
	paidAt := eventTime(event)

	if stripeSub.Metadata[MetadataPurpose] == PurposeGoalSupport {
		_, err := s.goals.ConfirmSupport(ctx, subscriptionID, paidAt)
		return s.ackUnknown(ctx, err, "stripe support renewal without matching presale")
	}

	buyerID, err := uuid.Parse(stripeSub.Metadata[MetadataBuyerID])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription metadata missing buyer id")
	}
	planID, err := uuid.Parse(stripeSub.Metadata[MetadataPlanID])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription metadata missing plan id")
	}
	plan, err := s.plans.FindPlan(ctx, planID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	if plan == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	_, err = s.subs.ActivateOrExtend(ctx, subscriptions.ActivateParams{
		BuyerID:                buyerID,
		PlanID:                 plan.ID,
		Gateway:                enums.PaymentGatewayStripe,
		ExternalSubscriptionID: subscriptionID,
		PaidAt:                 paidAt,
		Period:                 plan.AccessPeriod(),
	})
	return err
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
	}
	if stripeSub.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}

	if stripeSub.Metadata[MetadataPurpose] == PurposeGoalSupport {
		_, err := s.goals.CancelSupport(ctx, stripeSub.ID)
		return err
	}
	return s.subs.Deactivate(ctx, stripeSub.ID)
}

// ackUnknown swallows not-found results: a charge the engine never issued
// is logged and acknowledged so Stripe stops retrying it.
func (s *Service) ackUnknown(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}
	if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
		s.logger.Warn(ctx, msg)
		return nil
	}
	return err
}

func eventTime(event *stripe.Event) time.Time {
	if event.Created > 0 {
		return time.Unix(event.Created, 0).UTC()
	}
	return time.Now().UTC()
}
