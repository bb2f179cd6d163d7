// Package pixwebhook dispatches Pix provider callbacks into the
// settlement engine. Only terminal charge events trigger state changes;
// everything else is acknowledged and dropped.
package pixwebhook

import (
	"context"
	"strings"
	"time"

	"github.com/golacotv/golaco-backend/internal/goals"
	"github.com/golacotv/golaco-backend/internal/purchases"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

// Provider event names for the charge lifecycle.
const (
	EventChargeCompleted      = "OPENPIX:CHARGE_COMPLETED"
	EventChargeExpired        = "OPENPIX:CHARGE_EXPIRED"
	EventSubscriptionCanceled = "OPENPIX:SUBSCRIPTION_CANCELED"
	EventTestPing             = "teste_webhook"

	chargeStatusCompleted = "COMPLETED"
)

// Event is the provider callback envelope.
type Event struct {
	Event   string  `json:"event"`
	EventID string  `json:"eventId"`
	Evento  string  `json:"evento"`
	Charge  *Charge `json:"charge"`
}

// Charge is the payment object inside a callback.
type Charge struct {
	CorrelationID  string     `json:"correlationID"`
	Status         string     `json:"status"`
	Value          int64      `json:"value"`
	PaidAt         *time.Time `json:"paidAt"`
	SubscriptionID string     `json:"subscription"`
}

// IsTestPing reports whether the payload is the provider's endpoint check.
func (e *Event) IsTestPing() bool {
	return e.Evento == EventTestPing || e.Event == EventTestPing
}

// DedupID returns the identifier used for exactly-once tracking. The
// provider does not always send an event id, so the event name plus
// correlation id stands in for it.
func (e *Event) DedupID() string {
	if e.EventID != "" {
		return e.EventID
	}
	correlationID := ""
	if e.Charge != nil {
		correlationID = e.Charge.CorrelationID
	}
	if correlationID == "" {
		return ""
	}
	return e.Event + ":" + correlationID
}

type settlementService interface {
	SettlePaid(ctx context.Context, params purchases.SettleParams) (*models.Purchase, error)
	SettleFailed(ctx context.Context, gateway enums.PaymentGateway, externalChargeID string) (*models.Purchase, error)
}

type goalService interface {
	ConfirmSupport(ctx context.Context, externalID string, paidAt time.Time) (*models.TournamentTeamGoal, error)
	CancelSupport(ctx context.Context, externalID string) (*models.TournamentTeamGoal, error)
}

type subscriptionService interface {
	Renew(ctx context.Context, externalID string, paidAt time.Time) (*models.Subscription, error)
}

// ServiceParams groups dependencies for the Pix dispatcher.
type ServiceParams struct {
	Settlement    settlementService
	Goals         goalService
	Subscriptions subscriptionService
	Logger        *logger.Logger
}

// Service routes Pix events to the settlement and goal flows.
type Service struct {
	settlement settlementService
	goals      goalService
	subs       subscriptionService
	logger     *logger.Logger
}

// NewService builds a Pix dispatcher.
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
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		settlement: params.Settlement,
		goals:      params.Goals,
		subs:       params.Subscriptions,
		logger:     params.Logger,
	}, nil
}

// HandleEvent processes one verified, deduplicated provider callback.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pix event required")
	}
	if event.IsTestPing() {
		return nil
	}

	switch event.Event {
	case EventChargeCompleted:
		return s.handleCompleted(ctx, event)
	case EventChargeExpired:
		return s.handleExpired(ctx, event)
	case EventSubscriptionCanceled:
		return s.handleSubscriptionCanceled(ctx, event)
	default:
		// intermediate lifecycle events carry no settlement effect
		return nil
	}
}

func (s *Service) handleCompleted(ctx context.Context, event *Event) error {
	charge := event.Charge
	if charge == nil || charge.CorrelationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge correlation id missing")
	}
	if charge.Status != "" && charge.Status != chargeStatusCompleted {
		return nil
	}

	paidAt := time.Now().UTC()
	if charge.PaidAt != nil {
		paidAt = charge.PaidAt.UTC()
	}
	ctx = s.logger.WithEventID(ctx, event.DedupID())

	if strings.HasPrefix(charge.CorrelationID, goals.PresalePrefix) {
		_, err := s.goals.ConfirmSupport(ctx, charge.CorrelationID, paidAt)
		return s.ackUnknown(ctx, err, "pix support payment without matching presale")
	}

	_, err := s.settlement.SettlePaid(ctx, purchases.SettleParams{
		Gateway:                enums.PaymentGatewayPix,
		ExternalChargeID:       charge.CorrelationID,
		ExternalSubscriptionID: charge.SubscriptionID,
		PaidAt:                 paidAt,
	})
	if isNotFound(err) && charge.SubscriptionID != "" {
		// renewal cycles arrive under a fresh correlation id; the
		// subscription reference is the only stable handle
		return s.handleRenewal(ctx, charge.SubscriptionID, paidAt)
	}
	return s.ackUnknown(ctx, err, "pix payment without matching purchase")
}

func (s *Service) handleRenewal(ctx context.Context, subscriptionID string, paidAt time.Time) error {
	if strings.HasPrefix(subscriptionID, goals.PresalePrefix) {
		_, err := s.goals.ConfirmSupport(ctx, subscriptionID, paidAt)
		return s.ackUnknown(ctx, err, "pix support renewal without matching presale")
	}
	_, err := s.subs.Renew(ctx, subscriptionID, paidAt)
	return s.ackUnknown(ctx, err, "pix renewal without matching subscription")
}

func (s *Service) handleExpired(ctx context.Context, event *Event) error {
	charge := event.Charge
	if charge == nil || charge.CorrelationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge correlation id missing")
	}
	if strings.HasPrefix(charge.CorrelationID, goals.PresalePrefix) {
		// an expired presale charge never activated; nothing to undo
		return nil
	}
	_, err := s.settlement.SettleFailed(ctx, enums.PaymentGatewayPix, charge.CorrelationID)
	return s.ackUnknown(ctx, err, "pix expiry without matching purchase")
}

func (s *Service) handleSubscriptionCanceled(ctx context.Context, event *Event) error {
	charge := event.Charge
	externalID := ""
	if charge != nil {
		if charge.SubscriptionID != "" {
			externalID = charge.SubscriptionID
		} else {
			externalID = charge.CorrelationID
		}
	}
	if externalID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}
	_, err := s.goals.CancelSupport(ctx, externalID)
	return err
}

// ackUnknown swallows not-found results: a charge the engine never issued
// is logged and acknowledged so the provider stops retrying it.
func (s *Service) ackUnknown(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		s.logger.Warn(ctx, msg)
		return nil
	}
	return err
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	appErr := pkgerrors.As(err)
	return appErr != nil && appErr.Code() == pkgerrors.CodeNotFound
}
