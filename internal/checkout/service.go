// Package checkout opens provider charges and their pending local
// counterparts. Nothing here grants access or earnings; settlement
// happens only when the provider's payment event arrives.
package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v83"

	"github.com/golacotv/golaco-backend/internal/goals"
	"github.com/golacotv/golaco-backend/internal/purchases"
	stripewebhook "github.com/golacotv/golaco-backend/internal/webhooks/stripe"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/pix"
)

type pixClient interface {
	CreateCharge(ctx context.Context, req pix.ChargeRequest) (*pix.Charge, error)
	CreateSubscription(ctx context.Context, req pix.SubscriptionRequest) (*pix.Subscription, error)
}

type stripeClient interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripego.PaymentIntent, error)
}

type purchaseCreator interface {
	CreatePending(ctx context.Context, params purchases.CreateParams) (*models.Purchase, error)
}

type supportCreator interface {
	CreatePendingSupport(ctx context.Context, params goals.SupportParams) (*models.SupportSubscription, error)
}

type catalogResolver interface {
	FindPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams groups dependencies for the checkout service. Pix and
// Stripe are optional; a rail left nil rejects checkouts that select it.
type ServiceParams struct {
	Purchases purchaseCreator
	Goals     supportCreator
	Catalog   catalogResolver
	Pix       pixClient
	Stripe    stripeClient
	Logger    *logger.Logger
}

// Service starts purchases and goal supports against a payment rail.
type Service struct {
	purchases purchaseCreator
	goals     supportCreator
	catalog   catalogResolver
	pix       pixClient
	stripe    stripeClient
	logger    *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Purchases == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "purchase service required")
	}
	if params.Goals == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "goal service required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog resolver required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		purchases: params.Purchases,
		goals:     params.Goals,
		catalog:   params.Catalog,
		pix:       params.Pix,
		stripe:    params.Stripe,
		logger:    params.Logger,
	}, nil
}

// PaymentRef carries what the buyer needs to finish paying on the
// selected rail.
type PaymentRef struct {
	ExternalID   string `json:"external_id"`
	BRCode       string `json:"br_code,omitempty"`
	QRCodeImage  string `json:"qr_code_image,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// PurchaseIntent pairs the pending purchase with its payment reference.
type PurchaseIntent struct {
	Purchase *models.Purchase `json:"purchase"`
	Payment  PaymentRef       `json:"payment"`
}

// SupportIntent pairs the pending support with its payment reference.
type SupportIntent struct {
	Support *models.SupportSubscription `json:"support"`
	Payment PaymentRef                  `json:"payment"`
}

// StartPurchaseParams describe one checkout attempt.
type StartPurchaseParams struct {
	BuyerID   uuid.UUID
	PlanID    uuid.UUID
	ContentID *uuid.UUID
	TeamID    *uuid.UUID
	PartnerID *uuid.UUID
	Gateway   enums.PaymentGateway
}

// StartPurchase opens a provider charge for the plan price and records
// the pending purchase keyed by the provider's charge id.
func (s *Service) StartPurchase(ctx context.Context, params StartPurchaseParams) (*PurchaseIntent, error) {
	if params.BuyerID == uuid.Nil || params.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and plan ids are required")
	}

	plan, err := s.catalog.FindPlan(ctx, params.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	if plan.Status != enums.PlanStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan is not purchasable")
	}
	gross := plan.PriceCents()
	if gross <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan has no price")
	}

	var ref PaymentRef
	switch params.Gateway {
	case enums.PaymentGatewayPix:
		ref, err = s.openPixCharge(ctx, params.BuyerID, plan, gross)
	case enums.PaymentGatewayStripe:
		ref, err = s.openStripeIntent(ctx, gross, plan.CurrencyCode, map[string]string{
			stripewebhook.MetadataBuyerID: params.BuyerID.String(),
			stripewebhook.MetadataPlanID:  plan.ID.String(),
		})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment gateway")
	}
	if err != nil {
		return nil, err
	}

	purchase, err := s.purchases.CreatePending(ctx, purchases.CreateParams{
		BuyerID:          params.BuyerID,
		PlanID:           plan.ID,
		ContentID:        params.ContentID,
		TeamID:           params.TeamID,
		PartnerID:        params.PartnerID,
		GrossCents:       gross,
		Gateway:          params.Gateway,
		ExternalChargeID: ref.ExternalID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"purchase_id": purchase.ID,
		"gateway":     params.Gateway,
	}), "checkout opened")
	return &PurchaseIntent{Purchase: purchase, Payment: ref}, nil
}

// StartSupportParams describe one crowdfunding support checkout.
type StartSupportParams struct {
	SupporterID  uuid.UUID
	TournamentID uuid.UUID
	TeamID       uuid.UUID
	AmountCents  int64
	Gateway      enums.PaymentGateway
}

// StartSupport opens a recurring provider charge for a goal support and
// records the presale row the payment webhook will later confirm.
func (s *Service) StartSupport(ctx context.Context, params StartSupportParams) (*SupportIntent, error) {
	if params.SupporterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supporter id is required")
	}
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "support amount must be positive")
	}

	var (
		ref PaymentRef
		err error
	)
	switch params.Gateway {
	case enums.PaymentGatewayPix:
		ref, err = s.openPixSupport(ctx, params)
	case enums.PaymentGatewayStripe:
		ref, err = s.openStripeIntent(ctx, params.AmountCents, "BRL", map[string]string{
			stripewebhook.MetadataPurpose: stripewebhook.PurposeGoalSupport,
		})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment gateway")
	}
	if err != nil {
		return nil, err
	}

	support, err := s.goals.CreatePendingSupport(ctx, goals.SupportParams{
		SupporterID:            params.SupporterID,
		TournamentID:           params.TournamentID,
		TeamID:                 params.TeamID,
		Gateway:                params.Gateway,
		ExternalSubscriptionID: ref.ExternalID,
		AmountCents:            params.AmountCents,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"support_id": support.ID,
		"gateway":    params.Gateway,
	}), "support checkout opened")
	return &SupportIntent{Support: support, Payment: ref}, nil
}

func (s *Service) openPixCharge(ctx context.Context, buyerID uuid.UUID, plan *models.Plan, gross int64) (PaymentRef, error) {
	if s.pix == nil {
		return PaymentRef{}, pkgerrors.New(pkgerrors.CodeNotConfigured, "pix rail is not configured")
	}
	correlationID := "chg-" + uuid.NewString()

	if plan.Recurring {
		buyer, err := s.catalog.FindUser(ctx, buyerID)
		if err != nil {
			return PaymentRef{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading buyer")
		}
		if buyer == nil {
			return PaymentRef{}, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		req := pix.SubscriptionRequest{
			CorrelationID: correlationID,
			Value:         gross,
			Comment:       plan.Name,
		}
		req.Customer.Email = buyer.Email
		sub, err := s.pix.CreateSubscription(ctx, req)
		if err != nil {
			return PaymentRef{}, err
		}
		return PaymentRef{ExternalID: sub.CorrelationID}, nil
	}

	charge, err := s.pix.CreateCharge(ctx, pix.ChargeRequest{
		CorrelationID: correlationID,
		Value:         gross,
		Comment:       plan.Name,
	})
	if err != nil {
		return PaymentRef{}, err
	}
	return PaymentRef{
		ExternalID:  charge.CorrelationID,
		BRCode:      charge.BRCode,
		QRCodeImage: charge.QRCodeImage,
	}, nil
}

func (s *Service) openPixSupport(ctx context.Context, params StartSupportParams) (PaymentRef, error) {
	if s.pix == nil {
		return PaymentRef{}, pkgerrors.New(pkgerrors.CodeNotConfigured, "pix rail is not configured")
	}
	supporter, err := s.catalog.FindUser(ctx, params.SupporterID)
	if err != nil {
		return PaymentRef{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading supporter")
	}
	if supporter == nil {
		return PaymentRef{}, pkgerrors.New(pkgerrors.CodeNotFound, "supporter not found")
	}

	req := pix.SubscriptionRequest{
		CorrelationID: goals.PresalePrefix + uuid.NewString(),
		Value:         params.AmountCents,
		Comment:       fmt.Sprintf("goal support %s", params.TeamID),
	}
	req.Customer.Email = supporter.Email
	sub, err := s.pix.CreateSubscription(ctx, req)
	if err != nil {
		return PaymentRef{}, err
	}
	return PaymentRef{ExternalID: sub.CorrelationID}, nil
}

func (s *Service) openStripeIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (PaymentRef, error) {
	if s.stripe == nil {
		return PaymentRef{}, pkgerrors.New(pkgerrors.CodeNotConfigured, "stripe rail is not configured")
	}
	intent, err := s.stripe.CreatePaymentIntent(ctx, amountCents, currency, metadata)
	if err != nil {
		return PaymentRef{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stripe payment intent")
	}
	return PaymentRef{
		ExternalID:   intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}
