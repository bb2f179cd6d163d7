package checkout

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

type stubPurchases struct {
	created []purchases.CreateParams
}

func (s *stubPurchases) CreatePending(_ context.Context, params purchases.CreateParams) (*models.Purchase, error) {
	s.created = append(s.created, params)
	return &models.Purchase{
		ID:               uuid.New(),
		BuyerID:          params.BuyerID,
		PlanID:           params.PlanID,
		GrossCents:       params.GrossCents,
		Status:           enums.PaymentStatusPending,
		Gateway:          params.Gateway,
		ExternalChargeID: params.ExternalChargeID,
	}, nil
}

type stubGoals struct {
	created []goals.SupportParams
}

func (s *stubGoals) CreatePendingSupport(_ context.Context, params goals.SupportParams) (*models.SupportSubscription, error) {
	s.created = append(s.created, params)
	return &models.SupportSubscription{
		ID:                     uuid.New(),
		SupporterID:            params.SupporterID,
		TournamentID:           params.TournamentID,
		TeamID:                 params.TeamID,
		Status:                 enums.SupportStatusPending,
		ExternalSubscriptionID: params.ExternalSubscriptionID,
	}, nil
}

type stubCatalog struct {
	plan *models.Plan
	user *models.User
}

func (s *stubCatalog) FindPlan(_ context.Context, _ uuid.UUID) (*models.Plan, error) {
	return s.plan, nil
}

func (s *stubCatalog) FindUser(_ context.Context, _ uuid.UUID) (*models.User, error) {
	return s.user, nil
}

type stubPix struct {
	charges []pix.ChargeRequest
	subs    []pix.SubscriptionRequest
}

func (s *stubPix) CreateCharge(_ context.Context, req pix.ChargeRequest) (*pix.Charge, error) {
	s.charges = append(s.charges, req)
	return &pix.Charge{
		CorrelationID: req.CorrelationID,
		BRCode:        "00020126brcode",
		QRCodeImage:   "https://pix.example/qr.png",
		Status:        "ACTIVE",
	}, nil
}

func (s *stubPix) CreateSubscription(_ context.Context, req pix.SubscriptionRequest) (*pix.Subscription, error) {
	s.subs = append(s.subs, req)
	return &pix.Subscription{
		GlobalID:      "global-1",
		CorrelationID: req.CorrelationID,
		Status:        "ACTIVE",
	}, nil
}

type stubStripe struct {
	intents []map[string]string
}

func (s *stubStripe) CreatePaymentIntent(_ context.Context, _ int64, _ string, metadata map[string]string) (*stripego.PaymentIntent, error) {
	s.intents = append(s.intents, metadata)
	return &stripego.PaymentIntent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
	}, nil
}

func monthlyPlan(priceBRL int64, recurring bool) *models.Plan {
	return &models.Plan{
		ID:           uuid.New(),
		Name:         "Game Pass",
		Kind:         enums.SaleTypeGame,
		Status:       enums.PlanStatusActive,
		PriceAmount:  decimal.NewFromInt(priceBRL),
		CurrencyCode: "BRL",
		Recurring:    recurring,
		Interval:     enums.BillingIntervalMonth,
	}
}

func newCheckout(t *testing.T, catalog *stubCatalog, pixRail pixClient, stripeRail stripeClient) (*Service, *stubPurchases, *stubGoals) {
	t.Helper()
	purchaseStub := &stubPurchases{}
	goalStub := &stubGoals{}
	svc, err := NewService(ServiceParams{
		Purchases: purchaseStub,
		Goals:     goalStub,
		Catalog:   catalog,
		Pix:       pixRail,
		Stripe:    stripeRail,
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc, purchaseStub, goalStub
}

func TestStartPurchasePixChargeOpensPendingPurchase(t *testing.T) {
	pixRail := &stubPix{}
	catalog := &stubCatalog{plan: monthlyPlan(20, false)}
	svc, purchaseStub, _ := newCheckout(t, catalog, pixRail, nil)

	intent, err := svc.StartPurchase(context.Background(), StartPurchaseParams{
		BuyerID: uuid.New(),
		PlanID:  catalog.plan.ID,
		Gateway: enums.PaymentGatewayPix,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Purchase.Status != enums.PaymentStatusPending {
		t.Fatalf("purchase must open pending, got %s", intent.Purchase.Status)
	}
	if len(pixRail.charges) != 1 || pixRail.charges[0].Value != 2000 {
		t.Fatalf("expected one 2000 cent charge, got %+v", pixRail.charges)
	}
	if intent.Payment.BRCode == "" {
		t.Fatalf("pix checkout must return the br code")
	}
	if purchaseStub.created[0].ExternalChargeID != intent.Payment.ExternalID {
		t.Fatalf("purchase must be keyed by the provider charge id")
	}
}

func TestStartPurchaseRecurringPlanUsesPixSubscription(t *testing.T) {
	pixRail := &stubPix{}
	catalog := &stubCatalog{
		plan: monthlyPlan(35, true),
		user: &models.User{ID: uuid.New(), Email: "buyer@example.com"},
	}
	svc, _, _ := newCheckout(t, catalog, pixRail, nil)

	_, err := svc.StartPurchase(context.Background(), StartPurchaseParams{
		BuyerID: catalog.user.ID,
		PlanID:  catalog.plan.ID,
		Gateway: enums.PaymentGatewayPix,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pixRail.subs) != 1 {
		t.Fatalf("recurring plans must open a pix subscription")
	}
	if pixRail.subs[0].Customer.Email != "buyer@example.com" {
		t.Fatalf("subscription must carry the buyer email")
	}
}

func TestStartPurchaseStripeCarriesMetadata(t *testing.T) {
	stripeRail := &stubStripe{}
	buyerID := uuid.New()
	catalog := &stubCatalog{plan: monthlyPlan(20, false)}
	svc, purchaseStub, _ := newCheckout(t, catalog, nil, stripeRail)

	intent, err := svc.StartPurchase(context.Background(), StartPurchaseParams{
		BuyerID: buyerID,
		PlanID:  catalog.plan.ID,
		Gateway: enums.PaymentGatewayStripe,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Payment.ClientSecret == "" {
		t.Fatalf("stripe checkout must return the client secret")
	}
	got := stripeRail.intents[0]
	if got[stripewebhook.MetadataBuyerID] != buyerID.String() {
		t.Fatalf("intent metadata must carry the buyer id, got %v", got)
	}
	if purchaseStub.created[0].ExternalChargeID != "pi_test" {
		t.Fatalf("purchase must be keyed by the payment intent id")
	}
}

func TestStartPurchaseUnconfiguredRailFailsClosed(t *testing.T) {
	catalog := &stubCatalog{plan: monthlyPlan(20, false)}
	svc, purchaseStub, _ := newCheckout(t, catalog, nil, nil)

	_, err := svc.StartPurchase(context.Background(), StartPurchaseParams{
		BuyerID: uuid.New(),
		PlanID:  catalog.plan.ID,
		Gateway: enums.PaymentGatewayPix,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotConfigured {
		t.Fatalf("expected not configured error, got %v", err)
	}
	if len(purchaseStub.created) != 0 {
		t.Fatalf("no purchase may open without a provider charge")
	}
}

func TestStartPurchaseArchivedPlanRejected(t *testing.T) {
	plan := monthlyPlan(20, false)
	plan.Status = enums.PlanStatusArchived
	svc, _, _ := newCheckout(t, &stubCatalog{plan: plan}, &stubPix{}, nil)

	_, err := svc.StartPurchase(context.Background(), StartPurchaseParams{
		BuyerID: uuid.New(),
		PlanID:  plan.ID,
		Gateway: enums.PaymentGatewayPix,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for archived plan, got %v", err)
	}
}

func TestStartSupportPixCreatesPresale(t *testing.T) {
	pixRail := &stubPix{}
	catalog := &stubCatalog{user: &models.User{ID: uuid.New(), Email: "fan@example.com"}}
	svc, _, goalStub := newCheckout(t, catalog, pixRail, nil)

	intent, err := svc.StartSupport(context.Background(), StartSupportParams{
		SupporterID:  catalog.user.ID,
		TournamentID: uuid.New(),
		TeamID:       uuid.New(),
		AmountCents:  1990,
		Gateway:      enums.PaymentGatewayPix,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(intent.Payment.ExternalID, goals.PresalePrefix) {
		t.Fatalf("support charges must use the presale prefix, got %q", intent.Payment.ExternalID)
	}
	if intent.Support.Status != enums.SupportStatusPending {
		t.Fatalf("support must open pending, got %s", intent.Support.Status)
	}
	if goalStub.created[0].ExternalSubscriptionID != intent.Payment.ExternalID {
		t.Fatalf("presale row must be keyed by the provider id")
	}
}

func TestStartSupportStripeMarksPurpose(t *testing.T) {
	stripeRail := &stubStripe{}
	svc, _, goalStub := newCheckout(t, &stubCatalog{}, nil, stripeRail)

	_, err := svc.StartSupport(context.Background(), StartSupportParams{
		SupporterID:  uuid.New(),
		TournamentID: uuid.New(),
		TeamID:       uuid.New(),
		AmountCents:  1990,
		Gateway:      enums.PaymentGatewayStripe,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stripeRail.intents[0][stripewebhook.MetadataPurpose] != stripewebhook.PurposeGoalSupport {
		t.Fatalf("support intents must be tagged for the webhook router")
	}
	if goalStub.created[0].ExternalSubscriptionID != "pi_test" {
		t.Fatalf("presale row must be keyed by the payment intent id")
	}
}
