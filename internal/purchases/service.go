// Package purchases is the settlement core. A purchase row is created
// pending at checkout and flipped to a terminal state exactly once by the
// webhook path; the same transaction writes the earning ledger and applies
// subscription periods, so a replayed event can never double-settle.
package purchases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/golacotv/golaco-backend/internal/commission"
	"github.com/golacotv/golaco-backend/internal/earnings"
	"github.com/golacotv/golaco-backend/internal/notifications"
	"github.com/golacotv/golaco-backend/internal/subscriptions"
	"github.com/golacotv/golaco-backend/pkg/db"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
	"github.com/golacotv/golaco-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the settlement service.
type ServiceParams struct {
	Client       *db.Client
	Repo         Repository
	EarningsRepo earnings.Repository
	SubsRepo     subscriptions.Repository
	Logger       *logger.Logger
	Notifier     notifications.Notifier
	ReleaseGrace time.Duration
}

// Service settles purchases and writes their downstream ledger effects.
type Service struct {
	client       *db.Client
	repo         Repository
	earningsRepo earnings.Repository
	subsRepo     subscriptions.Repository
	logger       *logger.Logger
	notifier     notifications.Notifier
	releaseGrace time.Duration
}

// NewService builds a settlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, errors.New("db client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.EarningsRepo == nil {
		return nil, errors.New("earnings repo is required")
	}
	if params.SubsRepo == nil {
		return nil, errors.New("subscriptions repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Notifier == nil {
		params.Notifier = notifications.NewLogNotifier(params.Logger)
	}
	if params.ReleaseGrace <= 0 {
		params.ReleaseGrace = 168 * time.Hour
	}
	return &Service{
		client:       params.Client,
		repo:         params.Repo,
		earningsRepo: params.EarningsRepo,
		subsRepo:     params.SubsRepo,
		logger:       params.Logger,
		notifier:     params.Notifier,
		releaseGrace: params.ReleaseGrace,
	}, nil
}

// CreateParams describe a pending purchase opened at checkout.
type CreateParams struct {
	BuyerID          uuid.UUID
	PlanID           uuid.UUID
	ContentID        *uuid.UUID
	TeamID           *uuid.UUID
	PartnerID        *uuid.UUID
	GrossCents       int64
	Gateway          enums.PaymentGateway
	ExternalChargeID string
}

// CreatePending opens a purchase awaiting its payment event.
func (s *Service) CreatePending(ctx context.Context, params CreateParams) (*models.Purchase, error) {
	if params.BuyerID == uuid.Nil || params.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer and plan ids are required")
	}
	if params.GrossCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gross amount must be positive")
	}
	if params.ExternalChargeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external charge id is required")
	}
	if !params.Gateway.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment gateway")
	}

	purchase := &models.Purchase{
		ID:               uuid.New(),
		BuyerID:          params.BuyerID,
		PlanID:           params.PlanID,
		ContentID:        params.ContentID,
		TeamID:           params.TeamID,
		PartnerID:        params.PartnerID,
		GrossCents:       params.GrossCents,
		Status:           enums.PaymentStatusPending,
		Gateway:          params.Gateway,
		ExternalChargeID: params.ExternalChargeID,
	}
	if err := s.repo.Create(ctx, purchase); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating purchase")
	}
	return purchase, nil
}

// SettleParams identify a provider payment confirmation.
type SettleParams struct {
	Gateway                enums.PaymentGateway
	ExternalChargeID       string
	ExternalSubscriptionID string
	PaidAt                 time.Time
}

// SettlePaid flips a pending purchase to paid and writes its downstream
// effects in one transaction: the access window, the team and partner
// earning line items, and the subscription period for recurring plans.
// Settling an already paid purchase is a no-op.
func (s *Service) SettlePaid(ctx context.Context, params SettleParams) (*models.Purchase, error) {
	if params.ExternalChargeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external charge id is required")
	}
	if params.PaidAt.IsZero() {
		params.PaidAt = time.Now().UTC()
	}

	var purchase *models.Purchase
	settledNow := false
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByExternalChargeLocked(ctx, params.Gateway, params.ExternalChargeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading purchase")
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no purchase for charge")
		}
		purchase = found

		switch purchase.Status {
		case enums.PaymentStatusPaid:
			// replayed confirmation
			return nil
		case enums.PaymentStatusFailed:
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase already failed")
		}

		plan, err := repo.FindPlan(ctx, purchase.PlanID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
		}
		if plan == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}

		purchase.Status = enums.PaymentStatusPaid
		purchase.PaidAt = &params.PaidAt
		if period := plan.AccessPeriod(); period > 0 {
			expiresAt := params.PaidAt.Add(period)
			purchase.AccessExpiresAt = &expiresAt
		}

		items, teamShare, err := s.buildLineItems(ctx, repo, purchase, plan, params.PaidAt)
		if err != nil {
			return err
		}
		purchase.TeamShareCents = teamShare
		if err := s.earningsRepo.WithTx(tx).CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing earning line items")
		}

		if purchase.TeamID != nil {
			if err := s.recordFavoriteTeam(ctx, repo, purchase.BuyerID, *purchase.TeamID); err != nil {
				return err
			}
		}

		// only plans that grant portal-wide access carry a subscription;
		// recurring sponsorships settle as plain purchases
		if plan.Recurring && plan.UnlimitedCatalog {
			if err := s.applySubscriptionPeriod(ctx, tx, purchase, plan, params); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating purchase")
		}
		settledNow = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settledNow {
		s.notifier.PurchaseSettled(ctx, purchase)
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"purchase_id": purchase.ID,
		"gateway":     purchase.Gateway,
		"status":      purchase.Status,
	}), "purchase settled")
	return purchase, nil
}

// SettleFailed records a failed payment. Failing an already paid purchase
// is ignored: a late failure event cannot claw back granted access.
func (s *Service) SettleFailed(ctx context.Context, gateway enums.PaymentGateway, externalChargeID string) (*models.Purchase, error) {
	if externalChargeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external charge id is required")
	}

	var purchase *models.Purchase
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByExternalChargeLocked(ctx, gateway, externalChargeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading purchase")
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no purchase for charge")
		}
		purchase = found

		if purchase.Status != enums.PaymentStatusPending {
			return nil
		}

		purchase.Status = enums.PaymentStatusFailed
		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating purchase")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// GetByID loads one purchase.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	purchase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading purchase")
	}
	if purchase == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	return purchase, nil
}

// ListPurchasesParams configure one page of buyer history.
type ListPurchasesParams struct {
	BuyerID uuid.UUID
	Limit   int
	Cursor  string
}

// PurchasePage wraps a page of history plus the cursor for the next one.
type PurchasePage struct {
	Items  []models.Purchase `json:"items"`
	Cursor string            `json:"cursor"`
}

// ListByBuyer returns the buyer's purchase history, newest first.
func (s *Service) ListByBuyer(ctx context.Context, params ListPurchasesParams) (*PurchasePage, error) {
	if params.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}
	items, next, err := s.repo.ListByBuyer(ctx, params.BuyerID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing purchases")
	}
	page := &PurchasePage{Items: items}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// ListPlans returns the purchasable plans, cheapest first.
func (s *Service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	list, err := s.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing plans")
	}
	return list, nil
}

// buildLineItems computes the team payout and partner commission for a
// settled purchase. The team share goes to the purchase's team when set,
// otherwise to the buyer's favorite team.
func (s *Service) buildLineItems(ctx context.Context, repo Repository, purchase *models.Purchase, plan *models.Plan, paidAt time.Time) ([]models.EarningLineItem, int64, error) {
	releaseAt := paidAt.Add(s.releaseGrace)
	var items []models.EarningLineItem
	var teamShare int64

	teamID := purchase.TeamID
	if teamID == nil {
		buyer, err := repo.FindUser(ctx, purchase.BuyerID)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading buyer")
		}
		if buyer != nil {
			teamID = buyer.FavoriteTeamID
		}
	}
	if teamID != nil && plan.TeamPayoutPercent > 0 {
		teamShare = commission.Share(purchase.GrossCents, plan.TeamPayoutPercent)
		if teamShare > 0 {
			items = append(items, models.EarningLineItem{
				ID:              uuid.New(),
				BeneficiaryType: enums.BeneficiaryTypeTeam,
				BeneficiaryID:   *teamID,
				SourceType:      plan.Kind,
				SourceID:        purchase.ID,
				GrossCents:      purchase.GrossCents,
				Percent:         plan.TeamPayoutPercent,
				AmountCents:     teamShare,
				Status:          enums.EarningStatusPending,
				ReleaseAt:       releaseAt,
			})
		}
	}

	if purchase.PartnerID != nil {
		partner, err := repo.FindPartner(ctx, *purchase.PartnerID)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading partner")
		}
		resolved := commission.Resolve(plan, partner, plan.Kind, purchase.GrossCents)
		partnerShare := resolved.AmountCents
		// the shares together may never exceed the gross; the team share
		// is settled first, the partner takes from what remains
		if remaining := purchase.GrossCents - teamShare; partnerShare > remaining {
			partnerShare = remaining
		}
		if partnerShare > 0 {
			items = append(items, models.EarningLineItem{
				ID:              uuid.New(),
				BeneficiaryType: enums.BeneficiaryTypePartner,
				BeneficiaryID:   *purchase.PartnerID,
				SourceType:      plan.Kind,
				SourceID:        purchase.ID,
				GrossCents:      purchase.GrossCents,
				Percent:         resolved.Percent,
				AmountCents:     partnerShare,
				Status:          enums.EarningStatusPending,
				ReleaseAt:       releaseAt,
			})
		}
	}
	return items, teamShare, nil
}

// recordFavoriteTeam persists the team chosen at checkout as the buyer's
// favorite, so later purchases without a team route their payout to it.
func (s *Service) recordFavoriteTeam(ctx context.Context, repo Repository, buyerID, teamID uuid.UUID) error {
	buyer, err := repo.FindUser(ctx, buyerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading buyer")
	}
	if buyer == nil {
		return nil
	}
	if buyer.FavoriteTeamID != nil && *buyer.FavoriteTeamID == teamID {
		return nil
	}
	buyer.FavoriteTeamID = &teamID
	if err := repo.UpdateUser(ctx, buyer); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving favorite team")
	}
	return nil
}

// applySubscriptionPeriod upserts the buyer's portal subscription inside
// the settlement transaction.
func (s *Service) applySubscriptionPeriod(ctx context.Context, tx *gorm.DB, purchase *models.Purchase, plan *models.Plan, params SettleParams) error {
	subsRepo := s.subsRepo.WithTx(tx)

	existing, err := subsRepo.FindByBuyer(ctx, purchase.BuyerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}

	externalID := params.ExternalSubscriptionID
	if externalID == "" {
		externalID = purchase.ExternalChargeID
	}

	if existing == nil {
		sub := &models.Subscription{
			ID:                     uuid.New(),
			BuyerID:                purchase.BuyerID,
			PlanID:                 plan.ID,
			Active:                 true,
			StartedAt:              params.PaidAt,
			ExpiresAt:              subscriptions.NextExpiry(nil, params.PaidAt, plan.AccessPeriod()),
			Gateway:                purchase.Gateway,
			ExternalSubscriptionID: externalID,
		}
		if err := subsRepo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating subscription")
		}
		return nil
	}

	existing.Active = true
	existing.PlanID = plan.ID
	existing.Gateway = purchase.Gateway
	if params.ExternalSubscriptionID != "" {
		existing.ExternalSubscriptionID = params.ExternalSubscriptionID
	}
	existing.ExpiresAt = subscriptions.NextExpiry(existing.ExpiresAt, params.PaidAt, plan.AccessPeriod())
	if err := subsRepo.Update(ctx, existing); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "extending subscription")
	}
	return nil
}
