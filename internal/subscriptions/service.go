// Package subscriptions maintains the single portal-wide recurring access
// record each buyer holds. Renewals extend the existing row; a buyer never
// accumulates multiple subscription rows.
package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/golacotv/golaco-backend/pkg/db"
	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	pkgerrors "github.com/golacotv/golaco-backend/pkg/errors"
	"github.com/golacotv/golaco-backend/pkg/logger"
)

// ServiceParams groups dependencies for the subscriptions service.
type ServiceParams struct {
	Client *db.Client
	Repo   Repository
	Logger *logger.Logger
}

// Service owns buyer subscription lifecycle operations.
type Service struct {
	client *db.Client
	repo   Repository
	logger *logger.Logger
}

// NewService builds a subscriptions service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, errors.New("db client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{client: params.Client, repo: params.Repo, logger: params.Logger}, nil
}

// ActivateParams describe one paid subscription period.
type ActivateParams struct {
	BuyerID                uuid.UUID
	PlanID                 uuid.UUID
	Gateway                enums.PaymentGateway
	ExternalSubscriptionID string
	PaidAt                 time.Time
	Period                 time.Duration
}

// ActivateOrExtend applies one paid period to the buyer's subscription,
// creating the row on first payment. Stacked renewals extend from the
// current expiry when it is still in the future, so paying early never
// shortens access. A zero period grants unlimited access.
func (s *Service) ActivateOrExtend(ctx context.Context, params ActivateParams) (*models.Subscription, error) {
	if params.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if params.PaidAt.IsZero() {
		params.PaidAt = time.Now().UTC()
	}

	var result *models.Subscription
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var existing models.Subscription
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("buyer_id = ?", params.BuyerID).
			First(&existing).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
		}

		if err == gorm.ErrRecordNotFound {
			sub := &models.Subscription{
				ID:                     uuid.New(),
				BuyerID:                params.BuyerID,
				PlanID:                 params.PlanID,
				Active:                 true,
				StartedAt:              params.PaidAt,
				ExpiresAt:              NextExpiry(nil, params.PaidAt, params.Period),
				Gateway:                params.Gateway,
				ExternalSubscriptionID: params.ExternalSubscriptionID,
			}
			if err := repo.Create(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating subscription")
			}
			result = sub
			return nil
		}

		existing.Active = true
		existing.PlanID = params.PlanID
		existing.Gateway = params.Gateway
		if params.ExternalSubscriptionID != "" {
			existing.ExternalSubscriptionID = params.ExternalSubscriptionID
		}
		existing.ExpiresAt = NextExpiry(existing.ExpiresAt, params.PaidAt, params.Period)
		if err := repo.Update(ctx, &existing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "extending subscription")
		}
		result = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"buyer_id":   params.BuyerID,
		"expires_at": result.ExpiresAt,
	}), "subscription period applied")
	return result, nil
}

// Renew applies one paid billing cycle to the subscription identified by
// its gateway id. Providers that bill by subscription reference renewal
// charges this way instead of repeating the original charge id.
func (s *Service) Renew(ctx context.Context, externalID string, paidAt time.Time) (*models.Subscription, error) {
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external subscription id is required")
	}

	sub, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription for renewal charge")
	}
	plan, err := s.repo.FindPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	return s.ActivateOrExtend(ctx, ActivateParams{
		BuyerID:                sub.BuyerID,
		PlanID:                 sub.PlanID,
		Gateway:                sub.Gateway,
		ExternalSubscriptionID: externalID,
		PaidAt:                 paidAt,
		Period:                 plan.AccessPeriod(),
	})
}

// Deactivate marks the subscription identified by its gateway id inactive.
// Unknown ids are a no-op so provider retries stay idempotent.
func (s *Service) Deactivate(ctx context.Context, externalID string) error {
	sub, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if sub == nil {
		return nil
	}
	if !sub.Active {
		return nil
	}
	sub.Active = false
	if err := s.repo.Update(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivating subscription")
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{"buyer_id": sub.BuyerID}), "subscription deactivated")
	return nil
}

// HasAccess reports whether the buyer's subscription grants catalog access
// right now.
func (s *Service) HasAccess(ctx context.Context, buyerID uuid.UUID) (bool, *models.Subscription, error) {
	sub, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return false, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if sub == nil {
		return false, nil, nil
	}
	return sub.GrantsAccessAt(time.Now().UTC()), sub, nil
}

// NextExpiry returns the expiry after applying one paid period. The new
// period stacks on the current expiry when it is still ahead of paidAt.
// A non-positive period means unlimited access.
func NextExpiry(current *time.Time, paidAt time.Time, period time.Duration) *time.Time {
	if period <= 0 {
		return nil
	}
	base := paidAt
	if current != nil && current.After(base) {
		base = *current
	}
	next := base.Add(period)
	return &next
}
