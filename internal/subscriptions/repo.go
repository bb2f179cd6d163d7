package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/golacotv/golaco-backend/pkg/db/models"
)

// Repository handles buyer subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Subscription, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Subscription, error)
	FindPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error)
	DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.Subscription, error) {
	if externalID == "" {
		return nil, nil
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("external_subscription_id = ?", externalID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindPlan(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("id = ?", planID).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// DeactivateExpired flips active subscriptions whose paid period has
// elapsed, returning how many rows changed.
func (r *repository) DeactivateExpired(ctx context.Context, asOf time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, asOf).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
