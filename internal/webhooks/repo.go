package webhooks

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
)

// Repository persists webhook event receipts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, event *models.WebhookEvent) (bool, error)
	FindByProviderEvent(ctx context.Context, provider enums.PaymentGateway, providerEventID string) (*models.WebhookEvent, error)
	Update(ctx context.Context, event *models.WebhookEvent) error
	ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a webhook event repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert writes the receipt row, reporting false when the (provider,
// provider_event_id) pair already exists. The unique index is the
// exactly-once primitive; the conflict clause turns races into a clean
// duplicate signal instead of an error.
func (r *repository) Insert(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindByProviderEvent(ctx context.Context, provider enums.PaymentGateway, providerEventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) Update(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// ListFailed returns the oldest failed deliveries, up to limit, so the
// retry job can re-drive them from the stored payload.
func (r *repository) ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.WebhookEventStatusFailed).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
