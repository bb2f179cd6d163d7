package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	"github.com/golacotv/golaco-backend/pkg/pagination"
)

// Repository handles earning ledger persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLineItems(ctx context.Context, items []models.EarningLineItem) error
	FindLineItemLocked(ctx context.Context, id uuid.UUID) (*models.EarningLineItem, error)
	UpdateLineItem(ctx context.Context, item *models.EarningLineItem) error
	ListLineItems(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.EarningLineItem, *pagination.Cursor, error)
	LockBeneficiaryLineItems(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) error
	SumPendingReleased(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID, asOf time.Time) (int64, error)
	SumPendingUnreleased(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID, asOf time.Time) (int64, error)
	SumPaid(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) (int64, error)
	CreateWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error
	UpdateWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error
	FindWithdrawalLocked(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) ([]models.WithdrawalRequest, error)
	SumActiveWithdrawals(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an earnings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.EarningLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindLineItemLocked(ctx context.Context, id uuid.UUID) (*models.EarningLineItem, error) {
	var item models.EarningLineItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateLineItem(ctx context.Context, item *models.EarningLineItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) ListLineItems(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.EarningLineItem, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).
		Where("beneficiary_type = ? AND beneficiary_id = ?", beneficiaryType, beneficiaryID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var items []models.EarningLineItem
	if err := query.Order("created_at DESC, id DESC").Limit(buffered).Find(&items).Error; err != nil {
		return nil, nil, err
	}
	if len(items) > normalized {
		next := items[normalized]
		items = items[:normalized]
		return items, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return items, nil, nil
}

// LockBeneficiaryLineItems takes row locks on the beneficiary's ledger so
// concurrent balance checks serialize.
func (r *repository) LockBeneficiaryLineItems(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) error {
	var items []models.EarningLineItem
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("beneficiary_type = ? AND beneficiary_id = ?", beneficiaryType, beneficiaryID).
		Find(&items).Error
}

func (r *repository) SumPendingReleased(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID, asOf time.Time) (int64, error) {
	return r.sumLineItems(ctx, beneficiaryType, beneficiaryID, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ? AND release_at <= ?", enums.EarningStatusPending, asOf)
	})
}

func (r *repository) SumPendingUnreleased(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID, asOf time.Time) (int64, error) {
	return r.sumLineItems(ctx, beneficiaryType, beneficiaryID, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ? AND release_at > ?", enums.EarningStatusPending, asOf)
	})
}

func (r *repository) SumPaid(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) (int64, error) {
	return r.sumLineItems(ctx, beneficiaryType, beneficiaryID, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", enums.EarningStatusPaid)
	})
}

func (r *repository) sumLineItems(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	var total *int64
	query := r.db.WithContext(ctx).
		Model(&models.EarningLineItem{}).
		Where("beneficiary_type = ? AND beneficiary_id = ?", beneficiaryType, beneficiaryID)
	if err := scope(query).
		Select("SUM(amount_cents)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) CreateWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) UpdateWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

func (r *repository) FindWithdrawalLocked(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListWithdrawals(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) ([]models.WithdrawalRequest, error) {
	var requests []models.WithdrawalRequest
	if err := r.db.WithContext(ctx).
		Where("beneficiary_type = ? AND beneficiary_id = ?", beneficiaryType, beneficiaryID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// SumActiveWithdrawals totals every request still counting against the
// balance, which is everything except canceled ones.
func (r *repository) SumActiveWithdrawals(ctx context.Context, beneficiaryType enums.BeneficiaryType, beneficiaryID uuid.UUID) (int64, error) {
	var total *int64
	if err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("beneficiary_type = ? AND beneficiary_id = ?", beneficiaryType, beneficiaryID).
		Where("status <> ?", enums.WithdrawalStatusCanceled).
		Select("SUM(amount_cents)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
