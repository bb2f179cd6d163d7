package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/golacotv/golaco-backend/pkg/db/models"
	"github.com/golacotv/golaco-backend/pkg/enums"
	"github.com/golacotv/golaco-backend/pkg/pagination"
)

// Repository handles purchase persistence plus the catalog lookups the
// settlement path needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) error
	Update(ctx context.Context, purchase *models.Purchase) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindByExternalChargeLocked(ctx context.Context, gateway enums.PaymentGateway, externalChargeID string) (*models.Purchase, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Purchase, *pagination.Cursor, error)
	FindPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListActivePlans(ctx context.Context) ([]models.Plan, error)
	FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchases repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) Update(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Save(purchase).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&purchase).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// FindByExternalChargeLocked locks the purchase row for the duration of
// the settlement transaction so replays serialize on it.
func (r *repository) FindByExternalChargeLocked(ctx context.Context, gateway enums.PaymentGateway, externalChargeID string) (*models.Purchase, error) {
	if externalChargeID == "" {
		return nil, nil
	}
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway = ? AND external_charge_id = ?", gateway, externalChargeID).
		First(&purchase).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Purchase, *pagination.Cursor, error) {
	buffered := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var list []models.Purchase
	if err := query.Order("created_at DESC, id DESC").Limit(buffered).Find(&list).Error; err != nil {
		return nil, nil, err
	}
	if len(list) > normalized {
		next := list[normalized]
		list = list[:normalized]
		return list, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return list, nil, nil
}

func (r *repository) FindPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	var list []models.Plan
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.PlanStatusActive).
		Order("price_amount ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&partner).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}
