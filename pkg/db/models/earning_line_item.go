package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// EarningLineItem is one commission owed to one beneficiary, tagged with
// the sale it was computed from. ReleaseAt gates when the pending amount
// starts counting toward the withdrawable balance.
type EarningLineItem struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BeneficiaryType  enums.BeneficiaryType `gorm:"column:beneficiary_type;type:beneficiary_type;not null;index:ix_earning_line_items_beneficiary,priority:1"`
	BeneficiaryID    uuid.UUID             `gorm:"column:beneficiary_id;type:uuid;not null;index:ix_earning_line_items_beneficiary,priority:2"`
	SourceType       enums.SaleType        `gorm:"column:source_type;type:sale_type;not null"`
	SourceID         uuid.UUID             `gorm:"column:source_id;type:uuid;not null;index"`
	GrossCents       int64                 `gorm:"column:gross_cents;not null"`
	Percent          int                   `gorm:"column:percent;not null"`
	AmountCents      int64                 `gorm:"column:amount_cents;not null"`
	Status           enums.EarningStatus   `gorm:"column:status;type:earning_status;not null;default:'pending'"`
	ReleaseAt        time.Time             `gorm:"column:release_at;not null"`
	PaidAt           *time.Time            `gorm:"column:paid_at"`
	PaymentReference *string               `gorm:"column:payment_reference"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
