package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// WithdrawalRequest reserves part of a beneficiary's released balance for
// a human-operated payout. Every non-canceled request counts against the
// available balance.
type WithdrawalRequest struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BeneficiaryType enums.BeneficiaryType  `gorm:"column:beneficiary_type;type:beneficiary_type;not null;index:ix_withdrawal_requests_beneficiary,priority:1"`
	BeneficiaryID   uuid.UUID              `gorm:"column:beneficiary_id;type:uuid;not null;index:ix_withdrawal_requests_beneficiary,priority:2"`
	AmountCents     int64                  `gorm:"column:amount_cents;not null"`
	PixKey          string                 `gorm:"column:pix_key;not null"`
	Status          enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'requested'"`
	PaidAt          *time.Time             `gorm:"column:paid_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
