package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// Partner is an affiliate who refers buyers. Profile percentages are the
// fallback when the sold plan does not override them; none of them apply
// unless the partner is approved.
type Partner struct {
	ID                           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                       uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ReferralCode                 string              `gorm:"column:referral_code;not null;uniqueIndex"`
	Status                       enums.PartnerStatus `gorm:"column:status;type:partner_status;not null;default:'pending'"`
	PlanCommissionPercent        int                 `gorm:"column:plan_commission_percent;not null;default:0"`
	GameCommissionPercent        int                 `gorm:"column:game_commission_percent;not null;default:0"`
	SponsorshipCommissionPercent int                 `gorm:"column:sponsorship_commission_percent;not null;default:0"`
	PixKey                       *string             `gorm:"column:pix_key"`
	CreatedAt                    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// DefaultPercentFor returns the partner's profile fallback percent for the
// given sale type. Goal support sales never pay partners.
func (p *Partner) DefaultPercentFor(saleType enums.SaleType) int {
	switch saleType {
	case enums.SaleTypePlan:
		return p.PlanCommissionPercent
	case enums.SaleTypeGame:
		return p.GameCommissionPercent
	case enums.SaleTypeSponsorship:
		return p.SponsorshipCommissionPercent
	default:
		return 0
	}
}
