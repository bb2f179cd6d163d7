package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// Plan is a purchasable access product: a recurring catalog plan, a
// one-time game pass, or a sponsorship package. Payout percentages
// configured here take precedence over partner profile defaults.
type Plan struct {
	ID                       uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                     string                `gorm:"column:name;not null"`
	Kind                     enums.SaleType        `gorm:"column:kind;type:sale_type;not null;default:'plan'"`
	Status                   enums.PlanStatus      `gorm:"column:status;type:plan_status;not null;default:'active'"`
	PriceAmount              decimal.Decimal       `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode             string                `gorm:"column:currency_code;not null;default:'BRL'"`
	Recurring                bool                  `gorm:"column:recurring;not null;default:false"`
	Interval                 enums.BillingInterval `gorm:"column:interval;type:billing_interval;not null;default:'month'"`
	CustomDays               int                   `gorm:"column:custom_days;not null;default:0"`
	UnlimitedCatalog         bool                  `gorm:"column:unlimited_catalog;not null;default:false"`
	TeamPayoutPercent        int                   `gorm:"column:team_payout_percent;not null;default:0"`
	PartnerCommissionPercent int                   `gorm:"column:partner_commission_percent;not null;default:0"`
	Features                 pq.StringArray        `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt                time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceCents returns the plan price in integer minor units.
func (p *Plan) PriceCents() int64 {
	return p.PriceAmount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// AccessPeriod returns how much access a single paid period grants.
// Zero means the purchase grants unlimited access.
func (p *Plan) AccessPeriod() time.Duration {
	if !p.Recurring {
		return 0
	}
	switch p.Interval {
	case enums.BillingIntervalYear:
		return 365 * 24 * time.Hour
	case enums.BillingIntervalCustomDays:
		return time.Duration(p.CustomDays) * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
