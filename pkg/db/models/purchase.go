package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// Purchase is a one-time or first-period sale. It is created pending at
// checkout, flipped to paid or failed exactly once by the webhook path,
// and immutable afterward.
type Purchase struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID          uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	PlanID           uuid.UUID            `gorm:"column:plan_id;type:uuid;not null"`
	ContentID        *uuid.UUID           `gorm:"column:content_id;type:uuid"`
	TeamID           *uuid.UUID           `gorm:"column:team_id;type:uuid"`
	PartnerID        *uuid.UUID           `gorm:"column:partner_id;type:uuid"`
	GrossCents       int64                `gorm:"column:gross_cents;not null"`
	TeamShareCents   int64                `gorm:"column:team_share_cents;not null;default:0"`
	Status           enums.PaymentStatus  `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Gateway          enums.PaymentGateway `gorm:"column:gateway;type:payment_gateway;not null"`
	ExternalChargeID string               `gorm:"column:external_charge_id;not null;index"`
	AccessExpiresAt  *time.Time           `gorm:"column:access_expires_at"`
	PaidAt           *time.Time           `gorm:"column:paid_at"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
