package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// Subscription is the buyer's single portal-wide recurring access record.
// The unique index on buyer_id enforces the one-per-buyer rule; renewals
// extend ExpiresAt rather than creating new rows.
type Subscription struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID                uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex"`
	PlanID                 uuid.UUID            `gorm:"column:plan_id;type:uuid;not null"`
	Active                 bool                 `gorm:"column:active;not null;default:true"`
	StartedAt              time.Time            `gorm:"column:started_at;not null"`
	ExpiresAt              *time.Time           `gorm:"column:expires_at"`
	Gateway                enums.PaymentGateway `gorm:"column:gateway;type:payment_gateway;not null"`
	ExternalSubscriptionID string               `gorm:"column:external_subscription_id;not null;index"`
	CreatedAt              time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// GrantsAccessAt reports whether the subscription grants catalog access
// at the given instant.
func (s *Subscription) GrantsAccessAt(ts time.Time) bool {
	if !s.Active {
		return false
	}
	if s.ExpiresAt == nil {
		return true
	}
	return ts.Before(*s.ExpiresAt)
}
