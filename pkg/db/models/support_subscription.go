package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// SupportSubscription is one supporter's recurring micro-subscription for
// one (tournament, team). It counts toward the goal only while ACTIVE and
// only when StartedAt falls inside the tournament's goal window.
type SupportSubscription struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupporterID            uuid.UUID            `gorm:"column:supporter_id;type:uuid;not null;index"`
	TournamentID           uuid.UUID            `gorm:"column:tournament_id;type:uuid;not null;index:ix_support_subscriptions_pair,priority:1"`
	TeamID                 uuid.UUID            `gorm:"column:team_id;type:uuid;not null;index:ix_support_subscriptions_pair,priority:2"`
	Gateway                enums.PaymentGateway `gorm:"column:gateway;type:payment_gateway;not null"`
	ExternalSubscriptionID string               `gorm:"column:external_subscription_id;not null;uniqueIndex"`
	Status                 enums.SupportStatus  `gorm:"column:status;type:support_status;not null;default:'ACTIVE'"`
	AmountCents            int64                `gorm:"column:amount_cents;not null"`
	StartedAt              time.Time            `gorm:"column:started_at;not null"`
	CanceledAt             *time.Time           `gorm:"column:canceled_at"`
	CreatedAt              time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
