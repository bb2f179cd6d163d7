package models

import (
	"time"

	"github.com/google/uuid"
)

// Tournament configures a goal-mode campaign: how many supporters a team
// needs, the counting window, and whether confirmation is a one-way latch.
type Tournament struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	RequiredSupporters int        `gorm:"column:required_supporters;not null"`
	GoalStart          *time.Time `gorm:"column:goal_start"`
	GoalEnd            *time.Time `gorm:"column:goal_end"`
	LockConfirmation   bool       `gorm:"column:lock_confirmation;not null;default:false"`
	GoalPayoutPercent  int        `gorm:"column:goal_payout_percent;not null;default:0"`
	SupportPriceCents  int64      `gorm:"column:support_price_cents;not null"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// WindowContains reports whether ts falls inside the configured goal
// window. A tournament without a window accepts any timestamp.
func (t *Tournament) WindowContains(ts time.Time) bool {
	if t.GoalStart != nil && ts.Before(*t.GoalStart) {
		return false
	}
	if t.GoalEnd != nil && ts.After(*t.GoalEnd) {
		return false
	}
	return true
}
