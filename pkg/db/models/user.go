package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal buyer/supporter row the settlement engine touches.
// Profile management lives in the account service.
type User struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string     `gorm:"column:email;not null;uniqueIndex"`
	FavoriteTeamID *uuid.UUID `gorm:"column:favorite_team_id;type:uuid"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
