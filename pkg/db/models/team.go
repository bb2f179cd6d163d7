package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a club that can receive payout shares and run goal campaigns.
type Team struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	PixKey    *string   `gorm:"column:pix_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
