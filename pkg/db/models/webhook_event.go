package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/golacotv/golaco-backend/pkg/enums"
)

// WebhookEvent records one provider delivery. The unique (provider,
// provider_event_id) pair is the exactly-once primitive: a conflicting
// insert means a duplicate delivery, which is acknowledged without side
// effects. Rows are write-once except for the failure annotation.
type WebhookEvent struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider        enums.PaymentGateway     `gorm:"column:provider;type:payment_gateway;not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string                   `gorm:"column:provider_event_id;not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string                   `gorm:"column:event_type;not null"`
	Status          enums.WebhookEventStatus `gorm:"column:status;type:webhook_event_status;not null;default:'processed'"`
	ProcessingError *string                  `gorm:"column:processing_error"`
	Payload         []byte                   `gorm:"column:payload"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
