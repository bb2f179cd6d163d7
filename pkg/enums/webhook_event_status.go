package enums

import "fmt"

// WebhookEventStatus records the outcome of a provider delivery.
type WebhookEventStatus string

const (
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

var validWebhookEventStatuses = []WebhookEventStatus{
	WebhookEventStatusProcessed,
	WebhookEventStatusFailed,
}

// String implements fmt.Stringer.
func (s WebhookEventStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WebhookEventStatus.
func (s WebhookEventStatus) IsValid() bool {
	for _, candidate := range validWebhookEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWebhookEventStatus converts raw input into a WebhookEventStatus.
func ParseWebhookEventStatus(value string) (WebhookEventStatus, error) {
	for _, candidate := range validWebhookEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event status %q", value)
}
