package enums

import "fmt"

// SupportStatus is the state of a supporter's goal micro-subscription.
type SupportStatus string

const (
	SupportStatusPending  SupportStatus = "PENDING"
	SupportStatusActive   SupportStatus = "ACTIVE"
	SupportStatusCanceled SupportStatus = "CANCELED"
)

var validSupportStatuses = []SupportStatus{
	SupportStatusPending,
	SupportStatusActive,
	SupportStatusCanceled,
}

// String implements fmt.Stringer.
func (s SupportStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SupportStatus.
func (s SupportStatus) IsValid() bool {
	for _, candidate := range validSupportStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSupportStatus converts raw input into a SupportStatus.
func ParseSupportStatus(value string) (SupportStatus, error) {
	for _, candidate := range validSupportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid support status %q", value)
}
