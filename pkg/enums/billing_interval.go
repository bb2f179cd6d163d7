package enums

import "fmt"

// BillingInterval describes how a recurring plan advances access windows.
type BillingInterval string

const (
	BillingIntervalMonth      BillingInterval = "month"
	BillingIntervalYear       BillingInterval = "year"
	BillingIntervalCustomDays BillingInterval = "custom_days"
)

var validBillingIntervals = []BillingInterval{
	BillingIntervalMonth,
	BillingIntervalYear,
	BillingIntervalCustomDays,
}

// String implements fmt.Stringer.
func (b BillingInterval) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingInterval.
func (b BillingInterval) IsValid() bool {
	for _, candidate := range validBillingIntervals {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingInterval converts raw input into a BillingInterval.
func ParseBillingInterval(value string) (BillingInterval, error) {
	for _, candidate := range validBillingIntervals {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing interval %q", value)
}
