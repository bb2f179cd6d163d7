package enums

import "fmt"

// EarningStatus tracks whether a commission line item has been paid out.
type EarningStatus string

const (
	EarningStatusPending EarningStatus = "pending"
	EarningStatusPaid    EarningStatus = "paid"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusPending,
	EarningStatusPaid,
}

// String implements fmt.Stringer.
func (s EarningStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EarningStatus.
func (s EarningStatus) IsValid() bool {
	for _, candidate := range validEarningStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEarningStatus converts raw input into an EarningStatus.
func ParseEarningStatus(value string) (EarningStatus, error) {
	for _, candidate := range validEarningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning status %q", value)
}
