package enums

import "fmt"

// PlanStatus marks whether a plan is purchasable.
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

var validPlanStatuses = []PlanStatus{
	PlanStatusActive,
	PlanStatusArchived,
}

// String implements fmt.Stringer.
func (s PlanStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PlanStatus.
func (s PlanStatus) IsValid() bool {
	for _, candidate := range validPlanStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePlanStatus converts raw input into a PlanStatus.
func ParsePlanStatus(value string) (PlanStatus, error) {
	for _, candidate := range validPlanStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan status %q", value)
}
