package enums

import "fmt"

// GoalStatus tracks whether a team's crowdfunding threshold has been met.
type GoalStatus string

const (
	GoalStatusPending  GoalStatus = "PENDING"
	GoalStatusAchieved GoalStatus = "ACHIEVED"
)

var validGoalStatuses = []GoalStatus{
	GoalStatusPending,
	GoalStatusAchieved,
}

// String implements fmt.Stringer.
func (s GoalStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known GoalStatus.
func (s GoalStatus) IsValid() bool {
	for _, candidate := range validGoalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseGoalStatus converts raw input into a GoalStatus.
func ParseGoalStatus(value string) (GoalStatus, error) {
	for _, candidate := range validGoalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid goal status %q", value)
}
