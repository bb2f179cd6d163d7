package enums

import "fmt"

// TeamStatus is the qualification state of a team inside a tournament.
type TeamStatus string

const (
	TeamStatusApplied   TeamStatus = "APPLIED"
	TeamStatusInGoal    TeamStatus = "IN_GOAL"
	TeamStatusConfirmed TeamStatus = "CONFIRMED"
)

var validTeamStatuses = []TeamStatus{
	TeamStatusApplied,
	TeamStatusInGoal,
	TeamStatusConfirmed,
}

// String implements fmt.Stringer.
func (s TeamStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TeamStatus.
func (s TeamStatus) IsValid() bool {
	for _, candidate := range validTeamStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTeamStatus converts raw input into a TeamStatus.
func ParseTeamStatus(value string) (TeamStatus, error) {
	for _, candidate := range validTeamStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid team status %q", value)
}
