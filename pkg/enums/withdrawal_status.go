package enums

import "fmt"

// WithdrawalStatus tracks a beneficiary's cash-out request.
type WithdrawalStatus string

const (
	WithdrawalStatusRequested  WithdrawalStatus = "requested"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusPaid       WithdrawalStatus = "paid"
	WithdrawalStatusCanceled   WithdrawalStatus = "canceled"
)

var validWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusRequested,
	WithdrawalStatusProcessing,
	WithdrawalStatusPaid,
	WithdrawalStatusCanceled,
}

// String implements fmt.Stringer.
func (s WithdrawalStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WithdrawalStatus.
func (s WithdrawalStatus) IsValid() bool {
	for _, candidate := range validWithdrawalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CountsAgainstBalance reports whether the request still reserves funds.
func (s WithdrawalStatus) CountsAgainstBalance() bool {
	return s != WithdrawalStatusCanceled
}

// ParseWithdrawalStatus converts raw input into a WithdrawalStatus.
func ParseWithdrawalStatus(value string) (WithdrawalStatus, error) {
	for _, candidate := range validWithdrawalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid withdrawal status %q", value)
}
