package enums

import "fmt"

// BeneficiaryType identifies who a commission is owed to.
type BeneficiaryType string

const (
	BeneficiaryTypeTeam    BeneficiaryType = "team"
	BeneficiaryTypePartner BeneficiaryType = "partner"
)

var validBeneficiaryTypes = []BeneficiaryType{
	BeneficiaryTypeTeam,
	BeneficiaryTypePartner,
}

// String implements fmt.Stringer.
func (b BeneficiaryType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BeneficiaryType.
func (b BeneficiaryType) IsValid() bool {
	for _, candidate := range validBeneficiaryTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBeneficiaryType converts raw input into a BeneficiaryType.
func ParseBeneficiaryType(value string) (BeneficiaryType, error) {
	for _, candidate := range validBeneficiaryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid beneficiary type %q", value)
}
