package enums

import "fmt"

// SaleType distinguishes the revenue sources the commission resolver
// understands. Plans carry the first three kinds; goal support sales are
// produced by the crowdfunding tracker.
type SaleType string

const (
	SaleTypePlan        SaleType = "plan"
	SaleTypeGame        SaleType = "game"
	SaleTypeSponsorship SaleType = "sponsorship"
	SaleTypeGoalSupport SaleType = "goal_support"
)

var validSaleTypes = []SaleType{
	SaleTypePlan,
	SaleTypeGame,
	SaleTypeSponsorship,
	SaleTypeGoalSupport,
}

// String implements fmt.Stringer.
func (s SaleType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleType.
func (s SaleType) IsValid() bool {
	for _, candidate := range validSaleTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleType converts raw input into a SaleType.
func ParseSaleType(value string) (SaleType, error) {
	for _, candidate := range validSaleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale type %q", value)
}
